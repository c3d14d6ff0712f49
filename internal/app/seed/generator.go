package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/catalog"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/shopspring/decimal"
)

// Actor is recorded as changed_by on generated transitions.
const Actor = "seed"

var (
	customerNames = []string{
		"João Silva", "Maria Santos", "Pedro Oliveira", "Ana Costa",
		"Carlos Souza", "Fernanda Lima", "Ricardo Pereira", "Juliana Alves",
		"Lucas Ferreira", "Mariana Rodrigues", "Bruno Santos", "Camila Silva",
	}
	streets = []string{
		"Rua das Flores", "Avenida Brasil", "Rua São João", "Avenida Paulista",
		"Rua XV de Novembro", "Rua do Comércio", "Avenida das Palmeiras", "Rua da Paz",
	}
	neighborhoods = []string{
		"Centro", "Jardim América", "Vila Nova", "Santa Cruz",
		"Bela Vista", "Jardim Europa", "Vila Mariana", "Moema",
	}
	cities = []string{"São Paulo", "Guarulhos", "Campinas", "Santos"}
	notes  = []string{
		"Por favor, não toque a campainha",
		"Entregar na portaria",
		"Apartamento fundos",
		"Casa com portão azul",
		"Deixar com o porteiro",
		"",
		"Sem cebola, por favor",
		"Molho extra à parte",
	}
	payments = []domain.PaymentMethod{
		domain.PaymentPix, domain.PaymentCash, domain.PaymentCredit, domain.PaymentDebit,
	}
)

// Generator creates random orders through the regular services and moves
// each one along a random prefix of its legal paths.
type Generator struct {
	orders      interfaces.OrderService
	transitions interfaces.Transitioner
	logger      logger.Logger
	delay       time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Generator)

func WithRand(rnd *rand.Rand) Option {
	return func(g *Generator) { g.rnd = rnd }
}

// WithDelay spaces out generated orders.
func WithDelay(d time.Duration) Option {
	return func(g *Generator) { g.delay = d }
}

func NewGenerator(orders interfaces.OrderService, transitions interfaces.Transitioner, logger logger.Logger, opts ...Option) *Generator {
	g := &Generator{
		orders:      orders,
		transitions: transitions,
		logger:      logger,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ interfaces.Seeder = (*Generator)(nil)

// Seed creates n orders and returns how many were stored. A failed
// transition keeps the order it belongs to; a failed creation is skipped.
func (g *Generator) Seed(ctx context.Context, n int) (int, error) {
	created := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		draft, statuses, deliveries := g.plan()
		order, err := g.orders.CreateOrder(ctx, draft)
		if err != nil {
			g.logger.Error("seed_order_failed", "Failed to generate order", "", nil, err)
			continue
		}
		created++

		if err := g.walk(ctx, order, statuses, deliveries); err != nil {
			g.logger.Error("seed_transition_failed", "Generated order stopped early", "", map[string]interface{}{
				"order_id": order.ID.String(),
			}, err)
		}

		if g.delay > 0 {
			select {
			case <-ctx.Done():
				return created, ctx.Err()
			case <-time.After(g.delay):
			}
		}
	}

	g.logger.Info("seed_completed", fmt.Sprintf("Generated %d orders", created), "", map[string]interface{}{
		"requested": n,
		"created":   created,
	})
	return created, nil
}

func (g *Generator) walk(ctx context.Context, order *domain.Order, statuses []domain.Status, deliveries []domain.DeliveryStatus) error {
	for _, st := range statuses {
		if _, err := g.transitions.AdvanceStatus(ctx, order.ID, st, Actor); err != nil {
			return err
		}
	}
	for _, ds := range deliveries {
		if _, err := g.transitions.AdvanceDelivery(ctx, order.ID, ds, Actor); err != nil {
			return err
		}
	}
	return nil
}

// plan draws an order draft and the transitions to apply after creation.
func (g *Generator) plan() (domain.Draft, []domain.Status, []domain.DeliveryStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	draft := domain.Draft{
		CustomerName:  pick(g.rnd, customerNames),
		Street:        fmt.Sprintf("%s, %d", pick(g.rnd, streets), g.rnd.IntN(2000)+1),
		Neighborhood:  pick(g.rnd, neighborhoods),
		City:          pick(g.rnd, cities),
		ZipCode:       fmt.Sprintf("%05d-%03d", g.rnd.IntN(100000), g.rnd.IntN(1000)),
		Notes:         pick(g.rnd, notes),
		PaymentMethod: pick(g.rnd, payments),
		Items:         g.items(),
	}
	if g.rnd.IntN(2) == 0 {
		draft.Complement = fmt.Sprintf("Apto %d", g.rnd.IntN(1000)+1)
	}
	if draft.PaymentMethod == domain.PaymentCash {
		change := domain.CalculateTotal(draft.Items).Add(decimal.NewFromInt(int64(g.rnd.IntN(50) + 10))).Round(0)
		draft.ChangeFor = &change
	}

	var statuses []domain.Status
	var deliveries []domain.DeliveryStatus
	switch pick(g.rnd, domain.Statuses()) {
	case domain.StatusPreparing:
		statuses = []domain.Status{domain.StatusPreparing}
	case domain.StatusCompleted:
		statuses = []domain.Status{domain.StatusPreparing, domain.StatusCompleted}
		steps := domain.DeliveryStatuses()[1:]
		deliveries = steps[:g.rnd.IntN(len(steps)+1)]
	case domain.StatusCancelled:
		if g.rnd.IntN(2) == 0 {
			statuses = append(statuses, domain.StatusPreparing)
		}
		statuses = append(statuses, domain.StatusCancelled)
	}
	return draft, statuses, deliveries
}

func (g *Generator) items() []domain.OrderItem {
	products := catalog.Products()
	lines := g.rnd.IntN(5) + 1

	var items []domain.OrderItem
	index := map[int]int{}
	for i := 0; i < lines; i++ {
		p := pick(g.rnd, products)
		qty := g.rnd.IntN(3) + 1
		if at, ok := index[p.ID]; ok {
			items[at].Quantity += qty
			continue
		}
		index[p.ID] = len(items)
		items = append(items, p.Item(qty))
	}
	return items
}

func pick[T any](rnd *rand.Rand, values []T) T {
	return values[rnd.IntN(len(values))]
}
