package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/google/uuid"
)

var ErrSessionClosed = errors.New("view session closed")

var orderChanges = domain.FeedFilter{
	Collection: domain.OrdersCollection,
	Types:      []domain.EventType{domain.EventInsert, domain.EventUpdate},
}

// Deps are the collaborators a view session talks to.
type Deps struct {
	Orders      interfaces.OrderFetcher
	Feed        interfaces.ChangeFeed
	Transitions interfaces.Transitioner
	Logger      logger.Logger
}

// Session owns the reconciled order list of one open staff view.
//
// The list starts from a baseline fetch and then follows the change feed.
// The subscription is taken before the fetch; events that arrive while a
// fetch is running are replayed on top of its result.
type Session struct {
	kind   Kind
	filter domain.OrderFilter
	deps   Deps

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	orders   []domain.Order
	sub      interfaces.Subscription
	subErr   error
	fetching bool
	replay   []domain.ChangeEvent
	closed   bool

	loadMu    sync.Mutex
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
	changes   chan struct{}
	inserts   chan domain.Order
}

// Open starts a session for kind. The session lives until Close is called
// or ctx is done.
func Open(ctx context.Context, kind Kind, deps Deps) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		kind:    kind,
		filter:  kind.Filter(),
		deps:    deps,
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		changes: make(chan struct{}, 1),
		inserts: make(chan domain.Order, 16),
	}

	if err := s.subscribe(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.load(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.deps.Logger.Debug("view_opened", "View session started", "", map[string]interface{}{
		"view":   string(kind),
		"orders": len(s.orders),
	})
	return s, nil
}

func (s *Session) Kind() Kind {
	return s.kind
}

// Orders returns a snapshot of the list, newest first.
func (s *Session) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

func (s *Session) Board() Board {
	return BuildBoard(s.kind, s.Orders())
}

// Err reports why the subscription ended, if it failed.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subErr
}

// Changes receives a value whenever the list or Err may have changed.
// Signals are coalesced.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// NewOrders receives orders that entered the view through an insert.
// Alerts are dropped when nobody reads them.
func (s *Session) NewOrders() <-chan domain.Order {
	return s.inserts
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Refresh re-subscribes when the subscription was lost and replaces the
// list with a fresh baseline. On failure the list is left as it was.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	closed, lost := s.closed, s.sub == nil || s.subErr != nil
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}

	if lost {
		if err := s.subscribe(); err != nil {
			s.mu.Lock()
			s.subErr = err
			s.mu.Unlock()
			return err
		}
	}
	return s.load(ctx)
}

// AdvanceStatus runs a kitchen transition and applies the stored result
// to the list. A failed transition leaves the list untouched.
func (s *Session) AdvanceStatus(ctx context.Context, id uuid.UUID, target domain.Status, actor string) (*domain.Order, error) {
	if s.deps.Transitions == nil {
		return nil, fmt.Errorf("view %s is read-only", s.kind)
	}
	updated, err := s.deps.Transitions.AdvanceStatus(ctx, id, target, actor)
	if err != nil {
		return nil, err
	}
	s.apply(domain.NewUpdateEvent(*updated, time.Now()))
	return updated, nil
}

func (s *Session) AdvanceDelivery(ctx context.Context, id uuid.UUID, target domain.DeliveryStatus, actor string) (*domain.Order, error) {
	if s.deps.Transitions == nil {
		return nil, fmt.Errorf("view %s is read-only", s.kind)
	}
	updated, err := s.deps.Transitions.AdvanceDelivery(ctx, id, target, actor)
	if err != nil {
		return nil, err
	}
	s.apply(domain.NewUpdateEvent(*updated, time.Now()))
	return updated, nil
}

// Close cancels the subscription and waits for the consumer to stop.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.mu.Unlock()

		s.cancel()
		if sub != nil {
			sub.Cancel()
		}
		s.wg.Wait()
		close(s.done)

		s.deps.Logger.Debug("view_closed", "View session closed", "", map[string]interface{}{
			"view": string(s.kind),
		})
	})
}

func (s *Session) subscribe() error {
	sub, err := s.deps.Feed.Subscribe(s.ctx, orderChanges)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err)
		s.deps.Logger.Error("subscribe_failed", "Failed to subscribe to order changes", "", map[string]interface{}{
			"view": string(s.kind),
		}, err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return ErrSessionClosed
	}
	s.sub = sub
	s.subErr = nil
	s.wg.Add(1)
	s.mu.Unlock()

	go s.consume(sub)
	return nil
}

func (s *Session) consume(sub interfaces.Subscription) {
	defer s.wg.Done()

	for ev := range sub.Events() {
		s.apply(ev)
	}

	err := sub.Err()
	if err == nil {
		return
	}

	s.mu.Lock()
	current := s.sub == sub && !s.closed
	if current {
		s.subErr = err
	}
	s.mu.Unlock()

	if current {
		s.deps.Logger.Error("subscription_lost", "Order change feed lost", "", map[string]interface{}{
			"view": string(s.kind),
		}, err)
		s.signal()
	}
}

func (s *Session) load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.fetching = true
	s.replay = nil
	s.mu.Unlock()

	orders, err := s.deps.Orders.Select(ctx, s.filter)

	s.mu.Lock()
	replay := s.replay
	s.fetching = false
	s.replay = nil
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
		s.deps.Logger.Error("view_fetch_failed", "Failed to fetch orders", "", map[string]interface{}{
			"view": string(s.kind),
		}, err)
		return err
	}

	list := make([]domain.Order, len(orders))
	copy(list, orders)
	for _, ev := range replay {
		list = ApplyScoped(list, ev, s.filter)
	}
	s.orders = list
	s.mu.Unlock()

	s.signal()
	return nil
}

func (s *Session) apply(ev domain.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	isNew := ev.Type == domain.EventInsert && indexOf(s.orders, ev.Order) < 0 && s.filter.Matches(ev.Order)
	s.orders = ApplyScoped(s.orders, ev, s.filter)
	if s.fetching {
		s.replay = append(s.replay, ev)
	}
	s.mu.Unlock()

	if isNew {
		select {
		case s.inserts <- ev.Order.Clone():
		default:
		}
	}
	s.signal()
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
