package view

import (
	"fmt"
	"slices"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
)

// Kind names a staff view.
type Kind string

const (
	Kitchen  Kind = "kitchen"
	Delivery Kind = "delivery"
	Admin    Kind = "admin"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Kitchen, Delivery, Admin:
		return k, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Filter is the baseline selection of the view.
func (k Kind) Filter() domain.OrderFilter {
	switch k {
	case Kitchen:
		return domain.OrderFilter{Statuses: []domain.Status{
			domain.StatusPending, domain.StatusPreparing, domain.StatusCompleted,
		}}
	case Delivery:
		return domain.OrderFilter{Statuses: []domain.Status{domain.StatusCompleted}}
	default:
		return domain.OrderFilter{}
	}
}

// Allows reports whether a staff role may open the view. Admin opens all.
func (k Kind) Allows(role domain.Role) bool {
	if role == domain.RoleAdmin {
		return true
	}
	switch k {
	case Kitchen:
		return role == domain.RoleKitchen
	case Delivery:
		return role == domain.RoleDelivery
	}
	return false
}

// Row is an order with what a screen needs to render it.
type Row struct {
	Order    domain.Order        `json:"order"`
	Status   domain.Presentation `json:"status_view"`
	Delivery domain.Presentation `json:"delivery_view"`
	Actions  []domain.Action     `json:"actions"`
}

type Column struct {
	Status domain.Status `json:"status"`
	Title  string        `json:"title"`
	Count  int           `json:"count"`
	Rows   []Row         `json:"rows"`
}

// Board is the rendered state of a view. Rows keep the list order;
// Columns group the kitchen view by status.
type Board struct {
	View    Kind     `json:"view"`
	Rows    []Row    `json:"rows"`
	Columns []Column `json:"columns,omitempty"`
	Counts  Counts   `json:"counts"`
}

type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	InTransit int `json:"in_transit"`
	Delivered int `json:"delivered"`
}

var kitchenColumns = []struct {
	status domain.Status
	title  string
}{
	{domain.StatusPending, "Pedidos Pendentes"},
	{domain.StatusPreparing, "Em Preparação"},
	{domain.StatusCompleted, "Concluídos"},
}

// BuildBoard renders a list for the given view.
func BuildBoard(kind Kind, orders []domain.Order) Board {
	b := Board{View: kind, Rows: make([]Row, 0, len(orders))}
	for _, o := range orders {
		b.Rows = append(b.Rows, newRow(kind, o))
		b.Counts.add(o)
	}

	if kind == Kitchen {
		for _, c := range kitchenColumns {
			col := Column{Status: c.status, Title: c.title, Rows: []Row{}}
			for _, r := range b.Rows {
				if r.Order.Status == c.status {
					col.Rows = append(col.Rows, r)
				}
			}
			col.Count = len(col.Rows)
			b.Columns = append(b.Columns, col)
		}
	}
	return b
}

func newRow(kind Kind, o domain.Order) Row {
	r := Row{
		Order:    o,
		Status:   o.Status.Presentation(),
		Delivery: o.DeliveryStatus.Presentation(),
	}
	switch kind {
	case Kitchen:
		r.Actions = domain.StatusActions(o.Status)
	case Delivery:
		r.Actions = domain.DeliveryActions(o)
	default:
		r.Actions = slices.Concat(domain.StatusActions(o.Status), domain.DeliveryActions(o))
	}
	if r.Actions == nil {
		r.Actions = []domain.Action{}
	}
	return r
}

func (c *Counts) add(o domain.Order) {
	c.Total++
	switch o.Status {
	case domain.StatusPending:
		c.Pending++
	case domain.StatusPreparing:
		c.Preparing++
	case domain.StatusCompleted:
		c.Completed++
	case domain.StatusCancelled:
		c.Cancelled++
	}
	switch o.DeliveryStatus {
	case domain.DeliveryInTransit:
		c.InTransit++
	case domain.DeliveryDelivered:
		c.Delivered++
	}
}
