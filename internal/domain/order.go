package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDeliveryHorizon is added to the dispatch time to estimate arrival.
const DefaultDeliveryHorizon = 45 * time.Minute

// Order represents a customer order as persisted in the orders collection.
type Order struct {
	ID                    uuid.UUID           `json:"id"`
	CustomerName          string              `json:"customer_name"`
	Street                string              `json:"street"`
	Neighborhood          string              `json:"neighborhood"`
	City                  string              `json:"city"`
	ZipCode               string              `json:"zip_code"`
	Complement            *string             `json:"complement,omitempty"`
	Notes                 *string             `json:"notes,omitempty"`
	PaymentMethod         PaymentMethod       `json:"payment_method"`
	ChangeFor             decimal.NullDecimal `json:"change_for"`
	Total                 decimal.Decimal     `json:"total"`
	Items                 []OrderItem         `json:"items"`
	Status                Status              `json:"status"`
	DeliveryStatus        DeliveryStatus      `json:"delivery_status"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
}

// OrderItem is a product line snapshotted at order time.
type OrderItem struct {
	ProductID int             `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Draft is what the ordering flow hands over to create an order.
type Draft struct {
	CustomerName  string
	Street        string
	Neighborhood  string
	City          string
	ZipCode       string
	Complement    string
	Notes         string
	PaymentMethod PaymentMethod
	ChangeFor     *decimal.Decimal
	Items         []OrderItem
}

// OrderPatch is a single-order update. The Expect fields guard the write:
// it only applies while the stored row still has those values.
type OrderPatch struct {
	Status                *Status
	DeliveryStatus        *DeliveryStatus
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time

	ExpectStatus         Status
	ExpectDeliveryStatus DeliveryStatus
}

func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.DeliveryStatus == nil &&
		p.EstimatedDeliveryTime == nil && p.ActualDeliveryTime == nil
}

// NewOrder validates a draft and builds a pending order from it.
func NewOrder(d Draft, now time.Time) (*Order, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return nil, errs
	}

	items := make([]OrderItem, len(d.Items))
	for i, item := range d.Items {
		item.Name = strings.TrimSpace(item.Name)
		items[i] = item
	}

	order := &Order{
		ID:             uuid.New(),
		CustomerName:   strings.TrimSpace(d.CustomerName),
		Street:         strings.TrimSpace(d.Street),
		Neighborhood:   strings.TrimSpace(d.Neighborhood),
		City:           strings.TrimSpace(d.City),
		ZipCode:        strings.TrimSpace(d.ZipCode),
		Complement:     optional(d.Complement),
		Notes:          optional(d.Notes),
		PaymentMethod:  d.PaymentMethod,
		Items:          items,
		Total:          CalculateTotal(items),
		Status:         StatusPending,
		DeliveryStatus: DeliveryWaiting,
		CreatedAt:      now.UTC(),
	}
	if d.ChangeFor != nil {
		order.ChangeFor = decimal.NewNullDecimal(*d.ChangeFor)
	}

	return order, nil
}

// Validate applies the intake rules of the ordering flow.
func (d Draft) Validate() ValidationErrors {
	var errs ValidationErrors
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
	}

	required("customer_name", d.CustomerName)
	required("street", d.Street)
	required("neighborhood", d.Neighborhood)
	required("city", d.City)
	required("zip_code", d.ZipCode)

	if len(strings.TrimSpace(d.CustomerName)) > 100 {
		errs = append(errs, ValidationError{Field: "customer_name", Message: "must not exceed 100 characters"})
	}

	if !d.PaymentMethod.Valid() {
		errs = append(errs, ValidationError{Field: "payment_method", Message: "must be one of: pix, cash, credit, debit"})
	}

	if len(d.Items) == 0 {
		errs = append(errs, ValidationError{Field: "items", Message: "order must contain at least 1 item"})
	}
	for i, item := range d.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, ValidationError{Field: prefix + ".name", Message: "is required"})
		}
		if item.Quantity < 1 {
			errs = append(errs, ValidationError{Field: prefix + ".quantity", Message: "must be at least 1"})
		}
		if !item.Price.IsPositive() {
			errs = append(errs, ValidationError{Field: prefix + ".price", Message: "must be positive"})
		}
	}

	if d.ChangeFor != nil {
		if d.PaymentMethod != PaymentCash {
			errs = append(errs, ValidationError{Field: "change_for", Message: "only allowed for cash payments"})
		} else if d.ChangeFor.LessThan(CalculateTotal(d.Items)) {
			errs = append(errs, ValidationError{Field: "change_for", Message: "must not be less than the order total"})
		}
	}

	return errs
}

// CalculateTotal sums price times quantity over the items.
func CalculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Advance moves the kitchen status to target. On success the order is
// updated in place and the returned patch carries the write guarded on
// the previous status. On failure the order is left unchanged.
func (o *Order) Advance(target Status) (OrderPatch, error) {
	if !o.Status.CanTransitionTo(target) {
		return OrderPatch{}, statusTransitionError(o.Status, target)
	}

	patch := OrderPatch{
		Status:       &target,
		ExpectStatus: o.Status,
	}
	o.Status = target
	return patch, nil
}

// AdvanceDelivery moves the delivery status to target. Entering in_transit
// stamps the estimate (once), entering delivered stamps the arrival.
// Asking for the current delivery status is a no-op that returns an
// empty patch.
func (o *Order) AdvanceDelivery(target DeliveryStatus, now time.Time, horizon time.Duration) (OrderPatch, error) {
	if o.Status != StatusCompleted {
		err := deliveryTransitionError(o.DeliveryStatus, target)
		err.Reason = fmt.Sprintf("order status is %s", o.Status)
		return OrderPatch{}, err
	}

	if target == o.DeliveryStatus && target.Valid() {
		return OrderPatch{}, nil
	}

	if !o.DeliveryStatus.CanTransitionTo(target) {
		return OrderPatch{}, deliveryTransitionError(o.DeliveryStatus, target)
	}

	patch := OrderPatch{
		DeliveryStatus:       &target,
		ExpectStatus:         o.Status,
		ExpectDeliveryStatus: o.DeliveryStatus,
	}

	now = now.UTC()
	switch target {
	case DeliveryInTransit:
		if o.EstimatedDeliveryTime == nil {
			eta := now.Add(horizon)
			patch.EstimatedDeliveryTime = &eta
			o.EstimatedDeliveryTime = &eta
		}
	case DeliveryDelivered:
		patch.ActualDeliveryTime = &now
		o.ActualDeliveryTime = &now
	}

	o.DeliveryStatus = target
	return patch, nil
}

// Clone returns a copy that shares no mutable state with o.
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	o.Complement = clonePtr(o.Complement)
	o.Notes = clonePtr(o.Notes)
	o.EstimatedDeliveryTime = clonePtr(o.EstimatedDeliveryTime)
	o.ActualDeliveryTime = clonePtr(o.ActualDeliveryTime)
	return o
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
