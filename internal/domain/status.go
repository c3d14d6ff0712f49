package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type DeliveryStatus string

const (
	DeliveryWaiting   DeliveryStatus = "waiting"
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
)

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
)

// Kitchen workflow. Successor order is the order actions are offered in.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Delivery workflow is strictly linear.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryWaiting:   {DeliveryAssigned},
	DeliveryAssigned:  {DeliveryInTransit},
	DeliveryInTransit: {DeliveryDelivered},
	DeliveryDelivered: {},
}

// Statuses lists every kitchen status in workflow order.
func Statuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusCompleted, StatusCancelled}
}

// DeliveryStatuses lists every delivery status in workflow order.
func DeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryWaiting, DeliveryAssigned, DeliveryInTransit, DeliveryDelivered}
}

// Valid reports whether s is a known kitchen status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Next returns the legal successors of s.
func (s Status) Next() []Status {
	return append([]Status(nil), statusTransitions[s]...)
}

// CanTransitionTo reports whether target is a direct successor of s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further moves.
func (s Status) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

// Next returns the single successor of s, or nothing once delivered.
func (s DeliveryStatus) Next() []DeliveryStatus {
	return append([]DeliveryStatus(nil), deliveryTransitions[s]...)
}

// CanTransitionTo reports whether target directly follows s.
func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	for _, next := range deliveryTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPix, PaymentCash, PaymentCredit, PaymentDebit:
		return true
	}
	return false
}

// Status log fields
const (
	FieldStatus         = "status"
	FieldDeliveryStatus = "delivery_status"
)

// StatusCount is the number of orders sharing a status pair.
type StatusCount struct {
	Status         Status
	DeliveryStatus DeliveryStatus
	Count          int
}

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
