package domain

import (
	"slices"
	"time"
)

// OrdersCollection is the only collection the change feed carries.
const OrdersCollection = "orders"

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventAll    EventType = "*"
)

// ChangeEvent is a row-level notification with the whole row as payload.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Type       EventType `json:"type"`
	Order      Order     `json:"order"`
	At         time.Time `json:"at"`
}

func NewInsertEvent(o Order, at time.Time) ChangeEvent {
	return ChangeEvent{Collection: OrdersCollection, Type: EventInsert, Order: o, At: at.UTC()}
}

func NewUpdateEvent(o Order, at time.Time) ChangeEvent {
	return ChangeEvent{Collection: OrdersCollection, Type: EventUpdate, Order: o, At: at.UTC()}
}

// FeedFilter scopes a subscription to a collection and event kinds.
// An empty Types list means every kind.
type FeedFilter struct {
	Collection string
	Types      []EventType
}

func (f FeedFilter) Matches(ev ChangeEvent) bool {
	if f.Collection != "" && f.Collection != ev.Collection {
		return false
	}
	if len(f.Types) == 0 || slices.Contains(f.Types, EventAll) {
		return true
	}
	return slices.Contains(f.Types, ev.Type)
}

// OrderFilter selects orders for a baseline fetch. Results are always
// newest first; an empty Statuses list selects everything.
type OrderFilter struct {
	Statuses []Status
	Limit    int
}

func (f OrderFilter) Matches(o Order) bool {
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, o.Status)
}
