package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrOrderNotFound       = errors.New("order not found")
	ErrStaleOrder          = errors.New("order changed concurrently")
	ErrFetchFailure        = errors.New("fetch failure")
	ErrUpdateFailure       = errors.New("update failure")
	ErrSubscriptionFailure = errors.New("subscription failure")
	ErrInvalidOrder        = errors.New("invalid order")
)

// TransitionError names the rejected move. It matches ErrInvalidTransition.
// When Stale is set it also matches ErrStaleOrder: the order moved on
// between read and write. To is empty when the move is still legal from
// the state that won.
type TransitionError struct {
	Field  string
	From   string
	To     string
	Reason string
	Stale  bool
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid %s transition from %q to %q", e.Field, e.From, e.To)
	if e.To == "" {
		msg = fmt.Sprintf("%s transition rejected at %q", e.Field, e.From)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || (e.Stale && target == ErrStaleOrder)
}

func statusTransitionError(from, to Status) *TransitionError {
	return &TransitionError{Field: FieldStatus, From: string(from), To: string(to)}
}

func deliveryTransitionError(from, to DeliveryStatus) *TransitionError {
	return &TransitionError{Field: FieldDeliveryStatus, From: string(from), To: string(to)}
}

// ValidationError describes one rejected field of an order draft.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors matches ErrInvalidOrder.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrInvalidOrder.Error()
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidOrder, v[0].Field, v[0].Message)
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidOrder
}
