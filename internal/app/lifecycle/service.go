package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/google/uuid"
)

// Service applies staff transitions to stored orders. Every write is a
// single-order update guarded on the state the decision was taken from.
type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.ChangePublisher
	logger    logger.Logger
	horizon   time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for delivery timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo interfaces.OrderRepository,
	publisher interfaces.ChangePublisher,
	logger logger.Logger,
	horizon time.Duration,
	opts ...Option,
) *Service {
	if horizon <= 0 {
		horizon = domain.DefaultDeliveryHorizon
	}
	s := &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		horizon:   horizon,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ interfaces.Transitioner = (*Service)(nil)

func (s *Service) AdvanceStatus(ctx context.Context, id uuid.UUID, target domain.Status, actor string) (*domain.Order, error) {
	return s.transition(ctx, id, actor, func(o *domain.Order) (domain.OrderPatch, error) {
		return o.Advance(target)
	})
}

func (s *Service) AdvanceDelivery(ctx context.Context, id uuid.UUID, target domain.DeliveryStatus, actor string) (*domain.Order, error) {
	return s.transition(ctx, id, actor, func(o *domain.Order) (domain.OrderPatch, error) {
		return o.AdvanceDelivery(target, s.now(), s.horizon)
	})
}

type transitionFunc func(o *domain.Order) (domain.OrderPatch, error)

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor string, move transitionFunc) (*domain.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus, oldDelivery := order.Status, order.DeliveryStatus

	patch, err := move(order)
	if err != nil {
		s.logger.Error("invalid_transition", "Rejected status transition", "", s.details(id, actor), err)
		return nil, err
	}
	if patch.IsEmpty() {
		return order, nil
	}

	updated, err := s.repo.Update(ctx, id, patch, actor)
	switch {
	case errors.Is(err, domain.ErrStaleOrder):
		return s.conflict(ctx, id, actor, move)
	case errors.Is(err, domain.ErrOrderNotFound):
		return nil, err
	case err != nil:
		s.logger.Error("db_update_failed", "Failed to update order status", "", s.details(id, actor), err)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpdateFailure, err)
	}

	s.logger.Info("order_status_changed", "Order status changed", "", map[string]interface{}{
		"order_id":            id.String(),
		"changed_by":          actor,
		"old_status":          oldStatus,
		"new_status":          updated.Status,
		"old_delivery_status": oldDelivery,
		"new_delivery_status": updated.DeliveryStatus,
	})

	if err := s.publisher.PublishChange(ctx, domain.NewUpdateEvent(*updated, s.now())); err != nil {
		// Not blocking the caller: the row is already committed.
		s.logger.Error("feed_publish_failed", "Failed to publish status update", "", s.details(id, actor), err)
	}

	return updated, nil
}

// conflict re-reads an order whose guarded write lost a race and reports
// the move against the state that won.
func (s *Service) conflict(ctx context.Context, id uuid.UUID, actor string, move transitionFunc) (*domain.Order, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Clone()

	patch, err := move(current)
	if err == nil && patch.IsEmpty() {
		// someone else already made the same move
		return &from, nil
	}

	var te *domain.TransitionError
	if errors.As(err, &te) {
		te.Reason = "order changed concurrently"
	} else {
		// the move is still legal from the new state; the caller decides
		// whether to repeat it
		te = &domain.TransitionError{Field: domain.FieldStatus, From: string(from.Status)}
		if patch.DeliveryStatus != nil {
			te.Field = domain.FieldDeliveryStatus
			te.From = string(from.DeliveryStatus)
		}
		te.Reason = "order changed concurrently, retry from " + te.From
	}
	te.Stale = true

	s.logger.Error("transition_conflict", "Order changed by another session", "", s.details(id, actor), te)
	return nil, te
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to load order", "", map[string]interface{}{"order_id": id.String()}, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return order, nil
}

func (s *Service) details(id uuid.UUID, actor string) map[string]interface{} {
	return map[string]interface{}{
		"order_id":   id.String(),
		"changed_by": actor,
	}
}
