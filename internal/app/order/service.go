package order

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
)

type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.ChangePublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewService(repo interfaces.OrderRepository, publisher interfaces.ChangePublisher, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder validates the draft, stores a pending order and announces
// it on the change feed.
func (s *Service) CreateOrder(ctx context.Context, draft domain.Draft) (*domain.Order, error) {
	order, err := domain.NewOrder(draft, s.now())
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, err
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", "", nil, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpdateFailure, err)
	}
	s.logger.Debug("order_received", "Order created in DB", "", map[string]interface{}{
		"order_id": order.ID.String(),
		"total":    order.Total.StringFixed(2),
	})

	if err := s.publisher.PublishChange(ctx, domain.NewInsertEvent(*order, s.now())); err != nil {
		// The row is committed; views pick it up on their next refresh.
		s.logger.Error("feed_publish_failed", "Failed to publish new order", "", map[string]interface{}{
			"order_id": order.ID.String(),
		}, err)
	}

	return order, nil
}
