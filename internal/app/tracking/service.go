package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/google/uuid"
)

type Service struct {
	orderRepo interfaces.OrderRepository
	logger    logger.Logger
}

func NewService(orderRepo interfaces.OrderRepository, logger logger.Logger) *Service {
	return &Service{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to load order", "", map[string]interface{}{"order_id": id.String()}, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return order, nil
}

// GetOrderHistory returns the accepted transitions of an order, oldest first.
func (s *Service) GetOrderHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.orderRepo.GetStatusHistory(ctx, id)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to load status history", "", map[string]interface{}{"order_id": id.String()}, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return history, nil
}

// Overview counts orders per status and per delivery status.
type Overview struct {
	Total          int                           `json:"total"`
	Statuses       map[domain.Status]int         `json:"statuses"`
	DeliveryStatus map[domain.DeliveryStatus]int `json:"delivery_statuses"`
}

func (s *Service) GetOverview(ctx context.Context) (*Overview, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to count orders", "", nil, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}

	resp := &Overview{
		Statuses:       make(map[domain.Status]int, len(domain.Statuses())),
		DeliveryStatus: make(map[domain.DeliveryStatus]int, len(domain.DeliveryStatuses())),
	}
	for _, st := range domain.Statuses() {
		resp.Statuses[st] = 0
	}
	for _, ds := range domain.DeliveryStatuses() {
		resp.DeliveryStatus[ds] = 0
	}
	for _, c := range counts {
		resp.Total += c.Count
		resp.Statuses[c.Status] += c.Count
		resp.DeliveryStatus[c.DeliveryStatus] += c.Count
	}
	return resp, nil
}
