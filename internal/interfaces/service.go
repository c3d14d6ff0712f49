package interfaces

import (
	"context"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/google/uuid"
)

// OrderService is the intake side used by the ordering flow.
type OrderService interface {
	CreateOrder(ctx context.Context, draft domain.Draft) (*domain.Order, error)
}

// Transitioner runs staff-initiated status changes.
type Transitioner interface {
	AdvanceStatus(ctx context.Context, id uuid.UUID, target domain.Status, actor string) (*domain.Order, error)
	AdvanceDelivery(ctx context.Context, id uuid.UUID, target domain.DeliveryStatus, actor string) (*domain.Order, error)
}

type TrackingService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error)
}

// OrderFetcher is the read side a view session needs.
type OrderFetcher interface {
	Select(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

// Seeder fills the store with generated orders.
type Seeder interface {
	Seed(ctx context.Context, n int) (int, error)
}
