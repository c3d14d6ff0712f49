package interfaces

import (
	"context"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/google/uuid"
)

// OrderRepository is the backend data store for the orders collection.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Select(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// Update applies patch to one order and returns the stored row.
	// It returns domain.ErrStaleOrder when the patch guard no longer holds.
	Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch, changedBy string) (*domain.Order, error)
	GetStatusHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}
