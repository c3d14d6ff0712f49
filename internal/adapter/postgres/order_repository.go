package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, customer_name, street, neighborhood, city, zip_code, complement, notes,
	payment_method, change_for, total, items, status, delivery_status,
	estimated_delivery_time, actual_delivery_time, created_at`

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.CustomerName, order.Street, order.Neighborhood, order.City, order.ZipCode,
		order.Complement, order.Notes, order.PaymentMethod, order.ChangeFor, order.Total, order.Items,
		order.Status, order.DeliveryStatus, order.EstimatedDeliveryTime, order.ActualDeliveryTime, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// Log initial status
	if err := logStatus(ctx, tx, order.ID, domain.FieldStatus, string(order.Status), "order-intake", order.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Select(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query, args := buildSelect(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch, changedBy string) (*domain.Order, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args := buildUpdate(id, patch)
	order, err := scanOrder(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order: %w", err)
		}
		if !exists {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrStaleOrder
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	now := time.Now().UTC()
	if patch.Status != nil {
		if err := logStatus(ctx, tx, id, domain.FieldStatus, string(*patch.Status), changedBy, now); err != nil {
			return nil, err
		}
	}
	if patch.DeliveryStatus != nil {
		if err := logStatus(ctx, tx, id, domain.FieldDeliveryStatus, string(*patch.DeliveryStatus), changedBy, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, field, value, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Field, &log.Value, &log.ChangedBy, &log.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status history: %w", err)
	}

	return logs, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	query := `
		SELECT status, delivery_status, count(*)
		FROM orders
		GROUP BY status, delivery_status
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	var counts []domain.StatusCount
	for rows.Next() {
		var c domain.StatusCount
		if err := rows.Scan(&c.Status, &c.DeliveryStatus, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order counts: %w", err)
	}

	return counts, nil
}

func logStatus(ctx context.Context, tx Tx, id uuid.UUID, field, value, changedBy string, at time.Time) error {
	query := `
		INSERT INTO order_status_log (order_id, field, value, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, id, field, value, changedBy, at); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.Street, &o.Neighborhood, &o.City, &o.ZipCode, &o.Complement, &o.Notes,
		&o.PaymentMethod, &o.ChangeFor, &o.Total, &o.Items, &o.Status, &o.DeliveryStatus,
		&o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func buildSelect(filter domain.OrderFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + orderColumns + ` FROM orders`)

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		fmt.Fprintf(&sb, ` WHERE status = ANY($%d)`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC`)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	return sb.String(), args
}

// buildUpdate renders a guarded single-row update that returns the new row.
func buildUpdate(id uuid.UUID, patch domain.OrderPatch) (string, []any) {
	var (
		sets  []string
		conds []string
		args  []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	where := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.DeliveryStatus != nil {
		set("delivery_status", string(*patch.DeliveryStatus))
	}
	if patch.EstimatedDeliveryTime != nil {
		set("estimated_delivery_time", *patch.EstimatedDeliveryTime)
	}
	if patch.ActualDeliveryTime != nil {
		set("actual_delivery_time", *patch.ActualDeliveryTime)
	}

	where("id", id)
	if patch.ExpectStatus != "" {
		where("status", string(patch.ExpectStatus))
	}
	if patch.ExpectDeliveryStatus != "" {
		where("delivery_status", string(patch.ExpectDeliveryStatus))
	}

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), strings.Join(conds, " AND "), orderColumns)
	return query, args
}
