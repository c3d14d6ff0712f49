package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

type execCall struct {
	sql  string
	args []any
}

// fakeTx answers QueryRow calls from a queue and records every Exec.
type fakeTx struct {
	rows       []Row
	queries    []string
	execs      []execCall
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errors.New("unexpected query")
}

func (tx *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) Row {
	tx.queries = append(tx.queries, sql)
	if len(tx.rows) == 0 {
		return fakeRow{scan: func(...any) error { return errors.New("unexpected query row") }}
	}
	row := tx.rows[0]
	tx.rows = tx.rows[1:]
	return row
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (CommandTag, error) {
	tx.execs = append(tx.execs, execCall{sql: sql, args: args})
	return nil, nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

// fakeRows yields one scan function per row.
type fakeRows struct {
	scans  []func(dest ...any) error
	next   int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.next >= len(r.scans) {
		return false
	}
	r.next++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return r.scans[r.next-1](dest...)
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() { r.closed = true }

type fakeDB struct {
	tx      *fakeTx
	rows    *fakeRows
	queries []string
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (Rows, error) {
	db.queries = append(db.queries, sql)
	if db.rows == nil {
		return nil, errors.New("unexpected query")
	}
	return db.rows, nil
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) Row {
	return fakeRow{scan: func(...any) error { return errors.New("unexpected query row") }}
}

func (db *fakeDB) Exec(context.Context, string, ...any) (CommandTag, error) {
	return nil, errors.New("unexpected exec")
}

func (db *fakeDB) Begin(context.Context) (Tx, error) {
	return db.tx, nil
}

func (db *fakeDB) Ping(context.Context) error { return nil }

func (db *fakeDB) Close() {}

// updatedRow stands in for the RETURNING row; only the id is filled.
func updatedRow(id uuid.UUID) Row {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = id
		return nil
	}}
}

func errRow(err error) Row {
	return fakeRow{scan: func(...any) error { return err }}
}

func existsRow(exists bool) Row {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*bool) = exists
		return nil
	}}
}

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.OrderFilter
		wantWhere string
		wantTail  string
		wantArgs  []any
	}{
		{
			name:     "admin sees everything",
			filter:   domain.OrderFilter{},
			wantTail: "FROM orders ORDER BY created_at DESC",
		},
		{
			name:      "kitchen statuses",
			filter:    domain.OrderFilter{Statuses: []domain.Status{domain.StatusPending, domain.StatusPreparing}},
			wantWhere: "WHERE status = ANY($1)",
			wantTail:  "ORDER BY created_at DESC",
			wantArgs:  []any{[]string{"pending", "preparing"}},
		},
		{
			name:      "limited",
			filter:    domain.OrderFilter{Statuses: []domain.Status{domain.StatusCompleted}, Limit: 50},
			wantWhere: "WHERE status = ANY($1)",
			wantTail:  "ORDER BY created_at DESC LIMIT $2",
			wantArgs:  []any{[]string{"completed"}, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildSelect(tt.filter)
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
			}
			assert.Contains(t, query, tt.wantTail)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildUpdateStatus(t *testing.T) {
	id := uuid.New()
	target := domain.StatusPreparing

	query, args := buildUpdate(id, domain.OrderPatch{Status: &target, ExpectStatus: domain.StatusPending})

	assert.Contains(t, query, "UPDATE orders SET status = $1 WHERE id = $2 AND status = $3 RETURNING")
	assert.Equal(t, []any{"preparing", id, "pending"}, args)
}

func TestBuildUpdateDelivery(t *testing.T) {
	id := uuid.New()
	target := domain.DeliveryInTransit
	eta := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	query, args := buildUpdate(id, domain.OrderPatch{
		DeliveryStatus:        &target,
		EstimatedDeliveryTime: &eta,
		ExpectStatus:          domain.StatusCompleted,
		ExpectDeliveryStatus:  domain.DeliveryAssigned,
	})

	assert.Contains(t, query, "SET delivery_status = $1, estimated_delivery_time = $2")
	assert.Contains(t, query, "WHERE id = $3 AND status = $4 AND delivery_status = $5")
	assert.Equal(t, []any{"in_transit", eta, id, "completed", "assigned"}, args)
}

func TestUpdateLogsStatusChangeInSameTransaction(t *testing.T) {
	id := uuid.New()
	tx := &fakeTx{rows: []Row{updatedRow(id)}}
	repo := NewOrderRepository(&fakeDB{tx: tx})

	target := domain.StatusPreparing
	order, err := repo.Update(context.Background(), id, domain.OrderPatch{
		Status:       &target,
		ExpectStatus: domain.StatusPending,
	}, "kitchen-1")

	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.True(t, tx.committed)

	require.Len(t, tx.execs, 1)
	assert.Contains(t, tx.execs[0].sql, "INSERT INTO order_status_log")
	assert.Equal(t, []any{id, domain.FieldStatus, "preparing", "kitchen-1"}, tx.execs[0].args[:4])
}

func TestUpdateLogsDeliveryChangeOnly(t *testing.T) {
	id := uuid.New()
	tx := &fakeTx{rows: []Row{updatedRow(id)}}
	repo := NewOrderRepository(&fakeDB{tx: tx})

	target := domain.DeliveryInTransit
	eta := time.Now().Add(45 * time.Minute)
	_, err := repo.Update(context.Background(), id, domain.OrderPatch{
		DeliveryStatus:        &target,
		EstimatedDeliveryTime: &eta,
		ExpectStatus:          domain.StatusCompleted,
		ExpectDeliveryStatus:  domain.DeliveryAssigned,
	}, "rider-7")

	require.NoError(t, err)
	assert.True(t, tx.committed)
	require.Len(t, tx.execs, 1)
	assert.Equal(t, []any{id, domain.FieldDeliveryStatus, "in_transit", "rider-7"}, tx.execs[0].args[:4])
}

func TestUpdateGuardMiss(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantErr error
	}{
		{name: "order moved on", exists: true, wantErr: domain.ErrStaleOrder},
		{name: "order missing", exists: false, wantErr: domain.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			tx := &fakeTx{rows: []Row{errRow(pgx.ErrNoRows), existsRow(tt.exists)}}
			repo := NewOrderRepository(&fakeDB{tx: tx})

			target := domain.StatusCancelled
			order, err := repo.Update(context.Background(), id, domain.OrderPatch{
				Status:       &target,
				ExpectStatus: domain.StatusPending,
			}, "kitchen-1")

			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, tx.execs)
			assert.False(t, tx.committed)
			assert.True(t, tx.rolledBack)

			require.Len(t, tx.queries, 2)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(tx.queries[0]), "UPDATE orders"))
			assert.Contains(t, tx.queries[1], "SELECT EXISTS")
		})
	}
}

func TestUpdateFailureIsNotStale(t *testing.T) {
	tx := &fakeTx{rows: []Row{errRow(errors.New("connection reset"))}}
	repo := NewOrderRepository(&fakeDB{tx: tx})

	target := domain.StatusPreparing
	_, err := repo.Update(context.Background(), uuid.New(), domain.OrderPatch{Status: &target}, "kitchen-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStaleOrder)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, tx.execs)
	assert.False(t, tx.committed)
}

func TestCountByStatusGroupsInDatabase(t *testing.T) {
	count := func(s domain.Status, d domain.DeliveryStatus, n int) func(dest ...any) error {
		return func(dest ...any) error {
			*dest[0].(*domain.Status) = s
			*dest[1].(*domain.DeliveryStatus) = d
			*dest[2].(*int) = n
			return nil
		}
	}
	rows := &fakeRows{scans: []func(dest ...any) error{
		count(domain.StatusPending, domain.DeliveryWaiting, 3),
		count(domain.StatusCompleted, domain.DeliveryDelivered, 5),
	}}
	db := &fakeDB{rows: rows}

	counts, err := NewOrderRepository(db).CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.StatusCount{
		{Status: domain.StatusPending, DeliveryStatus: domain.DeliveryWaiting, Count: 3},
		{Status: domain.StatusCompleted, DeliveryStatus: domain.DeliveryDelivered, Count: 5},
	}, counts)
	assert.True(t, rows.closed)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "GROUP BY status, delivery_status")
	assert.NotContains(t, db.queries[0], "items")
}
