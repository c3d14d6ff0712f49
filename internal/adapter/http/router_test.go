package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/auth"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/changefeed"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/app/tracking"
	"github.com/YelzhanWeb/orderdesk/internal/app/view"
	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	orders     []domain.Order
	createErr  error
	advanceErr error
	lastActor  string
	seeded     int
	pingErr    error
}

func (f *fakeBackend) CreateOrder(_ context.Context, d domain.Draft) (*domain.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return domain.NewOrder(d, time.Now())
}

func (f *fakeBackend) AdvanceStatus(_ context.Context, id uuid.UUID, target domain.Status, actor string) (*domain.Order, error) {
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	f.lastActor = actor
	return &domain.Order{ID: id, Status: target, DeliveryStatus: domain.DeliveryWaiting}, nil
}

func (f *fakeBackend) AdvanceDelivery(_ context.Context, id uuid.UUID, target domain.DeliveryStatus, actor string) (*domain.Order, error) {
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	f.lastActor = actor
	return &domain.Order{ID: id, Status: domain.StatusCompleted, DeliveryStatus: target}, nil
}

func (f *fakeBackend) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeBackend) GetOrderHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	if _, err := f.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return []*domain.StatusLog{{OrderID: id, Field: domain.FieldStatus, Value: "pending", ChangedBy: "order-intake"}}, nil
}

func (f *fakeBackend) GetOverview(context.Context) (*tracking.Overview, error) {
	return &tracking.Overview{Total: len(f.orders)}, nil
}

func (f *fakeBackend) Select(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeBackend) Seed(_ context.Context, n int) (int, error) {
	f.seeded += n
	return n, nil
}

func (f *fakeBackend) Ping(context.Context) error {
	return f.pingErr
}

type testServer struct {
	backend *fakeBackend
	broker  *changefeed.Broker
	issuer  *auth.Issuer
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	backend := &fakeBackend{}
	broker := changefeed.NewBroker(8)
	lgr := logger.NewNop()

	router := NewRouter(Handlers{
		Orders:   NewOrderHandler(backend, backend, lgr),
		Tracking: NewTrackingHandler(backend, backend, lgr),
		Views: NewViewHandler(view.Deps{
			Orders: backend, Feed: broker, Transitions: backend, Logger: lgr,
		}, lgr),
		Admin: NewAdminHandler(backend, backend.Ping, lgr),
	}, issuer, lgr)

	return &testServer{backend: backend, broker: broker, issuer: issuer, router: router}
}

func (s *testServer) token(t *testing.T, role domain.Role) string {
	t.Helper()
	token, err := s.issuer.Issue(string(role)+"-user", role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path string, role domain.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req.Header.Set(auth.AuthHeader, "Bearer "+s.token(t, role))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

const validOrderBody = `{
	"customer_name": "Maria Santos",
	"street": "Rua das Flores, 10",
	"neighborhood": "Centro",
	"city": "Campinas",
	"zip_code": "13010-000",
	"payment_method": "cash",
	"change_for": 50,
	"items": [{"id": 1, "name": "Pastel de Carne", "quantity": 2, "price": "12.90"}]
}`

func TestCreateOrderEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/orders", "", validOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Equal(t, "25.80", resp.Total)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/orders", "", `{"customer_name": "", "items": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.NotEmpty(t, resp.Errors)

	rec = s.do(t, http.MethodPost, "/orders", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpointAuth(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/orders/%s/status", uuid.New())
	body := `{"status": "preparing"}`

	rec := s.do(t, http.MethodPost, path, "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodPost, path, domain.RoleDelivery, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, path, domain.RoleKitchen, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitchen-user", s.backend.lastActor)

	rec = s.do(t, http.MethodPost, path, domain.RoleAdmin, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpointErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		err  error
		code int
	}{
		{name: "bad id", path: "/orders/abc/status", body: `{"status":"preparing"}`, code: http.StatusBadRequest},
		{name: "unknown status", body: `{"status":"burnt"}`, code: http.StatusBadRequest},
		{name: "illegal move", body: `{"status":"pending"}`, code: http.StatusConflict,
			err: &domain.TransitionError{Field: domain.FieldStatus, From: "completed", To: "pending"}},
		{name: "missing order", body: `{"status":"preparing"}`, code: http.StatusNotFound, err: domain.ErrOrderNotFound},
		{name: "backend down", body: `{"status":"preparing"}`, code: http.StatusBadGateway,
			err: fmt.Errorf("%w: %w", domain.ErrFetchFailure, errors.New("timeout"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.backend.advanceErr = tt.err
			path := tt.path
			if path == "" {
				path = fmt.Sprintf("/orders/%s/status", uuid.New())
			}

			rec := s.do(t, http.MethodPost, path, domain.RoleKitchen, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestConflictBodyNamesCurrentState(t *testing.T) {
	s := newTestServer(t)
	s.backend.advanceErr = &domain.TransitionError{Field: domain.FieldDeliveryStatus, From: "waiting", To: "in_transit", Stale: true}

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/orders/%s/delivery-status", uuid.New()), domain.RoleDelivery, `{"delivery_status":"in_transit"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	require.NotNil(t, resp.Transition)
	assert.Equal(t, "waiting", resp.Transition.From)
	assert.True(t, resp.Transition.Stale)
}

func TestDeliveryEndpointRoles(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/orders/%s/delivery-status", uuid.New())

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path, domain.RoleKitchen, `{"delivery_status":"assigned"}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, domain.RoleDelivery, `{"delivery_status":"assigned"}`).Code)
}

func TestOrderLookupAndHistory(t *testing.T) {
	s := newTestServer(t)
	o := domain.Order{ID: uuid.New(), CustomerName: "Ana", Status: domain.StatusPending, Total: decimal.RequireFromString("10")}
	s.backend.orders = []domain.Order{o}

	rec := s.do(t, http.MethodGet, "/orders/"+o.ID.String(), domain.RoleDelivery, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders/"+o.ID.String()+"/history", domain.RoleKitchen, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "order-intake", history[0].ChangedBy)

	rec = s.do(t, http.MethodGet, "/orders/"+uuid.NewString(), domain.RoleKitchen, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewBoard(t *testing.T) {
	s := newTestServer(t)
	s.backend.orders = []domain.Order{
		{ID: uuid.New(), CustomerName: "a", Status: domain.StatusPending},
		{ID: uuid.New(), CustomerName: "b", Status: domain.StatusCancelled},
	}

	rec := s.do(t, http.MethodGet, "/views/kitchen/orders", domain.RoleKitchen, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var board view.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board.Rows, 1)
	assert.Equal(t, "a", board.Rows[0].Order.CustomerName)
	assert.Equal(t, "Pendente", board.Rows[0].Status.Label)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/views/kitchen/orders", domain.RoleDelivery, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/views/bar/orders", domain.RoleAdmin, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/views/admin/orders", "", "").Code)
}

type sseStream struct {
	t      *testing.T
	resp   *http.Response
	reader *bufio.Reader
}

func (s *testServer) openStream(ctx context.Context, t *testing.T, srv *httptest.Server, kind string, role domain.Role) *sseStream {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/views/"+kind+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set(auth.AuthHeader, "Bearer "+s.token(t, role))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return &sseStream{t: t, resp: resp, reader: bufio.NewReader(resp.Body)}
}

// next returns the name and payload of the next event, skipping comments.
func (st *sseStream) next() (string, string) {
	st.t.Helper()
	var event string
	for {
		line, err := st.reader.ReadString('\n')
		require.NoError(st.t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event != "":
			return event, strings.TrimPrefix(line, "data: ")
		}
	}
}

func (st *sseStream) session() SessionInfo {
	st.t.Helper()
	event, data := st.next()
	require.Equal(st.t, "session", event)
	var info SessionInfo
	require.NoError(st.t, json.Unmarshal([]byte(data), &info))
	return info
}

func (st *sseStream) waitFor(event string) string {
	st.t.Helper()
	for {
		name, data := st.next()
		if name == event {
			return data
		}
	}
}

func TestViewStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := s.openStream(ctx, t, srv, "kitchen", domain.RoleKitchen)
	assert.Equal(t, "text/event-stream", st.resp.Header.Get("Content-Type"))

	info := st.session()
	assert.Equal(t, view.Kitchen, info.View)
	st.waitFor("snapshot")
	require.Eventually(t, func() bool { return s.broker.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	order := domain.Order{ID: uuid.New(), CustomerName: "novo", Status: domain.StatusPending}
	require.NoError(t, s.broker.PublishChange(ctx, domain.NewInsertEvent(order, time.Now())))

	seen := map[string]bool{}
	for !seen["new_order"] || !seen["snapshot"] {
		name, _ := st.next()
		seen[name] = true
	}

	cancel()
	assert.Eventually(t, func() bool { return s.broker.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestViewStreamRecoversAfterFeedLoss(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := s.openStream(ctx, t, srv, "kitchen", domain.RoleKitchen)
	info := st.session()
	st.waitFor("snapshot")
	require.Eventually(t, func() bool { return s.broker.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	s.broker.Fail(errors.New("broker restarted"))

	var feedErr ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(st.waitFor("feed_error")), &feedErr))
	assert.Contains(t, feedErr.Error, "broker restarted")
	st.waitFor("snapshot")
	assert.Equal(t, 0, s.broker.Subscribers())

	refresh := fmt.Sprintf("/views/kitchen/sessions/%s/refresh", info.ID)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, refresh, domain.RoleAdmin, "").Code)

	rec := s.do(t, http.MethodPost, refresh, domain.RoleKitchen, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, s.broker.Subscribers())
	st.waitFor("snapshot")

	order := domain.Order{ID: uuid.New(), CustomerName: "depois", Status: domain.StatusPending}
	require.NoError(t, s.broker.PublishChange(ctx, domain.NewInsertEvent(order, time.Now())))

	var arrived domain.Order
	require.NoError(t, json.Unmarshal([]byte(st.waitFor("new_order")), &arrived))
	assert.Equal(t, order.ID, arrived.ID)

	s.broker.Fail(errors.New("broker restarted again"))
	st.waitFor("feed_error")
}

func TestViewSessionTransitions(t *testing.T) {
	s := newTestServer(t)
	pending := domain.Order{ID: uuid.New(), CustomerName: "a", Status: domain.StatusPending, DeliveryStatus: domain.DeliveryWaiting}
	s.backend.orders = []domain.Order{pending}

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := s.openStream(ctx, t, srv, "kitchen", domain.RoleKitchen)
	info := st.session()
	st.waitFor("snapshot")

	base := fmt.Sprintf("/views/kitchen/sessions/%s/orders/%s", info.ID, pending.ID)

	rec := s.do(t, http.MethodPost, base+"/status", domain.RoleKitchen, `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "kitchen-user", s.backend.lastActor)

	for {
		var board view.Board
		require.NoError(t, json.Unmarshal([]byte(st.waitFor("snapshot")), &board))
		require.Len(t, board.Rows, 1)
		if board.Rows[0].Order.Status == domain.StatusPreparing {
			break
		}
	}

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, base+"/delivery-status", domain.RoleKitchen, `{"delivery_status":"assigned"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, base+"/status", domain.RoleKitchen, `{"status":"burnt"}`).Code)

	s.backend.advanceErr = &domain.TransitionError{Field: domain.FieldStatus, From: "preparing", To: "pending"}
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, base+"/status", domain.RoleKitchen, `{"status":"pending"}`).Code)

	unknown := fmt.Sprintf("/views/kitchen/sessions/%s/orders/%s/status", uuid.New(), pending.ID)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, unknown, domain.RoleKitchen, `{"status":"preparing"}`).Code)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/admin/seed", domain.RoleAdmin, `{"count": 5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 5, s.backend.seeded)

	rec = s.do(t, http.MethodPost, "/admin/seed", domain.RoleAdmin, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 15, s.backend.seeded)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/admin/seed", domain.RoleAdmin, `{"count": 0}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/admin/seed", domain.RoleKitchen, `{"count": 1}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/admin/overview", domain.RoleAdmin, "").Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", "").Code)

	s.backend.pingErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/healthz", "", "").Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
