package http

import (
	"net/http"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/auth"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Orders   *OrderHandler
	Tracking *TrackingHandler
	Views    *ViewHandler
	Admin    *AdminHandler
}

func NewRouter(h Handlers, issuer *auth.Issuer, logger logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RecoveryMiddleware(logger), LoggingMiddleware(logger))

	r.HandleFunc("/healthz", h.Admin.Health).Methods(http.MethodGet)
	r.HandleFunc("/orders", h.Orders.CreateOrder).Methods(http.MethodPost)

	staff := r.NewRoute().Subrouter()
	staff.Use(Authenticate(issuer, logger))

	staff.HandleFunc("/orders/{id}", h.Tracking.GetOrder).Methods(http.MethodGet)
	staff.HandleFunc("/orders/{id}/history", h.Tracking.GetOrderHistory).Methods(http.MethodGet)
	staff.Handle("/orders/{id}/status",
		only(h.Orders.AdvanceStatus, domain.RoleKitchen, domain.RoleAdmin)).Methods(http.MethodPost)
	staff.Handle("/orders/{id}/delivery-status",
		only(h.Orders.AdvanceDelivery, domain.RoleDelivery, domain.RoleAdmin)).Methods(http.MethodPost)

	staff.HandleFunc("/views/{view}/orders", h.Views.Board).Methods(http.MethodGet)
	staff.HandleFunc("/views/{view}/stream", h.Views.Stream).Methods(http.MethodGet)
	staff.HandleFunc("/views/{view}/sessions/{session}/refresh", h.Views.Refresh).Methods(http.MethodPost)
	staff.Handle("/views/{view}/sessions/{session}/orders/{id}/status",
		only(h.Views.AdvanceStatus, domain.RoleKitchen, domain.RoleAdmin)).Methods(http.MethodPost)
	staff.Handle("/views/{view}/sessions/{session}/orders/{id}/delivery-status",
		only(h.Views.AdvanceDelivery, domain.RoleDelivery, domain.RoleAdmin)).Methods(http.MethodPost)

	staff.Handle("/admin/seed", only(h.Admin.Seed, domain.RoleAdmin)).Methods(http.MethodPost)
	staff.Handle("/admin/overview", only(h.Tracking.GetOverview, domain.RoleAdmin)).Methods(http.MethodGet)

	return r
}

func only(fn http.HandlerFunc, roles ...domain.Role) http.Handler {
	return RequireRoles(roles...)(fn)
}
