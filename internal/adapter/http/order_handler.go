package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/auth"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	service     interfaces.OrderService
	transitions interfaces.Transitioner
	logger      logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, transitions interfaces.Transitioner, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service:     service,
		transitions: transitions,
		logger:      logger,
	}
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	Street        string             `json:"street"`
	Neighborhood  string             `json:"neighborhood"`
	City          string             `json:"city"`
	ZipCode       string             `json:"zip_code"`
	Complement    string             `json:"complement,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	ChangeFor     *decimal.Decimal   `json:"change_for,omitempty"`
	Items         []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type CreateOrderResponse struct {
	ID     uuid.UUID     `json:"id"`
	Status domain.Status `json:"status"`
	Total  string        `json:"total"`
}

type StatusRequest struct {
	Status domain.Status `json:"status"`
}

type DeliveryStatusRequest struct {
	DeliveryStatus domain.DeliveryStatus `json:"delivery_status"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.toDraft())
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", requestID, nil, err)
		respondDomainError(w, err)
		return
	}

	h.logger.Info("order_created", "Order accepted", requestID, map[string]interface{}{
		"order_id": order.ID.String(),
		"items":    len(order.Items),
	})
	respondJSON(w, http.StatusCreated, CreateOrderResponse{
		ID:     order.ID,
		Status: order.Status,
		Total:  order.Total.StringFixed(2),
	})
}

func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	target, ok := decodeStatus(w, r)
	if !ok {
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	order, err := h.transitions.AdvanceStatus(r.Context(), id, target, principal.Subject)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) AdvanceDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	target, ok := decodeDeliveryStatus(w, r)
	if !ok {
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	order, err := h.transitions.AdvanceDelivery(r.Context(), id, target, principal.Subject)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (req CreateOrderRequest) toDraft() domain.Draft {
	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ID,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return domain.Draft{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Street:        req.Street,
		Neighborhood:  req.Neighborhood,
		City:          req.City,
		ZipCode:       req.ZipCode,
		Complement:    req.Complement,
		Notes:         req.Notes,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		ChangeFor:     req.ChangeFor,
		Items:         items,
	}
}

func decodeStatus(w http.ResponseWriter, r *http.Request) (domain.Status, bool) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		respondError(w, "status must be one of: pending, preparing, completed, cancelled", http.StatusBadRequest, nil)
		return "", false
	}
	return req.Status, true
}

func decodeDeliveryStatus(w http.ResponseWriter, r *http.Request) (domain.DeliveryStatus, bool) {
	var req DeliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.DeliveryStatus.Valid() {
		respondError(w, "delivery_status must be one of: waiting, assigned, in_transit, delivered", http.StatusBadRequest, nil)
		return "", false
	}
	return req.DeliveryStatus, true
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, fmt.Sprintf("invalid order id %q", mux.Vars(r)["id"]), http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
