package http

import (
	"context"
	"net/http"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/app/tracking"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
)

type OverviewService interface {
	GetOverview(ctx context.Context) (*tracking.Overview, error)
}

type TrackingHandler struct {
	service  interfaces.TrackingService
	overview OverviewService
	logger   logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, overview OverviewService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service:  service,
		overview: overview,
		logger:   logger,
	}
}

func (h *TrackingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type HistoryEntry struct {
	Field     string `json:"field"`
	Value     string `json:"value"`
	ChangedBy string `json:"changed_by"`
	ChangedAt string `json:"changed_at"`
}

func (h *TrackingHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetOrderHistory(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := make([]HistoryEntry, 0, len(history))
	for _, entry := range history {
		resp = append(resp, HistoryEntry{
			Field:     entry.Field,
			Value:     entry.Value,
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.overview.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("overview_failed", "Failed to build overview", requestIDFrom(r.Context()), nil, err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}
