package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
)

const (
	defaultSeedCount = 10
	maxSeedCount     = 500
)

type AdminHandler struct {
	seeder interfaces.Seeder
	ping   func(ctx context.Context) error
	logger logger.Logger
}

func NewAdminHandler(seeder interfaces.Seeder, ping func(ctx context.Context) error, logger logger.Logger) *AdminHandler {
	return &AdminHandler{
		seeder: seeder,
		ping:   ping,
		logger: logger,
	}
}

type SeedRequest struct {
	Count int `json:"count"`
}

type SeedResponse struct {
	Created int `json:"created"`
}

func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	req := SeedRequest{Count: defaultSeedCount}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if req.Count < 1 || req.Count > maxSeedCount {
		respondError(w, "count must be between 1 and 500", http.StatusBadRequest, nil)
		return
	}

	created, err := h.seeder.Seed(r.Context(), req.Count)
	if err != nil {
		h.logger.Error("seed_failed", "Test data generation stopped", requestIDFrom(r.Context()), map[string]interface{}{
			"created": created,
		}, err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, SeedResponse{Created: created})
}

func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Error("health_check_failed", "Database unreachable", requestIDFrom(r.Context()), nil, err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
