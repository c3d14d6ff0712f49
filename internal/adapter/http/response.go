package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
)

type ErrorResponse struct {
	Error      string                   `json:"error"`
	Errors     []domain.ValidationError `json:"errors,omitempty"`
	Transition *TransitionErrorBody     `json:"transition,omitempty"`
}

type TransitionErrorBody struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
	Stale bool   `json:"stale,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []domain.ValidationError) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}

// respondDomainError maps service errors onto HTTP responses.
func respondDomainError(w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	var te *domain.TransitionError

	switch {
	case errors.As(err, &verrs):
		respondError(w, "Validation failed", http.StatusBadRequest, verrs)
	case errors.As(err, &te):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:      te.Error(),
			Transition: &TransitionErrorBody{Field: te.Field, From: te.From, To: te.To, Stale: te.Stale},
		})
	case errors.Is(err, domain.ErrOrderNotFound):
		respondError(w, "Order not found", http.StatusNotFound, nil)
	case errors.Is(err, domain.ErrFetchFailure),
		errors.Is(err, domain.ErrUpdateFailure),
		errors.Is(err, domain.ErrSubscriptionFailure):
		respondError(w, err.Error(), http.StatusBadGateway, nil)
	default:
		respondError(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
