package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

type ErrorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details []domain.StockShortfall `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps the core's typed errors onto HTTP statuses. Errors
// outside the taxonomy are internal.
func respondDomainError(w http.ResponseWriter, err error) {
	var short *domain.InsufficientStockError
	if errors.As(err, &short) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "insufficient stock",
			Code:    "insufficient_stock",
			Details: short.Lines,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		zap.L().Error("internal error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
