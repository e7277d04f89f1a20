package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/shopsphere/internal/service"
)

// ErrorResponse — единый формат тела ошибки.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON сериализует ответ; ошибки кодирования здесь уже не исправить, только залогировать.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeServiceError переводит ошибку бизнес-уровня в HTTP-код.
// Неопознанные ошибки считаются внутренними и наружу уходят без деталей.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var stockErr *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrNoFieldsToUpdate):
		writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		writeJSON(w, logger, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &stockErr), errors.Is(err, service.ErrAlreadyPaid):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotAllowed):
		writeJSON(w, logger, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
