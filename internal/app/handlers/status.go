package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
)

// UpdateStatusRequest — админское обновление заказа; оба поля необязательны,
// но хотя бы одно должно быть передано.
type UpdateStatusRequest struct {
	Status         string `json:"status,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

type UpdateStatusResponse struct {
	Success        bool    `json:"success"`
	OrderID        int64   `json:"order_id"`
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
}

// UpdateStatusHandler обрабатывает запрос PATCH /api/admin/orders/{id}/status.
func UpdateStatusHandler(log *slog.Logger, statusService service.StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateStatusHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		// Полномочия определяет роль из токена, сервис получает только факт
		isAdmin := jwtmiddleware.IsAdminFromContext(r.Context())

		order, err := statusService.UpdateStatus(r.Context(), isAdmin, orderID, req.Status, req.TrackingNumber)
		if err != nil {
			logger.Error("status update failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, UpdateStatusResponse{
			Success:        true,
			OrderID:        order.ID,
			Status:         order.Status,
			TrackingNumber: order.TrackingNumber,
		})
	}
}
