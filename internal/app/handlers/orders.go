package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
)

// OrderResponse — детальный ответ по заказу: поля заказа плюс позиции со снимком товара.
type OrderResponse struct {
	*models.Order
	Items []*service.OrderItemView `json:"items"`
}

type OrdersListResponse struct {
	Orders []*models.Order `json:"orders"`
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{id}.
func GetOrderHandler(log *slog.Logger, orderService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := orderService.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			logger.Error("failed to get order", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, OrderResponse{Order: order.Order, Items: order.Items})
	}
}

// ListOrdersHandler обрабатывает запрос GET /api/orders.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		writeJSON(w, logger, http.StatusOK, OrdersListResponse{Orders: orders})
	}
}

// TrackOrderHandler обрабатывает запрос GET /api/orders/{id}/tracking.
func TrackOrderHandler(log *slog.Logger, orderService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TrackOrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		tracking, err := orderService.GetTracking(r.Context(), userID, orderID)
		if err != nil {
			logger.Error("failed to get tracking", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, tracking)
	}
}
