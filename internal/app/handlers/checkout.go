package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/shopspring/decimal"
)

// CheckoutRequest — вход оформления заказа. Если указан payment_method,
// сразу после создания заказа проводится оплата на полную сумму.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method,omitempty"`
}

// CheckoutResponse — созданный заказ; блок payment присутствует только в совмещённом сценарии.
type CheckoutResponse struct {
	OrderID      int64            `json:"order_id"`
	OrderNumber  string           `json:"order_number"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	Status       string           `json:"status"`
	Payment      *PaymentOutcome  `json:"payment,omitempty"`
	PaymentError string           `json:"payment_error,omitempty"`
}

type PaymentOutcome struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// CheckoutHandler обрабатывает запрос POST /api/checkout.
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "shipping address is required", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Обычный сценарий: заказ создаётся в статусе pending, оплата отдельным запросом
		if req.PaymentMethod == "" {
			order, err := checkoutService.Checkout(r.Context(), userID, req.ShippingAddress)
			if err != nil {
				logger.Error("checkout failed", slog.Any("error", err))
				writeServiceError(w, logger, err)
				return
			}
			writeJSON(w, logger, http.StatusCreated, CheckoutResponse{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TotalAmount: order.TotalAmount,
				Status:      order.Status,
			})
			return
		}

		// Совмещённый сценарий: заказ и оплата одним запросом
		order, result, err := checkoutService.CheckoutAndPay(r.Context(), userID, req.ShippingAddress, req.PaymentMethod)
		if err != nil && order == nil {
			logger.Error("checkout failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		resp := CheckoutResponse{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
		}
		switch {
		case err != nil:
			// Заказ создан, но оплата не прошла по технической причине: заказ остаётся pending
			resp.PaymentError = "payment failed, order is awaiting payment"
		case result.Success:
			resp.Status = "paid"
			resp.Payment = &PaymentOutcome{Success: true, TransactionID: result.TransactionID, Status: result.Status}
		default:
			resp.Payment = &PaymentOutcome{Success: false, TransactionID: result.TransactionID, Status: result.Status}
		}
		writeJSON(w, logger, http.StatusCreated, resp)
	}
}
