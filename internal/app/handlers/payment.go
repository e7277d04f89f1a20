package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/shopspring/decimal"
)

// ProcessPaymentRequest — вход оплаты заказа.
type ProcessPaymentRequest struct {
	OrderID       int64           `json:"order_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
}

// ProcessPaymentResponse — итог успешной оплаты.
type ProcessPaymentResponse struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transaction_id"`
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
}

// PaymentDeclinedResponse — отклонённый платёж: не ошибка сервера,
// попытка записана и её идентификатор возвращается клиенту.
type PaymentDeclinedResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	TransactionID string `json:"transaction_id"`
}

// ProcessPaymentHandler обрабатывает запрос POST /api/payment.
func ProcessPaymentHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProcessPaymentHandler"
		logger := log.With(slog.String("op", op))

		var req ProcessPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "order_id, amount and payment_method are required", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := paymentService.ProcessPayment(r.Context(), userID, req.OrderID, req.Amount, req.PaymentMethod)
		if err != nil {
			logger.Error("payment failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		if !result.Success {
			writeJSON(w, logger, http.StatusPaymentRequired, PaymentDeclinedResponse{
				Success:       false,
				Error:         "Payment declined. Please try again or use a different payment method.",
				TransactionID: result.TransactionID,
			})
			return
		}

		writeJSON(w, logger, http.StatusOK, ProcessPaymentResponse{
			Success:       true,
			TransactionID: result.TransactionID,
			OrderID:       req.OrderID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			Status:        result.Status,
		})
	}
}
