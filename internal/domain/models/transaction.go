package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Способы оплаты, принимаемые платёжным симулятором
const (
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodDebitCard  = "debit_card"
	PaymentMethodPayPal     = "paypal"
	PaymentMethodApplePay   = "apple_pay"
	PaymentMethodGooglePay  = "google_pay"
)

// Статусы платёжной попытки
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// ValidPaymentMethod проверяет, что способ оплаты входит в допустимый набор
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal,
		PaymentMethodApplePay, PaymentMethodGooglePay:
		return true
	}
	return false
}

// Transaction представляет одну платёжную попытку, успешную или нет.
// У заказа может быть несколько failed-попыток, но не более одной completed.
type Transaction struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"` // отображаемый идентификатор вида TXN-XXXXXXXXXXXX
	CreatedAt     time.Time       `json:"created_at"`
}
