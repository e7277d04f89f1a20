package service

import (
	"errors"
	"fmt"
)

// Ошибки бизнес-уровня. Хендлеры переводят их в HTTP-коды,
// ошибки драйвера БД наружу не выходят.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrAmountMismatch       = errors.New("amount does not match order total")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrNoFieldsToUpdate     = errors.New("no fields to update")
	ErrNotAllowed           = errors.New("admin privileges required")
)

// InsufficientStockError возвращается при нехватке остатка; несёт название товара
// и доступное количество для сообщения пользователю.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d", e.ProductName, e.Available)
}
