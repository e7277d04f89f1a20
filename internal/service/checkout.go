package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/shopspring/decimal"
)

// CheckoutService превращает корзину пользователя в заказ.
type CheckoutService interface {
	// Checkout создаёт заказ в статусе pending из текущей корзины.
	Checkout(ctx context.Context, userID int64, shippingAddress string) (*models.Order, error)
	// CheckoutAndPay создаёт заказ и сразу проводит оплату на его полную сумму.
	// Заказ возвращается и при отклонённой оплате: он уже создан и остаётся pending.
	CheckoutAndPay(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*models.Order, *PaymentResult, error)
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	payments    PaymentService
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage, orderRepo storage.OrderStorage, payments PaymentService) CheckoutService {
	return &checkoutService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		payments:    payments,
	}
}

// Checkout оформляет заказ: проверка остатков по всем позициям до каких-либо записей,
// создание заказа и позиций, списание остатков, очистка корзины.
// Всё выполняется в одной транзакции, при любой ошибке транзакция откатывается.
func (s *checkoutService) Checkout(ctx context.Context, userID int64, shippingAddress string) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Загружаем корзину вместе с данными товара, строки товаров блокируются до конца транзакции
	lines, err := s.cartRepo.GetCartLinesForUpdateTx(ctx, tx, userID)
	if err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}
	if len(lines) == 0 {
		s.rollback(tx, logger)
		logger.Warn("cart is empty")
		return nil, ErrEmptyCart
	}

	// Проверяем остатки по всем позициям до каких-либо записей: либо хватает всего, либо отказ целиком
	total := decimal.Zero
	for _, line := range lines {
		if line.StockQuantity < line.Quantity {
			s.rollback(tx, logger)
			logger.Warn("insufficient stock",
				slog.String("product", line.ProductName),
				slog.Int("available", line.StockQuantity),
				slog.Int("requested", line.Quantity))
			return nil, &InsufficientStockError{ProductName: line.ProductName, Available: line.StockQuantity}
		}
		total = total.Add(line.LineTotal())
	}

	orderNumber, err := s.orderRepo.NextOrderNumberTx(ctx, tx)
	if err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to generate order number", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to generate order number: %w", op, err)
	}

	order := &models.Order{
		UserID:          userID,
		OrderNumber:     orderNumber,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       time.Now(),
	}
	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	// Создаём позиции заказа с зафиксированной ценой и списываем остатки
	for _, line := range lines {
		item := &models.OrderItem{
			OrderID:         orderID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.EffectivePrice(),
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		if err := s.productRepo.DecrementStockTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}
	}

	// Очищаем корзину
	if err := s.cartRepo.ClearCartTx(ctx, tx, userID); err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("checkout completed successfully",
		slog.Int64("orderID", orderID),
		slog.String("orderNumber", orderNumber),
		slog.String("total", total.String()))
	return order, nil
}

// CheckoutAndPay — совмещённый сценарий: заказ создаётся и тут же оплачивается на полную сумму.
func (s *checkoutService) CheckoutAndPay(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*models.Order, *PaymentResult, error) {
	const op = "service.CheckoutService.CheckoutAndPay"

	order, err := s.Checkout(ctx, userID, shippingAddress)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.payments.ProcessPayment(ctx, userID, order.ID, order.TotalAmount, paymentMethod)
	if err != nil {
		// Заказ уже создан и остаётся pending, оплату можно повторить отдельным запросом
		s.log.Error("payment after checkout failed",
			slog.String("op", op),
			slog.Int64("orderID", order.ID),
			slog.Any("error", err))
		return order, nil, fmt.Errorf("%s: payment failed: %w", op, err)
	}
	return order, result, nil
}

func (s *checkoutService) rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
