package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/shopspring/decimal"
)

// amountTolerance — допуск на округление при сверке суммы платежа с суммой заказа.
// Расхождение строго больше допуска считается ошибкой.
var amountTolerance = decimal.NewFromFloat(0.01)

// PaymentResult — итог платёжной попытки. Отклонённый платёж — не ошибка,
// а бизнес-исход: failed-транзакция уже записана, заказ остаётся pending.
type PaymentResult struct {
	TransactionID string
	Success       bool
	Status        string
}

// PaymentService имитирует платёжный шлюз: исход определяется случайно
// с настраиваемой вероятностью успеха.
type PaymentService interface {
	ProcessPayment(ctx context.Context, userID, orderID int64, amount decimal.Decimal, paymentMethod string) (*PaymentResult, error)
}

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	txRepo      storage.TransactionStorage
	successRate float64
	randFloat   func() float64 // источник случайности; подменяется в тестах
}

// NewPaymentService создаёт платёжный сервис. randFloat == nil означает math/rand.
func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, txRepo storage.TransactionStorage, successRate float64, randFloat func() float64) PaymentService {
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &paymentService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		txRepo:      txRepo,
		successRate: successRate,
		randFloat:   randFloat,
	}
}

// ProcessPayment проводит платёж по заказу. Строка заказа блокируется до конца транзакции,
// поэтому два конкурентных платежа не могут оба завершиться как completed:
// второй увидит статус paid и получит ErrAlreadyPaid без записи транзакции.
func (s *paymentService) ProcessPayment(ctx context.Context, userID, orderID int64, amount decimal.Decimal, paymentMethod string) (*PaymentResult, error) {
	const op = "service.PaymentService.ProcessPayment"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("orderID", orderID),
		slog.String("method", paymentMethod),
	)
	logger.Info("starting payment transaction")

	if !models.ValidPaymentMethod(paymentMethod) {
		logger.Warn("invalid payment method")
		return nil, ErrInvalidPaymentMethod
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Блокируем заказ; заодно проверяется принадлежность пользователю
	order, err := s.orderRepo.LockOrderTx(ctx, tx, orderID, userID)
	if err != nil {
		s.rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if order.Status == models.OrderStatusPaid {
		s.rollback(tx, logger)
		logger.Warn("order is already paid")
		return nil, ErrAlreadyPaid
	}

	// Сумма платежа должна совпадать с суммой заказа с точностью до допуска
	if amount.Sub(order.TotalAmount).Abs().GreaterThan(amountTolerance) {
		s.rollback(tx, logger)
		logger.Warn("amount mismatch",
			slog.String("amount", amount.String()),
			slog.String("total", order.TotalAmount.String()))
		return nil, ErrAmountMismatch
	}

	transactionID := generateTransactionID()
	success := s.randFloat() < s.successRate

	status := models.TransactionStatusCompleted
	if !success {
		status = models.TransactionStatusFailed
	}
	record := &models.Transaction{
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		Status:        status,
		TransactionID: transactionID,
	}
	if err := s.txRepo.CreateTransactionTx(ctx, tx, record); err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to record transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to record transaction: %w", op, err)
	}

	// Успешный платёж переводит заказ в paid, отклонённый оставляет его нетронутым
	if success {
		if err := s.orderRepo.MarkPaidTx(ctx, tx, orderID, time.Now()); err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to mark order paid", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to mark order paid: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	if success {
		logger.Info("payment completed", slog.String("transactionID", transactionID))
	} else {
		logger.Warn("payment declined", slog.String("transactionID", transactionID))
	}
	return &PaymentResult{
		TransactionID: transactionID,
		Success:       success,
		Status:        status,
	}, nil
}

// generateTransactionID генерирует отображаемый идентификатор вида TXN-<12 hex>.
// Уникальность обеспечивается случайностью UUID, цикл повторов не нужен на этих объёмах.
func generateTransactionID() string {
	id := uuid.New()
	return "TXN-" + strings.ToUpper(hex.EncodeToString(id[:])[:12])
}

func (s *paymentService) rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
