package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
)

// TransactionQueryService — read-only доступ к платёжным попыткам пользователя.
type TransactionQueryService interface {
	ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	GetTransaction(ctx context.Context, userID int64, displayID string) (*models.Transaction, error)
}

type transactionQueryService struct {
	log    *slog.Logger
	txRepo storage.TransactionStorage
}

func NewTransactionQueryService(log *slog.Logger, txRepo storage.TransactionStorage) TransactionQueryService {
	return &transactionQueryService{
		log:    log,
		txRepo: txRepo,
	}
}

func (s *transactionQueryService) ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	const op = "service.TransactionQueryService.ListTransactions"

	transactions, err := s.txRepo.GetTransactionsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list transactions", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list transactions: %w", op, err)
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	return transactions, nil
}

func (s *transactionQueryService) GetTransaction(ctx context.Context, userID int64, displayID string) (*models.Transaction, error) {
	const op = "service.TransactionQueryService.GetTransaction"

	transaction, err := s.txRepo.GetTransactionByDisplayID(ctx, displayID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		s.log.Error("failed to get transaction", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get transaction: %w", op, err)
	}
	return transaction, nil
}
