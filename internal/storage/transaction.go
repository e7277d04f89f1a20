package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/shopsphere/internal/domain/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionStorage описывает методы для работы с платёжными попытками.
type TransactionStorage interface {
	// CreateTransactionTx записывает платёжную попытку в рамках транзакции оплаты.
	CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) error
	// GetTransactionsByUserID возвращает платёжные попытки пользователя, новые первыми.
	GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error)
	// GetTransactionByDisplayID возвращает платёжную попытку по отображаемому идентификатору.
	GetTransactionByDisplayID(ctx context.Context, displayID string, userID int64) (*models.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionStorage {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	query := `INSERT INTO transactions (order_id, user_id, amount, payment_method, status, transaction_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())`
	_, err := tx.ExecContext(ctx, query,
		t.OrderID, t.UserID, t.Amount, t.PaymentMethod, t.Status, t.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, order_id, user_id, amount, payment_method, status, transaction_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(&t.ID, &t.OrderID, &t.UserID, &t.Amount, &t.PaymentMethod,
			&t.Status, &t.TransactionID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *transactionRepository) GetTransactionByDisplayID(ctx context.Context, displayID string, userID int64) (*models.Transaction, error) {
	t := &models.Transaction{}
	query := `SELECT id, order_id, user_id, amount, payment_method, status, transaction_id, created_at
	          FROM transactions WHERE transaction_id = $1 AND user_id = $2`
	row := r.db.QueryRowContext(ctx, query, displayID, userID)
	if err := row.Scan(&t.ID, &t.OrderID, &t.UserID, &t.Amount, &t.PaymentMethod,
		&t.Status, &t.TransactionID, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}
