package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/shopsphere/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage описывает методы для работы с корзиной.
type CartStorage interface {
	// GetCartLines возвращает позиции корзины пользователя вместе с данными товара.
	GetCartLines(ctx context.Context, userID int64) ([]*models.CartLine, error)
	// GetCartLinesForUpdateTx делает то же самое внутри транзакции оформления,
	// блокируя строки товаров до конца транзакции.
	GetCartLinesForUpdateTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error)
	// AddItem добавляет товар в корзину; при повторном добавлении количество суммируется.
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	// UpdateItemQuantity меняет количество позиции корзины пользователя.
	UpdateItemQuantity(ctx context.Context, userID, cartItemID int64, quantity int) error
	// RemoveItem удаляет позицию корзины пользователя.
	RemoveItem(ctx context.Context, userID, cartItemID int64) error
	// ClearCartTx удаляет все позиции корзины в рамках транзакции оформления.
	ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartLinesQuery = `
		SELECT c.id, c.product_id, p.name, p.image_url, c.quantity, p.price, p.sale_price, p.stock_quantity
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.id`

func scanCartLines(rows *sql.Rows) ([]*models.CartLine, error) {
	var lines []*models.CartLine
	for rows.Next() {
		line := &models.CartLine{}
		if err := rows.Scan(&line.CartItemID, &line.ProductID, &line.ProductName, &line.ImageURL,
			&line.Quantity, &line.Price, &line.SalePrice, &line.StockQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) GetCartLines(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()
	return scanCartLines(rows)
}

func (r *cartRepository) GetCartLinesForUpdateTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	rows, err := tx.QueryContext(ctx, cartLinesQuery+" FOR UPDATE OF p NOWAIT", userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("resource is locked, please try again: %w", err)
			}
		}
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()
	return scanCartLines(rows)
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	query := `INSERT INTO cart_items (user_id, product_id, quantity, created_at)
	          VALUES ($1, $2, $3, NOW())
	          ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, cartItemID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3",
		quantity, cartItemID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2",
		cartItemID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
