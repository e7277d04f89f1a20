package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/shopsphere/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы для работы с каталогом товаров.
type ProductStorage interface {
	// GetProductByID возвращает активный товар по идентификатору.
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// ListProducts возвращает активные товары с необязательным поиском по имени/описанию и лимитом.
	ListProducts(ctx context.Context, search string, limit int) ([]*models.Product, error)
	// DecrementStockTx уменьшает остаток товара в рамках транзакции оформления заказа.
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT id, name, description, price, sale_price, image_url, stock_quantity, is_active, created_at
	          FROM products WHERE id = $1 AND is_active = TRUE`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
		&product.SalePrice, &product.ImageURL, &product.StockQuantity, &product.IsActive, &product.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) ListProducts(ctx context.Context, search string, limit int) ([]*models.Product, error) {
	query := `SELECT id, name, description, price, sale_price, image_url, stock_quantity, is_active, created_at
	          FROM products WHERE is_active = TRUE`
	args := []any{}

	if search != "" {
		query += " AND (name ILIKE $1 OR description ILIKE $1)"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
			&product.SalePrice, &product.ImageURL, &product.StockQuantity, &product.IsActive, &product.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStockTx уменьшает остаток; условие stock_quantity >= quantity не даёт уйти в минус
// даже при конкурентном оформлении.
func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
