package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/linemk/shopsphere/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderUpdate описывает изменяемые поля заказа для админского обновления статуса.
// nil-поле не попадает в запрос.
type OrderUpdate struct {
	Status         *string
	TrackingNumber *string
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

// OrderStorage описывает методы для работы с заказами и их позициями.
type OrderStorage interface {
	// NextOrderNumberTx генерирует отображаемый номер заказа вида ORD-<год>-<порядковый номер>.
	NextOrderNumberTx(ctx context.Context, tx *sql.Tx) (string, error)
	// CreateOrderTx вставляет новый заказ в рамках транзакции и возвращает его id.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// CreateOrderItemTx вставляет позицию заказа в рамках транзакции.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	// GetOrderByID возвращает заказ пользователя; чужие заказы не видны.
	GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error)
	// GetOrderAnyUser возвращает заказ без проверки владельца (админский путь).
	GetOrderAnyUser(ctx context.Context, orderID int64) (*models.Order, error)
	// LockOrderTx блокирует строку заказа пользователя до конца транзакции оплаты.
	LockOrderTx(ctx context.Context, tx *sql.Tx, orderID, userID int64) (*models.Order, error)
	// ListOrdersByUserID возвращает заказы пользователя, новые первыми.
	ListOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderItems возвращает позиции заказа вместе со снимком товара.
	GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	// MarkPaidTx переводит заказ в paid; paid_at ставится только при первом переходе.
	MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID int64, paidAt time.Time) error
	// UpdateOrder применяет набор изменяемых полей; метки времени ставятся только если ещё пусты.
	UpdateOrder(ctx context.Context, orderID int64, upd OrderUpdate) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, order_number, total_amount, status, shipping_address, tracking_number,
	       created_at, paid_at, shipped_at, delivered_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.TotalAmount, &order.Status,
		&order.ShippingAddress, &order.TrackingNumber,
		&order.CreatedAt, &order.PaidAt, &order.ShippedAt, &order.DeliveredAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) NextOrderNumberTx(ctx context.Context, tx *sql.Tx) (string, error) {
	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count orders: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%04d", time.Now().Year(), count+1), nil
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	query := `INSERT INTO orders (user_id, order_number, total_amount, status, shipping_address, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`
	err := tx.QueryRowContext(ctx, query,
		order.UserID, order.OrderNumber, order.TotalAmount, order.Status, order.ShippingAddress,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase, created_at)
	          VALUES ($1, $2, $3, $4, NOW())`
	_, err := tx.ExecContext(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND user_id = $2"
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrderAnyUser(ctx context.Context, orderID int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1"
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) LockOrderTx(ctx context.Context, tx *sql.Tx, orderID, userID int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE NOWAIT"
	order, err := scanOrder(tx.QueryRowContext(ctx, query, orderID, userID))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("resource is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_purchase, p.name, p.image_url, oi.created_at
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.PriceAtPurchase, &item.ProductName, &item.ImageURL, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkPaidTx переводит заказ в paid. COALESCE гарантирует, что paid_at выставляется ровно один раз.
func (r *orderRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID int64, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, paid_at = COALESCE(paid_at, $2) WHERE id = $3",
		models.OrderStatusPaid, paidAt, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateOrder собирает SET-часть динамически из непустых полей OrderUpdate.
// Метки shipped_at/delivered_at оборачиваются в COALESCE, чтобы повторный переход
// в тот же статус не перезаписывал уже выставленное время.
func (r *orderRepository) UpdateOrder(ctx context.Context, orderID int64, upd OrderUpdate) error {
	var fields []string
	var args []any

	addField := func(expr string, value any) {
		args = append(args, value)
		fields = append(fields, fmt.Sprintf(expr, len(args)))
	}

	if upd.Status != nil {
		addField("status = $%d", *upd.Status)
	}
	if upd.ShippedAt != nil {
		addField("shipped_at = COALESCE(shipped_at, $%d)", *upd.ShippedAt)
	}
	if upd.DeliveredAt != nil {
		addField("delivered_at = COALESCE(delivered_at, $%d)", *upd.DeliveredAt)
	}
	if upd.TrackingNumber != nil {
		addField("tracking_number = $%d", *upd.TrackingNumber)
	}
	if len(fields) == 0 {
		return nil
	}

	args = append(args, orderID)
	query := "UPDATE orders SET "
	for i, f := range fields {
		if i > 0 {
			query += ", "
		}
		query += f
	}
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
