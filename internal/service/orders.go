package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/shopspring/decimal"
)

// OrderQueryService — read-only доступ к заказам. Принадлежность заказа
// пользователю проверяется на каждом чтении.
type OrderQueryService interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*OrderWithItems, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetTracking(ctx context.Context, userID, orderID int64) (*TrackingInfo, error)
}

// OrderWithItems — заказ вместе с позициями для детального ответа.
type OrderWithItems struct {
	Order *models.Order    `json:"order"`
	Items []*OrderItemView `json:"items"`
}

// OrderItemView — позиция заказа со снимком товара и стоимостью строки.
type OrderItemView struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Product         ProductSnapshot `json:"product"`
	ItemTotal       decimal.Decimal `json:"item_total"`
}

type ProductSnapshot struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// TrackingInfo — статус доставки с хронологией этапов.
// Незаполненные этапы отдаются как null.
type TrackingInfo struct {
	OrderID        int64    `json:"order_id"`
	Status         string   `json:"status"`
	TrackingNumber *string  `json:"tracking_number"`
	Timeline       Timeline `json:"timeline"`
}

type Timeline struct {
	Ordered   *time.Time `json:"ordered"`
	Paid      *time.Time `json:"paid"`
	Shipped   *time.Time `json:"shipped"`
	Delivered *time.Time `json:"delivered"`
}

type orderQueryService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderQueryService(log *slog.Logger, orderRepo storage.OrderStorage) OrderQueryService {
	return &orderQueryService{
		log:       log,
		orderRepo: orderRepo,
	}
}

func (s *orderQueryService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderWithItems, error) {
	const op = "service.OrderQueryService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}

	views := make([]*OrderItemView, 0, len(items))
	for _, item := range items {
		views = append(views, &OrderItemView{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			Product: ProductSnapshot{
				Name:     item.ProductName,
				ImageURL: item.ImageURL,
			},
			ItemTotal: item.Subtotal(),
		})
	}

	return &OrderWithItems{Order: order, Items: views}, nil
}

func (s *orderQueryService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderQueryService.ListOrders"

	orders, err := s.orderRepo.ListOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderQueryService) GetTracking(ctx context.Context, userID, orderID int64) (*TrackingInfo, error) {
	const op = "service.OrderQueryService.GetTracking"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	createdAt := order.CreatedAt
	return &TrackingInfo{
		OrderID:        order.ID,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
		Timeline: Timeline{
			Ordered:   &createdAt,
			Paid:      order.PaidAt,
			Shipped:   order.ShippedAt,
			Delivered: order.DeliveredAt,
		},
	}, nil
}
