package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrder_WithItems(t *testing.T) {
	repo := newFakeOrderRepo()
	order := repo.add(&models.Order{
		UserID:      7,
		OrderNumber: "ORD-2025-0001",
		TotalAmount: decimal.RequireFromString("16.00"),
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now(),
	})
	repo.items[order.ID] = []*models.OrderItem{
		{
			ID:              1,
			OrderID:         order.ID,
			ProductID:       10,
			Quantity:        2,
			PriceAtPurchase: decimal.RequireFromString("8.00"),
			ProductName:     "Widget",
			ImageURL:        "/img/widget.png",
		},
	}
	svc := service.NewOrderQueryService(testLogger(), repo)

	result, err := svc.GetOrder(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2025-0001", result.Order.OrderNumber)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Widget", result.Items[0].Product.Name)
	// Стоимость строки: 8.00 * 2 = 16.00
	assert.True(t, result.Items[0].ItemTotal.Equal(decimal.RequireFromString("16.00")))
}

func TestGetOrder_ForeignOrderNotVisible(t *testing.T) {
	repo := newFakeOrderRepo()
	order := repo.add(&models.Order{UserID: 7, Status: models.OrderStatusPending, CreatedAt: time.Now()})
	svc := service.NewOrderQueryService(testLogger(), repo)

	result, err := svc.GetOrder(context.Background(), 8, order.ID)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestListOrders_OnlyOwn(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.add(&models.Order{UserID: 7, Status: models.OrderStatusPending, CreatedAt: time.Now()})
	repo.add(&models.Order{UserID: 7, Status: models.OrderStatusPaid, CreatedAt: time.Now()})
	repo.add(&models.Order{UserID: 8, Status: models.OrderStatusPending, CreatedAt: time.Now()})
	svc := service.NewOrderQueryService(testLogger(), repo)

	orders, err := svc.ListOrders(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, int64(7), order.UserID)
	}
}

func TestGetTracking_TimelineForUnpaidOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	createdAt := time.Now()
	order := repo.add(&models.Order{UserID: 7, Status: models.OrderStatusPending, CreatedAt: createdAt})
	svc := service.NewOrderQueryService(testLogger(), repo)

	info, err := svc.GetTracking(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", info.Status)
	require.NotNil(t, info.Timeline.Ordered)
	assert.True(t, info.Timeline.Ordered.Equal(createdAt))
	// Неслучившиеся этапы отдаются как null
	assert.Nil(t, info.Timeline.Paid)
	assert.Nil(t, info.Timeline.Shipped)
	assert.Nil(t, info.Timeline.Delivered)
	assert.Nil(t, info.TrackingNumber)
}

func TestGetTracking_FullTimeline(t *testing.T) {
	repo := newFakeOrderRepo()
	createdAt := time.Now().Add(-72 * time.Hour)
	paidAt := createdAt.Add(time.Hour)
	shippedAt := paidAt.Add(24 * time.Hour)
	deliveredAt := shippedAt.Add(24 * time.Hour)
	tracking := "TRACK-123"
	order := repo.add(&models.Order{
		UserID:         7,
		Status:         models.OrderStatusDelivered,
		TrackingNumber: &tracking,
		CreatedAt:      createdAt,
		PaidAt:         &paidAt,
		ShippedAt:      &shippedAt,
		DeliveredAt:    &deliveredAt,
	})
	svc := service.NewOrderQueryService(testLogger(), repo)

	info, err := svc.GetTracking(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", info.Status)
	require.NotNil(t, info.TrackingNumber)
	assert.Equal(t, "TRACK-123", *info.TrackingNumber)
	require.NotNil(t, info.Timeline.Paid)
	require.NotNil(t, info.Timeline.Shipped)
	require.NotNil(t, info.Timeline.Delivered)
	assert.True(t, info.Timeline.Paid.Equal(paidAt))
	assert.True(t, info.Timeline.Shipped.Equal(shippedAt))
	assert.True(t, info.Timeline.Delivered.Equal(deliveredAt))
}

func TestGetTracking_NotFound(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := service.NewOrderQueryService(testLogger(), repo)

	info, err := svc.GetTracking(context.Background(), 7, 99)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}
