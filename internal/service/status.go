package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
)

// StatusService управляет жизненным циклом заказа со стороны админа.
type StatusService interface {
	// UpdateStatus меняет статус и/или трек-номер заказа. Пустая строка означает
	// отсутствие поля; хотя бы одно из двух должно быть передано.
	UpdateStatus(ctx context.Context, isAdmin bool, orderID int64, status, trackingNumber string) (*models.Order, error)
}

type statusService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewStatusService(log *slog.Logger, orderRepo storage.OrderStorage) StatusService {
	return &statusService{
		log:       log,
		orderRepo: orderRepo,
	}
}

// UpdateStatus применяет админское обновление заказа. Граф переходов не ограничивается,
// но метки shipped_at/delivered_at ставятся только при первом входе в соответствующий статус.
func (s *statusService) UpdateStatus(ctx context.Context, isAdmin bool, orderID int64, status, trackingNumber string) (*models.Order, error) {
	const op = "service.StatusService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID))

	// Проверка полномочий делается вызывающей стороной, сервису передаётся только факт
	if !isAdmin {
		logger.Warn("caller is not admin")
		return nil, ErrNotAllowed
	}
	if status == "" && trackingNumber == "" {
		logger.Warn("no fields to update")
		return nil, ErrNoFieldsToUpdate
	}
	if status != "" && !models.ValidOrderStatus(status) {
		logger.Warn("invalid status", slog.String("status", status))
		return nil, ErrInvalidStatus
	}

	if _, err := s.orderRepo.GetOrderAnyUser(ctx, orderID); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	upd := storage.OrderUpdate{}
	if status != "" {
		upd.Status = &status
		now := time.Now()
		switch status {
		case models.OrderStatusShipped:
			upd.ShippedAt = &now
		case models.OrderStatusDelivered:
			upd.DeliveredAt = &now
		}
	}
	if trackingNumber != "" {
		upd.TrackingNumber = &trackingNumber
	}

	if err := s.orderRepo.UpdateOrder(ctx, orderID, upd); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to update order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order: %w", op, err)
	}

	order, err := s.orderRepo.GetOrderAnyUser(ctx, orderID)
	if err != nil {
		logger.Error("failed to reload order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to reload order: %w", op, err)
	}

	logger.Info("order updated", slog.String("status", order.Status))
	return order, nil
}
