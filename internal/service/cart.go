package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/shopspring/decimal"
)

// CartService управляет корзиной пользователя.
type CartService interface {
	AddToCart(ctx context.Context, userID, productID int64, quantity int) error
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	UpdateItem(ctx context.Context, userID, cartItemID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, cartItemID int64) error
}

// CartView — корзина с итоговой суммой по действующим ценам.
type CartView struct {
	Items []*models.CartLine `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddToCart добавляет товар в корзину. Запрашиваемое количество сверяется с остатком,
// повторное добавление того же товара суммирует количество.
func (s *cartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	const op = "service.CartService.AddToCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			logger.Warn("product not found")
			return ErrProductNotFound
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	if product.StockQuantity < quantity {
		logger.Warn("insufficient stock", slog.Int("available", product.StockQuantity))
		return &InsufficientStockError{ProductName: product.Name, Available: product.StockQuantity}
	}

	if err := s.cartRepo.AddItem(ctx, userID, productID, quantity); err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to add cart item: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int("quantity", quantity))
	return nil
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"

	lines, err := s.cartRepo.GetCartLines(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	if lines == nil {
		lines = []*models.CartLine{}
	}
	return &CartView{Items: lines, Total: total}, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, cartItemID int64, quantity int) error {
	const op = "service.CartService.UpdateItem"

	if err := s.cartRepo.UpdateItemQuantity(ctx, userID, cartItemID, quantity); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return ErrCartItemNotFound
		}
		s.log.Error("failed to update cart item", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to update cart item: %w", op, err)
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	const op = "service.CartService.RemoveItem"

	if err := s.cartRepo.RemoveItem(ctx, userID, cartItemID); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return ErrCartItemNotFound
		}
		s.log.Error("failed to remove cart item", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to remove cart item: %w", op, err)
	}
	return nil
}
