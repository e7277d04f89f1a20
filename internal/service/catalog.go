package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/storage"
)

// CatalogService — read-only доступ к каталогу товаров.
type CatalogService interface {
	ListProducts(ctx context.Context, search string, limit int) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, search string, limit int) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	products, err := s.productRepo.ListProducts(ctx, search, limit)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return product, nil
}
