package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductRepo — in-memory каталог товаров.
type fakeProductRepo struct {
	products map[int64]*models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok || !product.IsActive {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, search string, limit int) ([]*models.Product, error) {
	var result []*models.Product
	for _, p := range f.products {
		if p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	product, ok := f.products[productID]
	if !ok || product.StockQuantity < quantity {
		return storage.ErrProductNotFound
	}
	product.StockQuantity -= quantity
	return nil
}

// fakeCartRepo — in-memory корзина с суммированием количества при повторном добавлении.
type fakeCartRepo struct {
	products *fakeProductRepo
	lines    map[int64][]*models.CartLine // userID -> позиции
	nextID   int64
}

func newFakeCartRepo(products *fakeProductRepo) *fakeCartRepo {
	return &fakeCartRepo{products: products, lines: make(map[int64][]*models.CartLine), nextID: 1}
}

func (f *fakeCartRepo) GetCartLines(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	return f.lines[userID], nil
}

func (f *fakeCartRepo) GetCartLinesForUpdateTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	return f.lines[userID], nil
}

func (f *fakeCartRepo) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	for _, line := range f.lines[userID] {
		if line.ProductID == productID {
			line.Quantity += quantity
			return nil
		}
	}
	product := f.products.products[productID]
	f.lines[userID] = append(f.lines[userID], &models.CartLine{
		CartItemID:    f.nextID,
		ProductID:     productID,
		ProductName:   product.Name,
		ImageURL:      product.ImageURL,
		Quantity:      quantity,
		Price:         product.Price,
		SalePrice:     product.SalePrice,
		StockQuantity: product.StockQuantity,
	})
	f.nextID++
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantity(ctx context.Context, userID, cartItemID int64, quantity int) error {
	for _, line := range f.lines[userID] {
		if line.CartItemID == cartItemID {
			line.Quantity = quantity
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	lines := f.lines[userID]
	for i, line := range lines {
		if line.CartItemID == cartItemID {
			f.lines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	delete(f.lines, userID)
	return nil
}

func widgetOnSale() *models.Product {
	sale := decimal.RequireFromString("8.00")
	return &models.Product{
		ID:            10,
		Name:          "Widget",
		Price:         decimal.RequireFromString("10.00"),
		SalePrice:     &sale,
		StockQuantity: 5,
		IsActive:      true,
	}
}

func TestAddToCart_StockChecked(t *testing.T) {
	products := newFakeProductRepo(widgetOnSale())
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)
	ctx := context.Background()

	err := svc.AddToCart(ctx, 7, 10, 6)
	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Widget", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Available)

	assert.NoError(t, svc.AddToCart(ctx, 7, 10, 5))
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	products := newFakeProductRepo()
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)

	err := svc.AddToCart(context.Background(), 7, 99, 1)
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestGetCart_TotalUsesEffectivePrice(t *testing.T) {
	products := newFakeProductRepo(widgetOnSale(), &models.Product{
		ID:            11,
		Name:          "Gadget",
		Price:         decimal.RequireFromString("25.50"),
		StockQuantity: 3,
		IsActive:      true,
	})
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)
	ctx := context.Background()

	require.NoError(t, svc.AddToCart(ctx, 7, 10, 2))
	require.NoError(t, svc.AddToCart(ctx, 7, 11, 1))

	view, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	// 8.00*2 + 25.50 = 41.50: распродажная цена имеет приоритет
	assert.True(t, view.Total.Equal(decimal.RequireFromString("41.50")),
		"Expected total 41.50, got %s", view.Total)
}

func TestGetCart_Empty(t *testing.T) {
	products := newFakeProductRepo()
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)

	view, err := svc.GetCart(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
}

func TestUpdateItem_NotFound(t *testing.T) {
	products := newFakeProductRepo()
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)

	err := svc.UpdateItem(context.Background(), 7, 99, 3)
	assert.ErrorIs(t, err, service.ErrCartItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	products := newFakeProductRepo(widgetOnSale())
	cart := newFakeCartRepo(products)
	svc := service.NewCartService(testLogger(), cart, products)
	ctx := context.Background()

	require.NoError(t, svc.AddToCart(ctx, 7, 10, 1))
	require.NoError(t, svc.RemoveItem(ctx, 7, 1))

	view, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	assert.ErrorIs(t, svc.RemoveItem(ctx, 7, 1), service.ErrCartItemNotFound)
}
