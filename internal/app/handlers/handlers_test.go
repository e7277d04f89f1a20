package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shopsphere/internal/app/handlers"
	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// withUser подкладывает в контекст запроса то, что обычно кладёт JWT-middleware.
func withUser(r *http.Request, userID int64, isAdmin bool) *http.Request {
	ctx := context.WithValue(r.Context(), jwtmiddleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, jwtmiddleware.IsAdminKey, isAdmin)
	return r.WithContext(ctx)
}

type fakeCheckoutService struct {
	order  *models.Order
	result *service.PaymentResult
	err    error
	payErr error
}

func (f *fakeCheckoutService) Checkout(ctx context.Context, userID int64, shippingAddress string) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeCheckoutService) CheckoutAndPay(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*models.Order, *service.PaymentResult, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if f.payErr != nil {
		return f.order, nil, f.payErr
	}
	return f.order, f.result, nil
}

type fakePaymentService struct {
	result *service.PaymentResult
	err    error
}

func (f *fakePaymentService) ProcessPayment(ctx context.Context, userID, orderID int64, amount decimal.Decimal, paymentMethod string) (*service.PaymentResult, error) {
	return f.result, f.err
}

type fakeStatusService struct {
	order *models.Order
	err   error
}

func (f *fakeStatusService) UpdateStatus(ctx context.Context, isAdmin bool, orderID int64, status, trackingNumber string) (*models.Order, error) {
	if !isAdmin {
		return nil, service.ErrNotAllowed
	}
	return f.order, f.err
}

type fakeOrderQueryService struct {
	order    *service.OrderWithItems
	orders   []*models.Order
	tracking *service.TrackingInfo
	err      error
}

func (f *fakeOrderQueryService) GetOrder(ctx context.Context, userID, orderID int64) (*service.OrderWithItems, error) {
	return f.order, f.err
}

func (f *fakeOrderQueryService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return f.orders, f.err
}

func (f *fakeOrderQueryService) GetTracking(ctx context.Context, userID, orderID int64) (*service.TrackingInfo, error) {
	return f.tracking, f.err
}

type fakeCartService struct {
	view *service.CartView
	err  error
}

func (f *fakeCartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	return f.err
}

func (f *fakeCartService) GetCart(ctx context.Context, userID int64) (*service.CartView, error) {
	return f.view, f.err
}

func (f *fakeCartService) UpdateItem(ctx context.Context, userID, cartItemID int64, quantity int) error {
	return f.err
}

func (f *fakeCartService) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	return f.err
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:          42,
		UserID:      7,
		OrderNumber: "ORD-2025-0001",
		TotalAmount: decimal.RequireFromString("16.00"),
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestCheckoutHandler_Success(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{order: pendingOrder()})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "221B Baker Street"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp handlers.CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.OrderID)
	assert.Equal(t, "ORD-2025-0001", resp.OrderNumber)
	assert.Equal(t, "pending", resp.Status)
	assert.Nil(t, resp.Payment)
}

func TestCheckoutHandler_MissingAddress(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{err: service.ErrEmptyCart})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "addr"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutHandler_InsufficientStock(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{
		err: &service.InsufficientStockError{ProductName: "Widget", Available: 3},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "addr"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "Widget")
}

func TestCheckoutHandler_Unauthorized(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "addr"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHandler_CombinedPaymentSuccess(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{
		order:  pendingOrder(),
		result: &service.PaymentResult{TransactionID: "TXN-AAA000000001", Success: true, Status: "completed"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "addr", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp handlers.CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.Payment)
	assert.True(t, resp.Payment.Success)
	assert.Equal(t, "TXN-AAA000000001", resp.Payment.TransactionID)
}

func TestCheckoutHandler_CombinedPaymentDeclined(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeCheckoutService{
		order:  pendingOrder(),
		result: &service.PaymentResult{TransactionID: "TXN-AAA000000002", Success: false, Status: "failed"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout",
		strings.NewReader(`{"shipping_address": "addr", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	// Заказ создан и остаётся pending, отклонённая оплата не отменяет его
	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp handlers.CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pending", resp.Status)
	require.NotNil(t, resp.Payment)
	assert.False(t, resp.Payment.Success)
}

func TestProcessPaymentHandler_Success(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{
		result: &service.PaymentResult{TransactionID: "TXN-AAA000000001", Success: true, Status: "completed"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 42, "amount": "16.00", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.ProcessPaymentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "TXN-AAA000000001", resp.TransactionID)
	assert.Equal(t, int64(42), resp.OrderID)
	assert.Equal(t, "completed", resp.Status)
}

func TestProcessPaymentHandler_Declined(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{
		result: &service.PaymentResult{TransactionID: "TXN-AAA000000002", Success: false, Status: "failed"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 42, "amount": "16.00", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var resp handlers.PaymentDeclinedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "TXN-AAA000000002", resp.TransactionID)
	assert.Contains(t, resp.Error, "declined")
}

func TestProcessPaymentHandler_AlreadyPaid(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{err: service.ErrAlreadyPaid})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 42, "amount": "16.00", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProcessPaymentHandler_AmountMismatch(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{err: service.ErrAmountMismatch})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 42, "amount": "15.00", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessPaymentHandler_OrderNotFound(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{err: service.ErrOrderNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 99, "amount": "16.00", "payment_method": "credit_card"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessPaymentHandler_MissingFields(t *testing.T) {
	handler := handlers.ProcessPaymentHandler(testLogger(), &fakePaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/payment",
		strings.NewReader(`{"order_id": 42}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func patchStatusRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/42/status", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUpdateStatusHandler_Success(t *testing.T) {
	tracking := "TRACK-123"
	shippedAt := time.Now()
	handler := handlers.UpdateStatusHandler(testLogger(), &fakeStatusService{
		order: &models.Order{
			ID:             42,
			Status:         models.OrderStatusShipped,
			TrackingNumber: &tracking,
			ShippedAt:      &shippedAt,
		},
	})

	req := patchStatusRequest(t, `{"status": "shipped", "tracking_number": "TRACK-123"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 1, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.UpdateStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "shipped", resp.Status)
	require.NotNil(t, resp.TrackingNumber)
	assert.Equal(t, "TRACK-123", *resp.TrackingNumber)
}

func TestUpdateStatusHandler_NotAdmin(t *testing.T) {
	handler := handlers.UpdateStatusHandler(testLogger(), &fakeStatusService{})

	req := patchStatusRequest(t, `{"status": "shipped"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatusHandler_InvalidStatus(t *testing.T) {
	handler := handlers.UpdateStatusHandler(testLogger(), &fakeStatusService{err: service.ErrInvalidStatus})

	req := patchStatusRequest(t, `{"status": "teleported"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 1, true))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func getOrderRequest(t *testing.T, path, id string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetOrderHandler_Success(t *testing.T) {
	handler := handlers.GetOrderHandler(testLogger(), &fakeOrderQueryService{
		order: &service.OrderWithItems{
			Order: pendingOrder(),
			Items: []*service.OrderItemView{
				{
					ID:              1,
					ProductID:       10,
					Quantity:        2,
					PriceAtPurchase: decimal.RequireFromString("8.00"),
					Product:         service.ProductSnapshot{Name: "Widget"},
					ItemTotal:       decimal.RequireFromString("16.00"),
				},
			},
		},
	})

	req := getOrderRequest(t, "/api/orders/42", "42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ORD-2025-0001", resp["order_number"])
	items, ok := resp["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	handler := handlers.GetOrderHandler(testLogger(), &fakeOrderQueryService{err: service.ErrOrderNotFound})

	req := getOrderRequest(t, "/api/orders/99", "99")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackOrderHandler_UnreachedStagesAreNull(t *testing.T) {
	ordered := time.Now()
	paid := ordered.Add(time.Hour)
	handler := handlers.TrackOrderHandler(testLogger(), &fakeOrderQueryService{
		tracking: &service.TrackingInfo{
			OrderID: 42,
			Status:  "paid",
			Timeline: service.Timeline{
				Ordered: &ordered,
				Paid:    &paid,
			},
		},
	})

	req := getOrderRequest(t, "/api/orders/42/tracking", "42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	timeline, ok := resp["timeline"].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, timeline["ordered"])
	assert.NotNil(t, timeline["paid"])
	assert.Nil(t, timeline["shipped"])
	assert.Nil(t, timeline["delivered"])
}

func TestListOrdersHandler_EmptyListIsNotNull(t *testing.T) {
	handler := handlers.ListOrdersHandler(testLogger(), &fakeOrderQueryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders": []}`, rec.Body.String())
}

func TestAddToCartHandler_Success(t *testing.T) {
	handler := handlers.AddToCartHandler(testLogger(), &fakeCartService{})

	req := httptest.NewRequest(http.MethodPost, "/api/cart",
		strings.NewReader(`{"product_id": 10, "quantity": 2}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAddToCartHandler_InsufficientStock(t *testing.T) {
	handler := handlers.AddToCartHandler(testLogger(), &fakeCartService{
		err: &service.InsufficientStockError{ProductName: "Widget", Available: 1},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cart",
		strings.NewReader(`{"product_id": 10, "quantity": 5}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddToCartHandler_InvalidQuantity(t *testing.T) {
	handler := handlers.AddToCartHandler(testLogger(), &fakeCartService{})

	req := httptest.NewRequest(http.MethodPost, "/api/cart",
		strings.NewReader(`{"product_id": 10, "quantity": 0}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCartHandler_Success(t *testing.T) {
	handler := handlers.GetCartHandler(testLogger(), &fakeCartService{
		view: &service.CartView{
			Items: []*models.CartLine{},
			Total: decimal.Zero,
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, 7, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp["items"])
}
