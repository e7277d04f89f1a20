package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shopsphere/internal/domain/models"
	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/service"
)

type ProductsListResponse struct {
	Products []*models.Product `json:"products"`
	Count    int               `json:"count"`
}

// ListProductsHandler обрабатывает запрос GET /api/products.
// Поддерживаются параметры search и limit.
func ListProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		search := r.URL.Query().Get("search")
		limit := 0
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		products, err := catalogService.ListProducts(r.Context(), search, limit)
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, ProductsListResponse{Products: products, Count: len(products)})
	}
}

// GetProductHandler обрабатывает запрос GET /api/products/{id}.
func GetProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, err := catalogService.GetProduct(r.Context(), productID)
		if err != nil {
			logger.Error("failed to get product", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, product)
	}
}

// TransactionsListResponse — список платёжных попыток пользователя.
type TransactionsListResponse struct {
	Transactions []*models.Transaction `json:"transactions"`
}

// ListTransactionsHandler обрабатывает запрос GET /api/transactions.
func ListTransactionsHandler(log *slog.Logger, txService service.TransactionQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListTransactionsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		transactions, err := txService.ListTransactions(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list transactions", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, TransactionsListResponse{Transactions: transactions})
	}
}

// GetTransactionHandler обрабатывает запрос GET /api/transactions/{transactionID}.
// Идентификатор — отображаемый, вида TXN-XXXXXXXXXXXX.
func GetTransactionHandler(log *slog.Logger, txService service.TransactionQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetTransactionHandler"
		logger := log.With(slog.String("op", op))

		displayID := chi.URLParam(r, "transactionID")
		if displayID == "" {
			http.Error(w, "transaction id is required", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		transaction, err := txService.GetTransaction(r.Context(), userID, displayID)
		if err != nil {
			logger.Error("failed to get transaction", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, transaction)
	}
}
