package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/shopsphere/internal/app"
	"github.com/linemk/shopsphere/internal/app/handlers"
	"github.com/linemk/shopsphere/internal/config"
	"github.com/linemk/shopsphere/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shopsphere/internal/lib/logger"
	"github.com/linemk/shopsphere/internal/lib/logger/handlers/urllog"
	"github.com/linemk/shopsphere/internal/service"
	"github.com/linemk/shopsphere/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	txRepo := storage.NewTransactionRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(application.Logger, productRepo)
	cartService := service.NewCartService(application.Logger, cartRepo, productRepo)
	paymentService := service.NewPaymentService(application.Logger, application.DB, orderRepo, txRepo, application.Config.Payment.SuccessRate, nil)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, cartRepo, productRepo, orderRepo, paymentService)
	statusService := service.NewStatusService(application.Logger, orderRepo)
	orderQueryService := service.NewOrderQueryService(application.Logger, orderRepo)
	txQueryService := service.NewTransactionQueryService(application.Logger, txRepo)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)

		// каталог
		r.Get("/api/products", handlers.ListProductsHandler(application.Logger, catalogService))
		r.Get("/api/products/{id}", handlers.GetProductHandler(application.Logger, catalogService))

		// корзина
		r.Post("/api/cart", handlers.AddToCartHandler(application.Logger, cartService))
		r.Get("/api/cart", handlers.GetCartHandler(application.Logger, cartService))
		r.Put("/api/cart/{id}", handlers.UpdateCartItemHandler(application.Logger, cartService))
		r.Delete("/api/cart/{id}", handlers.RemoveFromCartHandler(application.Logger, cartService))

		// оформление заказа и оплата
		r.Post("/api/checkout", handlers.CheckoutHandler(application.Logger, checkoutService))
		r.Post("/api/payment", handlers.ProcessPaymentHandler(application.Logger, paymentService))

		// заказы и платёжные попытки
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderQueryService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(application.Logger, orderQueryService))
		r.Get("/api/orders/{id}/tracking", handlers.TrackOrderHandler(application.Logger, orderQueryService))
		r.Get("/api/transactions", handlers.ListTransactionsHandler(application.Logger, txQueryService))
		r.Get("/api/transactions/{transactionID}", handlers.GetTransactionHandler(application.Logger, txQueryService))

		// админское управление статусом заказа
		r.Group(func(ar chi.Router) {
			ar.Use(jwtmiddleware.RequireAdmin)
			ar.Patch("/api/admin/orders/{id}/status", handlers.UpdateStatusHandler(application.Logger, statusService))
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
