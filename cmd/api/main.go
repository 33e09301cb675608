package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"

	"github.com/techcsc21/paybridge/internal/adapter/handler"
	"github.com/techcsc21/paybridge/internal/adapter/middleware"
	"github.com/techcsc21/paybridge/internal/adapter/storage"
	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/gateway"
	"github.com/techcsc21/paybridge/internal/core/payment"
	"github.com/techcsc21/paybridge/internal/core/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	// Closed explicitly on shutdown, not deferred.

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Idempotency caching fails open, so a missing redis is not fatal.
		slog.Warn("Redis unreachable, idempotency caching disabled", "error", err)
	}

	transactionRepo := storage.NewTransactionRepository(dbPool)
	accountRepo := storage.NewAccountRepository(dbPool)
	walletRepo := storage.NewWalletRepository(dbPool)

	client := gateway.NewClient(cfg)
	reconciler := payment.NewReconciler(transactionRepo, cfg)

	accountHandler := &handler.AccountHandler{Accounts: accountRepo, Wallets: walletRepo}
	paymentHandler := &handler.PaymentHandler{
		Intents:    payment.NewIntentBuilder(transactionRepo, cfg),
		Reconciler: reconciler,
		Store:      transactionRepo,
		Client:     client,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")

	// Public: onboarding and the gateway's callback endpoints. The callbacks
	// authenticate themselves with the response signature, not an API key.
	api.Post("/accounts", accountHandler.CreateAccount)
	api.Post("/accounts/:id/keys", accountHandler.GenerateKey)
	api.Post("/payments/verify", paymentHandler.Verify)
	api.Post("/payments/webhook", paymentHandler.Webhook)

	// Protected: everything acting on behalf of an account.
	private := api.Use(middleware.Protected(dbPool))
	private.Post("/payments", middleware.Idempotency(rdb), paymentHandler.Initiate)
	private.Get("/payments/status", paymentHandler.Status)
	private.Get("/payments", paymentHandler.History)
	private.Get("/wallets", accountHandler.ListWallets)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	worker.StartRequeryWorker(workerCtx, cfg, transactionRepo, client, reconciler)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server...")

	cancelWorker()

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	if err := rdb.Close(); err != nil {
		slog.Error("Redis close failed", "error", err)
	}

	slog.Info("Server exited")
}
