package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/shopcore-io/shopcore-backend/api/routes"
	"github.com/shopcore-io/shopcore-backend/internal/catalog"
	"github.com/shopcore-io/shopcore-backend/internal/inventory"
	"github.com/shopcore-io/shopcore-backend/internal/orders"
	"github.com/shopcore-io/shopcore-backend/internal/payments"
	"github.com/shopcore-io/shopcore-backend/internal/pricing"
	"github.com/shopcore-io/shopcore-backend/internal/refunds"
	"github.com/shopcore-io/shopcore-backend/internal/shipping"
	"github.com/shopcore-io/shopcore-backend/internal/tax"
	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
	"github.com/shopcore-io/shopcore-backend/pkg/migrate"
	"github.com/shopcore-io/shopcore-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	inventoryLedger, err := inventory.NewService(inventory.ServiceParams{
		Repo:           inventory.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Logger:         logg,
		ReservationTTL: cfg.Checkout.ReservationTTL,
		MaxRetries:     cfg.Checkout.ReserveMaxRetries,
		Backoff:        cfg.Checkout.ReserveBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	taxService, err := tax.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create tax service", err)
		os.Exit(1)
	}
	shippingService, err := shipping.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Tx:        dbClient,
		Pricing:   pricingService,
		Inventory: inventoryLedger,
		Catalog:   catalogService,
		Tax:       taxService,
		Shipping:  shippingService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentRepo := payments.NewRepository(dbClient.DB())
	paymentService, err := payments.NewService(paymentRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	webhookGuard, err := payments.NewGuard(payments.GuardParams{
		Repo:   paymentRepo,
		Tx:     dbClient,
		Redis:  redisClient,
		Logger: logg,
		TTL:    cfg.Webhook.IdempotencyTTL,
	}, paymentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(refunds.ServiceParams{
		Repo:      refunds.NewRepository(dbClient.DB()),
		OrderRepo: orderRepo,
		Payments:  paymentService,
		Tx:        dbClient,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pricingService,
			inventoryLedger,
			orderService,
			paymentService,
			webhookGuard,
			refundService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
