package migrate

import (
	"context"
	"fmt"

	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

// MaybeRunDev applies the schema automatically in development setups. SQLite
// runs always use gorm AutoMigrate (goose migrations are written for
// Postgres); Postgres runs go through goose.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || client == nil {
		return fmt.Errorf("config and db client are required")
	}
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		if logg != nil {
			logg.Info(ctx, "auto-migrating sqlite schema")
		}
		return client.DB().WithContext(ctx).AutoMigrate(AllModels()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql db handle: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "running goose migrations")
	}
	return Up(ctx, sqlDB, DefaultDir)
}

// AllModels lists every persisted model, in dependency order.
func AllModels() []any {
	return []any{
		&models.Product{},
		&models.PricePeriod{},
		&models.InventoryRecord{},
		&models.StockMovement{},
		&models.StockReservation{},
		&models.StockReservationLine{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Refund{},
		&models.WebhookEvent{},
		&models.ShippingMethod{},
		&models.TaxRate{},
	}
}
