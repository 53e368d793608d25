package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/db"
	"github.com/angelmondragon/paybridge/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when the app runs in dev mode,
// the store is reached over SQL and auto-migration is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.DB.AutoMigrate || cfg.Store.Driver != config.StoreDriverPostgres {
		return nil
	}
	if client == nil {
		return fmt.Errorf("database client required for auto-migrate")
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
