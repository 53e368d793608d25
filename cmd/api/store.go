package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/paybridge/internal/transactions"
	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/db"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/migrate"
)

// openStore builds the transaction store for the configured driver. The
// returned close func releases whatever the driver holds open.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (transactions.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.StoreDriverPostgREST:
		store, err := transactions.NewPostgRESTStore(cfg.Store, nil)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.StoreDriverPostgres:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			_ = dbClient.Close()
			return nil, noop, fmt.Errorf("run dev migrations: %w", err)
		}
		store, err := transactions.NewSQLStore(dbClient)
		if err != nil {
			_ = dbClient.Close()
			return nil, noop, err
		}
		return store, dbClient.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
