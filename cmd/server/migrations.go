package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/recipe-forge/internal/config"
	"github.com/phrazzld/recipe-forge/internal/platform/postgres"
)

// errNoDatabase is returned by --migrate when no ledger database is configured.
var errNoDatabase = errors.New("database url is not set")

// runMigrations applies every pending ledger migration.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Database.URL == "" {
		logger.Error("cannot migrate without a database", "error", errNoDatabase)
		return errNoDatabase
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
