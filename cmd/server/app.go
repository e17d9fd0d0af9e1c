package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/recipe-forge/internal/config"
	"github.com/phrazzld/recipe-forge/internal/pipeline"
	"github.com/phrazzld/recipe-forge/internal/platform/postgres"
	"github.com/phrazzld/recipe-forge/internal/store"
	"github.com/spf13/afero"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// fs is the filesystem artifacts and images are read from
	fs afero.Fs

	// db and the readers are nil when the run ledger is disabled
	db       *sql.DB
	outcomes store.OutcomeReader
	jobs     store.JobReader
}

// newApplication opens the run ledger when a database URL is configured.
// The server only reads the ledger; forge runs apply its migrations.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		fs:     afero.NewReadOnlyFs(afero.NewOsFs()),
	}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.outcomes = postgres.NewOutcomeStore(db, logger)
		app.jobs = postgres.NewJobStore(db, logger)
	}

	return app, nil
}

// itemDir is the directory served under /api/items.
func (app *application) itemDir() string {
	if app.config.Paths.OutputDir != "" {
		return app.config.Paths.OutputDir
	}
	return pipeline.DefaultRecipeDir
}

// imageDir is the directory served under /images.
func (app *application) imageDir() string {
	if app.config.Paths.ImageDir != "" {
		return app.config.Paths.ImageDir
	}
	return pipeline.DefaultImageDir
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
