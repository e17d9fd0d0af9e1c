package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recipe-forge/internal/batch"
	"github.com/phrazzld/recipe-forge/internal/config"
	"github.com/phrazzld/recipe-forge/internal/events"
	"github.com/phrazzld/recipe-forge/internal/fallback"
	"github.com/phrazzld/recipe-forge/internal/job"
	"github.com/phrazzld/recipe-forge/internal/output"
	"github.com/phrazzld/recipe-forge/internal/pipeline"
	"github.com/phrazzld/recipe-forge/internal/platform/gemini"
	"github.com/phrazzld/recipe-forge/internal/platform/mistral"
	"github.com/phrazzld/recipe-forge/internal/platform/postgres"
	"github.com/phrazzld/recipe-forge/internal/task"
	"github.com/spf13/afero"
)

// application holds the shared dependencies of a forge command and releases
// them on cleanup.
type application struct {
	config *config.Config
	fs     afero.Fs
	logger *slog.Logger

	// db is nil when the run ledger is disabled
	db       *sql.DB
	emitter  events.EventEmitter
	recorder batch.JobRecorder

	prompts *job.Prompts
}

// newApplication loads the prompt templates and opens the run ledger when a
// database URL is configured. Provider clients are created per run, only for
// the kind being run.
func newApplication(ctx context.Context, cfg *config.Config, fs afero.Fs, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		fs:     fs,
		logger: logger,
	}

	if cfg.Paths.TemplateDir != "" {
		prompts, err := job.LoadPrompts(fs, cfg.Paths.TemplateDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt templates: %w", err)
		}
		app.prompts = prompts
		logger.Info("prompt templates loaded", "dir", cfg.Paths.TemplateDir)
	}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db

		emitter := events.NewInMemoryEventEmitter(logger)
		emitter.RegisterHandler(postgres.NewOutcomeStore(db, logger))
		app.emitter = emitter
		app.recorder = postgres.NewJobStore(db, logger)
		logger.Info("run ledger enabled")
	}

	return app, nil
}

// newRunner builds the job of kind with the clients it needs and wraps it in
// a runner.
func (app *application) newRunner(ctx context.Context, kind job.Kind, runID string) (*pipeline.Runner, error) {
	cfg := app.config

	deps := pipeline.JobDeps{
		Prompts:     app.prompts,
		Languages:   cfg.Translation.Languages,
		ImageFormat: cfg.Images.Format,
	}
	var clients pipeline.Clients

	switch kind {
	case job.KindRecipe, job.KindTranslate:
		chat, err := app.chatClients(ctx)
		if err != nil {
			return nil, err
		}
		clients = chat
		deps.ChatModel = app.chatModel()
	case job.KindImages, job.KindEmbed:
		client, err := app.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		deps.Images = client
		deps.Embedder = client
		deps.EmbeddingModel = client.EmbeddingModel()
	}

	j, err := pipeline.BuildJob(kind, deps)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if app.emitter != nil {
		opts = append(opts, pipeline.WithEmitter(app.emitter))
	}
	if app.recorder != nil {
		opts = append(opts, pipeline.WithJobRecorder(app.recorder))
	}

	runner := pipeline.NewRunner(app.fs, j, clients, app.runConfig(runID), app.logger, opts...)
	app.logger.Info("run configured",
		"run_id", runner.RunID(),
		"kind", string(kind),
		"provider", cfg.LLM.Provider,
		"batch", cfg.Dispatch.Batch && clients.Batch != nil)
	return runner, nil
}

func (app *application) runConfig(runID string) pipeline.Config {
	cfg := app.config
	return pipeline.Config{
		RunID:        runID,
		Input:        cfg.Paths.Input,
		SourceDir:    cfg.Paths.SourceDir,
		OutputDir:    cfg.Paths.OutputDir,
		Overwrite:    cfg.Dispatch.Overwrite,
		Limit:        cfg.Dispatch.Limit,
		Batch:        cfg.Dispatch.Batch,
		BatchModel:   cfg.LLM.MistralModel,
		PollInterval: cfg.Dispatch.PollInterval(),
		Timeout:      cfg.Dispatch.Timeout(),
		Pool: task.WorkerPoolConfig{
			WorkerCount: cfg.Dispatch.Concurrency,
			Retries:     cfg.Dispatch.Retries,
			RetryDelay:  cfg.Dispatch.RetryDelay,
		},
		Fallback: fallback.Config{
			Interval:        cfg.Dispatch.FallbackInterval,
			EmptyRetryDelay: fallback.DefaultEmptyRetryDelay,
		},
	}
}

// chatClients creates the synchronous generator of the configured provider.
// Only Mistral serves batch jobs.
func (app *application) chatClients(ctx context.Context) (pipeline.Clients, error) {
	cfg := app.config
	switch cfg.LLM.Provider {
	case "gemini":
		client, err := app.geminiClient(ctx)
		if err != nil {
			return pipeline.Clients{}, err
		}
		if cfg.Dispatch.Batch {
			app.logger.Warn("batch dispatch needs the mistral provider, using the worker pool",
				"provider", cfg.LLM.Provider)
		}
		return pipeline.Clients{Generator: client}, nil
	default:
		client, err := mistral.NewClient(mistral.Config{
			APIKey:     cfg.LLM.MistralAPIKey,
			BaseURL:    cfg.LLM.MistralBaseURL,
			Model:      cfg.LLM.MistralModel,
			MaxRetries: app.providerRetries(cfg.Dispatch.Batch),
			Timeout:    cfg.LLM.RequestTimeout,
		}, app.logger)
		if err != nil {
			return pipeline.Clients{}, fmt.Errorf("failed to initialize Mistral client: %w", err)
		}
		clients := pipeline.Clients{Generator: client}
		if cfg.Dispatch.Batch {
			clients.Batch = client
		}
		return clients, nil
	}
}

// providerRetries is the retry budget of a synchronous client. The worker
// pool makes dispatch.retries+1 attempts per item itself, so a client it
// calls makes exactly one request per attempt. Only the batch fallback keeps
// the provider retries.
func (app *application) providerRetries(batchDispatch bool) int {
	if !batchDispatch {
		return 0
	}
	return app.config.LLM.MaxRetries
}

func (app *application) chatModel() string {
	if app.config.LLM.Provider == "gemini" {
		return app.config.LLM.GeminiModel
	}
	return app.config.LLM.MistralModel
}

// geminiClient creates a Gemini client. Gemini jobs always run in the
// worker pool, so the client itself does not retry.
func (app *application) geminiClient(ctx context.Context) (*gemini.Client, error) {
	cfg := app.config
	format, err := job.NormalizeImageFormat(cfg.Images.Format)
	if err != nil {
		return nil, err
	}
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:         cfg.LLM.GeminiAPIKey,
		Model:          cfg.LLM.GeminiModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		ImageModel:     cfg.LLM.ImageModel,
		ImageMIMEType:  job.ImageMIMEType(format),
		MaxRetries:     0,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return client, nil
}

func (app *application) exportReport(path string, summary pipeline.Summary) error {
	return output.ExportXLSX(app.fs, path, summary.RunID, string(summary.Kind), summary.Report)
}

// cleanup releases the database connection.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
