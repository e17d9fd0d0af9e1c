package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recipe-forge/internal/batch"
	"github.com/phrazzld/recipe-forge/internal/catalog"
	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/events"
	"github.com/phrazzld/recipe-forge/internal/fallback"
	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/job"
	"github.com/phrazzld/recipe-forge/internal/output"
	"github.com/phrazzld/recipe-forge/internal/platform/logger"
	"github.com/phrazzld/recipe-forge/internal/task"
	"github.com/spf13/afero"
)

// Config holds the settings of one run.
type Config struct {
	// RunID labels the run in logs, batch metadata and the ledger. Empty
	// generates one.
	RunID string

	// Input is the CSV or title list recipes are generated from
	Input string

	// SourceDir holds the artifacts derived kinds read; empty takes the
	// kind's default
	SourceDir string

	// OutputDir receives the artifacts; empty takes the kind's default
	OutputDir string

	Overwrite bool

	// Limit caps the number of input records; 0 means no limit
	Limit int

	// Batch routes chat jobs through the batch strategy when a batch
	// provider is available
	Batch bool

	// BatchModel is the model batch jobs are created for
	BatchModel   string
	PollInterval time.Duration
	Timeout      time.Duration

	Pool     task.WorkerPoolConfig
	Fallback fallback.Config

	// MaxFailures bounds the failure details kept in the report
	MaxFailures int
}

// Clients are the provider clients a run dispatches through. Generator
// serves chat jobs synchronously; Batch may be nil.
type Clients struct {
	Generator generation.Generator
	Batch     batch.Provider
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Kind      job.Kind
	OutputDir string

	// Report is the writer's accounting of every item of the run
	Report output.Report

	// Strategy is "batch" or "pool"
	Strategy string

	Batch    *batch.Result
	Fallback *fallback.Result
	Pool     *task.PoolResult
}

// Runner executes runs of one job.
type Runner struct {
	fs       afero.Fs
	job      job.Job
	clients  Clients
	emitter  events.EventEmitter
	recorder batch.JobRecorder
	config   Config
	logger   *slog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithEmitter publishes every item outcome to emitter.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(r *Runner) { r.emitter = emitter }
}

// WithJobRecorder records the batch jobs the run submits.
func WithJobRecorder(recorder batch.JobRecorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

// NewRunner creates a runner for j. A nil logger falls back to slog.Default.
func NewRunner(fs afero.Fs, j job.Job, clients Clients, config Config, log *slog.Logger, opts ...Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	source, out := DefaultDirs(j.Kind())
	if config.SourceDir == "" {
		config.SourceDir = source
	}
	if config.OutputDir == "" {
		config.OutputDir = out
	}
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}

	r := &Runner{
		fs:      fs,
		job:     j,
		clients: clients,
		config:  config,
		logger:  log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the id of the runner's run.
func (r *Runner) RunID() string {
	return r.config.RunID
}

// Run processes every input record. Per-item failures are reported in the
// summary, not returned. The error is non-nil when the input cannot be read,
// an identity collision is detected, or the run was interrupted, in which
// case it wraps ErrInterrupted and the summary still accounts for every item.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx = logger.WithRunID(logger.WithLogger(ctx, r.logger), r.config.RunID)
	base := logger.FromContext(ctx)
	log := base.With("component", "pipeline", "kind", string(r.job.Kind()))

	summary := Summary{RunID: r.config.RunID, Kind: r.job.Kind(), OutputDir: r.config.OutputDir}

	writer := r.newWriter(base)
	records, err := r.readRecords()
	if err != nil {
		return summary, err
	}
	if r.config.Limit > 0 && len(records) > r.config.Limit {
		records = records[:r.config.Limit]
	}

	if n, err := output.RemoveStale(r.fs, r.config.OutputDir); err != nil {
		log.WarnContext(ctx, "could not remove stale temporary files", "error", err)
	} else if n > 0 {
		log.InfoContext(ctx, "removed stale temporary files", "count", n)
	}

	cat := catalog.New(r.fs, catalog.Config{
		OutputDir: r.config.OutputDir,
		Extension: r.job.Extension(),
		Overwrite: r.config.Overwrite,
	}, base)
	built, err := cat.Build(ctx, records)
	if err != nil {
		if ctx.Err() != nil {
			return r.finish(ctx, log, summary, writer, nil, err)
		}
		return summary, err
	}

	for _, identity := range built.Skipped {
		writer.Skip(ctx, identity)
	}
	for _, rej := range built.Rejected {
		identity := rej.Identity
		if identity == "" {
			identity = fmt.Sprintf("record %d", rej.Index+1)
		}
		writer.Fail(ctx, identity, rej.Err)
	}

	items, rejections := job.Prepare(r.job, built.Items)
	for _, rej := range rejections {
		writer.FailItem(ctx, rej.Item, rej.Err)
	}

	log.InfoContext(ctx, "run started",
		"records", built.Total,
		"pending", len(items),
		"skipped", len(built.Skipped),
		"rejected", len(built.Rejected)+len(rejections),
		"output_dir", r.config.OutputDir)

	if len(items) > 0 {
		err = r.dispatch(ctx, base, &summary, writer, items)
	}
	return r.finish(ctx, log, summary, writer, items, err)
}

// dispatch routes the pending items through the strategy of the job.
func (r *Runner) dispatch(
	ctx context.Context,
	log *slog.Logger,
	summary *Summary,
	writer *output.Writer,
	items []*domain.WorkItem,
) error {
	switch j := r.job.(type) {
	case job.ChatJob:
		if r.clients.Generator == nil {
			return fmt.Errorf("%w: generator for %s", ErrMissingDependency, j.Kind())
		}
		if r.config.Batch && r.clients.Batch != nil {
			return r.dispatchBatch(ctx, log, summary, writer, j, items)
		}
		return r.dispatchPool(ctx, log, summary, writer, items, job.NewChatProcessor(j, r.clients.Generator))
	case job.ArtifactJob:
		return r.dispatchPool(ctx, log, summary, writer, items, j)
	default:
		return fmt.Errorf("%w: %s has no processor", job.ErrUnknownKind, r.job.Kind())
	}
}

func (r *Runner) dispatchBatch(
	ctx context.Context,
	log *slog.Logger,
	summary *Summary,
	writer *output.Writer,
	chatJob job.ChatJob,
	items []*domain.WorkItem,
) error {
	summary.Strategy = "batch"

	var opts []batch.Option
	if r.recorder != nil {
		opts = append(opts, batch.WithRecorder(r.recorder))
	}
	dispatcher, err := batch.NewDispatcher(r.clients.Batch, chatJob, writer, batch.Config{
		RunID:        r.config.RunID,
		Kind:         string(chatJob.Kind()),
		Model:        r.config.BatchModel,
		PollInterval: r.config.PollInterval,
		Timeout:      r.config.Timeout,
	}, log, opts...)
	if err != nil {
		return err
	}

	result, err := dispatcher.Dispatch(ctx, items)
	summary.Batch = &result
	if err != nil {
		return err
	}
	if len(result.Unresolved) == 0 {
		return nil
	}

	executor := fallback.NewExecutor(r.clients.Generator, chatJob, writer, r.config.Fallback, log)
	fb, err := executor.Execute(ctx, result.Unresolved)
	summary.Fallback = &fb
	return err
}

func (r *Runner) dispatchPool(
	ctx context.Context,
	log *slog.Logger,
	summary *Summary,
	writer *output.Writer,
	items []*domain.WorkItem,
	processor task.Processor,
) error {
	summary.Strategy = "pool"
	pool := task.NewWorkerPool(writer, r.config.Pool, log)
	result, err := pool.Dispatch(ctx, items, processor)
	summary.Pool = &result
	return err
}

// finish fails the items a dispatch error left unfinished and fills in the
// report. A cancelled context turns the error into ErrInterrupted.
func (r *Runner) finish(
	ctx context.Context,
	log *slog.Logger,
	summary Summary,
	writer *output.Writer,
	items []*domain.WorkItem,
	err error,
) (Summary, error) {
	// Accounting must reach the ledger even when the run context is done
	accountCtx := context.WithoutCancel(ctx)

	if err != nil {
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ErrInterrupted
			err = fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
		}
		unfinished := 0
		for _, item := range items {
			if !item.Status().IsTerminal() {
				writer.FailItem(accountCtx, item, cause)
				unfinished++
			}
		}
		log.WarnContext(accountCtx, "run stopped early",
			"unfinished_items", unfinished,
			"error", err)
	}

	summary.Report = writer.Report()
	log.InfoContext(accountCtx, "run finished",
		"succeeded", summary.Report.Succeeded,
		"skipped", summary.Report.Skipped,
		"failed", summary.Report.Failed)
	return summary, err
}

func (r *Runner) newWriter(log *slog.Logger) *output.Writer {
	opts := []output.Option{
		output.WithOverwrite(r.config.Overwrite),
		output.WithLogger(log),
	}
	if r.config.MaxFailures > 0 {
		opts = append(opts, output.WithMaxFailures(r.config.MaxFailures))
	}
	if chatJob, ok := r.job.(job.ChatJob); ok {
		opts = append(opts, output.WithEncoder(chatJob))
	}
	if r.emitter != nil {
		opts = append(opts, output.WithEmitter(r.emitter, r.config.RunID, string(r.job.Kind())))
	}
	return output.NewWriter(r.fs, opts...)
}

// readRecords reads the input of the run: the input file for recipes, the
// generated artifacts of the source directory for derived kinds.
func (r *Runner) readRecords() ([]catalog.Record, error) {
	if r.job.Kind() != job.KindRecipe {
		return catalog.JSONDirSource(r.fs, r.config.SourceDir)
	}
	if strings.EqualFold(filepath.Ext(r.config.Input), ".csv") {
		return catalog.CSVSource(r.fs, r.config.Input)
	}
	return catalog.TitleListSource(r.fs, r.config.Input)
}
