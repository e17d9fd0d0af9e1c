package fallback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/job"
	"github.com/phrazzld/recipe-forge/internal/redact"
	"golang.org/x/time/rate"
)

const (
	// DefaultInterval is the pause enforced between two calls
	DefaultInterval = 100 * time.Millisecond

	// DefaultEmptyRetryDelay is the wait before re-asking after a blank answer
	DefaultEmptyRetryDelay = 500 * time.Millisecond
)

// Writer persists completed items and records failed ones.
type Writer interface {
	Commit(ctx context.Context, item *domain.WorkItem) error
	FailItem(ctx context.Context, item *domain.WorkItem, err error)
}

// Config holds the fallback settings.
type Config struct {
	Interval        time.Duration
	EmptyRetryDelay time.Duration
}

// Result aggregates an Execute call.
type Result struct {
	Attempted int
	Committed int
	Failed    int
	Calls     int
}

// Executor runs the synchronous fallback.
type Executor struct {
	generator  generation.Generator
	job        job.ChatJob
	writer     Writer
	limiter    *rate.Limiter
	emptyDelay time.Duration
	logger     *slog.Logger
}

// NewExecutor creates a fallback executor.
func NewExecutor(
	generator generation.Generator,
	chatJob job.ChatJob,
	writer Writer,
	config Config,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.EmptyRetryDelay < 0 {
		config.EmptyRetryDelay = 0
	}
	return &Executor{
		generator:  generator,
		job:        chatJob,
		writer:     writer,
		limiter:    rate.NewLimiter(rate.Every(config.Interval), 1),
		emptyDelay: config.EmptyRetryDelay,
		logger:     logger.With("component", "fallback"),
	}
}

// Execute resolves the missing fields of every unresolved item in order. An
// item whose fields all resolve is committed; the first field that fails
// fails the whole item. Items already in a terminal state are ignored.
//
// The returned error is non-nil only when the context was cancelled; items
// not reached are left untouched.
func (e *Executor) Execute(ctx context.Context, unresolved []*domain.WorkItem) (Result, error) {
	var result Result
	total := len(unresolved)

	for i, item := range unresolved {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if item.Status().IsTerminal() {
			continue
		}
		result.Attempted++

		logger := e.logger.With("identity", item.Identity)
		logger.InfoContext(ctx, "resolving item synchronously",
			"progress", item.Progress(total),
			"position", i+1,
			"fields", len(item.MissingFields()))

		failed := false
		for _, field := range item.MissingFields() {
			text, calls, err := e.resolve(ctx, item, field)
			result.Calls += calls
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, ctxErr
				}
				logger.WarnContext(ctx, "fallback failed",
					"field", field,
					"error", redact.Error(err))
				e.writer.FailItem(ctx, item, err)
				result.Failed++
				failed = true
				break
			}
			if err := item.SetField(field, text); err != nil {
				e.writer.FailItem(ctx, item, err)
				result.Failed++
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		if err := e.writer.Commit(ctx, item); err != nil {
			if !item.Status().IsTerminal() {
				e.writer.FailItem(ctx, item, err)
			}
			result.Failed++
			continue
		}
		result.Committed++
	}
	return result, nil
}

// resolve issues the call for one field, retrying once on a blank answer.
func (e *Executor) resolve(ctx context.Context, item *domain.WorkItem, field domain.FieldKey) (string, int, error) {
	calls := 0
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", calls, err
		}
		calls++
		text, err := job.Complete(ctx, e.generator, e.job, item, field)
		if err == nil {
			return text, calls, nil
		}
		if !errors.Is(err, generation.ErrEmptyResponse) || calls > 1 {
			return "", calls, err
		}

		e.logger.DebugContext(ctx, "blank answer, asking again",
			"identity", item.Identity,
			"field", field)
		if err := sleep(ctx, e.emptyDelay); err != nil {
			return "", calls, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
