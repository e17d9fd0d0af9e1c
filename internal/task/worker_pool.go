package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/redact"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount is the maximum number of concurrent workers. If zero or
	// negative, defaults to 1
	WorkerCount int

	// Retries is the number of extra attempts after a failed call; an item is
	// tried at most Retries+1 times
	Retries int

	// RetryDelay is the pause between attempts of one item
	RetryDelay time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
		Retries:     2,
		RetryDelay:  2 * time.Second,
	}
}

// WorkerPool runs items through a processor with bounded parallelism.
type WorkerPool struct {
	config WorkerPoolConfig
	writer Writer
	logger *slog.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(writer Writer, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}

	return &WorkerPool{
		config: config,
		writer: writer,
		logger: logger.With("component", "worker_pool"),
	}
}

// Dispatch runs every pending item through the processor and returns once
// all workers have finished. Items whose artifact exists by the time a worker
// picks them up are skipped without a call.
//
// The returned error is non-nil only when the context was cancelled. Items
// not yet picked up at that point are left pending.
func (p *WorkerPool) Dispatch(ctx context.Context, items []*domain.WorkItem, processor Processor) (PoolResult, error) {
	var result PoolResult

	queue := NewTaskQueue(len(items), p.logger)
	for _, item := range items {
		if item.Status() != domain.StatusPending {
			continue
		}
		if err := queue.Enqueue(item); err != nil {
			queue.Close()
			return result, err
		}
	}
	queue.Close()

	pending := queue.Len()
	if pending == 0 {
		return result, ctx.Err()
	}

	workers := min(p.config.WorkerCount, pending)
	p.logger.InfoContext(ctx, "starting workers",
		"workers", workers,
		"items", pending,
		"retries", p.config.Retries)

	results := make(chan ItemResult, pending)
	var wg conc.WaitGroup
	for i := 0; i < workers; i++ {
		id := i
		wg.Go(func() {
			p.worker(ctx, id, queue.GetChannel(), processor, results)
		})
	}
	wg.Wait()
	close(results)

	for ir := range results {
		result.add(ir)
	}

	p.logger.InfoContext(ctx, "workers finished",
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"interrupted", result.Interrupted,
		"calls", result.Calls)

	return result, ctx.Err()
}

// worker drains the queue until it is empty or the context is cancelled.
func (p *WorkerPool) worker(
	ctx context.Context,
	id int,
	queue <-chan *domain.WorkItem,
	processor Processor,
	results chan<- ItemResult,
) {
	p.logger.DebugContext(ctx, "starting worker", "worker_id", id)
	for item := range queue {
		if ctx.Err() != nil {
			p.logger.DebugContext(ctx, "stopping worker", "worker_id", id)
			return
		}
		results <- p.handle(ctx, id, item, processor)
	}
}

func (p *WorkerPool) handle(ctx context.Context, workerID int, item *domain.WorkItem, processor Processor) ItemResult {
	ir := ItemResult{Identity: item.Identity}
	logger := p.logger.With("identity", item.Identity, "worker_id", workerID)

	exists, err := p.writer.Exists(item.OutputPath)
	if err != nil {
		ir.Outcome, ir.Err = OutcomeFailed, err
		p.writer.FailItem(ctx, item, err)
		return ir
	}
	if exists {
		ir.Outcome = OutcomeSkipped
		logger.DebugContext(ctx, "artifact exists, skipping")
		p.writer.Skip(ctx, item.Identity)
		return ir
	}

	var data []byte
	err = retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		ir.Attempts++
		out, err := p.attempt(ctx, processor, item)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.WarnContext(ctx, "attempt failed",
				"attempt", ir.Attempts,
				"max_attempts", p.config.Retries+1,
				"error", redact.Error(err))
			return retry.RetryableError(err)
		}
		data = out
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			ir.Outcome, ir.Err = OutcomeInterrupted, ctx.Err()
			return ir
		}
		ir.Outcome, ir.Err = OutcomeFailed, err
		p.writer.FailItem(ctx, item, fmt.Errorf("after %d attempts: %w", ir.Attempts, err))
		return ir
	}

	if err := p.writer.Write(ctx, item, data); err != nil {
		ir.Outcome, ir.Err = OutcomeFailed, err
		return ir
	}
	ir.Outcome = OutcomeSucceeded
	return ir
}

// attempt calls the processor once, converting a panic into an error.
func (p *WorkerPool) attempt(ctx context.Context, processor Processor, item *domain.WorkItem) ([]byte, error) {
	var data []byte
	var err error
	if r := panics.Try(func() { data, err = processor.Process(ctx, item) }); r != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessorPanic, r.AsError())
	}
	if err == nil && len(data) == 0 {
		err = errors.New("processor returned no data")
	}
	return data, err
}

// backoff waits RetryDelay between attempts and stops after Retries retries.
func (p *WorkerPool) backoff() retry.Backoff {
	delay := p.config.RetryDelay
	constant := retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	})
	return retry.WithMaxRetries(uint64(p.config.Retries), constant)
}
