package task

import (
	"context"
	"errors"

	"github.com/phrazzld/recipe-forge/internal/domain"
)

// ErrProcessorPanic wraps a panic raised by a processor. The attempt counts
// as failed.
var ErrProcessorPanic = errors.New("processor panicked")

// Processor produces the artifact of one item with a single synchronous call.
// Version: 1.0
type Processor interface {
	Process(ctx context.Context, item *domain.WorkItem) ([]byte, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item *domain.WorkItem) ([]byte, error)

// Process implements Processor
func (f ProcessorFunc) Process(ctx context.Context, item *domain.WorkItem) ([]byte, error) {
	return f(ctx, item)
}

// Writer receives the outcome of every item the pool handles.
// Version: 1.0
type Writer interface {
	// Exists reports whether the artifact at path is already present
	Exists(path string) (bool, error)

	// Write persists the artifact and marks the item succeeded
	Write(ctx context.Context, item *domain.WorkItem, data []byte) error

	// Skip records an item whose artifact already exists
	Skip(ctx context.Context, identity string)

	// FailItem marks the item failed and records the cause
	FailItem(ctx context.Context, item *domain.WorkItem, err error)
}

// Outcome is how the pool left one item.
type Outcome string

// Possible item outcomes
const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
	OutcomeInterrupted Outcome = "interrupted"
)

// ItemResult reports what happened to one item.
type ItemResult struct {
	Identity string
	Outcome  Outcome
	Attempts int
	Err      error
}

// PoolResult aggregates a Dispatch call.
type PoolResult struct {
	// Items holds one entry per dispatched item, in completion order
	Items []ItemResult

	// Calls is the total number of processor calls
	Calls int

	Succeeded   int
	Skipped     int
	Failed      int
	Interrupted int
}

func (r *PoolResult) add(ir ItemResult) {
	r.Items = append(r.Items, ir)
	r.Calls += ir.Attempts
	switch ir.Outcome {
	case OutcomeSucceeded:
		r.Succeeded++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeInterrupted:
		r.Interrupted++
	}
}
