package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome statuses carried by OutcomeEvent
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// OutcomeEvent reports the terminal outcome of one item in one run.
type OutcomeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// RunID identifies the pipeline run the item belongs to
	RunID string `json:"run_id"`

	// Kind is the job kind, e.g. "recipe" or "translate"
	Kind string `json:"kind"`

	// Identity is the item identity
	Identity string `json:"identity"`

	// Status is one of OutcomeSucceeded, OutcomeSkipped or OutcomeFailed
	Status string `json:"status"`

	// Path is where the artifact was written, empty unless succeeded
	Path string `json:"path,omitempty"`

	// Error is the redacted failure cause, empty unless failed
	Error string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewOutcomeEvent creates an event stamped with a fresh id and the current time.
func NewOutcomeEvent(runID, kind, identity, status string) *OutcomeEvent {
	return &OutcomeEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Kind:      kind,
		Identity:  identity,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *OutcomeEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *OutcomeEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *OutcomeEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *OutcomeEvent) error {
	return f(ctx, event)
}
