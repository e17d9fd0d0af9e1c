package pipeline

import "errors"

var (
	// ErrInterrupted is returned when the run's context was cancelled
	ErrInterrupted = errors.New("run interrupted")

	// ErrMissingDependency is returned when a job kind needs a client that
	// was not provided
	ErrMissingDependency = errors.New("missing dependency")
)
