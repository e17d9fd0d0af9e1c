package store

import (
	"context"
	"time"
)

// JobRecord is the last observed state of one provider batch job.
type JobRecord struct {
	JobID             string
	RunID             string
	Kind              string
	Status            string
	Model             string
	Requests          int
	CompletedRequests int
	TotalRequests     int
	OutputFile        string
	ErrorFile         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OutcomeRecord is the terminal outcome of one item in one run.
type OutcomeRecord struct {
	RunID     string
	Kind      string
	Identity  string
	Status    string
	Path      string
	Error     string
	UpdatedAt time.Time
}

// JobReader reads batch jobs from the ledger.
type JobReader interface {
	// GetJob returns the job with the given provider id, or ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (JobRecord, error)
}

// OutcomeReader reads item outcomes from the ledger.
type OutcomeReader interface {
	// ListOutcomes returns the outcomes of a run ordered by identity. An
	// unknown run yields an empty slice.
	ListOutcomes(ctx context.Context, runID string) ([]OutcomeRecord, error)
}
