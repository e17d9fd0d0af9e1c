package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/recipe-forge/internal/batch"
	"github.com/phrazzld/recipe-forge/internal/platform/logger"
	"github.com/phrazzld/recipe-forge/internal/store"
)

// JobStore records the batch jobs a run submits.
type JobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure JobStore satisfies the interfaces it is used through
var (
	_ batch.JobRecorder = (*JobStore)(nil)
	_ store.JobReader   = (*JobStore)(nil)
)

// NewJobStore creates a JobStore. A nil logger falls back to slog.Default.
func NewJobStore(db store.DBTX, log *slog.Logger) *JobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &JobStore{db: db, logger: log.With(slog.String("component", "job_store"))}
}

// RecordJob upserts the observed state of a job. The first observation
// creates the row; later ones refresh status and counters.
func (s *JobStore) RecordJob(ctx context.Context, entry batch.JobEntry) error {
	log := logger.FromContext(ctx)
	if entry.Job.ID == "" {
		return store.NewStoreError("batch job", "record", "job id is empty", store.ErrInvalidEntity)
	}

	query := `
		INSERT INTO batch_jobs (job_id, run_id, kind, status, model, requests,
			completed_requests, total_requests, output_file, error_file, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_requests = EXCLUDED.completed_requests,
			total_requests = EXCLUDED.total_requests,
			output_file = EXCLUDED.output_file,
			error_file = EXCLUDED.error_file,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Job.ID,
		entry.RunID,
		entry.Kind,
		string(entry.Job.Status),
		entry.Job.Model,
		entry.Requests,
		entry.Job.CompletedRequests,
		entry.Job.TotalRequests,
		entry.Job.OutputFile,
		entry.Job.ErrorFile,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to record batch job",
			"job_id", entry.Job.ID,
			"status", entry.Job.Status,
			"error", err)
		return store.NewStoreError("batch job", "record", "upsert failed", MapError(err))
	}
	return nil
}

// GetJob returns the recorded job, or store.ErrJobNotFound.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (store.JobRecord, error) {
	query := `
		SELECT job_id, run_id, kind, status, model, requests, completed_requests,
			total_requests, output_file, error_file, created_at, updated_at
		FROM batch_jobs
		WHERE job_id = $1
	`
	var rec store.JobRecord
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&rec.JobID,
		&rec.RunID,
		&rec.Kind,
		&rec.Status,
		&rec.Model,
		&rec.Requests,
		&rec.CompletedRequests,
		&rec.TotalRequests,
		&rec.OutputFile,
		&rec.ErrorFile,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return store.JobRecord{}, store.ErrJobNotFound
		}
		s.logger.Error("failed to get batch job", "job_id", jobID, "error", err)
		return store.JobRecord{}, store.NewStoreError("batch job", "get", "query failed", MapError(err))
	}
	return rec, nil
}
