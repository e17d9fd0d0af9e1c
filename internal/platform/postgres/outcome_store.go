package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recipe-forge/internal/events"
	"github.com/phrazzld/recipe-forge/internal/store"
)

// OutcomeStore keeps the latest outcome of every item of every run.
// It subscribes to the writer's outcome events.
type OutcomeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure OutcomeStore satisfies the interfaces it is used through
var (
	_ events.EventHandler = (*OutcomeStore)(nil)
	_ store.OutcomeReader = (*OutcomeStore)(nil)
)

// NewOutcomeStore creates an OutcomeStore. A nil logger falls back to slog.Default.
func NewOutcomeStore(db store.DBTX, logger *slog.Logger) *OutcomeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeStore{db: db, logger: logger.With(slog.String("component", "outcome_store"))}
}

// HandleEvent upserts the outcome carried by event.
func (s *OutcomeStore) HandleEvent(ctx context.Context, event *events.OutcomeEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", store.ErrInvalidEntity)
	}
	query := `
		INSERT INTO item_outcomes (run_id, kind, identity, status, path, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, identity) DO UPDATE SET
			status = EXCLUDED.status,
			path = EXCLUDED.path,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.Kind,
		event.Identity,
		event.Status,
		event.Path,
		event.Error,
		event.CreatedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record outcome",
			"run_id", event.RunID,
			"identity", event.Identity,
			"error", err)
		return store.NewStoreError("outcome", "record", "upsert failed", MapError(err))
	}
	return nil
}

// ListOutcomes returns the outcomes of a run ordered by identity.
func (s *OutcomeStore) ListOutcomes(ctx context.Context, runID string) ([]store.OutcomeRecord, error) {
	query := `
		SELECT run_id, kind, identity, status, path, error, updated_at
		FROM item_outcomes
		WHERE run_id = $1
		ORDER BY identity ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, store.NewStoreError("outcome", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	outcomes := make([]store.OutcomeRecord, 0)
	for rows.Next() {
		var rec store.OutcomeRecord
		if err := rows.Scan(&rec.RunID, &rec.Kind, &rec.Identity, &rec.Status,
			&rec.Path, &rec.Error, &rec.UpdatedAt); err != nil {
			return nil, store.NewStoreError("outcome", "list", "scan failed", err)
		}
		outcomes = append(outcomes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("outcome", "list", "iteration failed", err)
	}
	return outcomes, nil
}
