package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/recipe-forge/internal/api/shared"
	"github.com/phrazzld/recipe-forge/internal/store"
)

// OutcomeResponse is one entry of GET /api/runs/{runID}/outcomes.
type OutcomeResponse struct {
	Identity  string    `json:"identity"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobResponse is the body of GET /api/jobs/{jobID}.
type JobResponse struct {
	ID                string    `json:"id"`
	RunID             string    `json:"run_id"`
	Kind              string    `json:"kind"`
	Status            string    `json:"status"`
	Model             string    `json:"model,omitempty"`
	Requests          int       `json:"requests"`
	CompletedRequests int       `json:"completed_requests"`
	TotalRequests     int       `json:"total_requests"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RunHandler serves the run ledger. Either reader may be nil when the
// ledger is disabled.
type RunHandler struct {
	outcomes store.OutcomeReader
	jobs     store.JobReader
	logger   *slog.Logger
}

// NewRunHandler creates a handler over the ledger readers.
func NewRunHandler(outcomes store.OutcomeReader, jobs store.JobReader, logger *slog.Logger) *RunHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunHandler{outcomes: outcomes, jobs: jobs, logger: logger.With("component", "run_handler")}
}

// ListOutcomes handles GET /api/runs/{runID}/outcomes.
func (h *RunHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	if h.outcomes == nil {
		h.respondError(w, r, ErrLedgerDisabled)
		return
	}

	records, err := h.outcomes.ListOutcomes(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]OutcomeResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, OutcomeResponse{
			Identity:  rec.Identity,
			Kind:      rec.Kind,
			Status:    rec.Status,
			Path:      rec.Path,
			Error:     rec.Error,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetJob handles GET /api/jobs/{jobID}.
func (h *RunHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.respondError(w, r, ErrLedgerDisabled)
		return
	}

	rec, err := h.jobs.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, JobResponse{
		ID:                rec.JobID,
		RunID:             rec.RunID,
		Kind:              rec.Kind,
		Status:            rec.Status,
		Model:             rec.Model,
		Requests:          rec.Requests,
		CompletedRequests: rec.CompletedRequests,
		TotalRequests:     rec.TotalRequests,
		UpdatedAt:         rec.UpdatedAt,
	})
}

func (h *RunHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
