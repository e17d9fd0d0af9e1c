package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/redact"
)

const (
	// DefaultPollInterval is used when Config.PollInterval is not positive
	DefaultPollInterval = 5 * time.Second

	// maxPollErrors is the number of consecutive status query failures after
	// which the job is given up on
	maxPollErrors = 3

	// maxErrorLines bounds how many lines of an error artifact are logged
	maxErrorLines = 20
)

// Config holds the settings of one dispatch cycle.
type Config struct {
	// RunID and Kind label the job in metadata and in the job ledger
	RunID string
	Kind  string

	// Model is the model the job is created for
	Model string

	// Endpoint is the request path every manifest line targets
	Endpoint string

	// PollInterval is the wait between status queries
	PollInterval time.Duration

	// Timeout bounds the total time spent polling; zero disables it
	Timeout time.Duration
}

// Result describes the end of a dispatch cycle.
type Result struct {
	// Job is the last observed job state, nil when submission failed
	Job *Job

	// Correlation is set when the job succeeded and its output was parsed
	Correlation Correlation

	// Committed counts the items persisted from batch results
	Committed int

	// Unresolved holds every item still pending or submitted, in input order.
	// Each of them needs the synchronous fallback.
	Unresolved []*domain.WorkItem

	// Cause explains why the whole job was abandoned: a *SubmissionError,
	// *JobFailedError or *JobTimedOutError. Nil when the job succeeded.
	Cause error
}

// Dispatcher runs the batch strategy.
type Dispatcher struct {
	provider Provider
	builder  RequestBuilder
	sink     Sink
	recorder JobRecorder
	clock    Clock
	config   Config
	logger   *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithClock replaces the wall clock used by the poll loop.
func WithClock(c Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithRecorder records every observed job state.
func WithRecorder(r JobRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a batch dispatcher. The provider, builder and sink are
// required; a nil logger falls back to slog.Default.
func NewDispatcher(
	provider Provider,
	builder RequestBuilder,
	sink Sink,
	config Config,
	logger *slog.Logger,
	opts ...Option,
) (*Dispatcher, error) {
	if provider == nil || builder == nil || sink == nil {
		return nil, errors.New("batch dispatcher requires a provider, a request builder and a sink")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	d := &Dispatcher{
		provider: provider,
		builder:  builder,
		sink:     sink,
		clock:    systemClock{},
		config:   config,
		logger:   logger.With("component", "batch_dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch submits every pending item as one job and resolves what it can.
//
// Degradations (submission failure, failed or cancelled job, timeout, bad
// result lines) are not errors: the affected items come back in
// Result.Unresolved. The returned error is non-nil only when the context was
// cancelled, in which case no further work should be issued, or when a
// correlation id collision was detected.
func (d *Dispatcher) Dispatch(ctx context.Context, items []*domain.WorkItem) (Result, error) {
	var pending []*domain.WorkItem
	for _, item := range items {
		if item.Status() == domain.StatusPending {
			pending = append(pending, item)
		}
	}
	result := Result{Unresolved: pending}
	if len(pending) == 0 {
		return result, nil
	}

	manifest, err := BuildManifest(pending, d.builder, d.config.Endpoint)
	if err != nil {
		return result, err
	}
	for identity, rerr := range manifest.Rejected {
		d.logger.WarnContext(ctx, "request could not be built, leaving item for fallback",
			"identity", identity,
			"error", rerr)
	}
	if len(manifest.Lines) == 0 {
		return result, nil
	}

	data, err := manifest.Encode()
	if err != nil {
		result.Cause = &SubmissionError{Stage: "encode", Err: err}
		d.logSubmission(ctx, result.Cause)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	name := fmt.Sprintf("%s-%s.jsonl", d.config.Kind, d.config.RunID)
	fileID, err := d.provider.UploadManifest(ctx, name, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Cause = &SubmissionError{Stage: "upload", Err: err}
		d.logSubmission(ctx, result.Cause)
		return result, nil
	}

	job, err := d.provider.CreateJob(ctx, JobSpec{
		InputFile: fileID,
		Endpoint:  d.config.Endpoint,
		Model:     d.config.Model,
		Metadata:  map[string]string{"run_id": d.config.RunID, "kind": d.config.Kind},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Cause = &SubmissionError{Stage: "create job", Err: err}
		d.logSubmission(ctx, result.Cause)
		return result, nil
	}

	for _, item := range pending {
		_ = item.MarkSubmitted()
	}
	result.Job = &job

	d.logger.InfoContext(ctx, "batch job submitted",
		"job_id", job.ID,
		"requests", len(manifest.Lines),
		"items", len(pending),
		"status", job.Status)
	d.record(ctx, job, len(manifest.Lines))

	job, cause, err := d.poll(ctx, job, len(manifest.Lines))
	result.Job = &job
	if err != nil {
		return result, err
	}

	switch {
	case cause != nil:
		result.Cause = cause
	case job.Status != StatusSucceeded:
		result.Cause = &JobFailedError{JobID: job.ID, Status: job.Status}
	case job.OutputFile == "":
		result.Cause = &JobFailedError{JobID: job.ID, Status: job.Status, Err: errors.New("no output file")}
	}
	if result.Cause != nil {
		d.logger.WarnContext(ctx, "batch job abandoned, routing items to fallback",
			"job_id", job.ID,
			"status", job.Status,
			"items", len(pending),
			"error", result.Cause)
		d.logErrorFile(ctx, job)
		return result, nil
	}

	output, err := d.provider.DownloadFile(ctx, job.OutputFile)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Cause = &JobFailedError{JobID: job.ID, Status: job.Status, Err: fmt.Errorf("download output: %w", err)}
		d.logger.WarnContext(ctx, "batch output unavailable, routing items to fallback",
			"job_id", job.ID,
			"error", redact.Error(err))
		d.logErrorFile(ctx, job)
		return result, nil
	}

	records, unreadable, err := ParseResults(output)
	if err != nil {
		d.logger.WarnContext(ctx, "batch output truncated",
			"job_id", job.ID,
			"error", err)
	}
	if unreadable > 0 {
		d.logger.WarnContext(ctx, "batch output lines without a custom id",
			"job_id", job.ID,
			"count", unreadable)
	}
	if job.ErrorFile != "" {
		d.logErrorFile(ctx, job)
	}

	result.Correlation = Correlate(manifest.IDs(), records)
	result.Committed, result.Unresolved = d.resolve(ctx, manifest, pending, result.Correlation)

	d.logger.InfoContext(ctx, "batch job resolved",
		"job_id", job.ID,
		"succeeded_requests", len(result.Correlation.Succeeded),
		"failed_requests", len(result.Correlation.Failed),
		"missing_requests", len(result.Correlation.Missing),
		"unexpected_records", len(result.Correlation.Unexpected),
		"committed_items", result.Committed,
		"unresolved_items", len(result.Unresolved))

	return result, nil
}

// poll queries the job until it leaves the in-progress states, the deadline
// passes or the context is cancelled. A non-nil cause means polling was given
// up while the job was still in progress.
func (d *Dispatcher) poll(ctx context.Context, job Job, requests int) (Job, error, error) {
	var deadline time.Time
	if d.config.Timeout > 0 {
		deadline = d.clock.Now().Add(d.config.Timeout)
	}

	pollErrors := 0
	for job.Status.InProgress() {
		if err := ctx.Err(); err != nil {
			return job, nil, err
		}
		if !deadline.IsZero() && !d.clock.Now().Before(deadline) {
			return job, &JobTimedOutError{JobID: job.ID, Status: job.Status, Timeout: d.config.Timeout}, nil
		}

		select {
		case <-ctx.Done():
			return job, nil, ctx.Err()
		case <-d.clock.After(d.config.PollInterval):
		}

		next, err := d.provider.GetJob(ctx, job.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return job, nil, ctxErr
			}
			pollErrors++
			d.logger.WarnContext(ctx, "batch status query failed",
				"job_id", job.ID,
				"attempt", pollErrors,
				"error", redact.Error(err))
			if pollErrors >= maxPollErrors {
				return job, &JobFailedError{JobID: job.ID, Status: job.Status, Err: fmt.Errorf("status query: %w", err)}, nil
			}
			continue
		}
		pollErrors = 0

		if next.Status != job.Status || next.CompletedRequests != job.CompletedRequests {
			d.logger.InfoContext(ctx, "batch job progress",
				"job_id", next.ID,
				"status", next.Status,
				"completed", next.CompletedRequests,
				"total", next.TotalRequests)
			d.record(ctx, next, requests)
		}
		job = next
	}

	return job, nil, nil
}

// resolve attaches successful results to their items, commits every complete
// item and returns the rest in input order.
func (d *Dispatcher) resolve(
	ctx context.Context,
	manifest *Manifest,
	pending []*domain.WorkItem,
	corr Correlation,
) (int, []*domain.WorkItem) {
	for id, text := range corr.Succeeded {
		t, ok := manifest.resolve(id)
		if !ok {
			continue
		}
		text = generation.StripCodeFence(text)
		if text == "" {
			d.logger.WarnContext(ctx, "batch result blank after normalization",
				"identity", t.item.Identity,
				"field", t.field)
			continue
		}
		if err := t.item.SetField(t.field, text); err != nil {
			d.logger.WarnContext(ctx, "batch result rejected",
				"identity", t.item.Identity,
				"field", t.field,
				"error", err)
		}
	}

	for id, err := range corr.Failed {
		if t, ok := manifest.resolve(id); ok {
			d.logger.WarnContext(ctx, "batch request failed, routing field to fallback",
				"identity", t.item.Identity,
				"field", t.field,
				"error", redact.Error(err))
		}
	}
	for _, id := range corr.Missing {
		if t, ok := manifest.resolve(id); ok {
			d.logger.WarnContext(ctx, "batch request missing, routing field to fallback",
				"identity", t.item.Identity,
				"field", t.field,
				"error", &MissingCorrelationError{CustomID: id})
		}
	}

	committed := 0
	var unresolved []*domain.WorkItem
	for _, item := range pending {
		if !item.Complete() {
			unresolved = append(unresolved, item)
			continue
		}
		if err := d.sink.Commit(ctx, item); err != nil {
			d.logger.ErrorContext(ctx, "failed to persist batch result",
				"identity", item.Identity,
				"error", err)
			if !item.Status().IsTerminal() {
				unresolved = append(unresolved, item)
			}
			continue
		}
		committed++
	}
	return committed, unresolved
}

func (d *Dispatcher) logSubmission(ctx context.Context, err error) {
	d.logger.WarnContext(ctx, "batch submission failed, routing all items to fallback",
		"error", redact.Error(err))
}

// logErrorFile fetches and logs the job's error artifact. Absence of
// diagnostics is not an error.
func (d *Dispatcher) logErrorFile(ctx context.Context, job Job) {
	if job.ErrorFile == "" {
		return
	}
	data, err := d.provider.DownloadFile(ctx, job.ErrorFile)
	if err != nil {
		d.logger.DebugContext(ctx, "batch error file unavailable",
			"job_id", job.ID,
			"error", redact.Error(err))
		return
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i, line := range lines {
		if i == maxErrorLines {
			d.logger.WarnContext(ctx, "batch error file truncated",
				"job_id", job.ID,
				"remaining_lines", len(lines)-i)
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			d.logger.WarnContext(ctx, "batch error record",
				"job_id", job.ID,
				"record", redact.String(line))
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, job Job, requests int) {
	if d.recorder == nil {
		return
	}
	entry := JobEntry{RunID: d.config.RunID, Kind: d.config.Kind, Job: job, Requests: requests}
	if err := d.recorder.RecordJob(ctx, entry); err != nil {
		d.logger.WarnContext(ctx, "failed to record batch job",
			"job_id", job.ID,
			"error", err)
	}
}
