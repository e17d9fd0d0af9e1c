package batch

import (
	"context"
	"time"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// JobStatus is the provider-neutral state of a batch job.
type JobStatus string

// Batch job states. Only polling moves a job between them.
const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// InProgress reports whether the job may still change state.
func (s JobStatus) InProgress() bool {
	return s == StatusQueued || s == StatusRunning
}

// Job is a provider-side asynchronous execution of one manifest.
type Job struct {
	ID                string
	Status            JobStatus
	Model             string
	CompletedRequests int
	TotalRequests     int
	OutputFile        string
	ErrorFile         string
}

// JobSpec describes a job to create from an uploaded manifest.
type JobSpec struct {
	InputFile string
	Endpoint  string
	Model     string
	Metadata  map[string]string
}

// Provider is the narrow surface of a batch-capable generation service.
type Provider interface {
	UploadManifest(ctx context.Context, name string, manifest []byte) (fileID string, err error)
	CreateJob(ctx context.Context, spec JobSpec) (Job, error)
	GetJob(ctx context.Context, jobID string) (Job, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// RequestBuilder builds the provider request for one field of an item. The
// synchronous fallback path uses the same builder.
type RequestBuilder interface {
	Request(item *domain.WorkItem, field domain.FieldKey) (generation.ChatRequest, error)
}

// Sink persists an item once every required field has resolved.
type Sink interface {
	Commit(ctx context.Context, item *domain.WorkItem) error
}

// JobEntry is what the dispatcher records about a job each time it observes it.
type JobEntry struct {
	RunID    string
	Kind     string
	Job      Job
	Requests int
}

// JobRecorder persists observed job states. Recording failures are logged and
// never affect dispatch.
type JobRecorder interface {
	RecordJob(ctx context.Context, entry JobEntry) error
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
