package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/phrazzld/recipe-forge/internal/batch"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// Mistral batch job statuses
const (
	jobQueued                = "QUEUED"
	jobRunning               = "RUNNING"
	jobSuccess               = "SUCCESS"
	jobFailed                = "FAILED"
	jobTimeoutExceeded       = "TIMEOUT_EXCEEDED"
	jobCancellationRequested = "CANCELLATION_REQUESTED"
	jobCancelled             = "CANCELLED"
)

// ParseJobStatus maps a Mistral job status onto the provider-neutral states.
// An unknown status is reported as running so that polling continues until
// the deadline.
func ParseJobStatus(status string) batch.JobStatus {
	switch status {
	case jobQueued:
		return batch.StatusQueued
	case jobRunning, jobCancellationRequested:
		return batch.StatusRunning
	case jobSuccess:
		return batch.StatusSucceeded
	case jobFailed, jobTimeoutExceeded:
		return batch.StatusFailed
	case jobCancelled:
		return batch.StatusCancelled
	default:
		return batch.StatusRunning
	}
}

type fileObject struct {
	ID string `json:"id"`
}

type jobObject struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Model             string `json:"model"`
	OutputFile        string `json:"output_file"`
	ErrorFile         string `json:"error_file"`
	TotalRequests     int    `json:"total_requests"`
	CompletedRequests int    `json:"completed_requests"`
	SucceededRequests int    `json:"succeeded_requests"`
	FailedRequests    int    `json:"failed_requests"`
}

func (j jobObject) toJob() batch.Job {
	completed := j.CompletedRequests
	if completed == 0 {
		completed = j.SucceededRequests + j.FailedRequests
	}
	return batch.Job{
		ID:                j.ID,
		Status:            ParseJobStatus(j.Status),
		Model:             j.Model,
		CompletedRequests: completed,
		TotalRequests:     j.TotalRequests,
		OutputFile:        j.OutputFile,
		ErrorFile:         j.ErrorFile,
	}
}

type createJobRequest struct {
	InputFiles []string          `json:"input_files"`
	Endpoint   string            `json:"endpoint"`
	Model      string            `json:"model"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// UploadManifest uploads a line-delimited manifest with purpose "batch" and
// returns its file id. Uploads are not retried.
func (c *Client) UploadManifest(ctx context.Context, name string, manifest []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(manifest); err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	raw, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/v1/files",
		contentType: mw.FormDataContentType(),
		body:        buf.Bytes(),
	})
	if err != nil {
		return "", err
	}

	var file fileObject
	if err := json.Unmarshal(raw, &file); err != nil || file.ID == "" {
		return "", fmt.Errorf("%w: upload response without file id", generation.ErrInvalidResponse)
	}
	return file.ID, nil
}

// CreateJob creates a batch job from an uploaded manifest. Job creation is
// not retried.
func (c *Client) CreateJob(ctx context.Context, spec batch.JobSpec) (batch.Job, error) {
	model := spec.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(createJobRequest{
		InputFiles: []string{spec.InputFile},
		Endpoint:   spec.Endpoint,
		Model:      model,
		Metadata:   spec.Metadata,
	})
	if err != nil {
		return batch.Job{}, fmt.Errorf("encode job request: %w", err)
	}

	raw, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/v1/batch/jobs",
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return batch.Job{}, err
	}
	return decodeJob(raw)
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (batch.Job, error) {
	raw, err := c.sendWithRetry(ctx, request{
		method: http.MethodGet,
		path:   "/v1/batch/jobs/" + url.PathEscape(jobID),
	})
	if err != nil {
		return batch.Job{}, err
	}
	return decodeJob(raw)
}

// DownloadFile returns the content of a file.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	return c.sendWithRetry(ctx, request{
		method: http.MethodGet,
		path:   "/v1/files/" + url.PathEscape(fileID) + "/content",
	})
}

func decodeJob(raw []byte) (batch.Job, error) {
	var obj jobObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return batch.Job{}, fmt.Errorf("%w: decode job: %v", generation.ErrInvalidResponse, err)
	}
	if obj.ID == "" {
		return batch.Job{}, fmt.Errorf("%w: job without id", generation.ErrInvalidResponse)
	}
	return obj.toJob(), nil
}
