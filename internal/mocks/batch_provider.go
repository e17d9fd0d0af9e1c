package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phrazzld/recipe-forge/internal/batch"
)

// MockBatchProvider implements batch.Provider for testing. Without Fn
// overrides it accepts the upload, creates job "job-1" and reports it with
// Status, returning Output and Errors for the corresponding files.
type MockBatchProvider struct {
	UploadManifestFn func(ctx context.Context, name string, manifest []byte) (string, error)
	CreateJobFn      func(ctx context.Context, spec batch.JobSpec) (batch.Job, error)
	GetJobFn         func(ctx context.Context, jobID string) (batch.Job, error)
	DownloadFileFn   func(ctx context.Context, fileID string) ([]byte, error)

	// Status is returned by the default GetJob
	Status batch.JobStatus

	// Output and Errors are the default contents of the output and error files
	Output []byte
	Errors []byte

	mu        sync.Mutex
	manifests [][]byte
	specs     []batch.JobSpec
	polls     int
	downloads []string
}

// Default file ids used when no Fn override is set
const (
	MockInputFileID  = "file-input"
	MockOutputFileID = "file-output"
	MockErrorFileID  = "file-errors"
	MockJobID        = "job-1"
)

// UploadManifest implements batch.Provider
func (m *MockBatchProvider) UploadManifest(ctx context.Context, name string, manifest []byte) (string, error) {
	m.mu.Lock()
	m.manifests = append(m.manifests, append([]byte(nil), manifest...))
	m.mu.Unlock()

	if m.UploadManifestFn != nil {
		return m.UploadManifestFn(ctx, name, manifest)
	}
	return MockInputFileID, nil
}

// CreateJob implements batch.Provider
func (m *MockBatchProvider) CreateJob(ctx context.Context, spec batch.JobSpec) (batch.Job, error) {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()

	if m.CreateJobFn != nil {
		return m.CreateJobFn(ctx, spec)
	}
	return batch.Job{ID: MockJobID, Status: batch.StatusQueued, Model: spec.Model}, nil
}

// GetJob implements batch.Provider
func (m *MockBatchProvider) GetJob(ctx context.Context, jobID string) (batch.Job, error) {
	m.mu.Lock()
	m.polls++
	m.mu.Unlock()

	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, jobID)
	}
	job := batch.Job{ID: jobID, Status: m.Status}
	if m.Status == batch.StatusSucceeded {
		job.OutputFile = MockOutputFileID
	}
	if len(m.Errors) > 0 {
		job.ErrorFile = MockErrorFileID
	}
	return job, nil
}

// DownloadFile implements batch.Provider
func (m *MockBatchProvider) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	m.downloads = append(m.downloads, fileID)
	m.mu.Unlock()

	if m.DownloadFileFn != nil {
		return m.DownloadFileFn(ctx, fileID)
	}
	switch fileID {
	case MockOutputFileID:
		return m.Output, nil
	case MockErrorFileID:
		return m.Errors, nil
	default:
		return nil, fmt.Errorf("unknown file %s: %w", fileID, errors.New("not found"))
	}
}

// Manifests returns every uploaded manifest
func (m *MockBatchProvider) Manifests() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.manifests...)
}

// Specs returns every job spec passed to CreateJob
func (m *MockBatchProvider) Specs() []batch.JobSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]batch.JobSpec(nil), m.specs...)
}

// Polls returns how many times GetJob was called
func (m *MockBatchProvider) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Downloads returns the ids of every downloaded file
func (m *MockBatchProvider) Downloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloads...)
}
