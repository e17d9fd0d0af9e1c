package batch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCorrelationCollision is returned when two requests in one manifest
	// would share a custom id.
	ErrCorrelationCollision = errors.New("correlation id collision")

	// ErrInvalidCustomID is returned when a custom id does not encode an
	// identity and a field.
	ErrInvalidCustomID = errors.New("invalid custom id")
)

// SubmissionError reports that the manifest could not be uploaded or the job
// could not be created. No partial submission state is assumed.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("batch submission failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError reports that a job reached a terminal state other than
// succeeded, or that its output could not be retrieved.
type JobFailedError struct {
	JobID  string
	Status JobStatus
	Err    error
}

func (e *JobFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch job %s ended with status %s: %v", e.JobID, e.Status, e.Err)
	}
	return fmt.Sprintf("batch job %s ended with status %s", e.JobID, e.Status)
}

func (e *JobFailedError) Unwrap() error { return e.Err }

// JobTimedOutError reports that polling stopped at the deadline while the job
// was still in progress.
type JobTimedOutError struct {
	JobID   string
	Status  JobStatus
	Timeout time.Duration
}

func (e *JobTimedOutError) Error() string {
	return fmt.Sprintf("batch job %s still %s after %s", e.JobID, e.Status, e.Timeout)
}

// MalformedResultError reports an output line that could not be turned into a
// usable result.
type MalformedResultError struct {
	CustomID string
	Reason   string
	Err      error
}

func (e *MalformedResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed result for %s: %s: %v", e.CustomID, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed result for %s: %s", e.CustomID, e.Reason)
}

func (e *MalformedResultError) Unwrap() error { return e.Err }

// MissingCorrelationError reports an emitted custom id with no result line.
type MissingCorrelationError struct {
	CustomID string
}

func (e *MissingCorrelationError) Error() string {
	return fmt.Sprintf("no result for %s", e.CustomID)
}

// RecordError is a per-request error reported by the provider inside the
// output artifact.
type RecordError struct {
	CustomID string
	Message  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("provider error for %s: %s", e.CustomID, e.Message)
}
