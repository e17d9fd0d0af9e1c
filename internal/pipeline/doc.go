// Package pipeline wires one run of a job kind: it reads the input records,
// builds the catalog, dispatches the pending items through the batch strategy
// with its synchronous fallback or through the worker pool, and returns the
// writer's accounting.
//
// A run is interrupted by cancelling its context. Nothing new is started
// after that, the fallback is skipped, and the items that did not reach a
// terminal state are reported failed with ErrInterrupted.
package pipeline
