package output

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateWrite is returned when an item is written twice in one run.
	ErrDuplicateWrite = errors.New("item already written in this run")

	// ErrOutputExists is returned when the artifact already exists and
	// overwriting was not requested.
	ErrOutputExists = errors.New("output already exists")

	// ErrNoEncoder is returned by Commit on a writer configured without an encoder.
	ErrNoEncoder = errors.New("writer has no encoder")
)

// LocalIOError reports a failure to read an input or write an output. It is
// fatal for the affected item only.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }
