package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/events"
	"github.com/phrazzld/recipe-forge/internal/redact"
	"github.com/spf13/afero"
)

// DefaultMaxFailures is the number of failure details kept for the report
const DefaultMaxFailures = 10

// Encoder renders a completed item as its artifact bytes.
type Encoder interface {
	Encode(item *domain.WorkItem) ([]byte, error)
}

// Writer persists artifacts and aggregates run counters.
type Writer struct {
	fs          afero.Fs
	encoder     Encoder
	overwrite   bool
	maxFailures int
	emitter     events.EventEmitter
	runID       string
	kind        string
	logger      *slog.Logger

	mu        sync.Mutex
	written   map[string]struct{}
	succeeded int
	skipped   int
	failed    int
	failures  []Failure
}

// Option configures a Writer
type Option func(*Writer)

// WithEncoder sets the encoder used by Commit.
func WithEncoder(e Encoder) Option {
	return func(w *Writer) { w.encoder = e }
}

// WithOverwrite allows replacing artifacts that already exist.
func WithOverwrite(overwrite bool) Option {
	return func(w *Writer) { w.overwrite = overwrite }
}

// WithMaxFailures bounds the failure details kept for the report.
func WithMaxFailures(n int) Option {
	return func(w *Writer) {
		if n >= 0 {
			w.maxFailures = n
		}
	}
}

// WithEmitter publishes an outcome event for every item.
func WithEmitter(emitter events.EventEmitter, runID, kind string) Option {
	return func(w *Writer) {
		w.emitter = emitter
		w.runID = runID
		w.kind = kind
	}
}

// WithLogger sets the writer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a writer on the given filesystem.
func NewWriter(fs afero.Fs, opts ...Option) *Writer {
	w := &Writer{
		fs:          fs,
		maxFailures: DefaultMaxFailures,
		logger:      slog.Default(),
		written:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "result_writer")
	return w
}

// Exists reports whether an artifact is present at path.
func (w *Writer) Exists(path string) (bool, error) {
	ok, err := afero.Exists(w.fs, path)
	if err != nil {
		return false, &LocalIOError{Op: "stat", Path: path, Err: err}
	}
	return ok, nil
}

// Commit encodes a completed item and writes it. An item with unresolved
// fields is rejected with domain.ErrIncomplete and left untouched.
func (w *Writer) Commit(ctx context.Context, item *domain.WorkItem) error {
	if w.encoder == nil {
		return ErrNoEncoder
	}
	if !item.Complete() {
		_, err := item.Results()
		return err
	}

	data, err := w.encoder.Encode(item)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", item.Identity, err)
		w.FailItem(ctx, item, err)
		return err
	}
	return w.Write(ctx, item, data)
}

// Write persists data at the item's output path and marks the item succeeded.
// Any failure marks the item failed. A second write for the same item in one
// run returns ErrDuplicateWrite without touching the item or the counters.
func (w *Writer) Write(ctx context.Context, item *domain.WorkItem, data []byte) error {
	w.mu.Lock()
	if _, dup := w.written[item.Identity]; dup {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateWrite, item.Identity)
	}
	w.written[item.Identity] = struct{}{}
	w.mu.Unlock()

	if err := w.writeFile(item.OutputPath, data); err != nil {
		w.FailItem(ctx, item, err)
		return err
	}

	if err := item.MarkSucceeded(); err != nil {
		w.logger.ErrorContext(ctx, "artifact written for item in terminal state",
			"identity", item.Identity,
			"error", err)
	}

	w.mu.Lock()
	w.succeeded++
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "artifact saved",
		"identity", item.Identity,
		"path", item.OutputPath,
		"bytes", len(data))

	event := events.NewOutcomeEvent(w.runID, w.kind, item.Identity, events.OutcomeSucceeded)
	event.Path = item.OutputPath
	w.emit(ctx, event)
	return nil
}

// writeFile lands data at path atomically.
func (w *Writer) writeFile(path string, data []byte) error {
	if path == "" {
		return &LocalIOError{Op: "write", Path: path, Err: errors.New("no output path")}
	}
	if !w.overwrite {
		exists, err := w.Exists(path)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
	}

	dir := filepath.Dir(path)
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return &LocalIOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := afero.TempFile(w.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &LocalIOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = w.fs.Remove(tmpName)
		return &LocalIOError{Op: "write", Path: path, Err: werr}
	}

	if err := w.fs.Rename(tmpName, path); err != nil {
		_ = w.fs.Remove(tmpName)
		return &LocalIOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Skip records an item whose artifact already existed.
func (w *Writer) Skip(ctx context.Context, identity string) {
	w.mu.Lock()
	w.skipped++
	w.mu.Unlock()

	w.emit(ctx, events.NewOutcomeEvent(w.runID, w.kind, identity, events.OutcomeSkipped))
}

// Fail records a failure for an identity that has no work item, e.g. an
// unreadable input record.
func (w *Writer) Fail(ctx context.Context, identity string, err error) {
	w.mu.Lock()
	w.failed++
	if len(w.failures) < w.maxFailures {
		w.failures = append(w.failures, Failure{Identity: identity, Err: err})
	}
	w.mu.Unlock()

	w.logger.WarnContext(ctx, "item failed",
		"identity", identity,
		"error", redact.Error(err))

	event := events.NewOutcomeEvent(w.runID, w.kind, identity, events.OutcomeFailed)
	event.Error = redact.Error(err)
	w.emit(ctx, event)
}

// FailItem marks the item failed and records the failure. Items already in a
// terminal state are left as they are.
func (w *Writer) FailItem(ctx context.Context, item *domain.WorkItem, err error) {
	if item.Status().IsTerminal() {
		return
	}
	_ = item.MarkFailed()
	w.Fail(ctx, item.Identity, err)
}

func (w *Writer) emit(ctx context.Context, event *events.OutcomeEvent) {
	if w.emitter == nil {
		return
	}
	if err := w.emitter.EmitEvent(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to publish outcome",
			"identity", event.Identity,
			"error", err)
	}
}

// Report returns a snapshot of the run counters.
func (w *Writer) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Report{
		Succeeded: w.succeeded,
		Skipped:   w.skipped,
		Failed:    w.failed,
		Failures:  append([]Failure(nil), w.failures...),
	}
}

// RemoveStale deletes leftover temporary files from interrupted runs in dir.
func RemoveStale(fs afero.Fs, dir string) (int, error) {
	matches, err := afero.Glob(fs, filepath.Join(dir, ".*.tmp-*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := fs.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, &LocalIOError{Op: "remove", Path: m, Err: err}
		}
		removed++
	}
	return removed, nil
}
