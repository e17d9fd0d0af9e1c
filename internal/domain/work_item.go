package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Status represents the dispatch state of a work item
type Status string

// Possible work item status values
const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// FieldKey names one independently generated sub-field of a work item,
// e.g. "text" for a recipe or "title_en" for a translation.
type FieldKey string

// IdentityFor returns the stable identity of an item with the given title:
// the lowercase hex SHA-256 of the title bytes. Identical titles always map to
// the same identity and therefore to the same output location.
func IdentityFor(title string) string {
	sum := sha256.Sum256([]byte(title))
	return hex.EncodeToString(sum[:])
}

// WorkItem is one unit of generation work. It is owned by a single pipeline run
// and is not safe for concurrent use; dispatchers hand each item to exactly one
// goroutine at a time.
type WorkItem struct {
	// Identity is the content hash the output location is derived from
	Identity string

	// Index is the 0-based position of the item in the input, used for progress
	Index int

	// Title and Description are the semantic content of the item
	Title       string
	Description string

	// Source holds already generated fields an item derives from, keyed by
	// field name (e.g. "text" of a recipe being translated)
	Source map[string]string

	// OutputPath is where the artifact for this item is persisted
	OutputPath string

	status   Status
	required []FieldKey
	results  map[FieldKey]string
}

// NewWorkItem creates a pending work item whose identity is derived from its title.
func NewWorkItem(index int, title, description string) (*WorkItem, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: item %d", ErrEmptyTitle, index+1)
	}
	return &WorkItem{
		Identity:    IdentityFor(title),
		Index:       index,
		Title:       title,
		Description: description,
		status:      StatusPending,
		results:     make(map[FieldKey]string),
	}, nil
}

// NewWorkItemWithIdentity creates a pending work item with a preset identity,
// used when the item derives from an artifact already named by its identity.
func NewWorkItemWithIdentity(index int, identity, title, description string) (*WorkItem, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: item %d", ErrEmptyIdentity, index+1)
	}
	return &WorkItem{
		Identity:    identity,
		Index:       index,
		Title:       title,
		Description: description,
		status:      StatusPending,
		results:     make(map[FieldKey]string),
	}, nil
}

// Status returns the current status of the item
func (w *WorkItem) Status() Status {
	if w.status == "" {
		return StatusPending
	}
	return w.status
}

// MarkSubmitted records that the item's requests were handed to a remote job.
func (w *WorkItem) MarkSubmitted() error {
	if w.Status() != StatusPending {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, w.Status(), StatusSubmitted, w.Identity)
	}
	w.status = StatusSubmitted
	return nil
}

// MarkSucceeded records that the item's artifact was persisted.
func (w *WorkItem) MarkSucceeded() error {
	if w.Status().IsTerminal() {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, w.Status(), StatusSucceeded, w.Identity)
	}
	w.status = StatusSucceeded
	return nil
}

// MarkFailed records that the item could not be completed in this run.
func (w *WorkItem) MarkFailed() error {
	if w.Status().IsTerminal() {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, w.Status(), StatusFailed, w.Identity)
	}
	w.status = StatusFailed
	return nil
}

// Require sets the fields that must all resolve before the item can succeed.
// Previously attached results for fields that are still required are kept.
func (w *WorkItem) Require(fields ...FieldKey) {
	w.required = append([]FieldKey(nil), fields...)
	if w.results == nil {
		w.results = make(map[FieldKey]string)
	}
	for key := range w.results {
		if !w.requires(key) {
			delete(w.results, key)
		}
	}
}

// RequiredFields returns the required fields in declaration order.
func (w *WorkItem) RequiredFields() []FieldKey {
	return append([]FieldKey(nil), w.required...)
}

func (w *WorkItem) requires(field FieldKey) bool {
	for _, f := range w.required {
		if f == field {
			return true
		}
	}
	return false
}

// SetField attaches a resolved value for a required field.
func (w *WorkItem) SetField(field FieldKey, value string) error {
	if !w.requires(field) {
		return fmt.Errorf("%w: %q on %s", ErrUnknownField, field, w.Identity)
	}
	if w.results == nil {
		w.results = make(map[FieldKey]string)
	}
	w.results[field] = value
	return nil
}

// Field returns the resolved value of a field, if any.
func (w *WorkItem) Field(field FieldKey) (string, bool) {
	v, ok := w.results[field]
	return v, ok
}

// MissingFields returns the required fields without a result, in declaration order.
func (w *WorkItem) MissingFields() []FieldKey {
	missing := make([]FieldKey, 0, len(w.required))
	for _, f := range w.required {
		if _, ok := w.results[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field has resolved.
func (w *WorkItem) Complete() bool {
	return len(w.MissingFields()) == 0
}

// Results returns a copy of the resolved fields. It fails with ErrIncomplete
// while any required field is missing, so a partial item can never be persisted.
func (w *WorkItem) Results() (map[FieldKey]string, error) {
	if missing := w.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s missing %v", ErrIncomplete, w.Identity, missing)
	}
	out := make(map[FieldKey]string, len(w.results))
	for k, v := range w.results {
		out[k] = v
	}
	return out, nil
}

// Progress formats the item's position for progress output, e.g. "[3/10]".
func (w *WorkItem) Progress(total int) string {
	return fmt.Sprintf("[%d/%d]", w.Index+1, total)
}
