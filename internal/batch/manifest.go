package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// DefaultEndpoint is the chat completion endpoint batch lines target.
const DefaultEndpoint = "/v1/chat/completions"

// RequestLine is one line of a batch manifest.
type RequestLine struct {
	CustomID string                 `json:"custom_id"`
	Method   string                 `json:"method"`
	URL      string                 `json:"url"`
	Body     generation.ChatRequest `json:"body"`
}

// target is the (item, field) pair a custom id resolves to.
type target struct {
	item  *domain.WorkItem
	field domain.FieldKey
}

// Manifest is a built set of request lines and the index used to resolve
// their results.
type Manifest struct {
	Lines []RequestLine

	targets map[string]target

	// Rejected holds items for which at least one request could not be built,
	// keyed by identity. They still take part in the job for their other fields.
	Rejected map[string]error
}

// BuildManifest emits one request line per (item, required field). A custom id
// emitted twice is a detected collision and fails the whole build.
func BuildManifest(items []*domain.WorkItem, builder RequestBuilder, endpoint string) (*Manifest, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	m := &Manifest{
		targets:  make(map[string]target),
		Rejected: make(map[string]error),
	}

	for _, item := range items {
		for _, field := range item.MissingFields() {
			id := CustomID(item.Identity, field)
			if prev, dup := m.targets[id]; dup {
				return nil, fmt.Errorf("%w: %s used by items %d and %d",
					ErrCorrelationCollision, id, prev.item.Index+1, item.Index+1)
			}

			req, err := builder.Request(item, field)
			if err != nil {
				m.Rejected[item.Identity] = fmt.Errorf("build request for %s: %w", field, err)
				continue
			}

			m.targets[id] = target{item: item, field: field}
			m.Lines = append(m.Lines, RequestLine{
				CustomID: id,
				Method:   http.MethodPost,
				URL:      endpoint,
				Body:     req,
			})
		}
	}

	return m, nil
}

// IDs returns the emitted custom ids in manifest order.
func (m *Manifest) IDs() []string {
	ids := make([]string, len(m.Lines))
	for i, line := range m.Lines {
		ids[i] = line.CustomID
	}
	return ids
}

// Encode renders the manifest as line-delimited JSON.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, line := range m.Lines {
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("encode manifest line %s: %w", line.CustomID, err)
		}
	}
	return buf.Bytes(), nil
}

func (m *Manifest) resolve(id string) (target, bool) {
	t, ok := m.targets[id]
	return t, ok
}
