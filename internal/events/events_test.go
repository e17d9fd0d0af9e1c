package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// MockEventHandler records the events it receives
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *OutcomeEvent
	HandlerError error
}

// HandleEvent implements EventHandler
func (m *MockEventHandler) HandleEvent(ctx context.Context, event *OutcomeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func TestNewOutcomeEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewOutcomeEvent("run-1", "recipe", "abc", OutcomeSucceeded)

	assert.NotEqual(t, event.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "recipe", event.Kind)
	assert.Equal(t, "abc", event.Identity)
	assert.Equal(t, OutcomeSucceeded, event.Status)
	assert.False(t, event.CreatedAt.Before(before))

	other := NewOutcomeEvent("run-1", "recipe", "abc", OutcomeSucceeded)
	assert.NotEqual(t, event.ID, other.ID, "every event gets its own id")
}

func TestHandlerFunc(t *testing.T) {
	var got *OutcomeEvent
	h := HandlerFunc(func(_ context.Context, e *OutcomeEvent) error {
		got = e
		return nil
	})

	event := NewOutcomeEvent("run", "translate", "def", OutcomeFailed)
	assert.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)
}
