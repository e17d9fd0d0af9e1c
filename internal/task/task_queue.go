package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/recipe-forge/internal/domain"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is the buffered queue workers drain. It is filled completely
// before the workers start and closed once filled.
type TaskQueue struct {
	items  chan *domain.WorkItem
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		items:  make(chan *domain.WorkItem, size),
		logger: logger,
	}
}

// Enqueue adds an item to the queue.
// Returns an error if the queue is full or closed
func (q *TaskQueue) Enqueue(item *domain.WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- item:
		q.logger.Debug("item enqueued",
			"identity", item.Identity,
			"queue_len", len(q.items),
			"queue_cap", cap(q.items))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.items))
	}
}

// Close closes the task queue, preventing further submission. Items already
// queued can still be received.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
}

// GetChannel returns a read-only channel for consuming items
func (q *TaskQueue) GetChannel() <-chan *domain.WorkItem {
	return q.items
}

// Len returns the number of queued items
func (q *TaskQueue) Len() int {
	return len(q.items)
}
