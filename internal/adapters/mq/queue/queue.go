// Package queue carries solve progress events from engine callbacks to
// stream consumers.
//
// The queue is bounded and never blocks the solver: when a consumer falls
// behind, new events are dropped rather than stalling the search.
package queue

import (
	"context"
	"sync"

	"github.com/okian/cohort/internal/solve"
	"github.com/okian/cohort/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 256
)

// Event is the payload type flowing through the queue.
type Event = solve.ProgressEvent

// InMemoryQueue implements solve.Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// compile-time contract check
var _ solve.Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory progress queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan Event, q.capacity)

	metrics.UpdateProgressQueueSize(0)

	return q
}

// Enqueue adds an event without blocking. It returns false when the event
// was dropped because the queue is full or closed.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordProgressDropped()
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordProgressEvent()
		metrics.UpdateProgressQueueSize(len(q.events))
		return true
	case <-ctx.Done():
		metrics.RecordProgressDropped()
		return false
	default:
		metrics.RecordProgressDropped()
		return false
	}
}

// Dequeue returns a channel that receives events as they become available.
// The channel drains any buffered events and closes after Close.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.UpdateProgressQueueSize(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.events)
}

// Close shuts down the queue. Buffered events stay readable until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.events)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
