package repository

// Ring-buffer backed, in-memory Store implementation.
//
// The history is bounded: once capacity runs are held, recording a new run
// overwrites the oldest. Reads return newest-first copies so callers never
// alias internal state.

import (
	"context"
	"sync"
)

// defaultCapacity bounds the history when no option overrides it.
const defaultCapacity = 100

// RingStore implements Store with a fixed-size circular buffer.
type RingStore struct {
	mu       sync.RWMutex
	runs     []RunRecord
	capacity int
	next     int
	size     int
}

// compile-time contract check
var _ Store = (*RingStore)(nil)

// NewRingStore creates a run-history store with configuration options.
func NewRingStore(opts ...Option) *RingStore {
	s := &RingStore{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runs = make([]RunRecord, s.capacity)
	return s
}

// Record appends a finished run, evicting the oldest once full.
func (s *RingStore) Record(ctx context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[s.next] = r
	s.next = (s.next + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *RingStore) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.size {
		n = s.size
	}
	out := make([]RunRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		out = append(out, s.runs[idx])
	}
	return out, nil
}

// Count returns the number of runs currently retained.
func (s *RingStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
