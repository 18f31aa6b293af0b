// Package repository defines the solve-run history store and errors.
package repository

// Option applies a configuration option to the RingStore.
type Option func(*RingStore)

// WithCapacity sets how many finished runs the history retains.
func WithCapacity(capacity int) Option {
	return func(s *RingStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
