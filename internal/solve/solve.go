// Package solve defines the contract between constraint models and the
// search engines that optimize them.
//
// Engines are free to implement any search strategy. The contract only
// requires that intermediate solutions are surfaced through a callback and
// that the final result states how good the best assignment is.
package solve

import (
	"context"
	"time"

	"github.com/okian/cohort/internal/cpmodel"
)

// Status describes the outcome of a solve run.
type Status string

// Solve outcome statuses.
const (
	// StatusOptimal means the engine proved the best possible assignment,
	// which for additive nonnegative penalties is an objective of zero.
	StatusOptimal Status = "optimal"

	// StatusFeasible means a valid assignment was found but a better one
	// may exist.
	StatusFeasible Status = "feasible"

	// StatusInfeasible means no valid assignment exists for the model.
	StatusInfeasible Status = "infeasible"

	// StatusUnknown means the search ended before finding any assignment.
	StatusUnknown Status = "unknown"
)

// Progress is a snapshot of the search at the moment a new best solution
// was found.
type Progress struct {
	Objective float64
	WallTime  time.Duration
	Conflicts int64
}

// ProgressFunc receives each improving solution as it is found.
// Returning false tells the engine to stop searching.
type ProgressFunc func(p Progress) bool

// Result is the final outcome of a solve run.
type Result struct {
	Status    Status
	Values    []int64
	Objective float64
	WallTime  time.Duration
	Conflicts int64
}

// Engine runs a search over a built constraint model.
type Engine interface {
	// Solve searches for a minimal-cost assignment until the context is
	// canceled, the callback asks to stop, or the engine decides the
	// search is exhausted. onSolution may be nil.
	Solve(ctx context.Context, m *cpmodel.Model, onSolution ProgressFunc) (Result, error)
}

// Queue carries progress events from the solve goroutine to the consumer.
type Queue interface {
	// Enqueue adds an event, returning false when it was dropped.
	Enqueue(ctx context.Context, e ProgressEvent) bool

	// Dequeue returns the consumer channel. It is closed when the queue
	// is closed.
	Dequeue(ctx context.Context) <-chan ProgressEvent

	// Close shuts the queue down; the dequeue channel drains then closes.
	Close() error
}
