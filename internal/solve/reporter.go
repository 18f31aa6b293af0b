package solve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cohort/internal/cpmodel"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

// State tracks where a reporter is in its lifecycle.
type State string

// Reporter lifecycle states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ProgressEvent is what consumers see for every improving solution, plus a
// final message when the time budget runs out.
type ProgressEvent struct {
	SolutionCount int     `json:"solution_count"`
	Objective     float64 `json:"objective_value"`
	WallTime      float64 `json:"wall_time"`
	Conflicts     int64   `json:"num_conflicts"`
	Message       string  `json:"message,omitempty"`
}

// Reporter drives a single solve run: it enforces the wall-clock budget,
// numbers improving solutions monotonically, and hands progress events to
// the consumer through a bounded queue.
//
// A reporter is single-use. Solve may be called once; Wait may be called
// any number of times after it.
type Reporter struct {
	engine Engine
	queue  Queue
	budget time.Duration
	log    logger.Logger

	mu      sync.Mutex
	state   State
	count   int
	result  Result
	err     error
	started bool
	done    chan struct{}
}

// NewReporter creates a reporter around an engine and a progress queue.
func NewReporter(engine Engine, q Queue, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		engine: engine,
		queue:  q,
		state:  StateIdle,
		log:    logger.Get().Named("reporter"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SolutionCount returns how many improving solutions have been reported.
func (r *Reporter) SolutionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Solve starts the engine in the background and returns the progress event
// channel. The channel drains and closes once the run ends; after that,
// Wait returns the outcome.
func (r *Reporter) Solve(ctx context.Context, m *cpmodel.Model) (<-chan ProgressEvent, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	r.started = true
	r.state = StateRunning
	r.mu.Unlock()

	events := r.queue.Dequeue(ctx)

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.budget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.budget)
	}

	metrics.RecordSolveStarted()
	start := time.Now()

	go func() {
		defer cancel()
		defer close(r.done)

		result, err := r.engine.Solve(runCtx, m, func(p Progress) bool {
			return r.report(ctx, p)
		})

		elapsed := time.Since(start)
		metrics.RecordSolveDuration(elapsed.Seconds())

		budgetExpired := r.budget > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		if budgetExpired {
			r.queue.Enqueue(ctx, ProgressEvent{
				SolutionCount: r.SolutionCount(),
				Objective:     result.Objective,
				WallTime:      elapsed.Seconds(),
				Conflicts:     result.Conflicts,
				Message:       fmt.Sprintf("time budget of %s exhausted, stopping", r.budget),
			})
		}

		r.finish(ctx, result, err, budgetExpired)

		if cerr := r.queue.Close(); cerr != nil {
			r.log.Warn(ctx, "closing progress queue", logger.Error(cerr))
		}
	}()

	return events, nil
}

// Wait blocks until the run ends and returns its outcome.
func (r *Reporter) Wait() (Result, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

// report numbers a new best solution and pushes it to the consumer.
// It returns false once the run should stop.
func (r *Reporter) report(ctx context.Context, p Progress) bool {
	r.mu.Lock()
	r.count++
	n := r.count
	r.mu.Unlock()

	metrics.RecordSolutionFound()
	metrics.UpdateLastObjective(p.Objective)

	r.queue.Enqueue(ctx, ProgressEvent{
		SolutionCount: n,
		Objective:     p.Objective,
		WallTime:      p.WallTime.Seconds(),
		Conflicts:     p.Conflicts,
	})
	return ctx.Err() == nil
}

func (r *Reporter) finish(ctx context.Context, result Result, err error, budgetExpired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result = result

	switch {
	case ctx.Err() != nil:
		r.state = StateCancelled
		r.err = fmt.Errorf("solve cancelled: %w", ctx.Err())
		metrics.RecordSolveFailed()
	case err != nil:
		r.state = StateFailed
		r.err = err
		metrics.RecordSolveFailed()
	case result.Status == StatusInfeasible:
		r.state = StateFailed
		r.err = fmt.Errorf("%w: model is infeasible", ErrNoSolution)
		metrics.RecordSolveFailed()
	case result.Status == StatusUnknown:
		if budgetExpired {
			r.state = StateTimedOut
			metrics.RecordSolveTimedOut()
		} else {
			r.state = StateFailed
			metrics.RecordSolveFailed()
		}
		r.err = fmt.Errorf("%w: no assignment within budget", ErrNoSolution)
	default:
		// A feasible best counts as completed even when the deadline cut
		// the search short; the incumbent is the outcome.
		r.state = StateCompleted
		metrics.RecordSolveCompleted()
	}

	r.log.Info(ctx, "solve finished",
		logger.String("state", string(r.state)),
		logger.Int("solutions", r.count),
		logger.Float64("objective", result.Objective),
	)
}
