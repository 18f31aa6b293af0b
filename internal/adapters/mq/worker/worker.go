// Package worker bounds how many solve runs execute at once.
//
// Solves are CPU-bound and long-lived, so unlike a message-consuming pool
// there is no queue to drain: a submission either takes a free slot
// immediately or is rejected so the caller can surface backpressure.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

// poolShutdownTimeout caps how long Shutdown waits for running solves.
const poolShutdownTimeout = 30 * time.Second

// Job is one unit of solving work executed on a pool slot.
type Job func(ctx context.Context)

// Pool hands out a fixed number of solve slots.
type Pool struct {
	slots chan struct{}

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool with the given number of slots. A non-positive
// size defaults to the number of CPUs.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		slots:  make(chan struct{}, size),
		logger: logger.Get().Named("solve-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs the job on a free slot. It returns ErrBusy when every slot
// is taken and ErrStopped after shutdown; it never blocks.
func (p *Pool) Submit(ctx context.Context, name string, job Job) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}

	select {
	case p.slots <- struct{}{}:
	default:
		p.mu.Unlock()
		metrics.RecordSolveRejected()
		p.logger.Warn(ctx, "solve rejected, pool is full",
			logger.String("run", name),
			logger.Int("slots", cap(p.slots)),
		)
		return ErrBusy
	}

	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		job(ctx)
	}()
	return nil
}

// InFlight returns how many solves currently hold a slot.
func (p *Pool) InFlight() int {
	return len(p.slots)
}

// Capacity returns the total number of slots.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// Shutdown stops accepting work and waits for running solves to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		return nil
	case <-waitCtx.Done():
		p.logger.Warn(ctx, "pool shutdown timed out",
			logger.Int("in_flight", p.InFlight()),
		)
		return fmt.Errorf("pool shutdown timed out: %w", waitCtx.Err())
	}
}
