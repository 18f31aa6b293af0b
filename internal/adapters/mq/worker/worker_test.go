package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/cohort/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestPool_RunsJobs(t *testing.T) {
	p := NewPool(2)
	ctx := context.Background()

	var ran atomic.Int32
	done := make(chan struct{})
	err := p.Submit(ctx, "run-1", func(ctx context.Context) {
		ran.Add(1)
		close(done)
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	if ran.Load() != 1 {
		t.Errorf("expected 1 run, got %d", ran.Load())
	}
}

func TestPool_RejectsWhenFull(t *testing.T) {
	p := NewPool(1)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(ctx, "long", func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	if err := p.Submit(ctx, "extra", func(ctx context.Context) {}); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if got := p.InFlight(); got != 1 {
		t.Errorf("expected 1 in flight, got %d", got)
	}

	close(release)
}

func TestPool_ShutdownWaits(t *testing.T) {
	p := NewPool(1)
	ctx := context.Background()

	finished := make(chan struct{})
	if err := p.Submit(ctx, "slow", func(ctx context.Context) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case <-finished:
	default:
		t.Error("shutdown returned before job finished")
	}

	if err := p.Submit(ctx, "late", func(ctx context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
