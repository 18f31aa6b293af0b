package solver

import (
	"github.com/okian/cohort/pkg/logger"
)

// Option applies a configuration option to the Annealer.
type Option func(*Annealer)

// WithRestarts sets how many times the search restarts from a fresh
// random placement.
func WithRestarts(n int) Option {
	return func(a *Annealer) {
		if n > 0 {
			a.restarts = n
		}
	}
}

// WithSteps sets the number of annealing steps per restart.
func WithSteps(n int) Option {
	return func(a *Annealer) {
		if n > 1 {
			a.steps = n
		}
	}
}

// WithTemperature sets the geometric cooling schedule endpoints.
func WithTemperature(high, low float64) Option {
	return func(a *Annealer) {
		if high > 0 && low > 0 && low <= high {
			a.tempHigh = high
			a.tempLow = low
		}
	}
}

// WithSeed fixes the random source for reproducible runs.
func WithSeed(seed int64) Option {
	return func(a *Annealer) {
		a.seed = seed
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(a *Annealer) {
		if log != nil {
			a.log = log
		}
	}
}
