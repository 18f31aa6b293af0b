package solve

import (
	"time"

	"github.com/okian/cohort/pkg/logger"
)

// ReporterOption applies a configuration option to the Reporter.
type ReporterOption func(*Reporter)

// WithBudget caps the wall-clock time of the run. Zero means no cap.
func WithBudget(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.budget = d
		}
	}
}

// WithLogger sets a custom logger for the reporter.
func WithLogger(log logger.Logger) ReporterOption {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}
