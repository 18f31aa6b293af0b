// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers defaults, an optional YAML file, and environment variables.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DefaultMaxTimeSec is the solve wall-clock budget applied when a
	// request does not set max_time.
	DefaultMaxTimeSec int `koanf:"default_max_time_sec"`

	// MaxParticipants caps the roster size accepted by the API.
	MaxParticipants int `koanf:"max_participants"`

	// SolveWorkers bounds the number of concurrently running solves.
	SolveWorkers int `koanf:"solve_workers"`

	// ProgressBuffer sets the capacity of the per-solve progress queue.
	ProgressBuffer int `koanf:"progress_buffer"`

	// RunHistory bounds the recent-run records kept for /stats.
	RunHistory int `koanf:"run_history"`

	// EngineRestarts and EngineSteps tune the local-search engine.
	EngineRestarts int `koanf:"engine_restarts"`
	EngineSteps    int `koanf:"engine_steps"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		DefaultMaxTimeSec: 60,
		MaxParticipants:   5000,
		SolveWorkers:      runtime.NumCPU(),
		ProgressBuffer:    256,
		RunHistory:        100,
		EngineRestarts:    20,
		EngineSteps:       20000,
	}
}
