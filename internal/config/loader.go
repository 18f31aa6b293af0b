package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if COHORT_CONFIG is set
//  3. env (prefix COHORT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("COHORT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: COHORT_ADDR, COHORT_SOLVE_WORKERS, ...
	// Keys map like COHORT_SOLVE_WORKERS -> solve_workers, preserving
	// underscores to match the koanf tags on the struct.
	envProvider := env.Provider("COHORT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "cohort_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultMaxTimeSec <= 0:
		return fmt.Errorf("%w: default_max_time_sec must be positive", ErrInvalidConfig)
	case c.MaxParticipants <= 0:
		return fmt.Errorf("%w: max_participants must be positive", ErrInvalidConfig)
	case c.SolveWorkers <= 0:
		return fmt.Errorf("%w: solve_workers must be positive", ErrInvalidConfig)
	case c.ProgressBuffer <= 0:
		return fmt.Errorf("%w: progress_buffer must be positive", ErrInvalidConfig)
	case c.EngineRestarts <= 0 || c.EngineSteps <= 0:
		return fmt.Errorf("%w: engine tuning values must be positive", ErrInvalidConfig)
	}
	return nil
}
