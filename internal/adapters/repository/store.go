// Package repository defines the solve-run history store and errors.
package repository

import (
	"context"
	"time"
)

// RunRecord is one finished solve run.
type RunRecord struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	State           string    `json:"state"`
	Objective       float64   `json:"objective"`
	Solutions       int       `json:"solutions"`
	NumParticipants int       `json:"num_participants"`
	NumTeams        int       `json:"num_teams"`
	WallTimeSeconds float64   `json:"wall_time_seconds"`
}

// Store provides access to the bounded run history.
type Store interface {
	// Record appends a finished run, evicting the oldest once full.
	Record(ctx context.Context, r RunRecord) error

	// Recent returns up to n runs, newest first.
	// Returns ErrInvalidLimit when n is not positive.
	Recent(ctx context.Context, n int) ([]RunRecord, error)

	// Count returns the number of runs currently retained.
	Count(ctx context.Context) int
}
