package worker

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrBusy    = errors.New("all solve slots are busy")
	ErrStopped = errors.New("pool stopped")
)
