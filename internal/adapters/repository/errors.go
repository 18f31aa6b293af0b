package repository

import "errors"

// Sentinel kinds for run-history errors.
var (
	ErrInvalidLimit = errors.New("invalid history limit")
)
