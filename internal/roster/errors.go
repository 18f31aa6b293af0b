package roster

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrBadRoster      = errors.New("malformed roster")
	ErrBadConstraints = errors.New("malformed constraints")
)
