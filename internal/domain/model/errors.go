package model

import "errors"

// Sentinel kinds for domain validation errors.
var (
	// ErrValidation marks malformed or inconsistent request input. Requests
	// failing with this kind are rejected before any model construction.
	ErrValidation = errors.New("validation failed")

	// ErrMissingValue marks a constrained attribute with a null/missing
	// value for at least one participant.
	ErrMissingValue = errors.New("missing attribute value")
)
