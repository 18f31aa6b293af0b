package worktime

import "errors"

// Sentinel kinds for working-time errors.
var (
	ErrUnknownZone   = errors.New("unknown time zone")
	ErrUnknownPeriod = errors.New("unknown working period")
)
