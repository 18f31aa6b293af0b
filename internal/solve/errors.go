package solve

import "errors"

// Sentinel kinds for solve errors.
var (
	// ErrNoSolution means the search ended without any valid assignment,
	// either because the model is infeasible or the time budget ran out
	// before a first solution appeared.
	ErrNoSolution = errors.New("no solution found")

	// ErrAlreadyRun means a reporter was asked to solve twice.
	ErrAlreadyRun = errors.New("reporter already run")
)
