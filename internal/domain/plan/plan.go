// Package plan computes how many teams to form and the size of each.
package plan

import (
	"errors"
	"fmt"
)

// ErrNoTeams marks a structurally impossible team plan, e.g. a population
// smaller than one target-sized team when teams may not shrink.
var ErrNoTeams = errors.New("team plan impossible")

// TeamSizes returns the ordered team sizes for a population of n with the
// given target size. When lessThanTarget is true the non-target teams are
// smaller than the target, otherwise larger. The sizes always sum to n and
// each size is within one of the base size.
func TeamSizes(n, target int, lessThanTarget bool) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: population size %d", ErrNoTeams, n)
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: target team size %d", ErrNoTeams, target)
	}

	var numTeams int
	if lessThanTarget {
		numTeams = (n + target - 1) / target
	} else {
		numTeams = n / target
	}
	if numTeams == 0 {
		return nil, fmt.Errorf("%w: %d participants cannot fill a team of %d", ErrNoTeams, n, target)
	}

	base := n / numTeams
	extra := n % numTeams
	sizes := make([]int, numTeams)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes, nil
}
