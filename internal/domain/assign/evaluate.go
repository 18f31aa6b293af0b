package assign

import (
	"fmt"

	"github.com/okian/cohort/internal/domain/encode"
	"github.com/okian/cohort/internal/domain/model"
)

// ReportRow is one team/constraint entry of the evaluation report: an
// observable "missed" count recomputed from the finished assignment,
// independent of the solver's internal cost variables.
type ReportRow struct {
	TeamNum   int                  `json:"team_num"`
	TeamSize  int                  `json:"team_size"`
	Attribute string               `json:"attribute"`
	Type      model.ConstraintType `json:"type"`
	Missed    int                  `json:"missed"`
}

// Evaluate recomputes the per-team miss count for every constraint given a
// completed assignment (0-based team index per participant).
func Evaluate(participants []model.Participant, constraints []model.Constraint, teamSizes []int, assignment []int) ([]ReportRow, error) {
	if len(assignment) != len(participants) {
		return nil, fmt.Errorf("assignment length %d does not match %d participants", len(assignment), len(participants))
	}

	teams := make([][]int, len(teamSizes))
	for p, t := range assignment {
		if t < 0 || t >= len(teamSizes) {
			return nil, fmt.Errorf("participant %d assigned to unknown team %d", p, t)
		}
		teams[t] = append(teams[t], p)
	}

	rows := make([]ReportRow, 0, len(teamSizes)*len(constraints))
	for t, size := range teamSizes {
		for _, c := range constraints {
			missed, err := missedForTeam(participants, c, teams[t], size)
			if err != nil {
				return nil, fmt.Errorf("constraint %q: %w", c.Attribute, err)
			}
			rows = append(rows, ReportRow{
				TeamNum:   t,
				TeamSize:  size,
				Attribute: c.Attribute,
				Type:      c.Type,
				Missed:    missed,
			})
		}
	}
	return rows, nil
}

func missedForTeam(participants []model.Participant, c model.Constraint, members []int, size int) (int, error) {
	switch c.Type {
	case model.Diversify:
		return diversifyMissed(participants, c.Attribute, members, size)
	case model.Cluster:
		return clusterMissed(participants, c.Attribute, members, size)
	case model.Different:
		return differentMissed(participants, c.Attribute, members, size)
	case model.ClusterNumeric:
		return clusterNumericMissed(participants, c.Attribute, members)
	default:
		return 0, fmt.Errorf("%w: unknown constraint type %q", model.ErrValidation, c.Type)
	}
}

// diversifyMissed sums the positive shortfalls of actual value counts below
// the population-derived targets for the team size.
func diversifyMissed(participants []model.Participant, attr string, members []int, size int) (int, error) {
	enc, err := encode.Categorical(attr, participants)
	if err != nil {
		return 0, err
	}
	targets := valueCountTargets(enc.Distribution(), size)
	counts := teamValueCounts(enc, members)

	missed := 0
	for v := range enc.Domain {
		if short := targets[v] - counts[v]; short > 0 {
			missed += int(short)
		}
	}
	return missed, nil
}

// clusterMissed is the team size minus the largest shared-value group.
func clusterMissed(participants []model.Participant, attr string, members []int, size int) (int, error) {
	enc, err := encode.Categorical(attr, participants)
	if err != nil {
		return 0, err
	}
	counts := teamValueCounts(enc, members)

	var maxCount int64
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	return size - int(maxCount), nil
}

// differentMissed is the team size minus the number of distinct values
// present, floored at zero for multi-valued attributes.
func differentMissed(participants []model.Participant, attr string, members []int, size int) (int, error) {
	enc, err := encode.Categorical(attr, participants)
	if err != nil {
		return 0, err
	}
	counts := teamValueCounts(enc, members)

	distinct := 0
	for _, n := range counts {
		if n > 0 {
			distinct++
		}
	}
	missed := size - distinct
	if missed < 0 {
		missed = 0
	}
	return missed, nil
}

// clusterNumericMissed is the value range (max - min) within the team.
func clusterNumericMissed(participants []model.Participant, attr string, members []int) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}
	var lo, hi int64
	for i, p := range members {
		v, ok := participants[p].Attrs[attr]
		if !ok {
			return 0, fmt.Errorf("%w: attribute %q missing for participant %s",
				model.ErrMissingValue, attr, participants[p].ID)
		}
		n, err := v.Int()
		if err != nil {
			return 0, err
		}
		if i == 0 || n < lo {
			lo = n
		}
		if i == 0 || n > hi {
			hi = n
		}
	}
	return int(hi - lo), nil
}

func teamValueCounts(enc *encode.Encoding, members []int) []int64 {
	counts := make([]int64, len(enc.Domain))
	for _, p := range members {
		for v, has := range enc.Membership[p] {
			if has {
				counts[v]++
			}
		}
	}
	return counts
}
