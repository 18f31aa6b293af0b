// Package assign translates weighted composition constraints and a team
// plan into a complete optimization problem, and re-evaluates finished
// assignments into a human-readable report.
package assign

import (
	"fmt"
	"math"

	"github.com/okian/cohort/internal/cpmodel"
	"github.com/okian/cohort/internal/domain/encode"
	"github.com/okian/cohort/internal/domain/model"
)

// Input is everything the builder needs. It is read-only; building the same
// input twice yields equivalent problems.
type Input struct {
	Participants []model.Participant
	Constraints  []model.Constraint
	TeamSizes    []int
}

// Problem is the fully-formed optimization problem handed to an engine.
// It is never mutated after Build returns.
type Problem struct {
	Model *cpmodel.Model

	// Assign[p][t] is the boolean assignment variable for participant p
	// and team t.
	Assign [][]cpmodel.Var

	TeamSizes []int
}

// NumParticipants returns the population size of the problem.
func (p *Problem) NumParticipants() int { return len(p.Assign) }

// NumTeams returns the number of teams in the plan.
func (p *Problem) NumTeams() int { return len(p.TeamSizes) }

// Assignment extracts the 0-based team index per participant from a
// complete valuation.
func (p *Problem) Assignment(values []int64) []int {
	teams := make([]int, len(p.Assign))
	for i, row := range p.Assign {
		for t, v := range row {
			if values[v] == 1 {
				teams[i] = t
				break
			}
		}
	}
	return teams
}

// Build constructs assignment variables, fixed membership variables,
// per-team value-count variables, the structural one-team-per-participant
// and exact-team-size constraints, plus one weighted cost family per input
// constraint, all combined into a single objective to minimize.
func Build(in Input) (*Problem, error) {
	m := cpmodel.New()
	numParticipants := len(in.Participants)

	// Assignment variables with the one-team-per-participant constraint.
	assignVars := make([][]cpmodel.Var, numParticipants)
	for p := range in.Participants {
		row := make([]cpmodel.Var, len(in.TeamSizes))
		for t := range in.TeamSizes {
			row[t] = m.NewBool(fmt.Sprintf("parti_%d_in_team_%d", p, t))
		}
		m.AddExactlyOne(row)
		assignVars[p] = row
	}

	// Exact team sizes.
	for t, size := range in.TeamSizes {
		col := make([]cpmodel.Var, numParticipants)
		for p := range in.Participants {
			col[p] = assignVars[p][t]
		}
		m.AddCardinality(col, int64(size))
	}

	b := &builder{m: m, in: in, assign: assignVars}
	for _, c := range in.Constraints {
		var err error
		switch c.Type {
		case model.Diversify:
			err = b.diversifyCosts(c)
		case model.Cluster:
			err = b.clusterCosts(c)
		case model.Different:
			err = b.differentCosts(c)
		case model.ClusterNumeric:
			err = b.clusterNumericCosts(c)
		default:
			err = fmt.Errorf("%w: unknown constraint type %q", model.ErrValidation, c.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Attribute, err)
		}
	}

	return &Problem{Model: m, Assign: assignVars, TeamSizes: in.TeamSizes}, nil
}

type builder struct {
	m      *cpmodel.Model
	in     Input
	assign [][]cpmodel.Var
}

// membershipVars mirrors the encoding's fixed membership flags into model
// variables: a deterministic pass-through, not a free choice.
func (b *builder) membershipVars(enc *encode.Encoding) [][]cpmodel.Var {
	vars := make([][]cpmodel.Var, len(b.in.Participants))
	for p := range b.in.Participants {
		row := make([]cpmodel.Var, len(enc.Domain))
		for v := range enc.Domain {
			bv := b.m.NewBool(fmt.Sprintf("parti_%d_%s", p, enc.VarName(v)))
			if enc.Membership[p][v] {
				b.m.AddFixed(bv, 1)
			} else {
				b.m.AddFixed(bv, 0)
			}
			row[v] = bv
		}
		vars[p] = row
	}
	return vars
}

// countVars creates one per-team value-count variable per domain value:
// the sum over participants of an AND indicator of assignment and
// membership, the AND modeled as an equality-constrained product.
func (b *builder) countVars(enc *encode.Encoding) [][]cpmodel.Var {
	members := b.membershipVars(enc)
	counts := make([][]cpmodel.Var, len(b.in.TeamSizes))
	for t, size := range b.in.TeamSizes {
		row := make([]cpmodel.Var, len(enc.Domain))
		for v := range enc.Domain {
			count := b.m.NewInt(0, int64(size), fmt.Sprintf("team_%d_%s_count", t, enc.VarName(v)))
			both := make([]cpmodel.Var, len(b.in.Participants))
			for p := range b.in.Participants {
				bv := b.m.NewBool(fmt.Sprintf("parti_%d_team_%d_%s", p, t, enc.VarName(v)))
				b.m.AddProductEq(bv, b.assign[p][t], members[p][v])
				both[p] = bv
			}
			b.m.AddSumEq(count, both)
			row[v] = count
		}
		counts[t] = row
	}
	return counts
}

// diversifyCosts adds |count - target| deviation costs for all but the last
// domain value of each team; the omitted value's deviation is implied by
// the team-size constraint and would double-count. The absolute value is
// modeled as max(x, -x) because absolute-equality constraints are
// mishandled by some solver backends.
func (b *builder) diversifyCosts(c model.Constraint) error {
	enc, err := encode.Categorical(c.Attribute, b.in.Participants)
	if err != nil {
		return err
	}
	counts := b.countVars(enc)
	dist := enc.Distribution()

	for t, size := range b.in.TeamSizes {
		targets := valueCountTargets(dist, size)
		for v := 0; v < len(enc.Domain)-1; v++ {
			cost := b.m.NewInt(0, int64(size), fmt.Sprintf("%s_cost_%d_%d", c.Attribute, t, v))
			diff := cpmodel.VarExpr(counts[t][v]).Plus(-targets[v])
			b.m.AddMaxEq(cost, []cpmodel.LinExpr{diff, diff.Neg()})
			b.m.AddObjectiveTerm(cost, c.Weight)
		}
	}
	return nil
}

// clusterCosts adds teamSize - max(counts) costs: zero exactly when all
// team members share one domain value.
func (b *builder) clusterCosts(c model.Constraint) error {
	enc, err := encode.Categorical(c.Attribute, b.in.Participants)
	if err != nil {
		return err
	}
	counts := b.countVars(enc)

	for t, size := range b.in.TeamSizes {
		maxCount := b.m.NewInt(0, int64(size), fmt.Sprintf("%s_max_count_%d", c.Attribute, t))
		exprs := make([]cpmodel.LinExpr, len(counts[t]))
		for v, count := range counts[t] {
			exprs[v] = cpmodel.VarExpr(count)
		}
		b.m.AddMaxEq(maxCount, exprs)

		cost := b.m.NewInt(0, int64(size), fmt.Sprintf("%s_cost_%d", c.Attribute, t))
		b.m.AddExprEq(cost, cpmodel.VarExpr(maxCount).Neg().Plus(int64(size)))
		b.m.AddObjectiveTerm(cost, c.Weight)
	}
	return nil
}

// differentCosts adds max(count-1, 0) costs per domain value: zero exactly
// when every team member holds a distinct value.
func (b *builder) differentCosts(c model.Constraint) error {
	enc, err := encode.Categorical(c.Attribute, b.in.Participants)
	if err != nil {
		return err
	}
	counts := b.countVars(enc)

	for t, size := range b.in.TeamSizes {
		for v, count := range counts[t] {
			over := b.m.NewInt(0, int64(size), fmt.Sprintf("%s_over_%d_%d", c.Attribute, t, v))
			b.m.AddMaxEq(over, []cpmodel.LinExpr{
				cpmodel.VarExpr(count).Plus(-1),
				cpmodel.ConstExpr(0),
			})
			b.m.AddObjectiveTerm(over, c.Weight)
		}
	}
	return nil
}

// clusterNumericCosts introduces per-team min/max range variables bounded
// by the attribute's global range, conditionally pinned by each assigned
// participant's value. The cost per team is max - min.
func (b *builder) clusterNumericCosts(c model.Constraint) error {
	nums, err := encode.Numeric(c.Attribute, b.in.Participants)
	if err != nil {
		return err
	}

	globalLo, globalHi := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n < globalLo {
			globalLo = n
		}
		if n > globalHi {
			globalHi = n
		}
	}

	for t := range b.in.TeamSizes {
		teamMin := b.m.NewInt(globalLo, globalHi, fmt.Sprintf("%s_min_%d", c.Attribute, t))
		teamMax := b.m.NewInt(globalLo, globalHi, fmt.Sprintf("%s_max_%d", c.Attribute, t))
		for p := range b.in.Participants {
			b.m.AddUpperBoundIf(b.assign[p][t], teamMin, nums[p])
			b.m.AddLowerBoundIf(b.assign[p][t], teamMax, nums[p])
		}
		b.m.AddObjectiveTerm(teamMax, c.Weight)
		b.m.AddObjectiveTerm(teamMin, -c.Weight)
	}
	return nil
}

// valueCountTargets converts population proportions into integer count
// targets for a team size. Rounding, not truncation, keeps the targets
// summing to the team size.
func valueCountTargets(dist []float64, teamSize int) []int64 {
	targets := make([]int64, len(dist))
	for v, p := range dist {
		targets[v] = int64(math.Round(p * float64(teamSize)))
	}
	return targets
}
