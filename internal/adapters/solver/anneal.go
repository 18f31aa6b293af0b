// Package solver implements the optimization engine as restarted simulated
// annealing over team-preserving swaps.
//
// The engine reads the assignment structure straight out of the model: each
// exactly-one constraint is one participant's row of team indicators, and
// each cardinality constraint fixes one team's size. Every candidate keeps
// the cardinalities satisfied by construction, so scoring reduces to
// completing the valuation and reading the objective.
package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/okian/cohort/internal/cpmodel"
	"github.com/okian/cohort/internal/solve"
	"github.com/okian/cohort/pkg/logger"
)

// Default search configuration constants.
const (
	defaultRestarts = 20
	defaultSteps    = 20000
	defaultTempHigh = 5.0
	defaultTempLow  = 0.01

	// ctxCheckInterval is how many steps pass between context checks.
	ctxCheckInterval = 256
)

// Annealer implements solve.Engine.
type Annealer struct {
	restarts int
	steps    int
	tempHigh float64
	tempLow  float64
	seed     int64
	log      logger.Logger
}

// compile-time contract check
var _ solve.Engine = (*Annealer)(nil)

// New creates an annealing engine with configuration options.
func New(opts ...Option) *Annealer {
	a := &Annealer{
		restarts: defaultRestarts,
		steps:    defaultSteps,
		tempHigh: defaultTempHigh,
		tempLow:  defaultTempLow,
		seed:     time.Now().UnixNano(),
		log:      logger.Get().Named("annealer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// structure is the participant/team layout recovered from a model.
type structure struct {
	assign    [][]cpmodel.Var // assign[p][t]
	teamSizes []int64
}

// parseStructure recovers the assignment layout from the model's structural
// constraints. Row order follows the exactly-one constraints; column order
// follows the cardinality constraints.
func parseStructure(m *cpmodel.Model) (*structure, error) {
	if len(m.ExactlyOnes) == 0 || len(m.Cardinalities) == 0 {
		return nil, fmt.Errorf("model has no assignment structure")
	}

	numTeams := len(m.Cardinalities)
	s := &structure{
		assign:    make([][]cpmodel.Var, len(m.ExactlyOnes)),
		teamSizes: make([]int64, numTeams),
	}

	column := make(map[cpmodel.Var]int)
	for t, c := range m.Cardinalities {
		s.teamSizes[t] = c.Count
		for _, v := range c.Vars {
			column[v] = t
		}
	}

	for p, eo := range m.ExactlyOnes {
		if len(eo.Vars) != numTeams {
			return nil, fmt.Errorf("participant %d has %d team indicators, want %d", p, len(eo.Vars), numTeams)
		}
		row := make([]cpmodel.Var, numTeams)
		seen := make([]bool, numTeams)
		for _, v := range eo.Vars {
			t, ok := column[v]
			if !ok {
				return nil, fmt.Errorf("indicator %q is not covered by a cardinality", m.VarName(v))
			}
			if seen[t] {
				return nil, fmt.Errorf("participant %d has two indicators for team %d", p, t)
			}
			seen[t] = true
			row[t] = v
		}
		s.assign[p] = row
	}
	return s, nil
}

// Solve runs restarted simulated annealing until the context ends, the
// callback asks to stop, or a zero-cost assignment is found.
func (a *Annealer) Solve(ctx context.Context, m *cpmodel.Model, onSolution solve.ProgressFunc) (solve.Result, error) {
	start := time.Now()

	st, err := parseStructure(m)
	if err != nil {
		return solve.Result{Status: solve.StatusUnknown}, fmt.Errorf("parsing model structure: %w", err)
	}

	var total int64
	for _, size := range st.teamSizes {
		if size < 0 {
			return solve.Result{Status: solve.StatusInfeasible, WallTime: time.Since(start)}, nil
		}
		total += size
	}
	if total != int64(len(st.assign)) {
		return solve.Result{Status: solve.StatusInfeasible, WallTime: time.Since(start)}, nil
	}

	run := &search{
		model:    m,
		st:       st,
		rng:      rand.New(rand.NewSource(a.seed)),
		values:   make([]int64, m.NumVars()),
		teams:    make([]int, len(st.assign)),
		onBest:   onSolution,
		start:    start,
		bestObj:  math.Inf(1),
		tempHigh: a.tempHigh,
		tempLow:  a.tempLow,
	}

	stopped := run.anneal(ctx, a.restarts, a.steps)

	res := solve.Result{
		Values:    run.bestValues,
		Objective: run.bestObj,
		WallTime:  time.Since(start),
		Conflicts: run.conflicts,
	}
	switch {
	case run.bestValues == nil:
		res.Status = solve.StatusUnknown
		res.Objective = 0
	case run.bestObj == 0:
		res.Status = solve.StatusOptimal
	default:
		res.Status = solve.StatusFeasible
	}

	a.log.Debug(ctx, "search ended",
		logger.String("status", string(res.Status)),
		logger.Float64("objective", res.Objective),
		logger.Int64("rejected_moves", res.Conflicts),
		logger.Bool("stopped", stopped),
	)
	return res, nil
}

// search is the mutable state of one Solve call.
type search struct {
	model *cpmodel.Model
	st    *structure
	rng   *rand.Rand

	// scratch valuation reused across scoring calls
	values []int64
	// teams[p] is the current team of participant p
	teams []int

	onBest    solve.ProgressFunc
	start     time.Time
	conflicts int64

	bestObj    float64
	bestValues []int64

	tempHigh float64
	tempLow  float64
}

func (s *search) anneal(ctx context.Context, restarts, steps int) bool {
	for restart := 0; restart < restarts; restart++ {
		if ctx.Err() != nil {
			return true
		}

		s.placeRandom()
		current := s.score()
		if s.recordIfBest(ctx, current) {
			return true
		}

		for step := 0; step < steps; step++ {
			if step%ctxCheckInterval == 0 && ctx.Err() != nil {
				return true
			}

			t := s.tempHigh * math.Pow(s.tempLow/s.tempHigh, float64(step)/float64(steps-1))

			p, q, ok := s.pickSwap()
			if !ok {
				continue
			}

			s.teams[p], s.teams[q] = s.teams[q], s.teams[p]
			candidate := s.score()
			delta := candidate - current

			if delta <= 0 || s.rng.Float64() < math.Exp(-delta/t) {
				current = candidate
				if s.recordIfBest(ctx, current) {
					return true
				}
			} else {
				s.teams[p], s.teams[q] = s.teams[q], s.teams[p]
				s.conflicts++
			}
		}
	}
	return false
}

// placeRandom deals a shuffled participant order into the fixed team sizes.
func (s *search) placeRandom() {
	order := s.rng.Perm(len(s.teams))
	i := 0
	for t, size := range s.st.teamSizes {
		for k := int64(0); k < size; k++ {
			s.teams[order[i]] = t
			i++
		}
	}
}

// pickSwap selects two participants on different teams.
func (s *search) pickSwap() (int, int, bool) {
	n := len(s.teams)
	if n < 2 {
		return 0, 0, false
	}
	p := s.rng.Intn(n)
	q := s.rng.Intn(n - 1)
	if q >= p {
		q++
	}
	if s.teams[p] == s.teams[q] {
		return 0, 0, false
	}
	return p, q, true
}

// score completes the scratch valuation for the current teams and returns
// the objective.
func (s *search) score() float64 {
	for p, row := range s.st.assign {
		for t, v := range row {
			if t == s.teams[p] {
				s.values[v] = 1
			} else {
				s.values[v] = 0
			}
		}
	}
	s.model.Complete(s.values)
	return s.model.ObjectiveValue(s.values)
}

// recordIfBest tracks the incumbent and reports improvements. It returns
// true when the search should stop, either because the consumer said so or
// because a zero-cost assignment leaves nothing to improve.
func (s *search) recordIfBest(ctx context.Context, obj float64) bool {
	if obj >= s.bestObj {
		return false
	}
	s.bestObj = obj
	if s.bestValues == nil {
		s.bestValues = make([]int64, len(s.values))
	}
	copy(s.bestValues, s.values)

	if s.onBest != nil {
		cont := s.onBest(solve.Progress{
			Objective: obj,
			WallTime:  time.Since(s.start),
			Conflicts: s.conflicts,
		})
		if !cont {
			return true
		}
	}
	return obj == 0
}
