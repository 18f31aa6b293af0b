// Package cpmodel is the optimization-model vocabulary shared between the
// constraint model builder and the optimization engine: integer/boolean
// variables, structural constraints, definitional constraints, conditional
// bounds, and a single weighted objective to minimize.
//
// A Model is built once per solve attempt and never mutated after handoff
// to an engine.
package cpmodel

import "fmt"

// Var identifies a model variable by index.
type Var int

type varDef struct {
	name string
	lo   int64
	hi   int64
}

// Term is a single coefficient*variable term of a linear expression.
type Term struct {
	Var   Var
	Coeff int64
}

// LinExpr is an affine expression over model variables.
type LinExpr struct {
	Terms  []Term
	Offset int64
}

// VarExpr builds the expression consisting of a single variable.
func VarExpr(v Var) LinExpr { return LinExpr{Terms: []Term{{Var: v, Coeff: 1}}} }

// ConstExpr builds a constant expression.
func ConstExpr(k int64) LinExpr { return LinExpr{Offset: k} }

// Neg returns the negation of the expression.
func (e LinExpr) Neg() LinExpr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Var: t.Var, Coeff: -t.Coeff}
	}
	return LinExpr{Terms: terms, Offset: -e.Offset}
}

// Plus returns the expression shifted by a constant.
func (e LinExpr) Plus(k int64) LinExpr {
	terms := make([]Term, len(e.Terms))
	copy(terms, e.Terms)
	return LinExpr{Terms: terms, Offset: e.Offset + k}
}

// Eval evaluates the expression under a complete variable valuation.
func (e LinExpr) Eval(values []int64) int64 {
	total := e.Offset
	for _, t := range e.Terms {
		total += t.Coeff * values[t.Var]
	}
	return total
}

// DefKind discriminates definitional constraints. Each defines its target
// variable as a function of earlier variables; definitions are stored in
// creation order and form a directed acyclic dependency chain.
type DefKind int

const (
	// DefFixed pins the target to a constant (membership pass-through).
	DefFixed DefKind = iota
	// DefProduct defines target == A*B (the AND of two booleans).
	DefProduct
	// DefSum defines target == sum(Operands).
	DefSum
	// DefExpr defines target == Expr.
	DefExpr
	// DefMax defines target == max over Exprs.
	DefMax
)

// Def is one definitional constraint.
type Def struct {
	Kind     DefKind
	Target   Var
	Value    int64
	A, B     Var
	Operands []Var
	Exprs    []LinExpr
	Expr     LinExpr
}

// ExactlyOne requires exactly one of Vars to be 1 (booleans).
type ExactlyOne struct {
	Vars []Var
}

// Cardinality requires the sum of Vars (booleans) to equal Count.
type Cardinality struct {
	Vars  []Var
	Count int64
}

// CondBound is a conditional one-sided bound: when the boolean If is 1,
// Var must be <= Bound (Upper) or >= Bound (not Upper).
type CondBound struct {
	If    Var
	Var   Var
	Bound int64
	Upper bool
}

// ObjectiveTerm contributes Weight * value(Var) to the objective.
type ObjectiveTerm struct {
	Var    Var
	Weight float64
}

// Model is the complete variable/constraint/objective set for one solve.
type Model struct {
	vars []varDef

	// Structural constraints, always enforced.
	ExactlyOnes   []ExactlyOne
	Cardinalities []Cardinality

	// Definitional constraints in dependency order.
	Defs []Def

	// Conditional one-sided bounds (range variables).
	CondBounds []CondBound

	// Objective terms to minimize.
	Objective []ObjectiveTerm
}

// New creates an empty model.
func New() *Model { return &Model{} }

// NewBool adds a boolean variable.
func (m *Model) NewBool(name string) Var { return m.NewInt(0, 1, name) }

// NewInt adds an integer variable with inclusive bounds.
func (m *Model) NewInt(lo, hi int64, name string) Var {
	m.vars = append(m.vars, varDef{name: name, lo: lo, hi: hi})
	return Var(len(m.vars) - 1)
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int { return len(m.vars) }

// VarName returns the variable's name.
func (m *Model) VarName(v Var) string { return m.vars[v].name }

// VarBounds returns the variable's inclusive bounds.
func (m *Model) VarBounds(v Var) (lo, hi int64) { return m.vars[v].lo, m.vars[v].hi }

// AddExactlyOne requires exactly one of vars to hold.
func (m *Model) AddExactlyOne(vars []Var) {
	m.ExactlyOnes = append(m.ExactlyOnes, ExactlyOne{Vars: vars})
}

// AddCardinality requires the booleans to sum to count.
func (m *Model) AddCardinality(vars []Var, count int64) {
	m.Cardinalities = append(m.Cardinalities, Cardinality{Vars: vars, Count: count})
}

// AddFixed pins v to a constant value.
func (m *Model) AddFixed(v Var, value int64) {
	m.Defs = append(m.Defs, Def{Kind: DefFixed, Target: v, Value: value})
}

// AddProductEq defines target == a*b.
func (m *Model) AddProductEq(target, a, b Var) {
	m.Defs = append(m.Defs, Def{Kind: DefProduct, Target: target, A: a, B: b})
}

// AddSumEq defines target == sum(operands).
func (m *Model) AddSumEq(target Var, operands []Var) {
	m.Defs = append(m.Defs, Def{Kind: DefSum, Target: target, Operands: operands})
}

// AddExprEq defines target == expr.
func (m *Model) AddExprEq(target Var, expr LinExpr) {
	m.Defs = append(m.Defs, Def{Kind: DefExpr, Target: target, Expr: expr})
}

// AddMaxEq defines target == max(exprs).
func (m *Model) AddMaxEq(target Var, exprs []LinExpr) {
	m.Defs = append(m.Defs, Def{Kind: DefMax, Target: target, Exprs: exprs})
}

// AddUpperBoundIf requires v <= bound whenever the boolean cond holds.
func (m *Model) AddUpperBoundIf(cond, v Var, bound int64) {
	m.CondBounds = append(m.CondBounds, CondBound{If: cond, Var: v, Bound: bound, Upper: true})
}

// AddLowerBoundIf requires v >= bound whenever the boolean cond holds.
func (m *Model) AddLowerBoundIf(cond, v Var, bound int64) {
	m.CondBounds = append(m.CondBounds, CondBound{If: cond, Var: v, Bound: bound, Upper: false})
}

// AddObjectiveTerm contributes weight*v to the objective to minimize.
func (m *Model) AddObjectiveTerm(v Var, weight float64) {
	m.Objective = append(m.Objective, ObjectiveTerm{Var: v, Weight: weight})
}

// Complete fills in every non-decision variable of a valuation: definitional
// constraints are applied in order, then range variables constrained only by
// conditional bounds are set to the bound-tight value favoring the
// objective. The decision variables themselves must already be set.
func (m *Model) Complete(values []int64) {
	for _, d := range m.Defs {
		switch d.Kind {
		case DefFixed:
			values[d.Target] = d.Value
		case DefProduct:
			values[d.Target] = values[d.A] * values[d.B]
		case DefSum:
			var total int64
			for _, v := range d.Operands {
				total += values[v]
			}
			values[d.Target] = total
		case DefExpr:
			values[d.Target] = d.Expr.Eval(values)
		case DefMax:
			best := d.Exprs[0].Eval(values)
			for _, e := range d.Exprs[1:] {
				if got := e.Eval(values); got > best {
					best = got
				}
			}
			values[d.Target] = best
		}
	}
	m.completeRanges(values)
}

// completeRanges resolves variables whose only constraints are conditional
// one-sided bounds. The feasible interval under the active bounds is
// computed and the endpoint favoring the objective direction is chosen.
func (m *Model) completeRanges(values []int64) {
	if len(m.CondBounds) == 0 {
		return
	}

	type interval struct {
		lo, hi int64
		seen   bool
	}
	intervals := make(map[Var]*interval)
	for _, cb := range m.CondBounds {
		iv, ok := intervals[cb.Var]
		if !ok {
			lo, hi := m.VarBounds(cb.Var)
			iv = &interval{lo: lo, hi: hi}
			intervals[cb.Var] = iv
		}
		iv.seen = true
		if values[cb.If] == 0 {
			continue
		}
		if cb.Upper {
			if cb.Bound < iv.hi {
				iv.hi = cb.Bound
			}
		} else {
			if cb.Bound > iv.lo {
				iv.lo = cb.Bound
			}
		}
	}

	weights := make(map[Var]float64)
	for _, t := range m.Objective {
		weights[t.Var] += t.Weight
	}

	for v, iv := range intervals {
		if !iv.seen {
			continue
		}
		// Minimizing a positively weighted range variable drives it to the
		// interval's low end; a negative weight drives it to the high end.
		if weights[v] >= 0 {
			values[v] = iv.lo
		} else {
			values[v] = iv.hi
		}
	}
}

// ObjectiveValue evaluates the objective under a complete valuation.
func (m *Model) ObjectiveValue(values []int64) float64 {
	total := 0.0
	for _, t := range m.Objective {
		total += t.Weight * float64(values[t.Var])
	}
	return total
}

// CheckStructural verifies the always-enforced constraints under a complete
// valuation. It is used by engines to validate candidate assignments and by
// tests as a sanity check.
func (m *Model) CheckStructural(values []int64) error {
	for i, c := range m.ExactlyOnes {
		var total int64
		for _, v := range c.Vars {
			total += values[v]
		}
		if total != 1 {
			return fmt.Errorf("exactly-one constraint %d violated: sum=%d", i, total)
		}
	}
	for i, c := range m.Cardinalities {
		var total int64
		for _, v := range c.Vars {
			total += values[v]
		}
		if total != c.Count {
			return fmt.Errorf("cardinality constraint %d violated: sum=%d want=%d", i, total, c.Count)
		}
	}
	return nil
}
