// Package encode turns constrained participant attributes into canonical
// finite value domains plus fixed per-participant membership flags.
package encode

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/okian/cohort/internal/domain/model"
)

// Encoding holds the canonical domain for one categorical attribute and the
// membership flags derived from the participant data. Membership is fixed
// input to the optimization model, not a free variable.
type Encoding struct {
	// Attribute is the encoded attribute name.
	Attribute string

	// Domain is the sorted, de-duplicated list of observed values.
	Domain []string

	// Multi reports whether any participant holds a value list for the
	// attribute ("has" semantics instead of "is").
	Multi bool

	// Membership[p][v] is true when participant p's value set contains
	// Domain[v].
	Membership [][]bool
}

// VarName returns the canonical boolean variable name for a domain value,
// e.g. "job_function_is_manager" or "working_time_has_05_10".
func (e *Encoding) VarName(valueIndex int) string {
	verb := "is"
	if e.Multi {
		verb = "has"
	}
	return fmt.Sprintf("%s_%s_%s", e.Attribute, verb, slug(e.Domain[valueIndex]))
}

// Distribution returns the population-wide proportion of each domain value,
// indexed like Domain. Multi-valued participants contribute one count per
// held value; proportions are normalized over total value occurrences.
func (e *Encoding) Distribution() []float64 {
	counts := make([]int, len(e.Domain))
	total := 0
	for _, row := range e.Membership {
		for v, has := range row {
			if has {
				counts[v]++
				total++
			}
		}
	}
	dist := make([]float64, len(e.Domain))
	if total == 0 {
		return dist
	}
	for v, c := range counts {
		dist[v] = float64(c) / float64(total)
	}
	return dist
}

// Categorical encodes an attribute across all participants. Every
// participant must carry a value; a missing value fails with the
// missing-attribute-value kind.
func Categorical(attr string, participants []model.Participant) (*Encoding, error) {
	seen := make(map[string]bool)
	multi := false
	sets := make([][]string, len(participants))
	for i, p := range participants {
		v, ok := p.Attrs[attr]
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q missing for participant %s",
				model.ErrMissingValue, attr, p.ID)
		}
		if v.Kind() == model.KindMulti {
			multi = true
		}
		set := v.Set()
		sets[i] = set
		for _, val := range set {
			seen[val] = true
		}
	}

	domain := make([]string, 0, len(seen))
	for val := range seen {
		domain = append(domain, val)
	}
	sort.Strings(domain)

	index := make(map[string]int, len(domain))
	for i, val := range domain {
		index[val] = i
	}

	membership := make([][]bool, len(participants))
	for i, set := range sets {
		row := make([]bool, len(domain))
		for _, val := range set {
			row[index[val]] = true
		}
		membership[i] = row
	}

	return &Encoding{
		Attribute:  attr,
		Domain:     domain,
		Multi:      multi,
		Membership: membership,
	}, nil
}

// Numeric extracts the integer value of a numeric attribute for every
// participant, for use by cluster_numeric constraints. Missing values fail
// with the missing-attribute-value kind; categorical or non-integral values
// fail validation.
func Numeric(attr string, participants []model.Participant) ([]int64, error) {
	out := make([]int64, len(participants))
	for i, p := range participants {
		v, ok := p.Attrs[attr]
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q missing for participant %s",
				model.ErrMissingValue, attr, p.ID)
		}
		if _, isNum := v.Number(); !isNum {
			return nil, fmt.Errorf("%w: attribute %q is not numeric for participant %s",
				model.ErrValidation, attr, p.ID)
		}
		n, err := v.Int()
		if err != nil {
			return nil, fmt.Errorf("attribute %q, participant %s: %w", attr, p.ID, err)
		}
		out[i] = n
	}
	return out, nil
}

// slug lowercases a value and collapses non-alphanumeric runs to single
// underscores, mirroring the canonical variable naming scheme.
func slug(value string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return b.String()
}
