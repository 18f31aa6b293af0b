// Package model contains the domain types shared between layers:
// participants with typed attribute values, weighted constraints, and the
// validated assignment request.
package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValueKind discriminates the attribute value union.
type ValueKind int

const (
	// KindSingle is a single categorical value ("is" semantics).
	KindSingle ValueKind = iota
	// KindMulti is a list of acceptable categorical values ("has" semantics).
	KindMulti
	// KindNumeric is a numeric value.
	KindNumeric
)

// Value is a participant attribute value: single categorical, multi-valued
// categorical, or numeric. Values are validated once at ingestion and are
// immutable afterwards.
type Value struct {
	kind   ValueKind
	single string
	multi  []string
	num    float64
}

// StringValue builds a single categorical value.
func StringValue(s string) Value { return Value{kind: KindSingle, single: s} }

// ListValue builds a multi-valued categorical value.
func ListValue(vals []string) Value {
	cp := make([]string, len(vals))
	copy(cp, vals)
	return Value{kind: KindMulti, multi: cp}
}

// NumberValue builds a numeric value.
func NumberValue(f float64) Value { return Value{kind: KindNumeric, num: f} }

// Kind reports which branch of the union the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// Set returns the categorical value set: a singleton for single values, the
// list for multi values, and the formatted number for numerics.
func (v Value) Set() []string {
	switch v.kind {
	case KindMulti:
		return v.multi
	case KindNumeric:
		return []string{formatNumber(v.num)}
	default:
		return []string{v.single}
	}
}

// Number returns the numeric value and whether the value is numeric.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// Int returns the value as an integer. It fails for non-numeric or
// non-integral values; cluster_numeric constraints require integers.
func (v Value) Int() (int64, error) {
	if v.kind != KindNumeric {
		return 0, fmt.Errorf("%w: value is not numeric", ErrValidation)
	}
	if v.num != math.Trunc(v.num) {
		return 0, fmt.Errorf("%w: numeric value %v is not an integer", ErrValidation, v.num)
	}
	return int64(v.num), nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// ParseValue converts a decoded JSON value into a Value. Supported shapes:
// string, number, bool, and homogeneous lists of strings or numbers.
func ParseValue(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case bool:
		return StringValue(fmt.Sprintf("%t", t)), nil
	case []string:
		return ListValue(t), nil
	case []any:
		vals := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				vals = append(vals, s)
			case float64:
				vals = append(vals, formatNumber(s))
			default:
				return Value{}, fmt.Errorf("%w: unsupported list element %T", ErrValidation, item)
			}
		}
		return ListValue(vals), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported attribute value %T", ErrValidation, raw)
	}
}

// Participant is one member of the population: an identifier, the typed
// attribute values, and the raw attribute map as received (echoed back in
// responses). Immutable for the duration of a solve.
type Participant struct {
	ID    string
	Attrs map[string]Value
	Raw   map[string]any
}

// Has reports whether the participant carries the named attribute.
func (p Participant) Has(attr string) bool {
	_, ok := p.Attrs[attr]
	return ok
}

// ParseParticipant ingests a raw attribute map. The identifier is taken
// from an "id" field when present, else from the provided fallback.
func ParseParticipant(raw map[string]any, fallbackID string) (Participant, error) {
	if len(raw) == 0 {
		return Participant{}, fmt.Errorf("%w: participant has no attributes", ErrValidation)
	}
	p := Participant{
		ID:    fallbackID,
		Attrs: make(map[string]Value, len(raw)),
		Raw:   raw,
	}
	for name, rv := range raw {
		if rv == nil {
			// Recorded as absent; constrained attributes reject this later.
			continue
		}
		v, err := ParseValue(rv)
		if err != nil {
			return Participant{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		p.Attrs[name] = v
	}
	if idVal, ok := p.Attrs["id"]; ok {
		p.ID = strings.Join(idVal.Set(), ",")
	}
	return p, nil
}

// ConstraintType enumerates the supported composition goals.
type ConstraintType string

const (
	Diversify      ConstraintType = "diversify"
	Cluster        ConstraintType = "cluster"
	ClusterNumeric ConstraintType = "cluster_numeric"
	Different      ConstraintType = "different"
)

// ParseConstraintType validates a constraint type string.
func ParseConstraintType(s string) (ConstraintType, error) {
	switch ConstraintType(s) {
	case Diversify, Cluster, ClusterNumeric, Different:
		return ConstraintType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown constraint type %q", ErrValidation, s)
	}
}

// Constraint is one weighted composition goal over a participant attribute.
type Constraint struct {
	Attribute string
	Type      ConstraintType
	Weight    float64
}

// Request is a fully validated team assignment request.
type Request struct {
	Participants   []Participant
	Constraints    []Constraint
	TargetTeamSize int
	LessThanTarget bool
	MaxTimeSeconds int
}

// MinTargetTeamSize is the smallest accepted target team size, exclusive.
const MinTargetTeamSize = 2

// Validate checks the request invariants. It must pass before any model
// construction; failures map to the validation error kind.
func (r Request) Validate() error {
	if len(r.Participants) == 0 {
		return fmt.Errorf("%w: participants must not be empty", ErrValidation)
	}
	if r.TargetTeamSize <= MinTargetTeamSize {
		return fmt.Errorf("%w: target_team_size must be greater than %d", ErrValidation, MinTargetTeamSize)
	}
	if r.MaxTimeSeconds <= 0 {
		return fmt.Errorf("%w: max_time must be positive", ErrValidation)
	}

	known := make(map[string]bool)
	for _, p := range r.Participants {
		for name := range p.Attrs {
			known[name] = true
		}
	}

	for _, c := range r.Constraints {
		if _, err := ParseConstraintType(string(c.Type)); err != nil {
			return err
		}
		if c.Weight <= 0 {
			return fmt.Errorf("%w: constraint %q weight must be positive", ErrValidation, c.Attribute)
		}
		if !known[c.Attribute] {
			return fmt.Errorf("%w: constraint attribute %q does not exist in any participant (available: %s)",
				ErrValidation, c.Attribute, strings.Join(sortedKeys(known), ", "))
		}
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
