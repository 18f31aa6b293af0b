// Package roster ingests participant and constraint files. CSV and JSON
// uploads are supported; CSV columns whose name ends in "_list" are split
// on ";" into multi-valued attributes, and numeric-looking cells become
// numbers.
package roster

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/worktime"
)

// Column conventions carried over from the interchange format.
const (
	listSuffix    = "_list"
	listSeparator = ";"

	timeZoneColumn     = "time_zone"
	workingTimeColumn  = "working_time"
	workingHoursColumn = "working_hour_list"
)

// ParseParticipantsCSV reads a roster CSV with a header row, one
// participant per data row.
func ParseParticipantsCSV(r io.Reader) ([]model.Participant, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading roster header: %v", ErrBadRoster, err)
	}

	var people []model.Participant
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading roster row %d: %v", ErrBadRoster, row, err)
		}

		raw := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(record) {
				break
			}
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			raw[col] = parseCell(col, cell)
		}

		p, err := model.ParseParticipant(raw, strconv.Itoa(row))
		if err != nil {
			return nil, fmt.Errorf("roster row %d: %w", row, err)
		}
		people = append(people, p)
	}
	return people, nil
}

// parseCell types a CSV cell: list columns split on the separator, numeric
// cells become numbers, everything else stays a string.
func parseCell(col, cell string) any {
	if strings.HasSuffix(col, listSuffix) {
		parts := strings.Split(cell, listSeparator)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n
	}
	return cell
}

// ParseParticipantsJSON reads a roster as a JSON array of attribute maps.
func ParseParticipantsJSON(r io.Reader) ([]model.Participant, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding roster: %v", ErrBadRoster, err)
	}

	people := make([]model.Participant, 0, len(rows))
	for i, raw := range rows {
		p, err := model.ParseParticipant(raw, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		people = append(people, p)
	}
	return people, nil
}

// constraintRow is the wire shape of one constraint.
type constraintRow struct {
	Attribute string  `json:"attribute"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
}

// ParseConstraintsCSV reads constraints from a CSV with attribute, type and
// weight columns.
func ParseConstraintsCSV(r io.Reader) ([]model.Constraint, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading constraints header: %v", ErrBadConstraints, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"attribute", "type", "weight"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadConstraints, required)
		}
	}

	var rows []constraintRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading constraints row %d: %v", ErrBadConstraints, i, err)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(record[col["weight"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: constraint row %d: bad weight %q", ErrBadConstraints, i, record[col["weight"]])
		}
		rows = append(rows, constraintRow{
			Attribute: strings.TrimSpace(record[col["attribute"]]),
			Type:      strings.TrimSpace(record[col["type"]]),
			Weight:    weight,
		})
	}
	return toConstraints(rows)
}

// ParseConstraintsJSON reads constraints from a JSON array.
func ParseConstraintsJSON(r io.Reader) ([]model.Constraint, error) {
	var rows []constraintRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding constraints: %v", ErrBadConstraints, err)
	}
	return toConstraints(rows)
}

func toConstraints(rows []constraintRow) ([]model.Constraint, error) {
	out := make([]model.Constraint, 0, len(rows))
	for i, row := range rows {
		ct, err := model.ParseConstraintType(row.Type)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		out = append(out, model.Constraint{
			Attribute: row.Attribute,
			Type:      ct,
			Weight:    row.Weight,
		})
	}
	return out, nil
}

// AddWorkingHours derives the working_hour_list attribute from each
// participant's time_zone and working_time attributes. Participants
// missing either column are left untouched.
func AddWorkingHours(people []model.Participant, ref time.Time) error {
	for i := range people {
		tz, okTZ := people[i].Raw[timeZoneColumn].(string)
		wt, okWT := people[i].Raw[workingTimeColumn].(string)
		if !okTZ || !okWT {
			continue
		}

		hours, err := worktime.Hours(tz, wt, ref)
		if err != nil {
			return fmt.Errorf("participant %s: %w", people[i].ID, err)
		}
		list := make([]string, len(hours))
		for j, h := range hours {
			list[j] = strconv.Itoa(h)
		}
		people[i].Attrs[workingHoursColumn] = model.ListValue(list)
		people[i].Raw[workingHoursColumn] = strings.Join(list, listSeparator)
	}
	return nil
}
