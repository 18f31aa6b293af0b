// Package worktime converts named working periods in a local time zone
// into UTC start hours, so overlap constraints can compare participants
// across time zones.
package worktime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// workingHours maps period names to their local start hours.
var workingHours = map[string][]int{
	"Morning":   {7, 8, 9, 10, 11},
	"Afternoon": {12, 13, 14, 15, 16, 17},
	"Evening":   {18, 19, 20, 21, 22},
}

// Separators for multi-period inputs and hour-list outputs.
const (
	periodSeparator = "; "
	hourSeparator   = ";"
)

// Hours converts a time zone name and a "; "-separated list of period
// names into UTC start hours on the reference date. The reference date
// matters because offsets shift with daylight saving.
func Hours(timeZone, periods string, ref time.Time) ([]int, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownZone, timeZone, err)
	}

	var hours []int
	for _, period := range strings.Split(periods, periodSeparator) {
		starts, ok := workingHours[period]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPeriod, period)
		}
		for _, h := range starts {
			local := time.Date(ref.Year(), ref.Month(), ref.Day(), h, 0, 0, 0, loc)
			hours = append(hours, local.UTC().Hour())
		}
	}
	return hours, nil
}

// HourList renders the UTC start hours as a ";"-joined list value, the
// form multi-valued roster attributes use.
func HourList(timeZone, periods string, ref time.Time) (string, error) {
	hours, err := Hours(timeZone, periods, ref)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, hourSeparator), nil
}
