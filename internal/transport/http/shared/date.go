package shared

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	dateReason = "must be a valid date in YYYY-MM-DD format"
)

// ParseDate reads a calendar date. Full RFC3339 timestamps are accepted and
// truncated to their UTC day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		y, m, d := ts.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateLayout, value)
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	day, err := ParseDate(raw)
	if err != nil || day.Year() < 1900 {
		v.Add(field, dateReason)
		return time.Time{}, false
	}
	return day, true
}

// OptionalDate is Date for fields that may be left out; absent or invalid
// input yields nil.
func (v *Validator) OptionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if day, ok := v.Date(field, raw); ok {
		return &day
	}
	return nil
}

// DateOrder flags both fields when end falls before start.
func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must be on or before "+endField)
	v.Add(endField, "must be on or after "+startField)
}
