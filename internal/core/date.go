package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire format used by ranges and query parameters.
const DateLayout = "2006-01-02"

// Date is a point in time that fails loudly when parsed from malformed input.
// Date-only values are midnight UTC, matching how the dashboard serializes them.
type Date struct {
	time.Time
}

// DateError reports a value that could not be parsed as a date.
type DateError struct {
	Field string
	Value string
}

func (e *DateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s %q: expected YYYY-MM-DD or RFC 3339", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD or RFC 3339", e.Value)
}

// ParseDate accepts YYYY-MM-DD and RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date{Time: t}, nil
	}
	return Date{}, &DateError{Value: s}
}

// ParseDateField is ParseDate with the offending field name attached to the error.
func ParseDateField(field, s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, &DateError{Field: field, Value: strings.TrimSpace(s)}
	}
	return d, nil
}

// NewDate creates a midnight date in loc.
func NewDate(year int, month time.Month, day int, loc *time.Location) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// String renders date-only values as YYYY-MM-DD and everything else as RFC 3339.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	h, m, s := d.Clock()
	if h == 0 && m == 0 && s == 0 && d.Nanosecond() == 0 {
		return d.Format(DateLayout)
	}
	return d.Format(time.RFC3339)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DateError{Value: string(data)}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CivilDay numbers t's calendar day as written in its own offset. Dates
// recorded in different zones compare by the day a person wrote down.
func CivilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last instant of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

func (r DateRange) Validate() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return ErrMissingDate
	}
	if r.StartDate.After(r.EndDate.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether t's calendar day falls within the range, the end
// day included in full.
func (r DateRange) Contains(t time.Time) bool {
	day := CivilDay(t)
	return day >= CivilDay(r.StartDate.Time) && day <= CivilDay(r.EndDate.Time)
}
