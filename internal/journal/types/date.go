package types

import (
	"time"

	"github.com/xtxerr/daylog/internal/validation"
)

// Date is a calendar date in canonical YYYY-MM-DD form.
//
// The canonical layout sorts lexicographically in chronological order, so
// Date values compare directly with < and >.
type Date string

// ParseDate parses and validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if err := validation.ValidateDate(s); err != nil {
		return "", err
	}
	return Date(s), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(validation.DateLayout))
}

// Time returns midnight of the date in the local timezone.
// The zero Date returns the zero time.
func (d Date) Time() time.Time {
	if d == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(validation.DateLayout, string(d), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is chronologically before other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is chronologically after other.
func (d Date) After(other Date) bool { return d > other }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string { return string(d) }
