// Package validation provides centralized input validation for daylog.
package validation

import (
	"fmt"
	"math"
	"time"
	"unicode"

	"github.com/xtxerr/daylog/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for entry and metric names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowSpaces  bool
	AllowHyphens bool
	AllowUnders  bool
}

// EntryNameRules returns the rules for entry names.
func EntryNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    255,
		AllowSpaces:  true,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// MetricNameRules returns the rules for metric keys.
func MetricNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    64,
		AllowSpaces:  false,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required: %w",
			rules.MinLength, errors.ErrInvalidName)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed: %w",
			rules.MaxLength, errors.ErrInvalidName)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d: %w",
				i, errors.ErrInvalidName)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character %q at position %d: %w", r, i, errors.ErrInvalidName)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ':
		return rules.AllowSpaces
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// =============================================================================
// Metric Validation
// =============================================================================

// ValidateMetrics validates a metric map. At least one metric is required,
// every key must be a valid metric name and every value a finite number.
func ValidateMetrics(metrics map[string]float64) error {
	if len(metrics) == 0 {
		return fmt.Errorf("at least one metric required: %w", errors.ErrInvalidMetric)
	}

	for name, value := range metrics {
		if err := ValidateName(name, MetricNameRules()); err != nil {
			return fmt.Errorf("metric %q: %w", name, errors.ErrInvalidMetric)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("metric %q: value must be finite: %w", name, errors.ErrInvalidMetric)
		}
		if value < 0 {
			return fmt.Errorf("metric %q: value must be non-negative: %w", name, errors.ErrInvalidMetric)
		}
	}

	return nil
}

// =============================================================================
// Date Validation
// =============================================================================

// DateLayout is the canonical calendar-date layout for bucket and archive keys.
const DateLayout = "2006-01-02"

// ValidateDate checks that s is a well-formed calendar date (YYYY-MM-DD).
func ValidateDate(s string) error {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("%q is not a YYYY-MM-DD date: %w", s, errors.ErrInvalidDate)
	}
	// time.Parse is lenient about zero-padding in some layouts; require the
	// round trip to be exact so keys stay canonical.
	if t.Format(DateLayout) != s {
		return fmt.Errorf("%q is not canonical YYYY-MM-DD: %w", s, errors.ErrInvalidDate)
	}
	return nil
}

// ValidateOwnerID checks that an owner identifier is present and sane.
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" {
		return errors.NewMissingField("owner_id")
	}
	if len(ownerID) > 255 {
		return fmt.Errorf("owner_id too long: %w", errors.ErrInvalidName)
	}
	return nil
}
