// Package derive holds the pure field-derivation helpers shared by the
// form state, the validator and the persistence mapper. Nothing in here
// touches the database or the clock beyond an injectable reference date.
package derive

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts produced by the input widgets. ISO is what the date
// picker emits and what the store expects; the slash form comes from
// free-text entry.
const (
	layoutISO   = "2006-01-02"
	layoutSlash = "02/01/2006"
)

// ParseDate parses a date of birth in either accepted shape
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(layoutISO, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(layoutSlash, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// NormalizeDate converts either accepted shape to the canonical ISO form
// the store requires. Empty input normalizes to the empty string; junk
// is an error rather than a silent passthrough.
func NormalizeDate(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return t.Format(layoutISO), nil
}

// ComputeAgeAt returns the whole years between birthDate and ref:
// the year difference, minus one when ref's (month, day) falls before
// the birthday. Empty or unparseable input yields 0 rather than an
// error, matching the behavior the form always had (see DESIGN.md).
func ComputeAgeAt(birthDate string, ref time.Time) int {
	birth, err := ParseDate(birthDate)
	if err != nil {
		return 0
	}

	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() ||
		(ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}

	if age < 0 {
		return 0
	}
	return age
}

// ComputeAge is ComputeAgeAt against today
func ComputeAge(birthDate string) int {
	return ComputeAgeAt(birthDate, time.Now())
}

// IsDigits reports whether value is non-empty and consists only of
// decimal digits. No "+", spaces or hyphens. Whether an empty value is
// acceptable is the caller's per-field policy, not this predicate's.
func IsDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UppercaseName upper-cases a free-text name or place value before it is
// stored or redisplayed. Callers must only apply it to text fields;
// enum and numeric values are stored as entered.
func UppercaseName(value string) string {
	return strings.ToUpper(value)
}
