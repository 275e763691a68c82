package billing

import (
	"fmt"
	"regexp"
	"time"
)

// Month keys are literal "YYYY-MM" strings, zero-padded, with no
// timezone component. They compare and sort as plain strings.
var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether key is a well-formed month key.
func ValidMonth(key string) bool {
	return monthKeyPattern.MatchString(key)
}

// ParseMonth validates a month key and returns the first instant of
// that month in the given location.
func ParseMonth(key string, loc *time.Location) (time.Time, error) {
	if !ValidMonth(key) {
		return time.Time{}, fmt.Errorf("billing: invalid month key %q", key)
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01", key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing: invalid month key %q: %w", key, err)
	}
	return t, nil
}

// MonthRange returns the [start, end) instants covering the month.
func MonthRange(key string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseMonth(key, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

// MonthKeyOf formats an instant as the month key of its calendar month.
func MonthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

// DisplayDate renders a session date the way the therapist reads it,
// D/M/YY without zero padding.
func DisplayDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%02d", t.Day(), int(t.Month()), t.Year()%100)
}
