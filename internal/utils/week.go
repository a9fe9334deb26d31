// Week arithmetic helpers.
//
// Check-ins are keyed by the Monday of their calendar week, normalized to
// UTC midnight. All week math lives here so the rest of the codebase never
// reimplements weekday offsets.
package utils

import (
	"errors"
	"time"
)

// DateLayout is the wire format for date-only values (week starts, diary
// entry dates).
const DateLayout = "2006-01-02"

// ErrBadDate is returned by ParseDate for values not matching DateLayout.
var ErrBadDate = errors.New("date must be formatted YYYY-MM-DD")

// WeekStart returns the Monday of t's week at UTC midnight. Sunday belongs
// to the week that started the previous Monday.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	// time.Weekday puts Sunday at 0; shift so Monday is 0.
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// ParseDate parses a YYYY-MM-DD value into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return t, nil
}

// ParseWeekStart parses a YYYY-MM-DD value and normalizes it to the Monday
// of its week. Clients may submit any day of the intended week.
func ParseWeekStart(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return WeekStart(t), nil
}
