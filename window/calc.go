package window

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the calendar unit a window is measured in
type Unit string

// Defining the supported calendar units
const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// ParseUnit accepts singular or plural unit names (e.g. "days", "Month")
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return u, nil
	}
	return "", fmt.Errorf("Unknown window unit \"%s\"", s)
}

// Shift returns t moved by n calendar units, keeping the wall clock time in t's location.
// Month and year shifts clamp the day of month, so Jan 31 - 1 month is the last day of February.
func Shift(t time.Time, unit Unit, n int) time.Time {
	switch unit {
	case UnitDay:
		return t.AddDate(0, 0, n)
	case UnitWeek:
		return t.AddDate(0, 0, 7*n)
	case UnitMonth:
		return shiftMonths(t, n)
	case UnitYear:
		return shiftMonths(t, 12*n)
	}
	return t
}

func shiftMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	// normalize through the first of the target month so AddDate cannot overflow into the next one
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// FloorToDay sets the time of day to 00:00:00 in t's own location (not UTC)
func FloorToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// CeilToDay sets the time of day to the last instant of the day (23:59:59.999999999) in t's own location
func CeilToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
