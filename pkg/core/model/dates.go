package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of every date string in the roster
const DateLayout = "2006-01-02"

// Weekday is a lower-case day name used as the key of recurring unavailability
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// ParseWeekday accepts a day name in any case ("Monday", "mon" is not accepted)
func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return w, nil
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// FormatDate formats a time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays returns the date n days after date
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// WeekdayOf returns the weekday of a YYYY-MM-DD date
func WeekdayOf(date string) (Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return Weekday(strings.ToLower(t.Weekday().String())), nil
}

// DaysBetween returns the number of days from a to b (negative if b is before a)
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
