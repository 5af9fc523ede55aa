package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date returns the calendar date of t in t's location, as midnight UTC.
// All calendar arithmetic in this package works on values produced by Date or ParseDate.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats a calendar date, returning "" for the zero value.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysBetween returns to - from in whole calendar days.
// Both arguments must be dates (midnight UTC).
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// WeekAnchor returns the Monday on or before d.
func WeekAnchor(d time.Time) time.Time {
	day := Date(d)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// MonthAnchor returns the first day of d's month.
func MonthAnchor(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
