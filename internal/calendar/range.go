package calendar

import (
	"fmt"
	"time"
)

// StartOfDay is 00:00:00.000 of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is 23:59:59.999 of t's day in t's location
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// isoWeekday maps Monday..Sunday to 1..7
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekRange returns Monday 00:00:00.000 through Sunday 23:59:59.999 of the week containing t.
// Sunday belongs to the week that started the Monday before it.
func WeekRange(t time.Time) (start, end time.Time) {
	start = StartOfDay(t).AddDate(0, 0, -(isoWeekday(t) - 1))
	end = EndOfDay(start.AddDate(0, 0, 6))
	return start, end
}

// MonthRange returns the first day 00:00:00.000 through the last day 23:59:59.999 of t's month
func MonthRange(t time.Time) (start, end time.Time) {
	y, m, _ := t.Date()
	start = time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	end = EndOfDay(start.AddDate(0, 1, -1))
	return start, end
}

// InRange reports whether t's day lies within [start, end].
// t and start are compared at start of day, end at end of day.
func InRange(t, start, end time.Time) bool {
	day := StartOfDay(t)
	return !day.Before(StartOfDay(start)) && !day.After(EndOfDay(end))
}

// MonthKey is "YYYY-MM"
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// FormatRange renders a compact label for a date span:
//
//	Jan 1 - 7, 2024
//	Jan 28 - Feb 3, 2024
//	Dec 30, 2023 - Jan 5, 2024
func FormatRange(start, end time.Time) string {
	switch {
	case start.Year() == end.Year() && start.Month() == end.Month():
		return fmt.Sprintf("%s %d - %d, %d", start.Format("Jan"), start.Day(), end.Day(), end.Year())
	case start.Year() == end.Year():
		return fmt.Sprintf("%s - %s, %d", start.Format("Jan 2"), end.Format("Jan 2"), end.Year())
	default:
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	}
}
