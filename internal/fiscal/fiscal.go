// Package fiscal implements the retail fiscal calendar used across every
// derived store: weeks run Saturday (day 1) through Friday (day 7), and the
// fiscal year begins on the Saturday closest to February 1.
package fiscal

import "time"

// Noon pins a date to local noon. All calendar math runs on noon-anchored
// dates so DST transitions and timezone midnight rounding cannot shift a
// date across a day boundary.
func Noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}

// DayOfWeek returns the fiscal day number for t: Saturday=1 .. Friday=7.
func DayOfWeek(t time.Time) int {
	// time.Weekday has Sunday=0 .. Saturday=6.
	return (int(t.Weekday())+1)%7 + 1
}

// WeekStart returns the Saturday on or before t, at local noon.
func WeekStart(t time.Time) time.Time {
	t = Noon(t)
	return t.AddDate(0, 0, -(DayOfWeek(t) - 1))
}

// FiscalYearStart returns the first day of the fiscal year t belongs to:
// the Saturday closest to February 1, ties broken toward the earlier
// Saturday. January dates belong to the previous calendar year's fiscal
// year, since the new one has not started yet.
func FiscalYearStart(t time.Time) time.Time {
	year := t.Year()
	if t.Month() == time.January {
		year--
	}

	feb1 := time.Date(year, time.February, 1, 12, 0, 0, 0, t.Location())
	if DayOfWeek(feb1) == 1 {
		return feb1
	}

	before := WeekStart(feb1)
	after := before.AddDate(0, 0, 7)
	if daysBetween(before, feb1) <= daysBetween(feb1, after) {
		return before
	}
	return after
}

// WeekNumber returns the fiscal week number of t within its fiscal year.
// Week 1 contains the fiscal year start; 53-week years occur, so callers
// must not assume a 52-week ceiling.
func WeekNumber(t time.Time) int {
	return floorDiv(daysBetween(FiscalYearStart(t), WeekStart(t)), 7) + 1
}

// daysBetween returns the whole-day distance from a to b. Both inputs are
// noon-anchored, so rounding absorbs any DST hour drift.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	if hours < 0 {
		return -int(-hours/24 + 0.5)
	}
	return int(hours/24 + 0.5)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
