// Package schedule computes next-run dates for recurring rules. It is pure
// date arithmetic: no storage, no clock reads, no side effects. Rule
// management recomputes dates through these functions whenever a rule's
// schedule-affecting fields change; actually executing a due rule belongs to
// an external scheduler.
package schedule

import (
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// Params carries the schedule-affecting fields of a rule. DayOfMonth is only
// meaningful for MONTHLY rules, DayOfWeek (with HasDayOfWeek) for WEEKLY.
type Params struct {
	Frequency    core.Frequency
	Interval     int
	DayOfMonth   int
	DayOfWeek    time.Weekday
	HasDayOfWeek bool
}

// InitialNextRun computes the first run date after startDate. The initial run
// is never the start date itself: a WEEKLY rule starting on its target weekday
// jumps a full interval of weeks ahead.
func InitialNextRun(startDate time.Time, p Params) time.Time {
	switch p.Frequency {
	case core.Daily:
		return startDate.AddDate(0, 0, p.Interval)
	case core.Weekly:
		daysAhead := (int(p.DayOfWeek) - int(startDate.Weekday()) + 7) % 7
		if daysAhead == 0 {
			daysAhead = 7 * p.Interval
		}
		return startDate.AddDate(0, 0, daysAhead)
	case core.Monthly:
		return addMonthsClamped(startDate, p.Interval, p.DayOfMonth)
	case core.Yearly:
		return addYearsClamped(startDate, p.Interval)
	}
	return startDate
}

// NextRun advances a previously computed next-run date by one interval. The
// WEEKLY step is a plain interval of weeks; the weekday search only happens on
// the initial computation. The result is strictly after prev for any valid
// frequency and interval >= 1.
func NextRun(prev time.Time, p Params) time.Time {
	switch p.Frequency {
	case core.Daily:
		return prev.AddDate(0, 0, p.Interval)
	case core.Weekly:
		return prev.AddDate(0, 0, 7*p.Interval)
	case core.Monthly:
		return addMonthsClamped(prev, p.Interval, p.DayOfMonth)
	case core.Yearly:
		return addYearsClamped(prev, p.Interval)
	}
	return prev
}

// IsExpired reports whether a rule with the given end date has passed it.
// A nil end date never expires.
func IsExpired(endDate *time.Time, now time.Time) bool {
	return endDate != nil && now.After(*endDate)
}

// addMonthsClamped adds months and then pins the day to
// min(dayOfMonth, length of the target month), so a day-31 rule lands on
// Feb 28/29 rather than rolling into March. A zero dayOfMonth keeps the
// source day, clamped the same way.
func addMonthsClamped(d time.Time, months, dayOfMonth int) time.Time {
	if dayOfMonth == 0 {
		dayOfMonth = d.Day()
	}
	year, month, _ := d.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	day := dayOfMonth
	if max := daysIn(first.Year(), first.Month()); day > max {
		day = max
	}
	return first.AddDate(0, 0, day-1)
}

// addYearsClamped keeps the same month and day, clamping Feb 29 to Feb 28 on
// non-leap target years instead of normalizing into March.
func addYearsClamped(d time.Time, years int) time.Time {
	year, month, day := d.Date()
	year += years
	if max := daysIn(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
