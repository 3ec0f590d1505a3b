package schedule

import (
	"fmt"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// Describe renders a human-readable schedule, e.g. "Every 2 weeks on Friday"
// or "Every month on the 31st".
func Describe(p Params) string {
	unit := ""
	switch p.Frequency {
	case core.Daily:
		unit = "day"
	case core.Weekly:
		unit = "week"
	case core.Monthly:
		unit = "month"
	case core.Yearly:
		unit = "year"
	default:
		return string(p.Frequency)
	}

	base := "Every " + unit
	if p.Interval > 1 {
		base = fmt.Sprintf("Every %d %ss", p.Interval, unit)
	}

	switch p.Frequency {
	case core.Weekly:
		if p.HasDayOfWeek {
			return base + " on " + p.DayOfWeek.String()
		}
	case core.Monthly:
		if p.DayOfMonth > 0 {
			return fmt.Sprintf("%s on the %d%s", base, p.DayOfMonth, ordinal(p.DayOfMonth))
		}
	}
	return base
}

// StatusDescription summarizes a rule's lifecycle for display.
func StatusDescription(active bool, endDate *time.Time, now time.Time) string {
	if !active {
		return "Inactive"
	}
	if IsExpired(endDate, now) {
		return "Expired"
	}
	return "Active"
}

func ordinal(n int) string {
	if n >= 11 && n <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
