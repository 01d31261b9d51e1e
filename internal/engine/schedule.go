// Package engine implements the cash-flow projection and bill-scheduling
// engine: date/recurrence resolution, budget aggregation, the 4-week
// projection, insight derivation, and normalization of external updates.
// Everything in this package is a pure function of its inputs so the same
// numbers can be re-derived identically by the API, the CSV export and the
// reminder batch job.
package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	weekLabelRe   = regexp.MustCompile(`(?i)week\s*(\d{1,2})`)
	firstNumberRe = regexp.MustCompile(`(?:^|[^0-9])(\d{1,2})(?:[^0-9]|$)`)
	monthDayRe    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// WeekIndexOf buckets a bill schedule into a week of the month, 1..4.
// It is total: any input, including garbage, resolves to a valid week.
// Unparseable input degrades to week 1 rather than failing, so stale or
// hand-typed schedule labels never block rendering.
func WeekIndexOf(dateLabel string, recurringDay *int) int {
	if recurringDay != nil {
		return weekOfDay(clampDay(*recurringDay))
	}

	label := strings.TrimSpace(dateLabel)
	if m := isoDateRe.FindStringSubmatch(label); m != nil {
		day, _ := strconv.Atoi(m[3])
		return weekOfDay(clampDay(day))
	}
	if m := weekLabelRe.FindStringSubmatch(label); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			n = 1
		}
		if n > 4 {
			n = 4
		}
		return n
	}
	// Standalone 1-2 digit numbers only; a year like "2024" is not a day.
	if m := firstNumberRe.FindStringSubmatch(label); m != nil {
		day, _ := strconv.Atoi(m[1])
		return weekOfDay(clampDay(day))
	}
	return 1
}

// BillWeek buckets a bill into its week of the month.
func BillWeek(b domain.BudgetBill) int {
	return WeekIndexOf(b.Date, b.RecurringDay)
}

// weekOfDay maps a day of month to a coarse week bucket.
func weekOfDay(day int) int {
	switch {
	case day <= 7:
		return 1
	case day <= 14:
		return 2
	case day <= 21:
		return 3
	default:
		return 4
	}
}

func clampDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > 31 {
		return 31
	}
	return day
}

// NextRecurringDate resolves a monthly recurring day to its next occurrence
// on or after ref, clamped to the last day of shorter months.
func NextRecurringDate(day int, ref time.Time) time.Time {
	day = clampDay(day)
	year, month, _ := ref.Date()

	due := time.Date(year, month, clampToMonth(day, year, month), 0, 0, 0, 0, ref.Location())
	if due.Before(startOfDay(ref)) {
		year, month = nextMonth(year, month)
		due = time.Date(year, month, clampToMonth(day, year, month), 0, 0, 0, 0, ref.Location())
	}
	return due
}

// ResolveDueDate resolves a bill to a concrete due date for reminders.
// Priority: explicit ISO date > recurring day > "Mon D" month-name label.
// Returns false when no date can be derived; the caller treats the bill as
// unscheduled rather than guessing.
func ResolveDueDate(b domain.BudgetBill, ref time.Time) (time.Time, bool) {
	label := strings.TrimSpace(b.Date)

	if m := isoDateRe.FindStringSubmatch(label); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 {
			mo := time.Month(month)
			return time.Date(year, mo, clampToMonth(day, year, mo), 0, 0, 0, 0, ref.Location()), true
		}
	}

	if b.RecurringDay != nil {
		return NextRecurringDate(*b.RecurringDay, ref), true
	}

	if m := monthDayRe.FindStringSubmatch(label); m != nil {
		mo := monthIndex[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year := ref.Year()
		due := time.Date(year, mo, clampToMonth(day, year, mo), 0, 0, 0, 0, ref.Location())
		if due.Before(startOfDay(ref)) {
			due = time.Date(year+1, mo, clampToMonth(day, year+1, mo), 0, 0, 0, 0, ref.Location())
		}
		return due, true
	}

	return time.Time{}, false
}

// DaysUntil counts calendar days from ref to due in ref's location.
// Both ends are taken at local start of day, so the count is stable across
// the time of day, the zone's offset from UTC, and DST transitions.
func DaysUntil(due, ref time.Time) int {
	d := startOfDay(due).Sub(startOfDay(ref))
	return int(math.Round(d.Hours() / 24))
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampToMonth(day, year int, month time.Month) int {
	if max := daysInMonth(year, month); day > max {
		return max
	}
	return day
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
