package calendar

import (
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the inclusive day range [Start, End] that Day, Week and Month
// views aggregate over.
type Period struct {
	Start DateKey
	End   DateKey
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d DateKey) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day of the period in order.
func (p Period) Days() []DateKey {
	var days []DateKey
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD CALCULATORS
// =============================================================================

// DayOf is the single-day period of d.
func DayOf(d DateKey) Period {
	return Period{Start: d, End: d}
}

// StartOfWeek returns the first day of d's week, weeks beginning on weekStart.
func StartOfWeek(d DateKey, weekStart time.Weekday) DateKey {
	offset := WeekdayIndex(d.Weekday(), weekStart)
	return d.AddDays(-offset)
}

// EndOfWeek returns the last day of d's week (six days after its start).
func EndOfWeek(d DateKey, weekStart time.Weekday) DateKey {
	return StartOfWeek(d, weekStart).AddDays(6)
}

// WeekOf is the seven-day period containing d.
func WeekOf(d DateKey, weekStart time.Weekday) Period {
	return Period{Start: StartOfWeek(d, weekStart), End: EndOfWeek(d, weekStart)}
}

// MonthOf is the calendar month containing d.
func MonthOf(d DateKey) Period {
	return Period{Start: StartOfMonth(d.Year(), d.Month()), End: EndOfMonth(d.Year(), d.Month())}
}

func StartOfMonth(year int, month time.Month) DateKey { return NewDateKey(year, month, 1) }
func EndOfMonth(year int, month time.Month) DateKey   { return NewDateKey(year, month+1, 0) }

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// WeekdayIndex is the position of wd in a week that begins on weekStart (0..6).
func WeekdayIndex(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}
