/*
grid.go - Week-aligned month grids

PURPOSE:
  Builds the cells a month view renders: the tail of the previous month up
  to the first week boundary, every day of the month, then days of the
  following month until the grid is made of whole weeks.

EXAMPLE (February 2024, weeks starting Sunday):
  Jan 28 29 30 31 | Feb 1 2 3
  Feb 4 .. 10
  ...
  Feb 25 .. 29    | Mar 1 2       -> 35 cells

SEE ALSO:
  - period.go: WeekdayIndex, DaysIn
*/
package calendar

import "time"

// Years accepted by BuildGrid. A December grid of MaxYear still has room
// for its trailing January cells.
const (
	MinYear = 1
	MaxYear = 9998
)

// Cell is one day of a month grid.
type Cell struct {
	Date           DateKey `json:"date"`
	InCurrentMonth bool    `json:"in_current_month"`
}

// MonthGrid is a sequence of cells whose length is a multiple of 7.
type MonthGrid []Cell

// BuildGrid returns the grid for month of year. Leading cells are the
// previous month's last days; trailing cells are the next month's first days.
func BuildGrid(year int, month time.Month, weekStart time.Weekday) (MonthGrid, error) {
	if year < MinYear || year > MaxYear {
		return nil, invalid("year", year, ErrInvalidYear)
	}
	if month < time.January || month > time.December {
		return nil, invalid("month", int(month), ErrInvalidMonth)
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		weekStart = time.Sunday
	}

	first := StartOfMonth(year, month)
	leading := WeekdayIndex(first.Weekday(), weekStart)
	daysInMonth := DaysIn(year, month)

	prevYear, prevMonth := year, month-1
	if prevMonth < time.January {
		prevYear, prevMonth = year-1, time.December
	}
	prevMonthDays := DaysIn(prevYear, prevMonth)

	grid := make(MonthGrid, 0, 42)
	for i := leading; i > 0; i-- {
		grid = append(grid, Cell{Date: NewDateKey(prevYear, prevMonth, prevMonthDays-i+1)})
	}
	for day := 1; day <= daysInMonth; day++ {
		grid = append(grid, Cell{Date: NewDateKey(year, month, day), InCurrentMonth: true})
	}
	// NewDateKey rolls month 13 into January of the next year.
	for next := 1; len(grid)%7 != 0; next++ {
		grid = append(grid, Cell{Date: NewDateKey(year, month+1, next)})
	}
	return grid, nil
}

// Weeks splits the grid into rows of seven cells.
func (g MonthGrid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g)/7)
	for i := 0; i+7 <= len(g); i += 7 {
		weeks = append(weeks, g[i:i+7])
	}
	return weeks
}

// CurrentMonthDays returns the in-month dates in order.
func (g MonthGrid) CurrentMonthDays() []DateKey {
	var days []DateKey
	for _, c := range g {
		if c.InCurrentMonth {
			days = append(days, c.Date)
		}
	}
	return days
}
