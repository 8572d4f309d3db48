/*
Package calendar provides timezone-safe calendar primitives.

PURPOSE:
  Everything in the scheduling engine is keyed by calendar date. A date key
  is built from the local calendar fields of a time (Year/Month/Day) and is
  never produced by a formatter that converts to UTC first, so a key
  round-trips to the same calendar day in every host timezone.

KEY CONCEPTS IN THIS FILE (time.go):
  - DateKey:   canonical "YYYY-MM-DD" string, the bucket key of the store
  - TimeOfDay: optional "HH:MM" (24-hour) clock time of an action
  - Combine:   DateKey + TimeOfDay -> absolute timestamp in a location

USAGE:
  key := calendar.DateKeyOf(time.Now())          // local fields
  next := key.AddDays(1)
  at := calendar.Combine(key, "14:30", time.Local)

SEE ALSO:
  - period.go: Inclusive day ranges (week, month)
  - grid.go: Month grid construction
*/
package calendar

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// DATE KEY - Canonical YYYY-MM-DD calendar date
// =============================================================================

// DateLayout is the canonical date key layout.
const DateLayout = "2006-01-02"

// DateKey identifies a calendar day. The zero value is not a valid key.
type DateKey string

// NewDateKey builds a key from calendar fields. Overflowing fields are
// normalized the way time.Date does (February 30 becomes March 1).
func NewDateKey(year int, month time.Month, day int) DateKey {
	// UTC is only used as an arithmetic frame for the fields; no zone
	// conversion ever happens on the result.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day()))
}

// DateKeyOf returns the key of t's calendar day in t's own location.
func DateKeyOf(t time.Time) DateKey {
	return NewDateKey(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) DateKey {
	if loc == nil {
		loc = time.Local
	}
	return DateKeyOf(time.Now().In(loc))
}

// ParseDateKey validates s as a YYYY-MM-DD calendar date.
func ParseDateKey(s string) (DateKey, error) {
	if len(s) != len(DateLayout) {
		return "", invalid("date", s, ErrInvalidDate)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", invalid("date", s, ErrInvalidDate)
	}
	if t.Format(DateLayout) != s {
		return "", invalid("date", s, ErrInvalidDate)
	}
	return DateKey(s), nil
}

// MustParseDateKey is ParseDateKey for literals known to be valid.
func MustParseDateKey(s string) DateKey {
	d, err := ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether d is a well-formed calendar date.
func (d DateKey) Valid() bool {
	_, err := ParseDateKey(string(d))
	return err == nil
}

// Fields returns the calendar fields of d. An invalid key yields zeros.
func (d DateKey) Fields() (year int, month time.Month, day int) {
	s := string(d)
	if len(s) != len(DateLayout) {
		return 0, 0, 0
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	dd, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0
	}
	return y, time.Month(m), dd
}

// In returns midnight of d in loc.
func (d DateKey) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, dd := d.Fields()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

// Comparison. Canonical keys sort lexically in calendar order.
func (d DateKey) Before(other DateKey) bool        { return d < other }
func (d DateKey) After(other DateKey) bool         { return d > other }
func (d DateKey) BeforeOrEqual(other DateKey) bool { return d <= other }
func (d DateKey) AfterOrEqual(other DateKey) bool  { return d >= other }

// Arithmetic
func (d DateKey) AddDays(n int) DateKey {
	y, m, dd := d.Fields()
	return NewDateKey(y, m, dd+n)
}

func (d DateKey) AddMonths(n int) DateKey {
	y, m, _ := d.Fields()
	return NewDateKey(y, m+time.Month(n), 1)
}

// Properties
func (d DateKey) Year() int             { y, _, _ := d.Fields(); return y }
func (d DateKey) Month() time.Month     { _, m, _ := d.Fields(); return m }
func (d DateKey) Day() int              { _, _, dd := d.Fields(); return dd }
func (d DateKey) Weekday() time.Weekday { return d.In(time.UTC).Weekday() }
func (d DateKey) String() string        { return string(d) }

// =============================================================================
// TIME OF DAY - Optional HH:MM clock time
// =============================================================================

// ParseTimeOfDay parses a strict 24-hour "HH:MM" value.
func ParseTimeOfDay(s string) (hour, minute int, ok bool) {
	if len(s) != 5 || s[2] != ':' || !digits(s[0:2]) || !digits(s[3:5]) {
		return 0, 0, false
	}
	h, err := strconv.Atoi(s[0:2])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(s[3:5])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Combine returns the absolute timestamp of d at timeOfDay in loc.
// A missing or malformed time of day means start of day.
func Combine(d DateKey, timeOfDay string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, dd := d.Fields()
	h, mi, ok := ParseTimeOfDay(timeOfDay)
	if !ok {
		h, mi = 0, 0
	}
	return time.Date(y, m, dd, h, mi, 0, 0, loc)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
