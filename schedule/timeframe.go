/*
timeframe.go - Day / Week / Month / Upcoming resolution

PURPOSE:
  Turns a Query into the ordered, filtered entries a view shows.

VIEWS:
  day:      the reference date's bucket
  week:     [start of week, start of week + 6], week start configurable
  month:    first..last day of the reference month
  upcoming: every bucket; entries whose absolute timestamp falls in
            [now, now + DaysAhead days], ascending, at most Limit of them

  Day/Week/Month ranges are inclusive on both ends at day granularity and
  keep store order (ascending date, then bucket position).

UPCOMING ORDERING:
  Facet filters run before the Limit cut, so a filtered feed still returns
  up to Limit matches. ResolveOptions.TruncateBeforeFilter restores the
  older behaviour (cut to Limit, then filter), which can return fewer
  matches than exist.
*/
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/action-calendar/calendar"
)

// View is a timeframe the caller aggregates over.
type View string

const (
	ViewDay      View = "day"
	ViewWeek     View = "week"
	ViewMonth    View = "month"
	ViewUpcoming View = "upcoming"
)

// ParseView parses a view name (case-insensitive).
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewDay, ViewWeek, ViewMonth, ViewUpcoming:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
}

// Defaults for Upcoming queries that leave Limit / DaysAhead unset (nil).
const (
	DefaultUpcomingLimit     = 10
	DefaultUpcomingDaysAhead = 7
)

// Query is an immutable description of what the caller is looking at.
type Query struct {
	View      View
	Reference calendar.DateKey // day, week, month
	Criteria  Criteria

	// Upcoming only. Nil Limit or DaysAhead takes the configured default;
	// an explicit zero is honoured (no entries, or only entries at Now).
	Limit     *int
	DaysAhead *int
	Now       time.Time
}

// Int returns a pointer to n, for Query.Limit and Query.DaysAhead.
func Int(n int) *int { return &n }

// ResolveOptions carries the engine-wide settings a resolution depends on.
type ResolveOptions struct {
	Location             *time.Location
	WeekStart            time.Weekday
	DefaultLimit         int
	DefaultDaysAhead     int
	TruncateBeforeFilter bool
}

// PeriodFor returns the day range of a Day, Week or Month query.
func PeriodFor(q Query, weekStart time.Weekday) (calendar.Period, error) {
	if q.View != ViewDay && q.View != ViewWeek && q.View != ViewMonth {
		return calendar.Period{}, fmt.Errorf("%w: %q has no day range", ErrInvalidView, q.View)
	}
	ref, err := calendar.ParseDateKey(string(q.Reference))
	if err != nil {
		return calendar.Period{}, err
	}
	switch q.View {
	case ViewDay:
		return calendar.DayOf(ref), nil
	case ViewWeek:
		return calendar.WeekOf(ref, weekStart), nil
	default:
		return calendar.MonthOf(ref), nil
	}
}

// Resolve returns the entries of b that q selects.
func Resolve(b Buckets, q Query, opts ResolveOptions) ([]Entry, error) {
	if q.View == ViewUpcoming {
		return resolveUpcoming(b, q, opts)
	}
	period, err := PeriodFor(q, opts.WeekStart)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(b.Range(period), q.Criteria), nil
}

func resolveUpcoming(b Buckets, q Query, opts ResolveOptions) ([]Entry, error) {
	limit := orDefault(q.Limit, opts.DefaultLimit, DefaultUpcomingLimit)
	daysAhead := orDefault(q.DaysAhead, opts.DefaultDaysAhead, DefaultUpcomingDaysAhead)
	if limit < 0 {
		return nil, invalidQuery("limit", limit)
	}
	if daysAhead < 0 {
		return nil, invalidQuery("days_ahead", daysAhead)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	window := UpcomingWindow(b.Flatten(), now, daysAhead, loc)
	if opts.TruncateBeforeFilter {
		return ApplyFilters(truncate(window, limit), q.Criteria), nil
	}
	return truncate(ApplyFilters(window, q.Criteria), limit), nil
}

// UpcomingWindow keeps entries with now <= timestamp <= now + daysAhead days,
// sorted ascending by timestamp. Entries at the same instant keep store order.
func UpcomingWindow(entries []Entry, now time.Time, daysAhead int, loc *time.Location) []Entry {
	end := now.AddDate(0, 0, daysAhead)

	type stamped struct {
		entry Entry
		at    time.Time
	}
	var in []stamped
	for _, e := range entries {
		at := e.Timestamp(loc)
		if at.Before(now) || at.After(end) {
			continue
		}
		in = append(in, stamped{entry: e, at: at})
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].at.Before(in[j].at) })

	out := make([]Entry, len(in))
	for i, s := range in {
		out[i] = s.entry
	}
	return out
}

func truncate(entries []Entry, limit int) []Entry {
	if limit >= 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// orDefault resolves an optional query value: v when set, else the
// configured default when positive, else the package default.
func orDefault(v *int, configured, def int) int {
	if v != nil {
		return *v
	}
	if configured > 0 {
		return configured
	}
	return def
}
