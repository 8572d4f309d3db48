/*
engine.go - The API surface of the scheduling engine

PURPOSE:
  Engine wires the grid builder, the record store, the filter pipeline and
  the timeframe resolution into one object. It keeps no state of its own
  beyond configuration: every call reads the store afresh, and the
  caller owns the reference date, the view and the facet selection.

MONTH INDEX:
  BuildGrid takes a zero-based month (0 = January .. 11 = December) to
  match the layout clients send. calendar.BuildGrid takes a time.Month.
*/
package schedule

import (
	"context"
	"strconv"
	"time"

	"github.com/warp/action-calendar/calendar"
)

// UpcomingDefaults configures Upcoming queries that leave Limit or
// DaysAhead unset.
type UpcomingDefaults struct {
	Limit                int
	DaysAhead            int
	TruncateBeforeFilter bool
}

// Engine is the scheduling engine.
type Engine struct {
	Records   *RecordStore
	Location  *time.Location
	WeekStart time.Weekday
	Upcoming  UpcomingDefaults

	// Now is the clock for Upcoming queries that carry no explicit instant.
	Now func() time.Time
}

// NewEngine creates an engine over records using the local time zone and
// Sunday-first weeks.
func NewEngine(records *RecordStore) *Engine {
	return &Engine{
		Records:   records,
		Location:  time.Local,
		WeekStart: time.Sunday,
		Upcoming: UpcomingDefaults{
			Limit:     DefaultUpcomingLimit,
			DaysAhead: DefaultUpcomingDaysAhead,
		},
		Now: time.Now,
	}
}

// =============================================================================
// GRID
// =============================================================================

// BuildGrid returns the month grid of monthIndex (0..11) in year.
func (e *Engine) BuildGrid(year, monthIndex int) (calendar.MonthGrid, error) {
	if monthIndex < 0 || monthIndex > 11 {
		return nil, &calendar.ValidationError{Field: "month", Value: strconv.Itoa(monthIndex), Err: calendar.ErrInvalidMonth}
	}
	return calendar.BuildGrid(year, time.Month(monthIndex+1), e.WeekStart)
}

// =============================================================================
// STORE PASSTHROUGHS
// =============================================================================

func (e *Engine) Load(ctx context.Context) (Buckets, error) {
	return e.Records.Load(ctx)
}

func (e *Engine) Save(ctx context.Context, b Buckets) (SaveResult, error) {
	return e.Records.Save(ctx, b)
}

func (e *Engine) Upsert(ctx context.Context, date calendar.DateKey, record Record) (UpsertResult, error) {
	return e.Records.Upsert(ctx, date, record)
}

func (e *Engine) RemoveAt(ctx context.Context, date calendar.DateKey, index int) error {
	return e.Records.RemoveAt(ctx, date, index)
}

func (e *Engine) RemoveByID(ctx context.Context, id string) (calendar.DateKey, error) {
	return e.Records.RemoveByID(ctx, id)
}

func (e *Engine) Replace(ctx context.Context, a Action) (UpsertResult, error) {
	return e.Records.Replace(ctx, a)
}

func (e *Engine) Compact(ctx context.Context) (SaveResult, error) {
	return e.Records.Compact(ctx)
}

// =============================================================================
// QUERIES
// =============================================================================

// Resolve loads the store and returns the entries q selects.
func (e *Engine) Resolve(ctx context.Context, q Query) ([]Entry, error) {
	b, err := e.Records.Load(ctx)
	if err != nil {
		return nil, err
	}
	if q.View == ViewUpcoming && q.Now.IsZero() {
		q.Now = e.now()
	}
	return Resolve(b, q, e.resolveOptions())
}

// Summarize resolves q and counts the result.
func (e *Engine) Summarize(ctx context.Context, q Query) (Summary, error) {
	entries, err := e.Resolve(ctx, q)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(entries), nil
}

// DeriveSubjectOptions lists subject names under actor, starting with All.
func (e *Engine) DeriveSubjectOptions(ctx context.Context, actor ActorFilter) ([]string, error) {
	b, err := e.Records.Load(ctx)
	if err != nil {
		return nil, err
	}
	return DeriveSubjectOptions(b, actor), nil
}

// DeriveActorOptions lists assignees, starting with All.
func (e *Engine) DeriveActorOptions(ctx context.Context) ([]string, error) {
	b, err := e.Records.Load(ctx)
	if err != nil {
		return nil, err
	}
	return DeriveActorOptions(b), nil
}

func (e *Engine) resolveOptions() ResolveOptions {
	return ResolveOptions{
		Location:             e.location(),
		WeekStart:            e.WeekStart,
		DefaultLimit:         e.Upcoming.Limit,
		DefaultDaysAhead:     e.Upcoming.DaysAhead,
		TruncateBeforeFilter: e.Upcoming.TruncateBeforeFilter,
	}
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
