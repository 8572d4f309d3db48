package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/schedule"
)

func newTestEngine(rule schedule.RetentionRule) *schedule.Engine {
	s, _ := newTestStore(rule)
	e := schedule.NewEngine(s)
	e.Location = time.UTC
	e.Now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }
	return e
}

func TestEngine_BuildGrid(t *testing.T) {
	e := newTestEngine(nil)

	// GIVEN: Month index 1 is February
	grid, err := e.BuildGrid(2024, 1)
	require.NoError(t, err)
	assert.Len(t, grid, 35)
	assert.Equal(t, calendar.DateKey("2024-01-28"), grid[0].Date)

	// AND: December rolls into January of the next year
	grid, err = e.BuildGrid(2023, 11)
	require.NoError(t, err)
	assert.Equal(t, calendar.DateKey("2024-01-06"), grid[len(grid)-1].Date)

	for _, m := range []int{-1, 12} {
		_, err = e.BuildGrid(2024, m)
		assert.ErrorIs(t, err, calendar.ErrInvalidMonth)
		assert.True(t, schedule.IsClientError(err))
	}

	_, err = e.BuildGrid(0, 0)
	assert.ErrorIs(t, err, calendar.ErrInvalidYear)
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(schedule.CategoryRetention{Categories: []string{"meeting", "call"}})

	// GIVEN: A few actions through the engine
	for _, in := range []struct {
		date string
		a    schedule.Action
	}{
		{"2024-01-09", schedule.Action{Category: "meeting", Title: "Retro", AssignedTo: "Ahmed", SubjectName: "Acme"}},
		{"2024-01-12", schedule.Action{Category: "call", Title: "Pricing", AssignedTo: "Ahmed", SubjectName: "Globex", TimeOfDay: "10:00", Status: "done"}},
		{"2024-01-12", schedule.Action{Category: "meeting", Title: "Demo", AssignedTo: "Bob", SubjectName: "Acme"}},
		{"2024-01-20", schedule.Action{Category: "meeting", Title: "QBR", AssignedTo: "Bob", SubjectName: "Initech"}},
	} {
		_, err := e.Upsert(ctx, key(in.date), schedule.NewActionRecord(in.a))
		require.NoError(t, err)
	}

	// WHEN: Asking for upcoming actions with the engine clock
	got, err := e.Resolve(ctx, schedule.Query{View: schedule.ViewUpcoming, DaysAhead: schedule.Int(5)})
	require.NoError(t, err)

	// THEN: Demo (start of day) sorts before Pricing (10:00)
	assert.Equal(t, []string{"Demo", "Pricing"}, titles(got))

	// WHEN: Filtering the week by actor
	got, err = e.Resolve(ctx, schedule.Query{
		View:      schedule.ViewWeek,
		Reference: "2024-01-10",
		Criteria:  schedule.Criteria{Actor: schedule.ActorFilter{Specific: "Ahmed"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Retro", "Pricing"}, titles(got))

	// AND: Facets follow the actor scope
	subjects, err := e.DeriveSubjectOptions(ctx, schedule.ActorFilter{Specific: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{schedule.All, "Acme", "Initech"}, subjects)

	actors, err := e.DeriveActorOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{schedule.All, "Ahmed", "Bob"}, actors)

	summary, err := e.Summarize(ctx, schedule.Query{View: schedule.ViewMonth, Reference: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, "25", summary.CompletionRate.String())

	// WHEN: Removing by position then by id
	require.NoError(t, e.RemoveAt(ctx, key("2024-01-12"), 0))
	date, err := e.RemoveByID(ctx, got[0].ID())
	require.NoError(t, err)
	assert.Equal(t, key("2024-01-09"), date)

	b, err := e.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Count())
}

func TestEngine_ReplaceAndCompact(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(schedule.CategoryRetention{Categories: []string{"meeting"}})

	res, err := e.Upsert(ctx, key("2024-01-12"), schedule.NewActionRecord(schedule.Action{Category: "meeting", Title: "Demo"}))
	require.NoError(t, err)

	a, _ := res.Record.Action()
	a.Title = "Demo v2"
	a.Date = "2024-01-13"
	_, err = e.Replace(ctx, a)
	require.NoError(t, err)

	got, err := e.Resolve(ctx, schedule.Query{View: schedule.ViewDay, Reference: "2024-01-13"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Demo v2"}, titles(got))

	// GIVEN: A save that includes a refused record
	b, err := e.Load(ctx)
	require.NoError(t, err)
	b[key("2024-01-14")] = []schedule.Record{act("x", "call", "", "")}
	saved, err := e.Save(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Dropped)

	res2, err := e.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, schedule.SaveResult{Records: 1}, res2)
}

func TestEngine_UpcomingUsesQueryInstant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Upsert(ctx, key("2024-06-01"), at("june", "08:00"))
	require.NoError(t, err)

	got, err := e.Resolve(ctx, schedule.Query{View: schedule.ViewUpcoming})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.Resolve(ctx, schedule.Query{View: schedule.ViewUpcoming, Now: time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, []string{"june"}, ids(got))
}

func titles(entries []schedule.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title()
	}
	return out
}
