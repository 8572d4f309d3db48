package schedule_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/schedule"
)

var meetingsOnly = schedule.CategoryRetention{Categories: []string{"meeting"}}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_MissingKeyIsEmpty(t *testing.T) {
	s, _ := newTestStore(nil)

	b, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestLoad_MalformedBlobIsEmpty(t *testing.T) {
	// GIVEN: A blob that is not JSON
	s, mem := newTestStore(nil)
	seed(t, mem, `{"2024-01-10": [`)

	// WHEN: Loading
	b, err := s.Load(context.Background())

	// THEN: An empty store, no error
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestLoad_ElementOfWrongShapeIsParseFailure(t *testing.T) {
	s, mem := newTestStore(nil)
	seed(t, mem, `{"2024-01-10": [42]}`)

	b, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestLoad_LegacyRecords(t *testing.T) {
	// GIVEN: A bucket mixing a bare string and a structured action
	s, mem := newTestStore(schedule.CategoryRetention{Categories: []string{"meeting"}, KeepLegacy: true})
	seed(t, mem, `{"2024-01-10": ["Call Ahmed", {"id":"a1","category":"meeting","title":"Sync","assignedTo":"Ahmed"}]}`)

	// WHEN: Loading
	b, err := s.Load(context.Background())
	require.NoError(t, err)

	// THEN: Both survive, the string as a legacy record
	records := b[key("2024-01-10")]
	require.Len(t, records, 2)
	assert.True(t, records[0].IsLegacy())
	assert.Equal(t, "Call Ahmed", records[0].Title())
	assert.Empty(t, records[0].AssignedTo())

	a, ok := records[1].Action()
	require.True(t, ok)
	assert.Equal(t, "Sync", a.Title)
	assert.Equal(t, "Ahmed", a.AssignedTo)
}

func TestLoad_AppliesRetention(t *testing.T) {
	s, mem := newTestStore(meetingsOnly)
	seed(t, mem, `{"2024-01-10": [{"id":"a","category":"Meeting"},{"id":"b","category":"call"},"legacy"]}`)

	b, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(b[key("2024-01-10")]))
}

func TestLoad_ReadFailureIsSurfaced(t *testing.T) {
	s := schedule.NewRecordStore(&failingBlob{getErr: errDisk}, nil)

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrPersistenceRead)
	assert.ErrorIs(t, err, errDisk)

	var perr *schedule.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get", perr.Op)
	assert.Equal(t, schedule.DefaultBlobKey, perr.Key)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSave_WriteFailureIsSurfaced(t *testing.T) {
	s := schedule.NewRecordStore(&failingBlob{putErr: errDisk}, nil)

	_, err := s.Save(context.Background(), schedule.Buckets{key("2024-01-10"): {act("a", "meeting", "", "")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrPersistenceWrite)
	assert.False(t, schedule.IsClientError(err))
}

func TestSave_RetentionIsIdempotent(t *testing.T) {
	// GIVEN: A store with mixed categories
	s, mem := newTestStore(meetingsOnly)
	ctx := context.Background()
	b := schedule.Buckets{
		key("2024-01-10"): {act("a", "meeting", "", ""), act("b", "call", "", "")},
		key("2024-01-11"): {act("c", "follow_up", "", "")},
	}

	// WHEN: Saving, then saving what loads back
	res, err := s.Save(ctx, b)
	require.NoError(t, err)
	first, _, _ := mem.Get(ctx, schedule.DefaultBlobKey)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	res2, err := s.Save(ctx, loaded)
	require.NoError(t, err)
	second, _, _ := mem.Get(ctx, schedule.DefaultBlobKey)

	// THEN: Filtering twice equals filtering once
	assert.Equal(t, schedule.SaveResult{Records: 1, Dropped: 2}, res)
	assert.Equal(t, schedule.SaveResult{Records: 1, Dropped: 0}, res2)
	assert.JSONEq(t, string(first), string(second))

	once, _ := schedule.ApplyRetention(b, meetingsOnly)
	twice, _ := schedule.ApplyRetention(once, meetingsOnly)
	assert.Equal(t, once, twice)
}

func TestSave_MalformedKeysSurviveButAreInvisible(t *testing.T) {
	s, mem := newTestStore(nil)
	ctx := context.Background()
	seed(t, mem, `{"someday": [{"id":"x","category":"meeting"}], "2024-01-10": [{"id":"a","category":"meeting"}]}`)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(b.Flatten()))

	_, err = s.Save(ctx, b)
	require.NoError(t, err)

	data, _, _ := mem.Get(ctx, schedule.DefaultBlobKey)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "someday")
}

func TestSave_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, mem := newTestStore(meetingsOnly)
	s.Metrics = schedule.NewMetrics("test", reg)
	ctx := context.Background()

	seed(t, mem, "garbage")
	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.Save(ctx, schedule.Buckets{key("2024-01-10"): {act("a", "call", "", "")}})
	require.NoError(t, err)

	values := gather(t, reg)
	assert.Equal(t, 1.0, values["test_action_store_parse_failures_total"])
	assert.Equal(t, 1.0, values["test_action_store_saves_total"])
	assert.Equal(t, 1.0, values["test_action_store_retention_dropped_total"])
	assert.Equal(t, 0.0, values["test_action_store_records"])
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[f.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[f.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}

// =============================================================================
// UPSERT
// =============================================================================

func TestUpsert_DropModeAcceptsThenDrops(t *testing.T) {
	// GIVEN: Retention keeps only meetings, drop mode
	s, _ := newTestStore(meetingsOnly)
	s.Mode = schedule.RetentionDrop
	ctx := context.Background()

	// WHEN: A call is upserted, then the store is round-tripped
	res, err := s.Upsert(ctx, key("2024-01-12"), act("", "call", "Ahmed", ""))
	require.NoError(t, err)
	assert.False(t, res.Retained)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.Save(ctx, b)
	require.NoError(t, err)
	b, err = s.Load(ctx)
	require.NoError(t, err)

	// THEN: The bucket for that date is empty
	records, ok := b[key("2024-01-12")]
	assert.True(t, ok)
	assert.Empty(t, records)
}

func TestUpsert_RejectModeRefuses(t *testing.T) {
	s, mem := newTestStore(meetingsOnly)

	_, err := s.Upsert(context.Background(), key("2024-01-12"), act("", "call", "", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrNotRetained)
	assert.True(t, schedule.IsClientError(err))

	var rerr *schedule.RetentionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "call", rerr.Category)
	assert.Equal(t, 0, mem.Puts())
}

func TestUpsert_AssignsIDAndDate(t *testing.T) {
	s, _ := newTestStore(nil)
	ctx := context.Background()

	res, err := s.Upsert(ctx, key("2024-01-12"), act("", "meeting", "", ""))
	require.NoError(t, err)
	assert.True(t, res.Retained)
	assert.Equal(t, "act-1", res.Record.ID())

	b, err := s.Load(ctx)
	require.NoError(t, err)
	a, ok := b[key("2024-01-12")][0].Action()
	require.True(t, ok)
	assert.Equal(t, "act-1", a.ID)
	assert.Equal(t, calendar.DateKey("2024-01-12"), a.Date)
}

func TestUpsert_AppendsInOrder(t *testing.T) {
	s, _ := newTestStore(nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Upsert(ctx, key("2024-01-12"), act(id, "meeting", "", ""))
		require.NoError(t, err)
	}
	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(b[key("2024-01-12")]))
}

func TestUpsert_DuplicateID(t *testing.T) {
	s, _ := newTestStore(nil)
	ctx := context.Background()

	_, err := s.Upsert(ctx, key("2024-01-12"), act("a", "meeting", "", ""))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, key("2024-01-20"), act("a", "meeting", "", ""))
	assert.ErrorIs(t, err, schedule.ErrDuplicateAction)
	assert.True(t, schedule.IsConflict(err))
}

func TestUpsert_InvalidDate(t *testing.T) {
	s, _ := newTestStore(nil)

	_, err := s.Upsert(context.Background(), "2024-02-30", act("a", "meeting", "", ""))
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
	assert.True(t, schedule.IsClientError(err))
}

func TestUpsert_LegacyRecord(t *testing.T) {
	s, _ := newTestStore(schedule.CategoryRetention{KeepLegacy: true})
	ctx := context.Background()

	_, err := s.Upsert(ctx, key("2024-01-12"), schedule.NewLegacyRecord("Call back"))
	require.NoError(t, err)
	b, err := s.Load(ctx)
	require.NoError(t, err)
	text, ok := b[key("2024-01-12")][0].LegacyText()
	assert.True(t, ok)
	assert.Equal(t, "Call back", text)
}

// =============================================================================
// REMOVAL
// =============================================================================

func TestRemoveAt(t *testing.T) {
	s, mem := newTestStore(nil)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a"},{"id":"b"},{"id":"c"}]}`)

	require.NoError(t, s.RemoveAt(ctx, key("2024-01-12"), 1))
	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(b[key("2024-01-12")]))

	err = s.RemoveAt(ctx, key("2024-01-12"), 2)
	assert.ErrorIs(t, err, schedule.ErrIndexOutOfRange)
	err = s.RemoveAt(ctx, key("2024-01-12"), -1)
	assert.ErrorIs(t, err, schedule.ErrIndexOutOfRange)

	err = s.RemoveAt(ctx, key("2024-01-13"), 0)
	assert.ErrorIs(t, err, schedule.ErrBucketNotFound)
	assert.True(t, schedule.IsNotFound(err))
}

func TestRemoveByID(t *testing.T) {
	s, mem := newTestStore(nil)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a"},{"id":"b"}], "2024-01-13": ["b", {"id":"c"}]}`)

	date, err := s.RemoveByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, key("2024-01-13"), date)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, b[key("2024-01-13")], 1)
	assert.True(t, b[key("2024-01-13")][0].IsLegacy())

	_, err = s.RemoveByID(ctx, "c")
	assert.ErrorIs(t, err, schedule.ErrActionNotFound)
	_, err = s.RemoveByID(ctx, "")
	assert.ErrorIs(t, err, schedule.ErrActionNotFound)
}

// =============================================================================
// REPLACE / COMPACT
// =============================================================================

func TestReplace_InPlace(t *testing.T) {
	s, mem := newTestStore(nil)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a","title":"old"},{"id":"b"}]}`)

	res, err := s.Replace(ctx, schedule.Action{ID: "a", Title: "new", Category: "meeting"})
	require.NoError(t, err)
	assert.Equal(t, key("2024-01-12"), res.Date)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	records := b[key("2024-01-12")]
	assert.Equal(t, []string{"a", "b"}, ids(records))
	assert.Equal(t, "new", records[0].Title())
}

func TestReplace_MovesDate(t *testing.T) {
	s, mem := newTestStore(nil)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a"},{"id":"b"}], "2024-01-15": [{"id":"c"}]}`)

	res, err := s.Replace(ctx, schedule.Action{ID: "a", Title: "moved", Date: "2024-01-15"})
	require.NoError(t, err)
	assert.Equal(t, key("2024-01-15"), res.Date)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(b[key("2024-01-12")]))
	assert.Equal(t, []string{"c", "a"}, ids(b[key("2024-01-15")]))
}

func TestReplace_Errors(t *testing.T) {
	s, mem := newTestStore(meetingsOnly)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a","category":"meeting"}]}`)

	_, err := s.Replace(ctx, schedule.Action{Title: "no id"})
	assert.ErrorIs(t, err, schedule.ErrInvalidRecord)

	_, err = s.Replace(ctx, schedule.Action{ID: "zzz", Category: "meeting"})
	assert.ErrorIs(t, err, schedule.ErrActionNotFound)

	_, err = s.Replace(ctx, schedule.Action{ID: "a", Category: "call"})
	assert.ErrorIs(t, err, schedule.ErrNotRetained)

	_, err = s.Replace(ctx, schedule.Action{ID: "a", Category: "meeting", Date: "2024-13-01"})
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
}

func TestCompact(t *testing.T) {
	// GIVEN: A blob written before the retention rule tightened
	s, mem := newTestStore(meetingsOnly)
	ctx := context.Background()
	seed(t, mem, `{"2024-01-12": [{"id":"a","category":"meeting"},{"id":"b","category":"call"},"note"]}`)

	// WHEN: Compacting
	res, err := s.Compact(ctx)
	require.NoError(t, err)

	// THEN: Refused records are counted and gone from the blob itself
	assert.Equal(t, schedule.SaveResult{Records: 1, Dropped: 2}, res)
	data, _, _ := mem.Get(ctx, schedule.DefaultBlobKey)
	assert.JSONEq(t, `{"2024-01-12":[{"id":"a","category":"meeting"}]}`, string(data))
}

// =============================================================================
// ENTRY JSON
// =============================================================================

func TestEntry_JSONKeepsAddress(t *testing.T) {
	// GIVEN: Entries for a structured and a legacy record
	entries := []schedule.Entry{
		{Record: schedule.NewActionRecord(schedule.Action{ID: "a", Category: "meeting", Title: "Demo"}), Date: "2024-01-12", Index: 1},
		{Record: schedule.NewLegacyRecord("Call Ahmed"), Date: "2024-01-10", Index: 0},
	}

	// WHEN: Marshaling them
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	// THEN: Date and index sit next to the record
	assert.JSONEq(t, `[
		{"date":"2024-01-12","index":1,"record":{"id":"a","category":"meeting","title":"Demo"}},
		{"date":"2024-01-10","index":0,"record":"Call Ahmed"}
	]`, string(data))

	var back []schedule.Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, entries, back)
}

func TestCategoryRetention_EmptyListKeepsLegacy(t *testing.T) {
	assert.True(t, schedule.CategoryRetention{}.Retain(schedule.NewLegacyRecord("Call Ahmed")))
	assert.False(t, meetingsOnly.Retain(schedule.NewLegacyRecord("Call Ahmed")))
	assert.True(t, schedule.CategoryRetention{Categories: []string{"meeting"}, KeepLegacy: true}.Retain(schedule.NewLegacyRecord("Call Ahmed")))
}
