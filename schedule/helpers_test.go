package schedule_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/schedule/blob"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(rule schedule.RetentionRule) (*schedule.RecordStore, *blob.Memory) {
	mem := blob.NewMemory()
	s := schedule.NewRecordStore(mem, rule)
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("act-%d", n)
	}
	return s, mem
}

func seed(t *testing.T, mem *blob.Memory, raw string) {
	t.Helper()
	require.NoError(t, mem.Put(context.Background(), schedule.DefaultBlobKey, []byte(raw)))
}

func act(id, category, assignedTo, subject string) schedule.Record {
	return schedule.NewActionRecord(schedule.Action{
		ID:          id,
		Category:    category,
		Title:       category + " " + id,
		AssignedTo:  assignedTo,
		SubjectName: subject,
	})
}

func at(id, timeOfDay string) schedule.Record {
	return schedule.NewActionRecord(schedule.Action{ID: id, Category: "meeting", Title: id, TimeOfDay: timeOfDay})
}

func ids[T interface{ ID() string }](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}

func key(s string) calendar.DateKey { return calendar.MustParseDateKey(s) }

var errDisk = errors.New("disk on fire")

// failingBlob fails reads, writes or both.
type failingBlob struct {
	getErr error
	putErr error
	data   []byte
}

func (f *failingBlob) Get(context.Context, string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.data, f.data != nil, nil
}

func (f *failingBlob) Put(_ context.Context, _ string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.data = data
	return nil
}
