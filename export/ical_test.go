package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/action-calendar/export"
	"github.com/warp/action-calendar/schedule"
)

func TestICS(t *testing.T) {
	// GIVEN: A timed action, an all-day action and a legacy note
	b := schedule.Buckets{
		"2024-01-12": {
			schedule.NewActionRecord(schedule.Action{
				ID: "a1", Category: "meeting", Title: "Pricing call", TimeOfDay: "10:00",
				Location: "Room 4", AssignedTo: "Ahmed", SubjectName: "Globex",
			}),
			schedule.NewActionRecord(schedule.Action{ID: "a2", Category: "follow_up", Title: "Send deck"}),
		},
		"2024-01-15": {schedule.NewLegacyRecord("Call back Acme")},
	}
	opts := export.ICSOptions{
		Location: time.UTC,
		Name:     "Team actions",
		Now:      func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) },
	}

	// WHEN: Exporting
	var buf bytes.Buffer
	require.NoError(t, export.WriteICS(&buf, b.Flatten(), opts))
	out := buf.String()

	// THEN: The document parses back with one event per entry
	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	assert.Equal(t, "a1@action-calendar", events[0].Id())
	assert.Equal(t, "Pricing call", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Room 4", events[0].GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "20240112T100000Z", events[0].GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240112T103000Z", events[0].GetProperty(ical.ComponentPropertyDtEnd).Value)

	assert.Equal(t, "20240112", events[1].GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240113", events[1].GetProperty(ical.ComponentPropertyDtEnd).Value)

	assert.Equal(t, "2024-01-15-0@action-calendar", events[2].Id())
	assert.Equal(t, "Call back Acme", events[2].GetProperty(ical.ComponentPropertySummary).Value)

	assert.Contains(t, out, "X-WR-CALNAME:Team actions")
	assert.Contains(t, out, "CATEGORIES:meeting")
}

func TestICS_Empty(t *testing.T) {
	out := export.ICS(nil, export.ICSOptions{})
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
