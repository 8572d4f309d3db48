// Package export renders resolved action views into external calendar formats.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/schedule"
)

// DefaultEventDuration is the length of an exported timed action.
const DefaultEventDuration = 30 * time.Minute

// ICSOptions controls calendar export.
type ICSOptions struct {
	Location  *time.Location
	Duration  time.Duration
	ProductID string
	Name      string
	// UIDDomain is appended to event UIDs ("<id>@<domain>").
	UIDDomain string
	Now       func() time.Time
}

func (o ICSOptions) withDefaults() ICSOptions {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Duration <= 0 {
		o.Duration = DefaultEventDuration
	}
	if o.ProductID == "" {
		o.ProductID = "-//warp//action-calendar//EN"
	}
	if o.UIDDomain == "" {
		o.UIDDomain = "action-calendar"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ICS renders entries as an iCalendar document. Actions with a valid time
// of day become timed events; the rest, legacy records included, become
// all-day events on their bucket date.
func ICS(entries []schedule.Entry, opts ICSOptions) string {
	opts = opts.withDefaults()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	stamp := opts.Now().UTC()
	for _, e := range entries {
		ev := cal.AddEvent(uid(e, opts.UIDDomain))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Title())

		if _, _, ok := calendar.ParseTimeOfDay(e.TimeOfDay()); ok && !e.IsLegacy() {
			start := e.Timestamp(opts.Location)
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(opts.Duration))
		} else {
			day := e.Date.In(opts.Location)
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(e.Date.AddDays(1).In(opts.Location))
		}

		a, ok := e.Action()
		if !ok {
			continue
		}
		if a.Location != "" {
			ev.SetLocation(a.Location)
		}
		if desc := description(a); desc != "" {
			ev.SetDescription(desc)
		}
		if a.Category != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, a.Category)
		}
	}

	return cal.Serialize()
}

// WriteICS writes ICS(entries, opts) to w.
func WriteICS(w io.Writer, entries []schedule.Entry, opts ICSOptions) error {
	_, err := io.WriteString(w, ICS(entries, opts))
	return err
}

func uid(e schedule.Entry, domain string) string {
	if id := e.ID(); id != "" && !e.IsLegacy() {
		return id + "@" + domain
	}
	return fmt.Sprintf("%s-%d@%s", e.Date, e.Index, domain)
}

func description(a schedule.Action) string {
	var lines []string
	if a.Description != "" {
		lines = append(lines, a.Description)
	}
	for _, f := range []struct{ label, value string }{
		{"Subject", a.SubjectName},
		{"Assigned to", a.AssignedTo},
		{"Status", a.Status},
		{"Priority", a.Priority},
	} {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	return strings.Join(lines, "\n")
}
