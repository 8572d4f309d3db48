/*
Package schedule implements the scheduled-action aggregation engine.

PURPOSE:
  Keeps a date-indexed collection of scheduled actions (meetings, calls,
  follow-ups) in one persisted blob, filters it through a retention rule on
  every write, and answers faceted Day / Week / Month / Upcoming queries for
  a calendar view and an activity feed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Action:  a structured calendar activity
  - Record:  tagged variant, either an Action or a legacy bare-text record
  - Entry:   a Record together with the bucket date and position it sits at
  - Buckets: the whole store, date key -> records

LEGACY RECORDS:
  Early versions persisted bare strings instead of objects. They decode to
  legacy Records which behave as title-only entries: no actor, no subject,
  no category, no time of day.

SEE ALSO:
  - records.go: Persistence through a BlobStore
  - filter.go: Facet filters
  - timeframe.go: Day/Week/Month/Upcoming resolution
  - engine.go: The API surface
*/
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/action-calendar/calendar"
)

// =============================================================================
// ACTION - Structured calendar activity
// =============================================================================

// Action is one scheduled activity. Field names follow the persisted layout.
type Action struct {
	ID          string           `json:"id,omitempty"`
	Category    string           `json:"category,omitempty"` // e.g. "meeting", "call", "follow_up"
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	SubjectID   string           `json:"subjectId,omitempty"`
	SubjectName string           `json:"subjectName,omitempty"`
	AssignedTo  string           `json:"assignedTo,omitempty"`
	Status      string           `json:"status,omitempty"`
	Priority    string           `json:"priority,omitempty"`
	Location    string           `json:"location,omitempty"`
	TimeOfDay   string           `json:"timeOfDay,omitempty"` // HH:MM, 24-hour
	Date        calendar.DateKey `json:"date,omitempty"`
}

// =============================================================================
// RECORD - Action | legacy text
// =============================================================================

// RecordKind discriminates the Record variant.
type RecordKind int

const (
	KindAction RecordKind = iota
	KindLegacy
)

func (k RecordKind) String() string {
	if k == KindLegacy {
		return "legacy"
	}
	return "action"
}

// Record is an element of a bucket.
type Record struct {
	kind   RecordKind
	action Action
	text   string
}

// NewActionRecord wraps a structured action.
func NewActionRecord(a Action) Record {
	return Record{kind: KindAction, action: a}
}

// NewLegacyRecord wraps a bare text record.
func NewLegacyRecord(text string) Record {
	return Record{kind: KindLegacy, text: text}
}

func (r Record) Kind() RecordKind { return r.kind }
func (r Record) IsLegacy() bool   { return r.kind == KindLegacy }

// Action returns the structured action and true, or false for legacy records.
func (r Record) Action() (Action, bool) {
	if r.kind != KindAction {
		return Action{}, false
	}
	return r.action, true
}

// LegacyText returns the raw text and true for legacy records.
func (r Record) LegacyText() (string, bool) {
	if r.kind != KindLegacy {
		return "", false
	}
	return r.text, true
}

// Title is the action title, or the whole text of a legacy record.
func (r Record) Title() string {
	if r.IsLegacy() {
		return r.text
	}
	return r.action.Title
}

// Facet accessors. Legacy records have none of these.
func (r Record) ID() string          { return r.action.ID }
func (r Record) Category() string    { return r.action.Category }
func (r Record) AssignedTo() string  { return r.action.AssignedTo }
func (r Record) SubjectName() string { return r.action.SubjectName }
func (r Record) Location() string    { return r.action.Location }
func (r Record) Status() string      { return r.action.Status }
func (r Record) TimeOfDay() string   { return r.action.TimeOfDay }

// SearchText is what the free-text filter matches against.
func (r Record) SearchText() string {
	if r.IsLegacy() {
		return r.text
	}
	return strings.Join([]string{
		r.action.Title,
		r.action.SubjectName,
		r.action.AssignedTo,
		r.action.Location,
	}, " ")
}

// withDate stamps the bucket date on structured records.
func (r Record) withDate(d calendar.DateKey) Record {
	if r.kind == KindAction {
		r.action.Date = d
	}
	return r
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.IsLegacy() {
		return json.Marshal(r.text)
	}
	return json.Marshal(r.action)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty element", ErrInvalidRecord)
	}
	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*r = NewLegacyRecord(text)
		return nil
	case '{':
		var a Action
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*r = NewActionRecord(a)
		return nil
	default:
		return fmt.Errorf("%w: element %s is neither object nor string", ErrInvalidRecord, string(data))
	}
}

// =============================================================================
// ENTRY - Record with its address in the store
// =============================================================================

// Entry is a Record located at Buckets[Date][Index].
type Entry struct {
	Record
	Date  calendar.DateKey
	Index int
}

type entryJSON struct {
	Date   calendar.DateKey `json:"date"`
	Index  int              `json:"index"`
	Record Record           `json:"record"`
}

// MarshalJSON keeps the address next to the record; the promoted
// Record.MarshalJSON would drop it.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{Date: e.Date, Index: e.Index, Record: e.Record})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var v entryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = Entry{Record: v.Record, Date: v.Date, Index: v.Index}
	return nil
}

// Timestamp is the absolute time of the entry: its bucket date combined with
// its time of day, start of day when none is set.
func (e Entry) Timestamp(loc *time.Location) time.Time {
	return calendar.Combine(e.Date, e.TimeOfDay(), loc)
}

// Records strips the addresses from entries.
func Records(entries []Entry) []Record {
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}

// =============================================================================
// BUCKETS - The whole store
// =============================================================================

// Buckets maps a date key to the records filed under it. Buckets under
// malformed keys survive a load/save round trip but are invisible to
// queries.
type Buckets map[calendar.DateKey][]Record

// Keys returns the valid date keys in ascending order.
func (b Buckets) Keys() []calendar.DateKey {
	keys := make([]calendar.DateKey, 0, len(b))
	for k := range b {
		if k.Valid() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Count returns the number of records in all buckets.
func (b Buckets) Count() int {
	n := 0
	for _, records := range b {
		n += len(records)
	}
	return n
}

// Clone returns a copy that shares no slices with b.
func (b Buckets) Clone() Buckets {
	out := make(Buckets, len(b))
	for k, records := range b {
		out[k] = append([]Record{}, records...)
	}
	return out
}

// Flatten returns every entry, by ascending date then bucket position.
func (b Buckets) Flatten() []Entry {
	var out []Entry
	for _, k := range b.Keys() {
		out = appendBucket(out, k, b[k])
	}
	return out
}

// Range returns the entries whose date falls in p.
func (b Buckets) Range(p calendar.Period) []Entry {
	var out []Entry
	for _, k := range b.Keys() {
		if p.Contains(k) {
			out = appendBucket(out, k, b[k])
		}
	}
	return out
}

// Find returns the position of the action with id.
func (b Buckets) Find(id string) (calendar.DateKey, int, bool) {
	if id == "" {
		return "", 0, false
	}
	for _, k := range b.Keys() {
		for i, r := range b[k] {
			if !r.IsLegacy() && r.ID() == id {
				return k, i, true
			}
		}
	}
	return "", 0, false
}

func appendBucket(out []Entry, date calendar.DateKey, records []Record) []Entry {
	for i, r := range records {
		out = append(out, Entry{Record: r, Date: date, Index: i})
	}
	return out
}

func removeAt(records []Record, i int) []Record {
	out := make([]Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	return append(out, records[i+1:]...)
}
