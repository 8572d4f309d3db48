/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract: the persisted blob
  uses camelCase field names, the API uses snake_case.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Actions:
    ActionDTO, EntryDTO, CreateActionRequest, ReplaceActionRequest,
    ActionsResponse, MutationResponse

  Calendar:
    GridResponse

  Admin:
    CompactResponse, CompactionRunDTO

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/types.go: Action, Record, Entry
*/
package api

import (
	"time"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/store/sqlite"
)

// =============================================================================
// ACTIONS
// =============================================================================

// ActionDTO represents a structured action in requests and responses.
type ActionDTO struct {
	ID          string `json:"id,omitempty"`
	Category    string `json:"category,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Location    string `json:"location,omitempty"`
	TimeOfDay   string `json:"time_of_day,omitempty"`
	Date        string `json:"date,omitempty"`
}

// EntryDTO is one record of a resolved view. Legacy records carry only
// their text (as Title) and no Action.
type EntryDTO struct {
	Date   string     `json:"date"`
	Index  int        `json:"index"`
	Legacy bool       `json:"legacy"`
	Title  string     `json:"title"`
	Action *ActionDTO `json:"action,omitempty"`
}

// CreateActionRequest inserts either a structured action or a legacy text record.
type CreateActionRequest struct {
	Date   string     `json:"date"`
	Action *ActionDTO `json:"action,omitempty"`
	Text   *string    `json:"text,omitempty"`
}

// ReplaceActionRequest is the full replacement of an action. An empty Date
// keeps the action on its current date.
type ReplaceActionRequest = ActionDTO

// MutationResponse reports where a write landed. Retained is false when
// the record was accepted but will be dropped by the retention rule.
type MutationResponse struct {
	Date     string     `json:"date"`
	Retained bool       `json:"retained"`
	Legacy   bool       `json:"legacy"`
	Title    string     `json:"title"`
	Action   *ActionDTO `json:"action,omitempty"`
}

// PeriodDTO is an inclusive day range.
type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ActionsResponse is a resolved view.
type ActionsResponse struct {
	View    string     `json:"view"`
	Period  *PeriodDTO `json:"period,omitempty"`
	Count   int        `json:"count"`
	Entries []EntryDTO `json:"entries"`
}

// OptionsResponse lists facet options, "ALL" first.
type OptionsResponse struct {
	Options []string `json:"options"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// GridResponse is a month grid. Month is zero-based like the request.
type GridResponse struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	WeekStart string          `json:"week_start"`
	Cells     []calendar.Cell `json:"cells"`
}

// =============================================================================
// ADMIN
// =============================================================================

// CompactResponse reports a compaction.
type CompactResponse struct {
	Records int   `json:"records"`
	Dropped int   `json:"dropped"`
	RunID   int64 `json:"run_id,omitempty"`
}

// CompactionRunDTO is an audited compaction run.
type CompactionRunDTO struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	Records     int    `json:"records"`
	Dropped     int    `json:"dropped"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toActionDTO(a schedule.Action) *ActionDTO {
	return &ActionDTO{
		ID:          a.ID,
		Category:    a.Category,
		Title:       a.Title,
		Description: a.Description,
		SubjectID:   a.SubjectID,
		SubjectName: a.SubjectName,
		AssignedTo:  a.AssignedTo,
		Status:      a.Status,
		Priority:    a.Priority,
		Location:    a.Location,
		TimeOfDay:   a.TimeOfDay,
		Date:        string(a.Date),
	}
}

func (d ActionDTO) toAction() schedule.Action {
	return schedule.Action{
		ID:          d.ID,
		Category:    d.Category,
		Title:       d.Title,
		Description: d.Description,
		SubjectID:   d.SubjectID,
		SubjectName: d.SubjectName,
		AssignedTo:  d.AssignedTo,
		Status:      d.Status,
		Priority:    d.Priority,
		Location:    d.Location,
		TimeOfDay:   d.TimeOfDay,
		Date:        calendar.DateKey(d.Date),
	}
}

func toEntryDTO(date calendar.DateKey, index int, r schedule.Record) EntryDTO {
	dto := EntryDTO{
		Date:   string(date),
		Index:  index,
		Legacy: r.IsLegacy(),
		Title:  r.Title(),
	}
	if a, ok := r.Action(); ok {
		dto.Action = toActionDTO(a)
	}
	return dto
}

func toMutationResponse(res schedule.UpsertResult) MutationResponse {
	resp := MutationResponse{
		Date:     string(res.Date),
		Retained: res.Retained,
		Legacy:   res.Record.IsLegacy(),
		Title:    res.Record.Title(),
	}
	if a, ok := res.Record.Action(); ok {
		resp.Action = toActionDTO(a)
	}
	return resp
}

func toEntryDTOs(entries []schedule.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e.Date, e.Index, e.Record)
	}
	return dtos
}

func toCompactionRunDTO(r sqlite.CompactionRun) CompactionRunDTO {
	return CompactionRunDTO{
		ID:          r.ID,
		Source:      r.Source,
		Records:     r.Records,
		Dropped:     r.Dropped,
		Error:       r.Error,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
		CompletedAt: r.CompletedAt.Format(time.RFC3339),
	}
}
