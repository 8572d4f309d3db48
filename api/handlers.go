/*
handlers.go - HTTP API handlers for the action calendar

PURPOSE:
  Exposes the scheduling engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to schedule.Engine.

ENDPOINTS:
  Calendar:
    GET    /api/grid?year=&month=            Month grid (month 0..11)

  Actions:
    GET    /api/actions?view=&date=...       Resolve a view
    POST   /api/actions                      Insert action or legacy text
    PUT    /api/actions/{id}                 Replace action by id
    DELETE /api/actions/{date}/{index}       Remove by position
    DELETE /api/actions/by-id/{id}           Remove by id

  Facets:
    GET    /api/facets/subjects?actor=&group=
    GET    /api/facets/actors

  Reporting:
    GET    /api/summary?view=&date=...       Counts and shares
    GET    /api/export.ics?view=&date=...    iCalendar export

  Store:
    GET    /api/store                        Raw persisted map
    PUT    /api/store                        Replace the persisted map

  Admin:
    POST   /api/admin/compact                Compact now
    GET    /api/admin/compactions            Compaction audit trail

QUERY PARAMETERS (views):
  view        day | week | month | upcoming (default upcoming)
  date        reference day, YYYY-MM-DD (default today)
  actor       specific assignee, ALL or empty for none
  group       group assignee, used when actor is not set
  subject     subject name
  q           case-insensitive search text
  limit       upcoming only
  days_ahead  upcoming only

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, retention rejections
  - 404: Unknown action id, missing bucket
  - 409: Duplicate action id
  - 500: Persistence failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/export"
	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// CompactionHistory lists recorded compaction runs, newest first.
type CompactionHistory interface {
	ListCompactions(ctx context.Context, limit int) ([]sqlite.CompactionRun, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *schedule.Engine
	Compactor *Compactor

	// History is optional; without it the audit endpoint returns an empty list.
	History CompactionHistory

	Export export.ICSOptions
	Log    zerolog.Logger
}

// NewHandler creates a new handler over engine.
func NewHandler(engine *schedule.Engine, compactor *Compactor) *Handler {
	return &Handler{
		Engine:    engine,
		Compactor: compactor,
		Export:    export.ICSOptions{Location: engine.Location},
		Log:       zerolog.Nop(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CALENDAR
// =============================================================================

// GetGrid returns the month grid for year and zero-based month.
func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	year, err := intParam(r, "year", today.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := intParam(r, "month", int(today.Month())-1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	grid, err := h.Engine.BuildGrid(year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to build grid", err)
		return
	}

	writeJSON(w, http.StatusOK, GridResponse{
		Year:      year,
		Month:     month,
		WeekStart: h.Engine.WeekStart.String(),
		Cells:     grid,
	})
}

// =============================================================================
// ACTIONS
// =============================================================================

// ListActions resolves the requested view.
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	entries, err := h.Engine.Resolve(r.Context(), q)
	if err != nil {
		h.writeEngineError(w, "Failed to resolve actions", err)
		return
	}

	resp := ActionsResponse{
		View:    string(q.View),
		Count:   len(entries),
		Entries: toEntryDTOs(entries),
	}
	if p, err := schedule.PeriodFor(q, h.Engine.WeekStart); err == nil {
		resp.Period = &PeriodDTO{Start: string(p.Start), End: string(p.End)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAction inserts a structured action or a legacy text record.
func (h *Handler) CreateAction(w http.ResponseWriter, r *http.Request) {
	var req CreateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var record schedule.Record
	date := req.Date
	switch {
	case req.Action != nil && req.Text != nil:
		writeError(w, http.StatusBadRequest, "Provide either action or text, not both", nil)
		return
	case req.Action != nil:
		if date == "" {
			date = req.Action.Date
		}
		record = schedule.NewActionRecord(req.Action.toAction())
	case req.Text != nil:
		record = schedule.NewLegacyRecord(*req.Text)
	default:
		writeError(w, http.StatusBadRequest, "Missing action or text", nil)
		return
	}

	res, err := h.Engine.Upsert(r.Context(), calendar.DateKey(date), record)
	if err != nil {
		h.writeEngineError(w, "Failed to create action", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMutationResponse(res))
}

// ReplaceAction replaces the action with the id in the path.
func (h *Handler) ReplaceAction(w http.ResponseWriter, r *http.Request) {
	var req ReplaceActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "Body id does not match path", nil)
		return
	}
	req.ID = id

	res, err := h.Engine.Replace(r.Context(), req.toAction())
	if err != nil {
		h.writeEngineError(w, "Failed to replace action", err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationResponse(res))
}

// DeleteAt removes the record at a position in a day's bucket.
func (h *Handler) DeleteAt(w http.ResponseWriter, r *http.Request) {
	date := calendar.DateKey(chi.URLParam(r, "date"))
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid index", err)
		return
	}

	if err := h.Engine.RemoveAt(r.Context(), date, index); err != nil {
		h.writeEngineError(w, "Failed to remove action", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByID removes the action carrying id.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	date, err := h.Engine.RemoveByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, "Failed to remove action", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": string(date)})
}

// =============================================================================
// FACETS
// =============================================================================

// SubjectOptions lists subject names, scoped to the actor selection.
func (h *Handler) SubjectOptions(w http.ResponseWriter, r *http.Request) {
	actor := schedule.ActorFilter{
		Specific: r.URL.Query().Get("actor"),
		Group:    r.URL.Query().Get("group"),
	}
	opts, err := h.Engine.DeriveSubjectOptions(r.Context(), actor)
	if err != nil {
		h.writeEngineError(w, "Failed to list subjects", err)
		return
	}
	writeJSON(w, http.StatusOK, OptionsResponse{Options: opts})
}

// ActorOptions lists assignees.
func (h *Handler) ActorOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Engine.DeriveActorOptions(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list actors", err)
		return
	}
	writeJSON(w, http.StatusOK, OptionsResponse{Options: opts})
}

// =============================================================================
// REPORTING
// =============================================================================

// Summary counts the entries of the requested view.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	summary, err := h.Engine.Summarize(r.Context(), q)
	if err != nil {
		h.writeEngineError(w, "Failed to summarize actions", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportICS renders the requested view as an iCalendar file.
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	entries, err := h.Engine.Resolve(r.Context(), q)
	if err != nil {
		h.writeEngineError(w, "Failed to resolve actions", err)
		return
	}

	opts := h.Export
	if opts.Location == nil {
		opts.Location = h.Engine.Location
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="actions.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteICS(w, entries, opts); err != nil {
		h.Log.Warn().Err(err).Msg("ics export write failed")
	}
}

// =============================================================================
// STORE
// =============================================================================

// GetStore returns the persisted map after retention.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	b, err := h.Engine.Load(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to load store", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PutStore replaces the persisted map. Body uses the persisted layout.
func (h *Handler) PutStore(w http.ResponseWriter, r *http.Request) {
	var b schedule.Buckets
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid store body", err)
		return
	}
	if b == nil {
		b = schedule.Buckets{}
	}

	res, err := h.Engine.Save(r.Context(), b)
	if err != nil {
		h.writeEngineError(w, "Failed to save store", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// ADMIN
// =============================================================================

// Compact runs retention compaction now.
func (h *Handler) Compact(w http.ResponseWriter, r *http.Request) {
	var (
		res schedule.SaveResult
		id  int64
		err error
	)
	if h.Compactor != nil {
		res, id, err = h.Compactor.RunOnce(r.Context(), SourceAPI)
	} else {
		res, err = h.Engine.Compact(r.Context())
	}
	if err != nil {
		h.writeEngineError(w, "Compaction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CompactResponse{Records: res.Records, Dropped: res.Dropped, RunID: id})
}

// ListCompactions returns recorded compaction runs, newest first.
func (h *Handler) ListCompactions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	dtos := []CompactionRunDTO{}
	if h.History != nil {
		runs, err := h.History.ListCompactions(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list compactions", err)
			return
		}
		for _, run := range runs {
			dtos = append(dtos, toCompactionRunDTO(run))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// parseQuery builds a schedule.Query from URL parameters.
func (h *Handler) parseQuery(r *http.Request) (schedule.Query, error) {
	values := r.URL.Query()

	view := schedule.ViewUpcoming
	if v := values.Get("view"); v != "" {
		parsed, err := schedule.ParseView(v)
		if err != nil {
			return schedule.Query{}, err
		}
		view = parsed
	}

	q := schedule.Query{
		View:      view,
		Reference: calendar.DateKey(values.Get("date")),
		Criteria: schedule.Criteria{
			Actor: schedule.ActorFilter{
				Specific: values.Get("actor"),
				Group:    values.Get("group"),
			},
			Subject: values.Get("subject"),
			Search:  values.Get("q"),
		},
	}
	if q.Reference == "" {
		q.Reference = h.today()
	}

	var err error
	if q.Limit, err = optionalIntParam(r, "limit"); err != nil {
		return schedule.Query{}, err
	}
	if q.DaysAhead, err = optionalIntParam(r, "days_ahead"); err != nil {
		return schedule.Query{}, err
	}
	return q, nil
}

// optionalIntParam returns nil when the parameter is absent so the engine
// applies its configured default.
func optionalIntParam(r *http.Request, name string) (*int, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	n, err := intParam(r, name, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (h *Handler) today() calendar.DateKey {
	now := time.Now
	if h.Engine.Now != nil {
		now = h.Engine.Now
	}
	loc := h.Engine.Location
	if loc == nil {
		loc = time.Local
	}
	return calendar.DateKeyOf(now().In(loc))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &calendar.ValidationError{Field: name, Value: s, Err: schedule.ErrInvalidQuery}
	}
	return n, nil
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case schedule.IsConflict(err):
		return http.StatusConflict
	case schedule.IsNotFound(err):
		return http.StatusNotFound
	case schedule.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg(message)
	}
	resp := ErrorResponse{Error: message, Code: errorCode(err), Details: err.Error()}
	writeJSON(w, status, resp)
}

// errorCode is a stable machine-readable name for known failures.
func errorCode(err error) string {
	switch {
	case errors.Is(err, schedule.ErrDuplicateAction):
		return "duplicate_action"
	case errors.Is(err, schedule.ErrActionNotFound):
		return "action_not_found"
	case errors.Is(err, schedule.ErrBucketNotFound):
		return "bucket_not_found"
	case errors.Is(err, schedule.ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, schedule.ErrNotRetained):
		return "not_retained"
	case errors.Is(err, schedule.ErrPersistenceWrite):
		return "persistence_write"
	case errors.Is(err, schedule.ErrPersistenceRead):
		return "persistence_read"
	case calendar.IsValidationError(err), errors.Is(err, schedule.ErrInvalidView),
		errors.Is(err, schedule.ErrInvalidRecord):
		return "invalid_input"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
