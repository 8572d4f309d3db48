/*
errors.go - Centralized error types for the scheduling engine

ERROR CATEGORIES:
  1. Validation errors - bad caller input (dates, months, views, limits).
     These reuse calendar.ValidationError so callers test one type.
  2. Record errors - positional or identity lookups that miss, records the
     retention rule refuses.
  3. Persistence errors - blob reads/writes that fail. Writes are never
     swallowed; they come back as *PersistenceError.

Parse failures of the persisted blob are NOT errors for callers: Load
recovers to an empty store and reports ErrParse through logs and metrics.

SEE ALSO:
  - calendar/errors.go: ValidationError
  - api/handlers.go: HTTP status mapping via IsClientError / IsNotFound
*/
package schedule

import (
	"errors"
	"fmt"

	"github.com/warp/action-calendar/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrParse marks a persisted blob that could not be decoded.
	ErrParse = errors.New("malformed action store blob")

	// ErrPersistenceRead is returned when the blob collaborator fails a read.
	ErrPersistenceRead = errors.New("action store read failed")

	// ErrPersistenceWrite is returned when the blob collaborator fails a write.
	ErrPersistenceWrite = errors.New("action store write failed")

	// ErrNotRetained is returned when the retention rule refuses a record at
	// write time (RetentionReject mode).
	ErrNotRetained = errors.New("record rejected by retention rule")

	// ErrBucketNotFound is returned for positional removal on a date with no bucket.
	ErrBucketNotFound = errors.New("no actions on date")

	// ErrIndexOutOfRange is returned for positional removal past the bucket end.
	ErrIndexOutOfRange = errors.New("action index out of range")

	// ErrActionNotFound is returned when no action carries the requested id.
	ErrActionNotFound = errors.New("action not found")

	// ErrDuplicateAction is returned when an inserted action reuses an existing id.
	ErrDuplicateAction = errors.New("action id already exists")

	// ErrInvalidRecord is returned for records that cannot be stored as given.
	ErrInvalidRecord = errors.New("invalid action record")

	// ErrInvalidView is returned for unknown timeframe views.
	ErrInvalidView = errors.New("invalid timeframe view")

	// ErrInvalidQuery is returned for out-of-range query parameters.
	ErrInvalidQuery = errors.New("invalid query parameter")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersistenceError reports a failed blob operation.
type PersistenceError struct {
	Op  string // "get" or "put"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	if e.Op == "get" {
		return []error{ErrPersistenceRead, e.Err}
	}
	return []error{ErrPersistenceWrite, e.Err}
}

// RetentionError names the category the retention rule refused.
type RetentionError struct {
	Date     calendar.DateKey
	Category string
	Rule     string
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("record on %s with category %q rejected by retention rule %s",
		e.Date, e.Category, e.Rule)
}

func (e *RetentionError) Unwrap() error {
	return ErrNotRetained
}

func invalidQuery(field string, value any) error {
	return &calendar.ValidationError{Field: field, Value: fmt.Sprint(value), Err: ErrInvalidQuery}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return calendar.IsValidationError(err) ||
		errors.Is(err, ErrNotRetained) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidView) ||
		errors.Is(err, ErrDuplicateAction)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrActionNotFound) ||
		errors.Is(err, ErrBucketNotFound)
}

// IsConflict returns true for writes that clash with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAction)
}
