/*
errors.go - Validation errors for calendar inputs

PURPOSE:
  Date keys, years and months reach this package straight from callers
  (HTTP query strings, CLI flags, persisted blobs). Anything malformed is
  reported as a ValidationError instead of silently producing a nonsense
  grid or range.

USAGE:
  if _, err := calendar.ParseDateKey("2024-02-30"); err != nil {
      var verr *calendar.ValidationError
      errors.As(err, &verr) // verr.Field == "date"
      errors.Is(err, calendar.ErrInvalidDate) // true
  }

SEE ALSO:
  - schedule/errors.go: Engine-level errors that wrap these
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for date keys that are not YYYY-MM-DD
	// calendar dates.
	ErrInvalidDate = errors.New("invalid date key")

	// ErrInvalidMonth is returned for month values outside the accepted range.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidYear is returned for years outside MinYear..MaxYear.
	ErrInvalidYear = errors.New("invalid year")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports which input was rejected and why.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, value any, err error) error {
	return &ValidationError{Field: field, Value: fmt.Sprint(value), Err: err}
}

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
