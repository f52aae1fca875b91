package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrMissingRate         = errors.New("missing exchange rate")
	ErrInsufficientHistory = errors.New("insufficient history")
)

// ValidationError reports a record that cannot be repaired at a stage boundary.
type ValidationError struct {
	Stage  string // pipeline stage that rejected the record
	Row    int    // index of the record in the stage input, -1 if not applicable
	Field  string // offending field
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%s: row %d: invalid %s: %s", e.Stage, e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Stage, e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MissingRateError reports a (currency, date) pair present in the data
// for which the rate table has no entry.
type MissingRateError struct {
	Currency string
	Date     time.Time
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no exchange rate for %s on %s", e.Currency, e.Date.Format(time.DateOnly))
}

// Is reports whether target is ErrMissingRate.
func (e *MissingRateError) Is(target error) bool {
	return target == ErrMissingRate
}

// InsufficientHistoryError is returned when featurizing or predicting for an
// entity with no observation before the requested day.
type InsufficientHistoryError struct {
	EntityID string
	Day      time.Time
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("entity %s has no history before %s", e.EntityID, e.Day.Format(time.DateOnly))
}

// Is reports whether target is ErrInsufficientHistory.
func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}
