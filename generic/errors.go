/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every workflow failure is reported synchronously as one of these kinds,
  and the record being operated on is left in its prior valid state.

ERROR CATEGORIES:
  1. Validation errors  - malformed or missing input (past date, empty opinion)
  2. Permission errors  - the actor's role does not permit the operation
  3. State conflicts    - the record is not in the state the operation needs
  4. Balance errors     - no credit left for the year and no override allowed
  5. Schedule conflicts - overlapping vacation/leave/event for the officer
  6. Store errors       - bubbled up from persistence, wrapped with %w

USAGE:
  Callers classify with errors.Is against the sentinels, or errors.As to get
  the structured detail:

    var balErr *generic.BalanceError
    if errors.As(err, &balErr) {
        fmt.Println("balance is", balErr.Balance)
    }

SEE ALSO:
  - api/errors.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")

	ErrPermission = errors.New("permission denied")

	// ErrStateConflict is returned when the current record state does not
	// match the precondition of the requested transition. Re-fetch and retry.
	ErrStateConflict = errors.New("state conflict")

	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrScheduleConflict is returned when a commitment overlaps another
	// commitment of the same officer.
	ErrScheduleConflict = errors.New("schedule conflict")

	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned by stores when an optimistic
	// version check fails.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PermissionError reports a role that may not perform an operation.
type PermissionError struct {
	Role      Role
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: role %s cannot %s", e.Role, e.Operation)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

// StateConflictError reports a transition attempted from the wrong state.
type StateConflictError struct {
	SubjectID string
	Operation string
	Current   string
	Err       error // optional cause, e.g. ErrConcurrentModification
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("state conflict: cannot %s %s in state %s", e.Operation, e.SubjectID, e.Current)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StateConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStateConflict, e.Err}
	}
	return []error{ErrStateConflict}
}

// BalanceError reports an exhausted yearly credit balance. Balance is the
// computed value so callers can display it.
type BalanceError struct {
	OfficerID string
	Year      int
	Balance   int
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("no balance for year %d", e.Year)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }

// CommitmentKind names what an officer is already committed to.
type CommitmentKind string

const (
	CommitmentLeave    CommitmentKind = "leave"
	CommitmentVacation CommitmentKind = "vacation"
	CommitmentEvent    CommitmentKind = "event"
)

// ConflictError reports the first overlapping commitment found for an officer.
// Only one conflict is ever reported; callers re-check after resolving it.
type ConflictError struct {
	OfficerID string
	Date      Date
	Kind      CommitmentKind
	RecordID  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict: officer %s already has a %s on %s (%s)",
		e.OfficerID, e.Kind, e.Date, e.RecordID)
}

func (e *ConflictError) Unwrap() error { return ErrScheduleConflict }

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after re-reading state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to the caller's input or
// the current state, rather than a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPermission) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrScheduleConflict) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
