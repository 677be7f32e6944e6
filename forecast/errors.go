/*
errors.go - Centralized error types for the forecast engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (api, store, factory) match them with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Date errors       - malformed or impossible calendar dates
  2. Validation errors - bad ranges, rules and transactions
  3. Lookup errors     - unknown accounts or transactions

Every failure is local and recoverable. The engine never retries and never
returns a partial projection: a validation failure aborts the whole call.

Clamping (Jan 31 + 1 month, day 31 in a 30-day month) is NOT an error.

SEE ALSO:
  - date.go: produces DateError
  - recurrence.go: produces RuleError
  - types.go: produces TransactionError
*/
package forecast

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateFormat is returned when a date string is not exactly YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidCalendarDate is returned for well-formed but impossible dates (2025-04-31).
	ErrInvalidCalendarDate = errors.New("invalid calendar date")

	// ErrInvalidRange is returned when a window ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrInvalidRecurrenceRule is returned when a selector is outside its domain.
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")

	// ErrInvalidTransaction is returned for negative settlement lag or
	// references to accounts that are not part of the snapshot.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAccountExists is returned when creating an account whose ID is taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrTransactionExists is returned when creating a transaction whose ID is taken.
	ErrTransactionExists = errors.New("transaction already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateError reports which input could not be turned into a LogicalDate.
type DateError struct {
	Input string
	Err   error // ErrInvalidDateFormat or ErrInvalidCalendarDate
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Input)
}

func (e *DateError) Unwrap() error { return e.Err }

// RuleError names the offending field of a recurrence rule.
type RuleError struct {
	Field  string
	Value  any
	Reason string
}

func (e *RuleError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid recurrence rule: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid recurrence rule: %s=%v %s", e.Field, e.Value, e.Reason)
}

func (e *RuleError) Unwrap() error { return ErrInvalidRecurrenceRule }

// TransactionError explains why a transaction was rejected.
type TransactionError struct {
	ID     TransactionID
	Reason string
	Err    error // optional cause, e.g. a RuleError
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("invalid transaction %q: %s", e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// ErrInvalidTransaction as well as e.g. ErrInvalidRecurrenceRule.
func (e *TransactionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidTransaction}
	}
	return []error{ErrInvalidTransaction, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidCalendarDate) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidRecurrenceRule) ||
		errors.Is(err, ErrInvalidTransaction)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the error indicates a duplicate ID on create.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrTransactionExists)
}
