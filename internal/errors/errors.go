// Package errors provides centralized error definitions for the coordination
// layer. It defines sentinel errors for the lock and state subsystems,
// semantic error types with context, and classification helpers.
//
// The coordination layer never propagates these errors to external
// collaborators: every failure degrades to "no state" on reads or
// "logged, best-effort attempted" on writes. The types here exist so the
// internal packages can classify failures consistently before logging them.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for the lock and state subsystems.
var (
	// ErrLockTimeout is returned when a lock could not be acquired within
	// the caller's timeout budget. Non-fatal: callers proceed unlocked.
	ErrLockTimeout = errors.New("timed out waiting for lock")

	// ErrLockHeld is returned when a fresh lock file belonging to another
	// process still exists.
	ErrLockHeld = errors.New("lock held by another process")

	// ErrStateNotFound is returned when no state file exists at the
	// resolved path.
	ErrStateNotFound = errors.New("state not found")

	// ErrUnknownKind is returned when no schema contract is registered for
	// a state kind.
	ErrUnknownKind = errors.New("unknown state kind")
)

// TimeoutError represents a bounded wait that expired.
type TimeoutError struct {
	Op      string        // The operation that timed out (e.g., "acquire")
	Path    string        // The contended path
	Timeout time.Duration // The budget that was exhausted
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: %v elapsed: %v", e.Op, e.Path, e.Timeout, ErrLockTimeout)
}

// Unwrap returns ErrLockTimeout so errors.Is works.
func (e *TimeoutError) Unwrap() error {
	return ErrLockTimeout
}

// NewTimeoutError creates a TimeoutError for the given operation.
func NewTimeoutError(op, path string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Path: path, Timeout: timeout}
}

// ValidationError represents a schema contract violation on a deserialized
// state record. It carries field-level diagnostics for logging; callers
// treat the record as absent.
type ValidationError struct {
	Kind     string // State kind whose contract was violated
	Field    string // First field that violated the contract
	Expected string // Expected primitive type
	Observed any    // Value actually present (nil if missing)
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Observed == nil {
		return fmt.Sprintf("state kind %q: field %q missing (expected %s)", e.Kind, e.Field, e.Expected)
	}
	return fmt.Sprintf("state kind %q: field %q expected %s, observed %v", e.Kind, e.Field, e.Expected, e.Observed)
}

// NewValidationError creates a ValidationError with field diagnostics.
func NewValidationError(kind, field, expected string, observed any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Expected: expected, Observed: observed}
}

// IsTimeout reports whether err is a lock-wait timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// IsValidation reports whether err is a schema contract violation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
