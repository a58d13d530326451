// Package errs defines the typed failure modes of the cycle-count engine.
// Every operation returns one of these (possibly wrapped) so callers can
// distinguish caller-fixable input problems from lifecycle violations,
// concurrency guards, and downstream outages.
package errs

import (
	"fmt"
	"strings"
)

// ValidationError: malformed or out-of-range input. Caller-fixable,
// never retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a named field.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError: the operation is not legal in the entity's current
// lifecycle state. Carries the current state and the allowed transitions so
// the caller can act on it.
type InvalidStateError struct {
	Entity  string
	ID      string
	Current string
	Allowed []string
}

func (e *InvalidStateError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("%s %s is in terminal state %q", e.Entity, e.ID, e.Current)
	}
	return fmt.Sprintf("%s %s is %q; allowed transitions: %s",
		e.Entity, e.ID, e.Current, strings.Join(e.Allowed, ", "))
}

// InvalidState builds an InvalidStateError.
func InvalidState(entity, id, current string, allowed []string) error {
	return &InvalidStateError{Entity: entity, ID: id, Current: current, Allowed: allowed}
}

// ConflictError: a concurrent mutation or duplicate-application guard
// tripped. The losing caller should re-read and decide, not blindly retry.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict builds a ConflictError.
func Conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError: a referenced entity is absent.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// DependencyError: the inventory source adapter was unavailable or timed
// out. The triggering operation is left in a retriable state.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("inventory source %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps an adapter failure.
func Dependency(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}
