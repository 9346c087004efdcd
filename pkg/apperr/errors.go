// Package apperr defines the error vocabulary shared by depot's stores,
// services and HTTP handlers.
//
// Stores translate driver errors into these values; services add domain
// failures; the API layer maps them onto HTTP status codes. Callers test
// with errors.Is and errors.As, never by string comparison.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the common failure classes.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation conflicts with current state:
	// duplicate keys, stale revisions, illegal status transitions.
	ErrConflict = errors.New("conflict")

	// ErrInvalid is returned for malformed input that is not tied to a field.
	ErrInvalid = errors.New("invalid request")

	// ErrUnauthorized is returned when the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// NotFound returns an error wrapping ErrNotFound that names the entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Conflict returns an error wrapping ErrConflict with a message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Invalid returns an error wrapping ErrInvalid with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// ValidationError collects per-field validation failures.
type ValidationError struct {
	// Fields maps a field name (JSON name, or form field id) to its messages.
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no failures were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e when it holds failures and nil otherwise, so callers can
// write `return verr.OrNil()` without returning a typed nil.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error implements the error interface. Fields are listed in sorted order so
// the message is stable.
func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrInvalid) match validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// StorageError represents an error from the database backend.
type StorageError struct {
	Backend   string // driver name ("sqlite3", "postgres", ...)
	Operation string // operation that failed ("insert_asset", "migrate", ...)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
