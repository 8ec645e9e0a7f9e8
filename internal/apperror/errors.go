// Package apperror defines the error taxonomy shared by the reconciliation
// engine, the bulk upload processor and the HTTP layer.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports missing or malformed input
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

// Validation builds a ValidationError
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReferenceNotFoundError is returned when a natural-key lookup has no match
type ReferenceNotFoundError struct {
	Kind string // category, brand or supplier
	Name string
}

func (e *ReferenceNotFoundError) Error() string {
	kind := e.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s not found: %s", kind, e.Name)
}

// InvalidEnumError reports a value outside a closed set
type InvalidEnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidEnumError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required (one of %s)", e.Field, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("invalid %s %q (one of %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// PersistenceError wraps a failed call to the record store. Its message is
// the store's own message.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it already carries a
// more specific classification.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		pe  *PersistenceError
		ve  *ValidationError
		se  *InvalidStateError
		te  *TimeoutError
		ce  *ConflictError
		pre *PreconditionError
	)
	if errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &se) ||
		errors.As(err, &te) || errors.As(err, &ce) || errors.As(err, &pre) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op}
	}
	return &PersistenceError{Op: op, Err: err}
}

// PreconditionError reports an operation attempted on something that does not exist
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// Precondition builds a PreconditionError
func Precondition(format string, args ...any) error {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports a forbidden status transition
type InvalidStateError struct {
	From string
	To   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot move reconciliation from %s to %s", e.From, e.To)
}

// TimeoutError reports an operation that exceeded its time budget
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Op)
}

// ConflictError reports a uniqueness violation such as a duplicate SKU
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// HTTPStatus maps err onto the status code the API answers with
func HTTPStatus(err error) int {
	var (
		ve  *ValidationError
		ee  *InvalidEnumError
		rn  *ReferenceNotFoundError
		pre *PreconditionError
		ise *InvalidStateError
		ce  *ConflictError
		te  *TimeoutError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ee), errors.As(err, &rn):
		return http.StatusBadRequest
	case errors.As(err, &pre):
		return http.StatusNotFound
	case errors.As(err, &ise), errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text reported to callers for err, falling back to
// "Unknown error" when err carries none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}
