// Package domainerrors provides coded domain errors shared across modules.
// Import it aliased as dErrors.
//
// Services return these so transport layers can map failures onto distinct
// user-visible messages instead of a generic 500. Stores return sentinel
// errors (pkg/platform/sentinel) and services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure. Codes are stable strings so they can be
// serialized in API responses and asserted in tests.
type Code string

const (
	// CodeInvalidInput marks malformed or missing request fields (caller's fault).
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks an unknown token, alert, or fence id.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition marks an alert state machine violation.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeExpired marks an identity past its validity window.
	CodeExpired Code = "expired"
	// CodeInvalidGeometry marks a malformed fence shape.
	CodeInvalidGeometry Code = "invalid_geometry"
	// CodeConflict marks a uniqueness or concurrent-update conflict.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a model invariant breach. These indicate a
	// programming defect when they escape the service layer.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for readability at call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the code carried by err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message carried by err, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
