// Package operr defines the uniform error taxonomy returned by every
// public macroforge operation. Callers match on Kind rather than on
// concrete types, so transports can map failures without knowing which
// package produced them.
package operr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind string

const (
	// KindValidation marks malformed input the caller can fix.
	KindValidation Kind = "validation_error"

	// KindSecurityViolation marks a hard security boundary breach: a
	// dangerous pattern in script content or a protected installation
	// target. Never retried automatically; the request itself must
	// change.
	KindSecurityViolation Kind = "security_violation"

	// KindNotFound marks a reference to an unknown plugin id.
	KindNotFound Kind = "not_found"

	// KindAlreadyExists marks an installation target collision without
	// force_install.
	KindAlreadyExists Kind = "already_exists"

	// KindInvalidStateTransition marks a lifecycle contract breach.
	KindInvalidStateTransition Kind = "invalid_state_transition"

	// KindPrecondition marks a broken operation precondition. Always a
	// defect signal, reported separately from user errors.
	KindPrecondition Kind = "precondition_violation"

	// KindPostcondition marks an operation that produced a result
	// violating its own contract. Always a defect, never a user error.
	KindPostcondition Kind = "postcondition_violation"

	// KindSystem marks an unexpected internal failure, e.g. a
	// filesystem error during assembly. May be retried once by the
	// caller after confirming resource availability.
	KindSystem Kind = "system_error"
)

// Error is the tagged failure value carried across every public
// boundary. Every instance has a human-readable message and a recovery
// suggestion; security violations additionally enumerate the matched
// threat descriptions.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Threats    []string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, message, suggestion string) *Error {
	return &Error{Kind: kind, Message: message, Suggestion: suggestion}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, suggestion, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Suggestion: suggestion}
}

// Wrap creates an Error of the given kind wrapping a cause.
func Wrap(kind Kind, message, suggestion string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Suggestion: suggestion, Cause: cause}
}

// Validation creates a user-fixable input error.
func Validation(message, suggestion string) *Error {
	return New(KindValidation, message, suggestion)
}

// Validationf creates a user-fixable input error with a formatted message.
func Validationf(suggestion, format string, args ...any) *Error {
	return Newf(KindValidation, suggestion, format, args...)
}

// Security creates a hard security violation carrying the matched
// threat descriptions.
func Security(message string, threats []string) *Error {
	return &Error{
		Kind:       KindSecurityViolation,
		Message:    message,
		Suggestion: "remove the flagged constructs from the script and resubmit",
		Threats:    threats,
	}
}

// NotFound creates an unknown-plugin-id error.
func NotFound(pluginID string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("plugin %q is not registered", pluginID),
		Suggestion: "list registered plugins with plugin_status and retry with a known id",
	}
}

// System creates an unexpected internal failure wrapping its cause.
func System(message string, cause error) *Error {
	return &Error{
		Kind:       KindSystem,
		Message:    message,
		Suggestion: "confirm disk space and permissions, then retry once",
		Cause:      cause,
	}
}

// KindOf extracts the Kind from err, or KindSystem when err is not an
// operr.Error. A nil err has no kind and returns the empty string.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsDefect reports whether err signals a contract breach inside
// macroforge itself rather than bad input. Defects are logged
// distinctly and never retried.
func IsDefect(err error) bool {
	k := KindOf(err)
	return k == KindPrecondition || k == KindPostcondition
}

// Retryable reports whether the caller may retry the operation once
// after confirming resource availability.
func Retryable(err error) bool {
	return KindOf(err) == KindSystem
}
