// Package relerr defines the stable error codes shared by the analyzer,
// the registry and the CLI.
package relerr

import (
	"errors"
	"fmt"
)

// Code identifies a failure mode. Codes are stable and append-only.
type Code string

const (
	// IntrospectorCrashed indicates the introspection worker died or stopped answering
	IntrospectorCrashed Code = "INTROSPECTOR_CRASHED"
	// ModuleNotFound indicates a file could not be attributed to a framework module
	ModuleNotFound Code = "MODULE_NOT_FOUND"
	// ParseFailed indicates a file could not be parsed
	ParseFailed Code = "PARSE_FAILED"
	// UnknownModel indicates a model name absent from the registry session
	UnknownModel Code = "UNKNOWN_MODEL"
	// UnknownPoolKey indicates an unsupported registry kind value
	UnknownPoolKey Code = "UNKNOWN_POOL_KEY"
	// SnapshotInvalid indicates a schema snapshot file could not be loaded
	SnapshotInvalid Code = "SNAPSHOT_INVALID"
	// InternalError indicates an unexpected failure
	InternalError Code = "INTERNAL_ERROR"
)

// Error is a kind-tagged error carrying an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var re *Error
	for errors.As(err, &re) {
		if re.Code == code {
			return true
		}
		err = re.cause
		if err == nil {
			return false
		}
	}
	return false
}
