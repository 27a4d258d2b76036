package templar

import (
	"errors"
	"fmt"

	"github.com/templar-dev/templar/resolver"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// CodeParse marks a malformed template fragment. Localized; the rest
	// of the document still parses.
	CodeParse ErrorCode = "parse_error"
	// CodeUnresolved marks a non-optional class or member with no
	// runtime counterpart. It invalidates the owning container.
	CodeUnresolved ErrorCode = "unresolved_reference"
	// CodeTypeMismatch marks a member whose declared and actual types
	// disagree without a declared cast.
	CodeTypeMismatch ErrorCode = "type_mismatch"
	// CodeConversionMissing marks a declared cast with no converter
	// registered or composable. It invalidates that member only.
	CodeConversionMissing ErrorCode = "conversion_missing"
	// CodeGeneration marks unavailable specialized synthesis. Recovered
	// locally by the introspection fallback, never surfaced to callers.
	CodeGeneration ErrorCode = "generation_failure"
	// CodeInvocation marks a failed member invocation; the original
	// cause is preserved where classifiable.
	CodeInvocation ErrorCode = "invocation_error"
	// CodeInvalidArgument marks bad input to an otherwise valid call.
	CodeInvalidArgument ErrorCode = "invalid_argument"
	// CodeUnavailable marks use of a member that did not bind.
	CodeUnavailable ErrorCode = "unavailable"
	// CodeInvalidConfig marks a rejected Engine configuration.
	CodeInvalidConfig ErrorCode = "invalid_config"
)

// Error is the standard error envelope of the package.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new error with the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause returns a copy of the error carrying an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

// CodeOf extracts the error code, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Code
	}
	return ""
}

// classifyBinding maps resolver diagnostics onto the error taxonomy.
func classifyBinding(err error) *Error {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr
	}
	switch {
	case errors.Is(err, resolver.ErrTypeMismatch):
		return NewError(CodeTypeMismatch, "declared and actual types disagree").WithCause(err)
	case errors.Is(err, resolver.ErrUnresolved):
		return NewError(CodeUnresolved, "no runtime counterpart").WithCause(err)
	default:
		return NewError(CodeUnresolved, "binding failed").WithCause(err)
	}
}
