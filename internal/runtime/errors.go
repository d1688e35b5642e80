package runtime

import (
	"fmt"

	"github.com/rcrsr/rill/pkg/token"
)

// Runtime error codes. Every evaluation error carries one of these stable
// codes; the internal/errors registry documents them.
const (
	ErrParseInvalid     = "R_PARSE_INVALID"
	ErrUndefinedVar     = "R_UNDEFINED_VARIABLE"
	ErrTypeMismatch     = "R_TYPE_MISMATCH"
	ErrTypeLock         = "R_TYPE_LOCK"
	ErrFieldMissing     = "R_FIELD_MISSING"
	ErrIndexRange       = "R_INDEX_RANGE"
	ErrNonBoolCondition = "R_NON_BOOL_CONDITION"
	ErrEmptyBlock       = "R_EMPTY_BLOCK"
	ErrIterationLimit   = "R_ITERATION_LIMIT"
	ErrAborted          = "R_ABORTED"
	ErrAutoException    = "R_AUTO_EXCEPTION"
	ErrHost             = "R_HOST_ERROR"
	ErrDivisionByZero   = "R_DIVISION_BY_ZERO"
	ErrAssertFailed     = "R_ASSERT_FAILED"
	ErrUserError        = "R_USER_ERROR"
	ErrBadArgument      = "R_BAD_ARGUMENT"
	ErrNotCallable      = "R_NOT_CALLABLE"
	ErrUnknownFunction  = "R_UNKNOWN_FUNCTION"
	ErrUnknownMethod    = "R_UNKNOWN_METHOD"
	ErrBreakOutsideLoop = "R_BREAK_OUTSIDE_LOOP"
	ErrReturnOutside    = "R_RETURN_OUTSIDE"
)

// Error is a runtime evaluation error: a stable code, a one-line message,
// the offending node's span, and optional structured context. Host function
// errors are wrapped preserving the host message.
type Error struct {
	Code    string
	Message string
	Span    token.Span
	Context map[string]any
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.Start.Line > 0 {
		return fmt.Sprintf("%s: %s at %d:%d", e.Code, e.Message, e.Span.Start.Line, e.Span.Start.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes a wrapped host error.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// NewError creates a runtime error at the given span.
func NewError(code string, span token.Span, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Span: span}
}

// WrapHostError wraps an error returned by a host function, preserving its
// message. A *Error from the host keeps its own code.
func WrapHostError(err error, name string, span token.Span) *Error {
	if rillErr, ok := err.(*Error); ok {
		if rillErr.Span.Start.Line == 0 {
			rillErr.Span = span
		}
		return rillErr
	}
	return &Error{
		Code:    ErrHost,
		Message: fmt.Sprintf("host function '%s' failed: %s", name, err.Error()),
		Span:    span,
		Wrapped: err,
		Context: map[string]any{"function": name},
	}
}
