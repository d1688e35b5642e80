package parser

import (
	"fmt"

	"github.com/rcrsr/rill/pkg/token"
)

// Error is a structured parse error with a stable code and source span.
type Error struct {
	Message string
	Code    string
	Span    token.Span
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Span.Start.Line, e.Span.Start.Column)
}

// NewError creates a parse error covering the given span.
func NewError(span token.Span, message, code string) *Error {
	return &Error{Message: message, Code: code, Span: span}
}

// Error code constants for programmatic handling.
const (
	// ErrUnexpectedToken indicates an unexpected token was encountered.
	ErrUnexpectedToken = "E_UNEXPECTED_TOKEN"

	// ErrMissingRParen indicates a missing closing parenthesis.
	ErrMissingRParen = "E_MISSING_RPAREN"

	// ErrMissingRBracket indicates a missing closing bracket.
	ErrMissingRBracket = "E_MISSING_RBRACKET"

	// ErrMissingRBrace indicates a missing closing brace.
	ErrMissingRBrace = "E_MISSING_RBRACE"

	// ErrMissingGreater indicates an unclosed destructure or slice form.
	ErrMissingGreater = "E_MISSING_GREATER"

	// ErrDeprecatedCapture indicates the removed `:>` capture arrow.
	ErrDeprecatedCapture = "E_DEPRECATED_CAPTURE"

	// ErrBareNegation indicates `-` or `!` without an operand.
	ErrBareNegation = "E_BARE_NEGATION"

	// ErrInvalidPipeTarget indicates a form that may not follow `->`.
	ErrInvalidPipeTarget = "E_INVALID_PIPE_TARGET"

	// ErrExpectedIdent indicates an identifier was expected.
	ErrExpectedIdent = "E_EXPECTED_IDENT"

	// ErrExpectedCaptureVar indicates `=>` without a `$name` target.
	ErrExpectedCaptureVar = "E_EXPECTED_CAPTURE_VAR"

	// ErrExpectedType indicates an unknown type tag.
	ErrExpectedType = "E_EXPECTED_TYPE"

	// ErrEmptyBlock indicates a `{ }` block with no statements.
	ErrEmptyBlock = "E_EMPTY_BLOCK"

	// ErrMissingElse indicates a conditional without an else branch where
	// one is required.
	ErrMissingElse = "E_MISSING_ELSE"

	// ErrTerminatorNotLast indicates break/return/pass before the end of a
	// chain.
	ErrTerminatorNotLast = "E_TERMINATOR_NOT_LAST"

	// ErrLexical wraps errors reported by the lexer.
	ErrLexical = "E_LEXICAL"

	// ErrInvalidSyntax indicates otherwise invalid syntax.
	ErrInvalidSyntax = "E_INVALID_SYNTAX"
)

// typeNames is the closed set of type tags accepted by assertions, checks,
// captures, and parameter declarations.
var typeNames = map[string]bool{
	"string":   true,
	"number":   true,
	"bool":     true,
	"list":     true,
	"dict":     true,
	"callable": true,
	"any":      true,
}

// paramTypeNames restricts closure parameter tags to the scalar types.
var paramTypeNames = map[string]bool{
	"string": true,
	"number": true,
	"bool":   true,
}
