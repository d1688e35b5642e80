package errors

import (
	"fmt"
	"strings"

	"github.com/rcrsr/rill/pkg/token"
)

// SourceError is a diagnostic with position and source context. It is the
// uniform shape the CLIs and embedding hosts format lexer, parse, and
// runtime errors through.
type SourceError struct {
	Code    string
	Message string
	Span    token.Span
	Source  string
	File    string
}

// NewSourceError creates a formatted diagnostic.
func NewSourceError(span token.Span, code, message, source, file string) *SourceError {
	return &SourceError{
		Code:    code,
		Message: message,
		Span:    span,
		Source:  source,
		File:    file,
	}
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return e.Format(false)
}

// Format renders the error with its source line and a caret indicator. If
// color is true, ANSI codes highlight the caret and message.
func (e *SourceError) Format(color bool) string {
	var sb strings.Builder

	pos := e.Span.Start
	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, pos.Line, pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", pos.Line, pos.Column)
	}

	sourceLine := e.sourceLine(pos.Line)
	if sourceLine != "" {
		lineNum := fmt.Sprintf("%4d | ", pos.Line)
		sb.WriteString(lineNum)
		sb.WriteString(sourceLine)
		sb.WriteString("\n")

		col := pos.Column
		if col < 1 {
			col = 1
		}
		sb.WriteString(strings.Repeat(" ", len(lineNum)+col-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	if e.Code != "" {
		sb.WriteString(e.Code)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}

	if info, ok := Lookup(e.Code); ok && info.Resolution != "" {
		sb.WriteString("\n  hint: ")
		sb.WriteString(info.Resolution)
	}

	return sb.String()
}

// sourceLine extracts a 1-indexed line from the source.
func (e *SourceError) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}
