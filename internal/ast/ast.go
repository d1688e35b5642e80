// Package ast defines the Abstract Syntax Tree node types for Rill.
//
// Every node carries a source span; spans are preserved through all
// transformations and attached to every diagnostic. Structural equality
// (see Equal) ignores spans.
package ast

import (
	"bytes"
	"strings"

	"github.com/rcrsr/rill/pkg/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// Span returns the source range covered by the node.
	Span() token.Span

	// String returns a compact source-like representation for debugging and
	// snapshot tests.
	String() string
}

// Expression represents any node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents a top-level or block-level statement.
type Statement interface {
	Node
	statementNode()
}

// Terminator ends a pipe chain: Capture, Break, Return, or Pass.
type Terminator interface {
	Node
	terminatorNode()
}

// Base carries the span shared by all node types. Nodes embed it by value.
type Base struct {
	Loc token.Span
}

// Span returns the node's source range.
func (b Base) Span() token.Span {
	return b.Loc
}

// Script is the root node of a parsed Rill program.
type Script struct {
	Base
	// Frontmatter is the raw text between --- delimiters at the top of the
	// source. The core preserves it verbatim and never parses it.
	Frontmatter    string
	HasFrontmatter bool
	Statements     []Statement
}

func (s *Script) String() string {
	var out bytes.Buffer
	for i, stmt := range s.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(stmt.String())
	}
	return out.String()
}

// HasRecoveryErrors reports whether any statement is a RecoveryError node.
// Scripts produced by a recovery-mode parse are rejected by the evaluator
// when this is true.
func (s *Script) HasRecoveryErrors() bool {
	for _, stmt := range s.Statements {
		if _, ok := stmt.(*RecoveryError); ok {
			return true
		}
		if as, ok := stmt.(*AnnotatedStatement); ok {
			if _, ok := as.Statement.(*RecoveryError); ok {
				return true
			}
		}
	}
	return false
}

// ExprStatement is a single statement: one pipe chain.
type ExprStatement struct {
	Base
	Chain *PipeChain
}

func (s *ExprStatement) statementNode() {}
func (s *ExprStatement) String() string { return s.Chain.String() }

// AnnotatedStatement prefixes a statement with ^(key: value, ...) metadata.
type AnnotatedStatement struct {
	Base
	Annotations []*Annotation
	Statement   Statement
}

func (s *AnnotatedStatement) statementNode() {}

func (s *AnnotatedStatement) String() string {
	var out bytes.Buffer
	out.WriteString("^(")
	for i, a := range s.Annotations {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(a.String())
	}
	out.WriteString(") ")
	out.WriteString(s.Statement.String())
	return out.String()
}

// Annotation is one entry in an annotation list: a named parameter, or a
// *expr spread of a tuple's entries.
type Annotation struct {
	Base
	Key    string
	Value  Expression
	Spread bool
}

func (a *Annotation) String() string {
	if a.Spread {
		return "*" + a.Value.String()
	}
	return a.Key + ": " + a.Value.String()
}

// RecoveryError stands in for unparseable source in recovery-mode parses.
// It never appears in ASTs produced by a strict parse.
type RecoveryError struct {
	Base
	Message string
	Text    string
}

func (r *RecoveryError) statementNode()  {}
func (r *RecoveryError) expressionNode() {}

func (r *RecoveryError) String() string {
	return "<recovery-error: " + r.Message + ">"
}

// joinExprs renders a comma-separated argument list.
func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
