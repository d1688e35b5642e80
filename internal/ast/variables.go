package ast

import (
	"bytes"
	"strings"
)

// Variable references the pipe value (`$`), the loop accumulator (`$@`), or a
// named variable (`$name`), with an optional access chain, `??` default, and
// `.?name` existence check terminating the chain.
type Variable struct {
	Base
	Name           string
	IsPipeVar      bool
	IsAccumulator  bool
	AccessChain    []Access
	Default        Expression
	ExistenceCheck string
}

func (v *Variable) expressionNode() {}

func (v *Variable) String() string {
	var out bytes.Buffer
	switch {
	case v.IsAccumulator:
		out.WriteString("$@")
	case v.IsPipeVar:
		out.WriteString("$")
	default:
		out.WriteString("$" + v.Name)
	}
	for _, a := range v.AccessChain {
		out.WriteString(a.String())
	}
	if v.ExistenceCheck != "" {
		out.WriteString(".?" + v.ExistenceCheck)
	}
	if v.Default != nil {
		out.WriteString(" ?? ")
		out.WriteString(v.Default.String())
	}
	return out.String()
}

// Access is one step of a variable access chain.
type Access interface {
	Node
	accessNode()
}

// FieldAccess is dotted field access: `.name`.
type FieldAccess struct {
	Base
	Name string
}

func (f *FieldAccess) accessNode() {}

func (f *FieldAccess) String() string {
	return "." + f.Name
}

// ComputedAccess is computed field access: `.(expr)`.
type ComputedAccess struct {
	Base
	Key Expression
}

func (c *ComputedAccess) accessNode() {}

func (c *ComputedAccess) String() string {
	return ".(" + c.Key.String() + ")"
}

// AnnotationAccess reads from the annotation stack in force at the current
// statement: `$.^key`.
type AnnotationAccess struct {
	Base
	Key string
}

func (a *AnnotationAccess) accessNode() {}

func (a *AnnotationAccess) String() string {
	return ".^" + a.Key
}

// IndexAccess is bracket index access: `[expr]`.
type IndexAccess struct {
	Base
	Key Expression
}

func (ix *IndexAccess) accessNode() {}

func (ix *IndexAccess) String() string {
	return "[" + ix.Key.String() + "]"
}

// HostCall invokes a host-provided function by fully qualified name:
// `name(args)` or `ns::name(args)`. Bare names used as collection-operator
// bodies parse with HasArgs false.
type HostCall struct {
	Base
	Namespace string
	Name      string
	Args      []Expression
	HasArgs   bool
}

func (h *HostCall) expressionNode() {}

// QualifiedName returns the fully qualified lookup key.
func (h *HostCall) QualifiedName() string {
	if h.Namespace == "" {
		return h.Name
	}
	return h.Namespace + "::" + h.Name
}

func (h *HostCall) String() string {
	if !h.HasArgs {
		return h.QualifiedName()
	}
	return h.QualifiedName() + "(" + joinExprs(h.Args) + ")"
}

// ClosureCall invokes a callable held in a variable: `$name(args)`.
type ClosureCall struct {
	Base
	Name string
	Args []Expression
}

func (c *ClosureCall) expressionNode() {}

func (c *ClosureCall) String() string {
	return "$" + c.Name + "(" + joinExprs(c.Args) + ")"
}

// PipeInvoke invokes the pipe value as a callable: `-> $(args)`.
type PipeInvoke struct {
	Base
	Args []Expression
}

func (p *PipeInvoke) expressionNode() {}

func (p *PipeInvoke) String() string {
	return "$(" + joinExprs(p.Args) + ")"
}

// Capture binds the current pipe value to a named variable, optionally
// asserting a type: `=> $name` or `=> $name:string`. It appears inline in a
// chain or as its terminator.
type Capture struct {
	Base
	Name     string
	TypeName string
}

func (c *Capture) expressionNode() {}
func (c *Capture) terminatorNode() {}

func (c *Capture) String() string {
	if c.TypeName != "" {
		return "$" + c.Name + ":" + c.TypeName
	}
	return "$" + c.Name
}

// BreakStmt exits the nearest loop with the current pipe value.
type BreakStmt struct {
	Base
}

func (b *BreakStmt) terminatorNode() {}
func (b *BreakStmt) expressionNode() {}
func (b *BreakStmt) String() string  { return "break" }

// ReturnStmt exits the nearest closure with the current pipe value.
type ReturnStmt struct {
	Base
}

func (r *ReturnStmt) terminatorNode() {}
func (r *ReturnStmt) expressionNode() {}
func (r *ReturnStmt) String() string  { return "return" }

// PassStmt yields the pipe value unchanged. Used as a no-op branch body or
// chain terminator.
type PassStmt struct {
	Base
}

func (p *PassStmt) terminatorNode() {}
func (p *PassStmt) expressionNode() {}
func (p *PassStmt) String() string  { return "pass" }

// Assert checks that an expression (or, bare in a pipe, the pipe value) is
// true, raising a runtime error otherwise.
type Assert struct {
	Base
	Cond Expression
}

func (a *Assert) expressionNode() {}

func (a *Assert) String() string {
	if a.Cond == nil {
		return "assert"
	}
	return "assert " + a.Cond.String()
}

// ErrorExpr raises a runtime error with the given message (or, bare in a
// pipe, the pipe value formatted as the message).
type ErrorExpr struct {
	Base
	Message Expression
}

func (e *ErrorExpr) expressionNode() {}

func (e *ErrorExpr) String() string {
	if e.Message == nil {
		return "error"
	}
	return "error " + e.Message.String()
}

// Spread converts a list or dict into an argument tuple for the next closure
// invocation: `*expr`. The bare `*` form (pipe-value spread) has a nil Expr.
type Spread struct {
	Base
	Expr Expression
}

func (s *Spread) expressionNode() {}

func (s *Spread) String() string {
	if s.Expr == nil {
		return "*"
	}
	return "*" + s.Expr.String()
}

// Destructure binds positional or dict elements: `*<a, b>`, `*<x: number>`,
// `*<name <- key>`, `*<_, rest>`, with nesting.
type Destructure struct {
	Base
	Patterns []*DestructurePattern
}

func (d *Destructure) expressionNode() {}

func (d *Destructure) String() string {
	var parts []string
	for _, p := range d.Patterns {
		parts = append(parts, p.String())
	}
	return "*<" + strings.Join(parts, ", ") + ">"
}

// DestructurePattern is one element of a destructure: a binding name with
// optional type tag, a source key rename, a `_` skip, or a nested pattern.
type DestructurePattern struct {
	Base
	Name     string
	Key      string
	TypeName string
	Skip     bool
	Nested   []*DestructurePattern
}

func (p *DestructurePattern) String() string {
	if p.Skip {
		return "_"
	}
	if len(p.Nested) > 0 {
		var parts []string
		for _, n := range p.Nested {
			parts = append(parts, n.String())
		}
		return "*<" + strings.Join(parts, ", ") + ">"
	}
	s := p.Name
	if p.TypeName != "" {
		s += ": " + p.TypeName
	}
	if p.Key != "" && p.Key != p.Name {
		s += " <- " + p.Key
	}
	return s
}

// Slice extracts a subsequence with Python semantics: `/<start:stop:step>`.
// Nil fields default to the full range; negative indices count from the end;
// a negative step reverses.
type Slice struct {
	Base
	Start Expression
	Stop  Expression
	Step  Expression
}

func (s *Slice) expressionNode() {}

func (s *Slice) String() string {
	var out bytes.Buffer
	out.WriteString("/<")
	if s.Start != nil {
		out.WriteString(s.Start.String())
	}
	out.WriteString(":")
	if s.Stop != nil {
		out.WriteString(s.Stop.String())
	}
	if s.Step != nil {
		out.WriteString(":")
		out.WriteString(s.Step.String())
	}
	out.WriteString(">")
	return out.String()
}

// TypeAssertion asserts the type of a value: `expr:T`. The value passes
// through on success and errors on mismatch.
type TypeAssertion struct {
	Base
	Target   Expression
	TypeName string
}

func (t *TypeAssertion) expressionNode() {}

func (t *TypeAssertion) String() string {
	return t.Target.String() + ":" + t.TypeName
}

// TypeCheck tests the type of a value, returning a Bool: `expr:?T`.
type TypeCheck struct {
	Base
	Target   Expression
	TypeName string
}

func (t *TypeCheck) expressionNode() {}

func (t *TypeCheck) String() string {
	return t.Target.String() + ":?" + t.TypeName
}
