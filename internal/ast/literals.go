package ast

import (
	"bytes"
	"strconv"
)

// StringLiteral is a string with literal runs interleaved with {expr}
// interpolations.
type StringLiteral struct {
	Base
	Parts     []StringPart
	Multiline bool
}

func (s *StringLiteral) expressionNode() {}

func (s *StringLiteral) String() string {
	var out bytes.Buffer
	out.WriteString(`"`)
	for _, part := range s.Parts {
		out.WriteString(part.String())
	}
	out.WriteString(`"`)
	return out.String()
}

// StringPart is one segment of a string literal.
type StringPart interface {
	Node
	stringPartNode()
}

// TextPart is a decoded literal run.
type TextPart struct {
	Base
	Text string
}

func (t *TextPart) stringPartNode() {}

func (t *TextPart) String() string {
	return t.Text
}

// Interpolation is an embedded {expr} segment.
type Interpolation struct {
	Base
	Expr Expression
}

func (i *Interpolation) stringPartNode() {}

func (i *Interpolation) String() string {
	return "{" + i.Expr.String() + "}"
}

// NumberLiteral is a double-precision number.
type NumberLiteral struct {
	Base
	Value   float64
	Literal string
}

func (n *NumberLiteral) expressionNode() {}

func (n *NumberLiteral) String() string {
	if n.Literal != "" {
		return n.Literal
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	Base
	Value bool
}

func (b *BoolLiteral) expressionNode() {}

func (b *BoolLiteral) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// TupleLiteral is a positional bracket literal: `[1, 2, 3]` or `[]`. Purely
// positional literals evaluate to a List; the Tuple value form arises from
// the spread operator. The optional Default supplies a `??` fallback when the
// literal is used as a dispatch pipe target.
type TupleLiteral struct {
	Base
	Elements []Expression
	Default  Expression
}

func (t *TupleLiteral) expressionNode() {}

func (t *TupleLiteral) String() string {
	s := "[" + joinExprs(t.Elements) + "]"
	if t.Default != nil {
		s += " ?? " + t.Default.String()
	}
	return s
}

// DictLiteral is a keyed bracket literal: `[a: 1, b: 2]` or `[:]`. The
// optional Default supplies a `??` fallback for key-dispatch pipe targets.
type DictLiteral struct {
	Base
	Entries []*DictEntry
	Default Expression
}

func (d *DictLiteral) expressionNode() {}

func (d *DictLiteral) String() string {
	if len(d.Entries) == 0 {
		return "[:]"
	}
	var out bytes.Buffer
	out.WriteString("[")
	for i, e := range d.Entries {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(e.Key)
		out.WriteString(": ")
		out.WriteString(e.Value.String())
	}
	out.WriteString("]")
	if d.Default != nil {
		out.WriteString(" ?? ")
		out.WriteString(d.Default.String())
	}
	return out.String()
}

// DictEntry is one key/value pair of a dict literal.
type DictEntry struct {
	Base
	Key   string
	Value Expression
}
