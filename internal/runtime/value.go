// Package runtime defines Rill's value model, variable environment, and the
// per-execution runtime context.
package runtime

import (
	"math"
	"strconv"
	"strings"

	"github.com/rcrsr/rill/internal/ast"
)

// Type name constants for the closed set of runtime types.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBool     = "bool"
	TypeNull     = "null"
	TypeList     = "list"
	TypeDict     = "dict"
	TypeTuple    = "tuple"
	TypeCallable = "callable"
)

// Value is a runtime value. A Rill value is exactly one of: String, Number,
// Bool, Null, List, Dict, Tuple, or Callable. Values are immutable; list and
// dict updates return new structures.
type Value interface {
	// Type returns the inferred type name (string, number, bool, null, list,
	// dict, tuple, callable).
	Type() string
	// String returns the display formatting of the value.
	String() string
}

// StringValue is immutable UTF-8 text.
type StringValue struct {
	Value string
}

func (s *StringValue) Type() string   { return TypeString }
func (s *StringValue) String() string { return s.Value }

// NumberValue is a double-precision float. Rill has no separate integer type.
type NumberValue struct {
	Value float64
}

func (n *NumberValue) Type() string { return TypeNumber }

func (n *NumberValue) String() string {
	return FormatNumber(n.Value)
}

// FormatNumber renders a float the way scripts see numbers: integral values
// print without a decimal point.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// BoolValue is true or false.
type BoolValue struct {
	Value bool
}

func (b *BoolValue) Type() string { return TypeBool }

func (b *BoolValue) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// NullValue marks the absence of a default. User code never produces it.
type NullValue struct{}

func (n *NullValue) Type() string   { return TypeNull }
func (n *NullValue) String() string { return "null" }

// Null is the shared null instance.
var Null = &NullValue{}

// True and False are the shared bool instances.
var (
	True  = &BoolValue{Value: true}
	False = &BoolValue{Value: false}
)

// NewString wraps a Go string.
func NewString(s string) *StringValue { return &StringValue{Value: s} }

// NewNumber wraps a float64.
func NewNumber(v float64) *NumberValue { return &NumberValue{Value: v} }

// NewBool returns the shared bool instance.
func NewBool(v bool) *BoolValue {
	if v {
		return True
	}
	return False
}

// ListValue is an ordered, heterogeneous sequence.
type ListValue struct {
	Elements []Value
}

func (l *ListValue) Type() string { return TypeList }

func (l *ListValue) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = displayElement(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NewList wraps a slice of values. The slice is owned by the list afterward.
func NewList(elements []Value) *ListValue {
	if elements == nil {
		elements = []Value{}
	}
	return &ListValue{Elements: elements}
}

// displayElement quotes nested strings so collection formatting is readable.
func displayElement(v Value) string {
	if s, ok := v.(*StringValue); ok {
		return strconv.Quote(s.Value)
	}
	return v.String()
}

// Truthy returns the boolean payload of a Bool value. Rill has no coercion:
// any other type reports ok=false and the caller raises a type error.
func Truthy(v Value) (bool, bool) {
	b, ok := v.(*BoolValue)
	if !ok {
		return false, false
	}
	return b.Value, true
}

// TypeOf returns the inferred type name of a value, with nil treated as null.
func TypeOf(v Value) string {
	if v == nil {
		return TypeNull
	}
	return v.Type()
}

// IsNull reports whether the value is null or absent.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(*NullValue)
	return ok
}

// paramShapeEqual compares closure parameter lists structurally, including
// default literals.
func paramShapeEqual(a, b []*ast.Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].TypeName != b[i].TypeName {
			return false
		}
		if !ast.Equal(a[i].Default, b[i].Default) {
			return false
		}
	}
	return true
}
