package runtime

import (
	"context"
	"strconv"
	"strings"

	"github.com/rcrsr/rill/internal/ast"
)

// TupleValue is a fixed positional+named argument bundle produced by the
// spread operator. Keys are numbers (positional) or strings (named).
type TupleValue struct {
	Positional []Value
	Names      []string
	Named      map[string]Value
}

// NewTuple builds a tuple from positional values.
func NewTuple(positional []Value) *TupleValue {
	return &TupleValue{Positional: positional, Named: map[string]Value{}}
}

// SetNamed appends a named entry, preserving insertion order.
func (t *TupleValue) SetNamed(name string, value Value) {
	if t.Named == nil {
		t.Named = map[string]Value{}
	}
	if _, exists := t.Named[name]; !exists {
		t.Names = append(t.Names, name)
	}
	t.Named[name] = value
}

func (t *TupleValue) Type() string { return TypeTuple }

func (t *TupleValue) String() string {
	var parts []string
	for _, v := range t.Positional {
		parts = append(parts, displayElement(v))
	}
	for _, name := range t.Names {
		parts = append(parts, name+": "+displayElement(t.Named[name]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ClosureValue is a script closure: parameters, a body, and an immutable
// reference to its defining scope. Binding to a dict sets a back reference
// used for bare field access during invocation (`self.method` semantics).
type ClosureValue struct {
	Params []*ast.Param
	Body   ast.Expression
	Scope  *Environment
	Bound  *DictValue
}

func (c *ClosureValue) Type() string   { return TypeCallable }
func (c *ClosureValue) String() string { return "<closure/" + strconv.Itoa(len(c.Params)) + ">" }

// BindTo returns a copy of the closure bound to the given dict.
func (c *ClosureValue) BindTo(dict *DictValue) *ClosureValue {
	return &ClosureValue{Params: c.Params, Body: c.Body, Scope: c.Scope, Bound: dict}
}

// BuiltinFunc is the implementation of a runtime builtin method. The receiver
// is the value the method was looked up on.
type BuiltinFunc func(ctx context.Context, recv Value, args []Value) (Value, error)

// BuiltinValue is a runtime builtin, optionally bound to a receiver.
type BuiltinValue struct {
	Name string
	Recv Value
	Fn   BuiltinFunc
}

func (b *BuiltinValue) Type() string   { return TypeCallable }
func (b *BuiltinValue) String() string { return "<builtin " + b.Name + ">" }

// HostFuncValue wraps a host-provided function as a first-class callable.
type HostFuncValue struct {
	Name string
	Def  *HostFunction
}

func (h *HostFuncValue) Type() string   { return TypeCallable }
func (h *HostFuncValue) String() string { return "<host " + h.Name + ">" }

// IsCallable reports whether the value is one of the three callable variants.
func IsCallable(v Value) bool {
	switch v.(type) {
	case *ClosureValue, *BuiltinValue, *HostFuncValue:
		return true
	}
	return false
}
