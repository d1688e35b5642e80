package runtime

import "github.com/rcrsr/rill/internal/ast"

// Equals reports deep structural equality of two values. Dict entry order is
// irrelevant for equality. Closure equality is AST structural equality of the
// body and parameter shape plus identity of the defining scope.
func Equals(a, b Value) bool {
	if a == nil || b == nil {
		return IsNull(a) && IsNull(b)
	}

	switch a := a.(type) {
	case *StringValue:
		b, ok := b.(*StringValue)
		return ok && a.Value == b.Value

	case *NumberValue:
		b, ok := b.(*NumberValue)
		return ok && a.Value == b.Value

	case *BoolValue:
		b, ok := b.(*BoolValue)
		return ok && a.Value == b.Value

	case *NullValue:
		_, ok := b.(*NullValue)
		return ok

	case *ListValue:
		b, ok := b.(*ListValue)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equals(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true

	case *DictValue:
		b, ok := b.(*DictValue)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for _, key := range a.Keys() {
			av, _ := a.Get(key)
			bv, found := b.Get(key)
			if !found || !Equals(av, bv) {
				return false
			}
		}
		return true

	case *TupleValue:
		b, ok := b.(*TupleValue)
		if !ok || len(a.Positional) != len(b.Positional) || len(a.Names) != len(b.Names) {
			return false
		}
		for i := range a.Positional {
			if !Equals(a.Positional[i], b.Positional[i]) {
				return false
			}
		}
		for _, name := range a.Names {
			bv, found := b.Named[name]
			if !found || !Equals(a.Named[name], bv) {
				return false
			}
		}
		return true

	case *ClosureValue:
		b, ok := b.(*ClosureValue)
		return ok && a.Scope == b.Scope &&
			paramShapeEqual(a.Params, b.Params) &&
			ast.Equal(a.Body, b.Body)

	case *BuiltinValue:
		b, ok := b.(*BuiltinValue)
		return ok && a.Name == b.Name && Equals(a.Recv, b.Recv)

	case *HostFuncValue:
		b, ok := b.(*HostFuncValue)
		return ok && a.Def == b.Def
	}

	return false
}
