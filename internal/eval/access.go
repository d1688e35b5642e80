package eval

import (
	"context"
	"math"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// evalVariable resolves a variable (or the pipe value / accumulator) and
// walks its access chain. A `??` default replaces a null result or a missing
// variable/field/index; a `.?name` existence check traverses safely and
// returns a Bool.
func (ev *Evaluator) evalVariable(ctx context.Context, node *ast.Variable, rtc *runtime.Context) (runtime.Value, error) {
	base, err := ev.resolveVariableBase(node, rtc)
	if err != nil {
		if node.Default != nil && isAbsenceError(err) {
			return ev.eval(ctx, node.Default, rtc)
		}
		if node.ExistenceCheck != "" {
			return runtime.False, nil
		}
		return nil, err
	}

	value := base
	for _, access := range node.AccessChain {
		value, err = ev.evalAccess(ctx, access, value, rtc)
		if err != nil {
			if node.Default != nil && isAbsenceError(err) {
				return ev.eval(ctx, node.Default, rtc)
			}
			if node.ExistenceCheck != "" && isAbsenceError(err) {
				return runtime.False, nil
			}
			return nil, err
		}
	}

	if node.ExistenceCheck != "" {
		dict, ok := value.(*runtime.DictValue)
		if !ok {
			return runtime.False, nil
		}
		_, found := dict.Get(node.ExistenceCheck)
		return runtime.NewBool(found), nil
	}

	if node.Default != nil && runtime.IsNull(value) {
		return ev.eval(ctx, node.Default, rtc)
	}
	return value, nil
}

// resolveVariableBase resolves the sigil part of a variable reference.
func (ev *Evaluator) resolveVariableBase(node *ast.Variable, rtc *runtime.Context) (runtime.Value, error) {
	switch {
	case node.IsPipeVar:
		if v := rtc.PipeValue(); v != nil {
			return v, nil
		}
		return runtime.Null, nil
	case node.IsAccumulator:
		if v, ok := rtc.GetVariable(accumulatorName); ok {
			return v, nil
		}
		return nil, runtime.NewError(runtime.ErrUndefinedVar, node.Span(),
			"$@ is only available inside each/fold accumulator bodies")
	default:
		if v, ok := rtc.GetVariable(node.Name); ok {
			return v, nil
		}
		return nil, runtime.NewError(runtime.ErrUndefinedVar, node.Span(),
			"undefined variable $%s", node.Name)
	}
}

// evalAccess applies one access chain step to a value.
func (ev *Evaluator) evalAccess(ctx context.Context, access ast.Access, value runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	switch access := access.(type) {
	case *ast.FieldAccess:
		return ev.accessField(ctx, value, access.Name, access.Span(), rtc)

	case *ast.ComputedAccess:
		key, err := ev.eval(ctx, access.Key, rtc)
		if err != nil {
			return nil, err
		}
		switch key := key.(type) {
		case *runtime.StringValue:
			return ev.accessField(ctx, value, key.Value, access.Span(), rtc)
		case *runtime.NumberValue:
			return ev.accessIndex(value, key.Value, access.Span())
		default:
			return nil, runtime.NewError(runtime.ErrTypeMismatch, access.Span(),
				"computed access key must be a string or number, got %s", runtime.TypeOf(key))
		}

	case *ast.IndexAccess:
		key, err := ev.eval(ctx, access.Key, rtc)
		if err != nil {
			return nil, err
		}
		switch key := key.(type) {
		case *runtime.NumberValue:
			return ev.accessIndex(value, key.Value, access.Span())
		case *runtime.StringValue:
			return ev.accessField(ctx, value, key.Value, access.Span(), rtc)
		default:
			return nil, runtime.NewError(runtime.ErrTypeMismatch, access.Span(),
				"index must be a number or string, got %s", runtime.TypeOf(key))
		}

	case *ast.AnnotationAccess:
		if v, ok := rtc.LookupAnnotation(access.Key); ok {
			return v, nil
		}
		return runtime.Null, nil
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, access.Span(),
		"unsupported access %T", access)
}

// accessField resolves `.name` on a value: a dict field, or a zero-argument
// builtin method on any other type.
func (ev *Evaluator) accessField(ctx context.Context, value runtime.Value, name string, span token.Span, rtc *runtime.Context) (runtime.Value, error) {
	if dict, ok := value.(*runtime.DictValue); ok {
		if runtime.IsReservedDictKey(name) {
			return ev.callBuiltin(ctx, value, name, nil, span)
		}
		if field, found := dict.Get(name); found {
			return field, nil
		}
		if builtin := lookupBuiltin(value, name); builtin != nil {
			return ev.callBuiltin(ctx, value, name, nil, span)
		}
		return nil, runtime.NewError(runtime.ErrFieldMissing, span,
			"dict has no field '%s'", name)
	}
	return ev.callBuiltin(ctx, value, name, nil, span)
}

// accessIndex resolves `[n]` on a list or string, with negative indices
// counting from the end.
func (ev *Evaluator) accessIndex(value runtime.Value, index float64, span token.Span) (runtime.Value, error) {
	if index != math.Trunc(index) {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
			"index must be an integer, got %s", runtime.FormatNumber(index))
	}
	i := int(index)

	switch value := value.(type) {
	case *runtime.ListValue:
		n := len(value.Elements)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, runtime.NewError(runtime.ErrIndexRange, span,
				"index %d out of bounds for list of length %d", int(index), n)
		}
		return value.Elements[i], nil

	case *runtime.StringValue:
		runes := []rune(value.Value)
		n := len(runes)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, runtime.NewError(runtime.ErrIndexRange, span,
				"index %d out of bounds for string of length %d", int(index), n)
		}
		return runtime.NewString(string(runes[i])), nil

	case *runtime.TupleValue:
		n := len(value.Positional)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, runtime.NewError(runtime.ErrIndexRange, span,
				"index %d out of bounds for tuple of length %d", int(index), n)
		}
		return value.Positional[i], nil
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
		"cannot index a %s", runtime.TypeOf(value))
}

// isAbsenceError reports whether the error marks a missing variable, field,
// or index — the cases a `??` default covers.
func isAbsenceError(err error) bool {
	rillErr, ok := err.(*runtime.Error)
	if !ok {
		return false
	}
	switch rillErr.Code {
	case runtime.ErrUndefinedVar, runtime.ErrFieldMissing, runtime.ErrIndexRange, runtime.ErrUnknownMethod:
		return true
	}
	return false
}

// evalPostfixExpr evaluates a primary and applies its postfix chain, then
// the `??` default when the result is null or absent.
func (ev *Evaluator) evalPostfixExpr(ctx context.Context, node *ast.PostfixExpr, rtc *runtime.Context) (runtime.Value, error) {
	value, err := ev.eval(ctx, node.Primary, rtc)
	if err == nil {
		for _, op := range node.Methods {
			value, err = ev.evalPostfixOp(ctx, op, value, rtc)
			if err != nil {
				break
			}
		}
	}

	if err != nil {
		if node.Default != nil && isAbsenceError(err) {
			return ev.eval(ctx, node.Default, rtc)
		}
		return nil, err
	}
	if node.Default != nil && runtime.IsNull(value) {
		return ev.eval(ctx, node.Default, rtc)
	}
	return value, nil
}

// evalPostfixOp applies one postfix op to a value.
func (ev *Evaluator) evalPostfixOp(ctx context.Context, op ast.PostfixOp, value runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	switch op := op.(type) {
	case *ast.MethodCall:
		args, named, err := ev.evalArgs(ctx, op.Args, rtc)
		if err != nil {
			return nil, err
		}
		if dict, ok := value.(*runtime.DictValue); ok && !runtime.IsReservedDictKey(op.Name) {
			if field, found := dict.Get(op.Name); found {
				if runtime.IsCallable(field) {
					return ev.invoke(ctx, field, args, named, rtc, op.Span())
				}
				if !op.HasArgs {
					return field, nil
				}
				return nil, runtime.NewError(runtime.ErrNotCallable, op.Span(),
					"field '%s' is a %s, not a callable", op.Name, runtime.TypeOf(field))
			}
		}
		return ev.callBuiltin(ctx, value, op.Name, args, op.Span())

	case *ast.Invoke:
		args, named, err := ev.evalArgs(ctx, op.Args, rtc)
		if err != nil {
			return nil, err
		}
		return ev.invoke(ctx, value, args, named, rtc, op.Span())

	case *ast.Index:
		key, err := ev.eval(ctx, op.Key, rtc)
		if err != nil {
			return nil, err
		}
		switch key := key.(type) {
		case *runtime.NumberValue:
			return ev.accessIndex(value, key.Value, op.Span())
		case *runtime.StringValue:
			return ev.accessField(ctx, value, key.Value, op.Span(), rtc)
		default:
			return nil, runtime.NewError(runtime.ErrTypeMismatch, op.Span(),
				"index must be a number or string, got %s", runtime.TypeOf(key))
		}
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, op.Span(),
		"unsupported postfix op %T", op)
}

// evalSpread converts a list or dict (or the pipe value for bare `*`) into
// an argument tuple.
func (ev *Evaluator) evalSpread(ctx context.Context, node *ast.Spread, rtc *runtime.Context) (runtime.Value, error) {
	source := rtc.PipeValue()
	if node.Expr != nil {
		var err error
		source, err = ev.eval(ctx, node.Expr, rtc)
		if err != nil {
			return nil, err
		}
	}

	switch source := source.(type) {
	case *runtime.ListValue:
		return runtime.NewTuple(append([]runtime.Value{}, source.Elements...)), nil
	case *runtime.DictValue:
		tuple := runtime.NewTuple(nil)
		for _, key := range source.Keys() {
			v, _ := source.Get(key)
			tuple.SetNamed(key, v)
		}
		return tuple, nil
	case *runtime.TupleValue:
		return source, nil
	default:
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"spread requires a list or dict, got %s", runtime.TypeOf(source))
	}
}

// evalDestructure binds the pipe value's elements per the patterns and
// yields the value unchanged.
func (ev *Evaluator) evalDestructure(ctx context.Context, node *ast.Destructure, rtc *runtime.Context) (runtime.Value, error) {
	value := rtc.PipeValue()
	if err := ev.bindPatterns(node.Patterns, value, rtc, node.Span()); err != nil {
		return nil, err
	}
	return value, nil
}

// bindPatterns destructures a list (positional) or dict (by key) into the
// given patterns.
func (ev *Evaluator) bindPatterns(patterns []*ast.DestructurePattern, value runtime.Value, rtc *runtime.Context, span token.Span) error {
	switch value := value.(type) {
	case *runtime.ListValue:
		if len(patterns) > len(value.Elements) {
			return runtime.NewError(runtime.ErrIndexRange, span,
				"cannot destructure %d elements from a list of length %d",
				len(patterns), len(value.Elements))
		}
		for i, pattern := range patterns {
			if err := ev.bindPattern(pattern, value.Elements[i], rtc); err != nil {
				return err
			}
		}
		return nil

	case *runtime.TupleValue:
		if len(patterns) > len(value.Positional) {
			return runtime.NewError(runtime.ErrIndexRange, span,
				"cannot destructure %d elements from a tuple of length %d",
				len(patterns), len(value.Positional))
		}
		for i, pattern := range patterns {
			if err := ev.bindPattern(pattern, value.Positional[i], rtc); err != nil {
				return err
			}
		}
		return nil

	case *runtime.DictValue:
		for _, pattern := range patterns {
			if pattern.Skip {
				continue
			}
			key := pattern.Name
			if pattern.Key != "" {
				key = pattern.Key
			}
			field, found := value.Get(key)
			if !found {
				return runtime.NewError(runtime.ErrFieldMissing, pattern.Span(),
					"dict has no field '%s' to destructure", key)
			}
			if err := ev.bindPattern(pattern, field, rtc); err != nil {
				return err
			}
		}
		return nil
	}

	return runtime.NewError(runtime.ErrTypeMismatch, span,
		"cannot destructure a %s", runtime.TypeOf(value))
}

// bindPattern binds one pattern element, recursing into nested patterns.
func (ev *Evaluator) bindPattern(pattern *ast.DestructurePattern, value runtime.Value, rtc *runtime.Context) error {
	if pattern.Skip {
		return nil
	}
	if len(pattern.Nested) > 0 {
		return ev.bindPatterns(pattern.Nested, value, rtc, pattern.Span())
	}
	if pattern.TypeName != "" && pattern.TypeName != "any" &&
		runtime.TypeOf(value) != pattern.TypeName {
		return runtime.NewError(runtime.ErrTypeMismatch, pattern.Span(),
			"cannot bind %s to %s:%s", runtime.TypeOf(value), pattern.Name, pattern.TypeName)
	}
	if lockedType, ok := rtc.SetVariable(pattern.Name, value); !ok {
		return runtime.NewError(runtime.ErrTypeLock, pattern.Span(),
			"$%s is locked to %s, cannot assign %s", pattern.Name, lockedType, runtime.TypeOf(value))
	}
	return nil
}

// evalSlice slices the pipe value (list, string, or tuple) with Python
// semantics: negative indices count from the end, a negative step reverses.
func (ev *Evaluator) evalSlice(ctx context.Context, node *ast.Slice, rtc *runtime.Context) (runtime.Value, error) {
	value := rtc.PipeValue()

	bound := func(expr ast.Expression) (int, bool, error) {
		if expr == nil {
			return 0, false, nil
		}
		v, err := ev.eval(ctx, expr, rtc)
		if err != nil {
			return 0, false, err
		}
		n, ok := v.(*runtime.NumberValue)
		if !ok || n.Value != math.Trunc(n.Value) {
			return 0, false, runtime.NewError(runtime.ErrTypeMismatch, expr.Span(),
				"slice bounds must be integers, got %s", runtime.TypeOf(v))
		}
		return int(n.Value), true, nil
	}

	start, hasStart, err := bound(node.Start)
	if err != nil {
		return nil, err
	}
	stop, hasStop, err := bound(node.Stop)
	if err != nil {
		return nil, err
	}
	step, hasStep, err := bound(node.Step)
	if err != nil {
		return nil, err
	}
	if !hasStep {
		step = 1
	}
	if step == 0 {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(), "slice step cannot be zero")
	}

	slice := func(n int) []int {
		return sliceIndices(n, start, hasStart, stop, hasStop, step)
	}

	switch value := value.(type) {
	case *runtime.ListValue:
		indices := slice(len(value.Elements))
		out := make([]runtime.Value, len(indices))
		for i, idx := range indices {
			out[i] = value.Elements[idx]
		}
		return runtime.NewList(out), nil

	case *runtime.StringValue:
		runes := []rune(value.Value)
		indices := slice(len(runes))
		out := make([]rune, len(indices))
		for i, idx := range indices {
			out[i] = runes[idx]
		}
		return runtime.NewString(string(out)), nil

	case *runtime.TupleValue:
		indices := slice(len(value.Positional))
		out := make([]runtime.Value, len(indices))
		for i, idx := range indices {
			out[i] = value.Positional[idx]
		}
		return runtime.NewTuple(out), nil
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"cannot slice a %s", runtime.TypeOf(value))
}

// sliceIndices computes the selected indices for a Python-style slice over a
// sequence of length n.
func sliceIndices(n, start int, hasStart bool, stop int, hasStop bool, step int) []int {
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	var begin, end int
	if step > 0 {
		begin, end = 0, n
		if hasStart {
			if start < 0 {
				start += n
			}
			begin = clamp(start, 0, n)
		}
		if hasStop {
			if stop < 0 {
				stop += n
			}
			end = clamp(stop, 0, n)
		}
		var out []int
		for i := begin; i < end; i += step {
			out = append(out, i)
		}
		return out
	}

	begin, end = n-1, -1
	if hasStart {
		if start < 0 {
			start += n
		}
		begin = clamp(start, -1, n-1)
	}
	if hasStop {
		if stop < 0 {
			stop += n
		}
		end = clamp(stop, -1, n-1)
	}
	var out []int
	for i := begin; i > end; i += step {
		out = append(out, i)
	}
	return out
}
