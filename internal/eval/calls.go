package eval

import (
	"context"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// evalArgs evaluates an argument list, expanding `*tuple` spreads into
// positional and named arguments.
func (ev *Evaluator) evalArgs(ctx context.Context, args []ast.Expression, rtc *runtime.Context) ([]runtime.Value, map[string]runtime.Value, error) {
	positional := []runtime.Value{}
	var named map[string]runtime.Value

	for _, arg := range args {
		if spread, ok := arg.(*ast.Spread); ok {
			value, err := ev.evalSpread(ctx, spread, rtc)
			if err != nil {
				return nil, nil, err
			}
			tuple := value.(*runtime.TupleValue)
			positional = append(positional, tuple.Positional...)
			for _, name := range tuple.Names {
				if named == nil {
					named = map[string]runtime.Value{}
				}
				named[name] = tuple.Named[name]
			}
			continue
		}
		value, err := ev.eval(ctx, arg, rtc)
		if err != nil {
			return nil, nil, err
		}
		positional = append(positional, value)
	}
	return positional, named, nil
}

// invoke calls any callable value with identical semantics across the four
// dispatch paths.
func (ev *Evaluator) invoke(ctx context.Context, callee runtime.Value, args []runtime.Value, named map[string]runtime.Value, rtc *runtime.Context, span token.Span) (runtime.Value, error) {
	if err := checkAbort(ctx, span); err != nil {
		return nil, err
	}

	switch callee := callee.(type) {
	case *runtime.ClosureValue:
		return ev.callClosure(ctx, callee, args, named, rtc, span)

	case *runtime.BuiltinValue:
		result, err := callee.Fn(ctx, callee.Recv, args)
		if err != nil {
			return nil, builtinError(err, callee.Name, span)
		}
		return result, nil

	case *runtime.HostFuncValue:
		return ev.callHost(ctx, callee.Name, callee.Def, args, named, rtc, span)
	}

	return nil, runtime.NewError(runtime.ErrNotCallable, span,
		"cannot invoke a %s", runtime.TypeOf(callee))
}

// callClosure executes a script closure in a child scope of its defining
// scope. A dict-bound closure resolves the dict's fields as variables.
// `return` exits with the current pipe value; `break` may not escape a
// closure.
func (ev *Evaluator) callClosure(ctx context.Context, closure *runtime.ClosureValue, args []runtime.Value, named map[string]runtime.Value, rtc *runtime.Context, span token.Span) (runtime.Value, error) {
	defining := closure.Scope
	if closure.Bound != nil {
		methodScope := runtime.NewEnclosedEnvironment(defining)
		for _, key := range closure.Bound.Keys() {
			field, _ := closure.Bound.Get(key)
			methodScope.Seed(key, field)
		}
		defining = methodScope
	}

	callRtc := rtc.WithEnv(defining)

	if err := ev.bindParams(ctx, closure.Params, args, named, callRtc, rtc, span); err != nil {
		return nil, err
	}

	// The closure body's pipe value is its first argument.
	if len(args) > 0 {
		callRtc.SetPipeValue(args[0])
	}

	result, err := ev.eval(ctx, closure.Body, callRtc)
	if err != nil {
		if ret, ok := err.(*returnSignal); ok {
			return ret.value, nil
		}
		if brk, ok := err.(*breakSignal); ok {
			return nil, runtime.NewError(runtime.ErrBreakOutsideLoop, brk.span,
				"break cannot escape a closure")
		}
		return nil, err
	}
	return result, nil
}

// bindParams fills closure parameters: positional arguments in order, then
// named arguments, then declared defaults. Type-tagged parameters assert
// their argument type.
func (ev *Evaluator) bindParams(ctx context.Context, params []*ast.Param, args []runtime.Value, named map[string]runtime.Value, callRtc, defRtc *runtime.Context, span token.Span) error {
	if len(args) > len(params) {
		return runtime.NewError(runtime.ErrBadArgument, span,
			"too many arguments: expected %d, got %d", len(params), len(args))
	}

	for i, param := range params {
		var value runtime.Value
		switch {
		case i < len(args):
			value = args[i]
		case named[param.Name] != nil:
			value = named[param.Name]
		case param.Default != nil:
			var err error
			value, err = ev.eval(ctx, param.Default, defRtc)
			if err != nil {
				return err
			}
		default:
			return runtime.NewError(runtime.ErrBadArgument, span,
				"missing argument '%s'", param.Name)
		}

		if param.TypeName != "" && runtime.TypeOf(value) != param.TypeName {
			return runtime.NewError(runtime.ErrTypeMismatch, span,
				"argument '%s' must be %s, got %s", param.Name, param.TypeName, runtime.TypeOf(value))
		}
		callRtc.Env().Seed(param.Name, value)
	}
	return nil
}

// evalHostCall resolves and invokes a host function. A bare host name (no
// parentheses) evaluates to the callable itself.
func (ev *Evaluator) evalHostCall(ctx context.Context, node *ast.HostCall, rtc *runtime.Context) (runtime.Value, error) {
	name := node.QualifiedName()
	def, found := rtc.Function(name)
	if !found {
		return nil, runtime.NewError(runtime.ErrUnknownFunction, node.Span(),
			"unknown function '%s'", name)
	}

	if !node.HasArgs {
		return &runtime.HostFuncValue{Name: name, Def: def}, nil
	}

	args, named, err := ev.evalArgs(ctx, node.Args, rtc)
	if err != nil {
		return nil, err
	}
	return ev.callHost(ctx, name, def, args, named, rtc, node.Span())
}

// callHost awaits a host function, enforcing its declared parameter arity
// and types, and wraps host errors preserving their message.
func (ev *Evaluator) callHost(ctx context.Context, name string, def *runtime.HostFunction, args []runtime.Value, named map[string]runtime.Value, rtc *runtime.Context, span token.Span) (runtime.Value, error) {
	if err := checkAbort(ctx, span); err != nil {
		return nil, err
	}

	if len(def.Params) > 0 {
		bound := make([]runtime.Value, 0, len(def.Params))
		for i, param := range def.Params {
			var value runtime.Value
			switch {
			case i < len(args):
				value = args[i]
			case named[param.Name] != nil:
				value = named[param.Name]
			default:
				return nil, runtime.NewError(runtime.ErrBadArgument, span,
					"'%s' requires argument '%s'", name, param.Name)
			}
			if param.Type != "" && param.Type != "any" && runtime.TypeOf(value) != param.Type {
				return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
					"'%s' argument '%s' must be %s, got %s",
					name, param.Name, param.Type, runtime.TypeOf(value))
			}
			bound = append(bound, value)
		}
		if len(args) > len(def.Params) {
			return nil, runtime.NewError(runtime.ErrBadArgument, span,
				"'%s' expects %d arguments, got %d", name, len(def.Params), len(args))
		}
		args = bound
	}

	result, err := def.Fn(ctx, args, rtc)
	if err != nil {
		return nil, runtime.WrapHostError(err, name, span)
	}
	if result == nil {
		result = runtime.Null
	}
	return result, nil
}

// evalClosureCall resolves `$name(args)`: the variable must hold a callable.
func (ev *Evaluator) evalClosureCall(ctx context.Context, node *ast.ClosureCall, rtc *runtime.Context) (runtime.Value, error) {
	callee, found := rtc.GetVariable(node.Name)
	if !found {
		return nil, runtime.NewError(runtime.ErrUndefinedVar, node.Span(),
			"undefined variable $%s", node.Name)
	}
	if !runtime.IsCallable(callee) {
		return nil, runtime.NewError(runtime.ErrNotCallable, node.Span(),
			"$%s is a %s, not a callable", node.Name, runtime.TypeOf(callee))
	}

	args, named, err := ev.evalArgs(ctx, node.Args, rtc)
	if err != nil {
		return nil, err
	}
	return ev.invoke(ctx, callee, args, named, rtc, node.Span())
}

// evalPipeInvoke invokes the pipe value as a callable: `-> $(args)`.
func (ev *Evaluator) evalPipeInvoke(ctx context.Context, node *ast.PipeInvoke, rtc *runtime.Context) (runtime.Value, error) {
	callee := rtc.PipeValue()
	if callee == nil || !runtime.IsCallable(callee) {
		return nil, runtime.NewError(runtime.ErrNotCallable, node.Span(),
			"pipe value is a %s, not a callable", runtime.TypeOf(callee))
	}
	args, named, err := ev.evalArgs(ctx, node.Args, rtc)
	if err != nil {
		return nil, err
	}
	return ev.invoke(ctx, callee, args, named, rtc, node.Span())
}

// applyCallable pipes a value into a callable target: the value becomes the
// single argument (and the pipe value) of the call.
func (ev *Evaluator) applyCallable(ctx context.Context, callee runtime.Value, value runtime.Value, rtc *runtime.Context, span token.Span) (runtime.Value, error) {
	if closure, ok := callee.(*runtime.ClosureValue); ok && len(closure.Params) == 0 {
		// A zero-parameter closure still sees the value as `$`.
		saved := rtc.PipeValue()
		rtc.SetPipeValue(value)
		defer rtc.SetPipeValue(saved)
		return ev.invoke(ctx, callee, nil, nil, rtc, span)
	}
	return ev.invoke(ctx, callee, []runtime.Value{value}, nil, rtc, span)
}

// builtinError attaches span and code to errors from builtin methods.
func builtinError(err error, name string, span token.Span) error {
	if rillErr, ok := err.(*runtime.Error); ok {
		if rillErr.Span.Start.Line == 0 {
			rillErr.Span = span
		}
		return rillErr
	}
	return runtime.NewError(runtime.ErrBadArgument, span, "%s: %s", name, err.Error())
}
