package eval

import (
	"context"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
)

// evalPipeChain threads the head value through the pipe targets left to
// right. Each target sees the previous result as `$`. The entering pipe
// value is restored afterward so nested chains stay lexically scoped.
func (ev *Evaluator) evalPipeChain(ctx context.Context, chain *ast.PipeChain, rtc *runtime.Context) (runtime.Value, error) {
	saved := rtc.PipeValue()
	defer rtc.SetPipeValue(saved)

	value, err := ev.eval(ctx, chain.Head, rtc)
	if err != nil {
		return nil, err
	}

	for _, target := range chain.Pipes {
		rtc.SetPipeValue(value)
		value, err = ev.evalPipeTarget(ctx, target, rtc)
		if err != nil {
			return nil, err
		}
	}

	if chain.Terminator != nil {
		rtc.SetPipeValue(value)
		switch term := chain.Terminator.(type) {
		case *ast.Capture:
			if err := ev.storeCapture(term, value, rtc); err != nil {
				return nil, err
			}
		case *ast.BreakStmt:
			return nil, &breakSignal{value: value, span: term.Span()}
		case *ast.ReturnStmt:
			return nil, &returnSignal{value: value, span: term.Span()}
		case *ast.PassStmt:
			// No-op: yields the value unchanged.
		}
	}

	return value, nil
}

// evalPipeTarget evaluates one pipe target with its dispatch semantics:
//   - `$name` (bare) is an implicit capture passing the value through
//   - a dict literal dispatches on the pipe value as key
//   - a list/tuple of callables folds the value through each handler
//   - closures and bare host names are applied to the pipe value
//   - everything else evaluates with `$` bound to the incoming value
func (ev *Evaluator) evalPipeTarget(ctx context.Context, target ast.Expression, rtc *runtime.Context) (runtime.Value, error) {
	value := rtc.PipeValue()

	switch target := target.(type) {
	case *ast.Capture:
		if err := ev.storeCapture(target, value, rtc); err != nil {
			return nil, err
		}
		return value, nil

	case *ast.Variable:
		if isBareVariable(target) {
			capture := &ast.Capture{Base: ast.Base{Loc: target.Span()}, Name: target.Name}
			if err := ev.storeCapture(capture, value, rtc); err != nil {
				return nil, err
			}
			return value, nil
		}
		return ev.evalVariable(ctx, target, rtc)

	case *ast.DictLiteral:
		return ev.evalDictDispatch(ctx, target, value, rtc)

	case *ast.TupleLiteral:
		return ev.evalHandlerChain(ctx, target, value, rtc)

	case *ast.Closure:
		callee, err := ev.eval(ctx, target, rtc)
		if err != nil {
			return nil, err
		}
		return ev.applyCallable(ctx, callee, value, rtc, target.Span())

	case *ast.HostCall:
		if !target.HasArgs {
			callee, err := ev.evalHostCall(ctx, target, rtc)
			if err != nil {
				return nil, err
			}
			return ev.applyCallable(ctx, callee, value, rtc, target.Span())
		}
		return ev.evalHostCall(ctx, target, rtc)

	default:
		return ev.eval(ctx, target, rtc)
	}
}

// isBareVariable reports whether the variable reference is a plain `$name`
// with no access chain, default, or existence check — the implicit capture
// form inside a chain.
func isBareVariable(v *ast.Variable) bool {
	return !v.IsPipeVar && !v.IsAccumulator && v.Name != "" &&
		len(v.AccessChain) == 0 && v.Default == nil && v.ExistenceCheck == ""
}

// evalDictDispatch pipes a value into a dict literal: the value selects a
// key; a trailing `??` supplies the fallback.
func (ev *Evaluator) evalDictDispatch(ctx context.Context, lit *ast.DictLiteral, value runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	key, ok := value.(*runtime.StringValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, lit.Span(),
			"dict dispatch requires a string pipe value, got %s", runtime.TypeOf(value))
	}

	for _, entry := range lit.Entries {
		if entry.Key == key.Value {
			return ev.eval(ctx, entry.Value, rtc)
		}
	}

	if lit.Default != nil {
		return ev.eval(ctx, lit.Default, rtc)
	}
	return nil, runtime.NewError(runtime.ErrFieldMissing, lit.Span(),
		"no dispatch entry for key '%s'", key.Value)
}

// evalHandlerChain pipes a value through a tuple of handlers in sequence,
// equivalent to a fold over the handlers.
func (ev *Evaluator) evalHandlerChain(ctx context.Context, lit *ast.TupleLiteral, value runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	handlers, err := ev.evalTupleLiteral(ctx, lit, rtc)
	if err != nil {
		return nil, err
	}
	list := handlers.(*runtime.ListValue)

	result := value
	for _, handler := range list.Elements {
		if !runtime.IsCallable(handler) {
			return nil, runtime.NewError(runtime.ErrNotCallable, lit.Span(),
				"handler chain elements must be callables, got %s", runtime.TypeOf(handler))
		}
		rtc.SetPipeValue(result)
		result, err = ev.applyCallable(ctx, handler, result, rtc, lit.Span())
		if err != nil {
			return nil, err
		}
	}

	if result == nil && lit.Default != nil {
		return ev.eval(ctx, lit.Default, rtc)
	}
	return result, nil
}
