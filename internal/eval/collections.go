package eval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// evalCollectionOp dispatches each/map/fold/filter over the pipe value.
func (ev *Evaluator) evalCollectionOp(ctx context.Context, node ast.Expression, rtc *runtime.Context) (runtime.Value, error) {
	elements, err := ev.materialize(ctx, rtc.PipeValue(), rtc, node.Span())
	if err != nil {
		return nil, err
	}

	switch node := node.(type) {
	case *ast.EachExpr:
		return ev.evalEach(ctx, node, elements, rtc)
	case *ast.MapExpr:
		return ev.evalMap(ctx, node, elements, rtc)
	case *ast.FoldExpr:
		return ev.evalFold(ctx, node, elements, rtc)
	case *ast.FilterExpr:
		return ev.evalFilter(ctx, node, elements, rtc)
	}
	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"unknown collection operator %T", node)
}

// materialize resolves the operand of a collection operator: a list is used
// directly; an iterator-shaped dict is drained (bounded by the iteration
// cap).
func (ev *Evaluator) materialize(ctx context.Context, value runtime.Value, rtc *runtime.Context, span token.Span) ([]runtime.Value, error) {
	switch value := value.(type) {
	case *runtime.ListValue:
		return value.Elements, nil

	case *runtime.DictValue:
		if !value.IsIterator() {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
				"collection operators require a list or iterator, got dict")
		}
		return ev.drainIterator(ctx, value, rtc, span)
	}
	return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
		"collection operators require a list or iterator, got %s", runtime.TypeOf(value))
}

// drainIterator pulls an iterator dict to exhaustion: while `done` is false,
// collect `value` and call `next` to produce the successor state.
func (ev *Evaluator) drainIterator(ctx context.Context, iter *runtime.DictValue, rtc *runtime.Context, span token.Span) ([]runtime.Value, error) {
	limit := iterationLimit(rtc)
	var elements []runtime.Value

	for i := 0; ; i++ {
		if err := checkAbort(ctx, span); err != nil {
			return nil, err
		}
		if i >= limit {
			return nil, runtime.NewError(runtime.ErrIterationLimit, span,
				"iterator exceeded %d elements", limit)
		}

		doneValue, _ := iter.Get("done")
		done, ok := runtime.Truthy(doneValue)
		if !ok {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
				"iterator 'done' must be a bool, got %s", runtime.TypeOf(doneValue))
		}
		if done {
			return elements, nil
		}

		element, found := iter.Get("value")
		if !found {
			return nil, runtime.NewError(runtime.ErrFieldMissing, span,
				"iterator is not done but has no 'value'")
		}
		elements = append(elements, element)

		next, _ := iter.Get("next")
		state, err := ev.invoke(ctx, next, nil, nil, rtc, span)
		if err != nil {
			return nil, err
		}
		nextIter, ok := state.(*runtime.DictValue)
		if !ok || !nextIter.IsIterator() {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, span,
				"iterator 'next' must return an iterator, got %s", runtime.TypeOf(state))
		}
		iter = nextIter
	}
}

// applyBody runs a collection operator body for one element. The element is
// the pipe value; the accumulator (when the operator carries one) is exposed
// as `$@` and as the closure's second parameter.
func (ev *Evaluator) applyBody(ctx context.Context, body ast.Expression, element runtime.Value, acc runtime.Value, hasAcc bool, rtc *runtime.Context) (runtime.Value, error) {
	switch body := body.(type) {
	case *ast.Closure:
		callee, err := ev.eval(ctx, body, rtc)
		if err != nil {
			return nil, err
		}
		closure := callee.(*runtime.ClosureValue)
		args := []runtime.Value{element}
		if hasAcc && len(closure.Params) >= 2 {
			args = append(args, acc)
		}
		return ev.invoke(ctx, closure, args, nil, rtc, body.Span())

	case *ast.Variable:
		if isBareVariable(body) {
			callee, found := rtc.GetVariable(body.Name)
			if !found {
				return nil, runtime.NewError(runtime.ErrUndefinedVar, body.Span(),
					"undefined variable $%s", body.Name)
			}
			if !runtime.IsCallable(callee) {
				return nil, runtime.NewError(runtime.ErrNotCallable, body.Span(),
					"$%s is a %s, not a callable", body.Name, runtime.TypeOf(callee))
			}
			return ev.applyCallable(ctx, callee, element, rtc, body.Span())
		}

	case *ast.HostCall:
		if !body.HasArgs {
			callee, err := ev.evalHostCall(ctx, body, rtc)
			if err != nil {
				return nil, err
			}
			return ev.applyCallable(ctx, callee, element, rtc, body.Span())
		}

	case *ast.Spread:
		if body.Expr == nil {
			bodyRtc := runtime.NewChild(rtc)
			bodyRtc.SetPipeValue(element)
			return ev.evalSpread(ctx, body, bodyRtc)
		}
	}

	// Block, grouped, and expression bodies run in a child scope with the
	// element as `$` and the accumulator bound to `$@`.
	bodyRtc := runtime.NewChild(rtc)
	bodyRtc.SetPipeValue(element)
	if hasAcc {
		bodyRtc.Env().Seed(accumulatorName, acc)
	}
	return ev.eval(ctx, body, bodyRtc)
}

// evalEach iterates sequentially, collecting each body result. The
// accumulator form is a scan: the accumulator threads through and the
// intermediate values are collected.
func (ev *Evaluator) evalEach(ctx context.Context, node *ast.EachExpr, elements []runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	hasAcc := node.Init != nil
	var acc runtime.Value
	if hasAcc {
		var err error
		acc, err = ev.eval(ctx, node.Init, rtc)
		if err != nil {
			return nil, err
		}
	}

	results := make([]runtime.Value, 0, len(elements))
	for _, element := range elements {
		if err := checkAbort(ctx, node.Span()); err != nil {
			return nil, err
		}
		result, err := ev.applyBody(ctx, node.Body, element, acc, hasAcc, rtc)
		if err != nil {
			if brk, ok := err.(*breakSignal); ok {
				results = append(results, brk.value)
				return runtime.NewList(results), nil
			}
			return nil, err
		}
		if hasAcc {
			acc = result
		}
		results = append(results, result)
	}
	return runtime.NewList(results), nil
}

// evalFold reduces sequentially and returns only the final accumulator.
// Without an init, the first element seeds the accumulator.
func (ev *Evaluator) evalFold(ctx context.Context, node *ast.FoldExpr, elements []runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	var acc runtime.Value
	start := 0
	if node.Init != nil {
		var err error
		acc, err = ev.eval(ctx, node.Init, rtc)
		if err != nil {
			return nil, err
		}
	} else {
		if len(elements) == 0 {
			return runtime.Null, nil
		}
		acc = elements[0]
		start = 1
	}

	for _, element := range elements[start:] {
		if err := checkAbort(ctx, node.Span()); err != nil {
			return nil, err
		}
		result, err := ev.applyBody(ctx, node.Body, element, acc, true, rtc)
		if err != nil {
			if brk, ok := err.(*breakSignal); ok {
				return brk.value, nil
			}
			return nil, err
		}
		acc = result
	}
	return acc, nil
}

// evalMap transforms elements, fanning out up to the `limit` annotation
// (default 1, sequential) and preserving input order in the output.
func (ev *Evaluator) evalMap(ctx context.Context, node *ast.MapExpr, elements []runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	results, err := ev.runParallel(ctx, node.Body, elements, rtc)
	if err != nil {
		return nil, err
	}
	return runtime.NewList(results), nil
}

// evalFilter keeps elements whose predicate is true, running predicates up
// to the limit in parallel and preserving the order of retained elements.
func (ev *Evaluator) evalFilter(ctx context.Context, node *ast.FilterExpr, elements []runtime.Value, rtc *runtime.Context) (runtime.Value, error) {
	verdicts, err := ev.runParallel(ctx, node.Body, elements, rtc)
	if err != nil {
		return nil, err
	}

	kept := []runtime.Value{}
	for i, verdict := range verdicts {
		keep, ok := runtime.Truthy(verdict)
		if !ok {
			return nil, runtime.NewError(runtime.ErrNonBoolCondition, node.Span(),
				"filter predicate must return a bool, got %s", runtime.TypeOf(verdict))
		}
		if keep {
			kept = append(kept, elements[i])
		}
	}
	return runtime.NewList(kept), nil
}

// runParallel applies the body to every element with bounded concurrency.
// Results are indexed by input position so completion order never affects
// output order. Parallel bodies share the parent scope read-only: each task
// evaluates in its own child scope.
func (ev *Evaluator) runParallel(ctx context.Context, body ast.Expression, elements []runtime.Value, rtc *runtime.Context) ([]runtime.Value, error) {
	concurrency := 1
	if v, ok := rtc.LookupAnnotation("limit"); ok {
		if n, isNum := v.(*runtime.NumberValue); isNum && n.Value >= 1 {
			concurrency = int(n.Value)
		}
	}

	if concurrency <= 1 {
		results := make([]runtime.Value, len(elements))
		for i, element := range elements {
			if err := checkAbort(ctx, body.Span()); err != nil {
				return nil, err
			}
			result, err := ev.applyBody(ctx, body, element, nil, false, rtc)
			if err != nil {
				return nil, err
			}
			results[i] = result
		}
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	results := make([]runtime.Value, len(elements))

	for i, element := range elements {
		group.Go(func() error {
			result, err := ev.applyBody(groupCtx, body, element, nil, false, runtime.NewChild(rtc))
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
