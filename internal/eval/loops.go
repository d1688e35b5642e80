package eval

import (
	"context"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
)

// iterationLimit resolves the cap on loop iterations and iterator elements: the `limit` annotation in
// force at the current statement, or the context default.
func iterationLimit(rtc *runtime.Context) int {
	if v, ok := rtc.LookupAnnotation("limit"); ok {
		if n, isNum := v.(*runtime.NumberValue); isNum && n.Value >= 1 {
			return int(n.Value)
		}
	}
	return rtc.IterationLimit()
}

// evalLoop runs `(cond) @ body` (pre-test) or `@ body ? cond` (post-test).
// The pipe value threads through: the body sees the previous iteration's
// value as `$` and its result becomes the next iteration's value. The
// condition evaluates in the loop's own scope, so captures inside the body
// do not leak into it; each iteration's body runs in a fresh child scope.
func (ev *Evaluator) evalLoop(ctx context.Context, loop *ast.Loop, rtc *runtime.Context) (runtime.Value, error) {
	limit := iterationLimit(rtc)
	value := rtc.PipeValue()
	iterations := 0

	cond := func() (bool, error) {
		rtc.SetPipeValue(value)
		condValue, err := ev.eval(ctx, loop.Cond, rtc)
		if err != nil {
			return false, err
		}
		truth, ok := runtime.Truthy(condValue)
		if !ok {
			return false, runtime.NewError(runtime.ErrNonBoolCondition, loop.Cond.Span(),
				"loop condition must be a bool, got %s", runtime.TypeOf(condValue))
		}
		return truth, nil
	}

	body := func() (done bool, err error) {
		if err := checkAbort(ctx, loop.Span()); err != nil {
			return false, err
		}
		iterations++
		if iterations > limit {
			return false, runtime.NewError(runtime.ErrIterationLimit, loop.Span(),
				"loop exceeded %d iterations", limit)
		}

		iterRtc := runtime.NewChild(rtc)
		iterRtc.SetPipeValue(value)
		result, err := ev.eval(ctx, loop.Body, iterRtc)
		if err != nil {
			if brk, ok := err.(*breakSignal); ok {
				value = brk.value
				return true, nil
			}
			return false, err
		}
		value = result
		return false, nil
	}

	if loop.PostTest {
		for {
			stopped, err := body()
			if err != nil {
				return nil, err
			}
			if stopped {
				return value, nil
			}
			more, err := cond()
			if err != nil {
				return nil, err
			}
			if !more {
				return value, nil
			}
		}
	}

	for {
		more, err := cond()
		if err != nil {
			return nil, err
		}
		if !more {
			return value, nil
		}
		stopped, err := body()
		if err != nil {
			return nil, err
		}
		if stopped {
			return value, nil
		}
	}
}
