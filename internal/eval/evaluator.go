// Package eval executes Rill scripts: an async tree walker over the AST,
// driven one statement at a time by the Stepper.
//
// Every evaluation method takes a context.Context; host calls are the
// suspension points, and the abort signal is checked before each statement
// and each loop iteration. Control flow (break, return) travels as typed
// errors consumed by the enclosing loop or closure.
package eval

import (
	"context"
	"strings"
	"time"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
)

// accumulatorName is the environment slot backing `$@`. The name cannot
// collide with script identifiers.
const accumulatorName = "@"

// Evaluator walks a script's AST against a runtime context.
type Evaluator struct{}

// New creates an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// evalStatement executes one statement and returns its value.
func (ev *Evaluator) evalStatement(ctx context.Context, stmt ast.Statement, rtc *runtime.Context) (runtime.Value, error) {
	switch stmt := stmt.(type) {
	case *ast.ExprStatement:
		return ev.evalPipeChain(ctx, stmt.Chain, rtc)

	case *ast.AnnotatedStatement:
		return ev.evalAnnotatedStatement(ctx, stmt, rtc)

	case *ast.RecoveryError:
		return nil, runtime.NewError(runtime.ErrParseInvalid, stmt.Span(),
			"script contains invalid syntax: %s", stmt.Message)

	default:
		return nil, runtime.NewError(runtime.ErrTypeMismatch, stmt.Span(),
			"cannot execute statement %T", stmt)
	}
}

// evalAnnotatedStatement evaluates the annotation values, pushes them for
// the statement's duration, and honors the reserved keys: `limit` (loop and
// fan-out cap), `timeout` (one-shot abort), and `retry`/`backoff` (observed,
// surfaced to the host through OnLogEvent).
func (ev *Evaluator) evalAnnotatedStatement(ctx context.Context, stmt *ast.AnnotatedStatement, rtc *runtime.Context) (runtime.Value, error) {
	frame := map[string]runtime.Value{}
	for _, ann := range stmt.Annotations {
		value, err := ev.eval(ctx, ann.Value, rtc)
		if err != nil {
			return nil, err
		}
		if ann.Spread {
			tuple, ok := value.(*runtime.TupleValue)
			if !ok {
				return nil, runtime.NewError(runtime.ErrTypeMismatch, ann.Span(),
					"annotation spread requires a tuple, got %s", runtime.TypeOf(value))
			}
			for _, name := range tuple.Names {
				frame[name] = tuple.Named[name]
			}
			continue
		}
		frame[ann.Key] = value
	}

	rtc.PushAnnotations(frame)
	defer rtc.PopAnnotations()

	if retry, ok := frame["retry"]; ok {
		if cb := rtc.Callbacks().OnLogEvent; cb != nil {
			data := map[string]any{"retry": runtime.ToGo(retry)}
			if backoff, ok := frame["backoff"]; ok {
				data["backoff"] = runtime.ToGo(backoff)
			}
			cb(runtime.Event{Name: "annotation.retry", Data: data})
		}
	}

	if timeout, ok := frame["timeout"]; ok {
		ms, isNum := timeout.(*runtime.NumberValue)
		if !isNum || ms.Value < 0 {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, stmt.Span(),
				"timeout annotation requires a non-negative number of milliseconds")
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms.Value)*time.Millisecond)
		defer cancel()
	}

	return ev.evalStatement(ctx, stmt.Statement, rtc)
}

// eval dispatches over expression variants.
func (ev *Evaluator) eval(ctx context.Context, node ast.Expression, rtc *runtime.Context) (runtime.Value, error) {
	switch node := node.(type) {
	case *ast.NumberLiteral:
		return runtime.NewNumber(node.Value), nil

	case *ast.BoolLiteral:
		return runtime.NewBool(node.Value), nil

	case *ast.StringLiteral:
		return ev.evalStringLiteral(ctx, node, rtc)

	case *ast.TupleLiteral:
		return ev.evalTupleLiteral(ctx, node, rtc)

	case *ast.DictLiteral:
		return ev.evalDictLiteral(ctx, node, rtc)

	case *ast.Variable:
		return ev.evalVariable(ctx, node, rtc)

	case *ast.HostCall:
		return ev.evalHostCall(ctx, node, rtc)

	case *ast.ClosureCall:
		return ev.evalClosureCall(ctx, node, rtc)

	case *ast.PipeInvoke:
		return ev.evalPipeInvoke(ctx, node, rtc)

	case *ast.Closure:
		return &runtime.ClosureValue{Params: node.Params, Body: node.Body, Scope: rtc.Env()}, nil

	case *ast.Conditional:
		return ev.evalConditional(ctx, node, rtc)

	case *ast.Loop:
		return ev.evalLoop(ctx, node, rtc)

	case *ast.Block:
		return ev.evalBlock(ctx, node, runtime.NewChild(rtc))

	case *ast.GroupedExpr:
		return ev.eval(ctx, node.Expr, runtime.NewChild(rtc))

	case *ast.PipeChain:
		return ev.evalPipeChain(ctx, node, rtc)

	case *ast.PostfixExpr:
		return ev.evalPostfixExpr(ctx, node, rtc)

	case *ast.BinaryExpr:
		return ev.evalBinaryExpr(ctx, node, rtc)

	case *ast.UnaryExpr:
		return ev.evalUnaryExpr(ctx, node, rtc)

	case *ast.TypeAssertion:
		return ev.evalTypeAssertion(ctx, node, rtc)

	case *ast.TypeCheck:
		return ev.evalTypeCheck(ctx, node, rtc)

	case *ast.Spread:
		return ev.evalSpread(ctx, node, rtc)

	case *ast.Destructure:
		return ev.evalDestructure(ctx, node, rtc)

	case *ast.Slice:
		return ev.evalSlice(ctx, node, rtc)

	case *ast.Assert:
		return ev.evalAssert(ctx, node, rtc)

	case *ast.ErrorExpr:
		return ev.evalErrorExpr(ctx, node, rtc)

	case *ast.PassStmt:
		return rtc.PipeValue(), nil

	case *ast.BreakStmt:
		return nil, &breakSignal{value: rtc.PipeValue(), span: node.Span()}

	case *ast.ReturnStmt:
		return nil, &returnSignal{value: rtc.PipeValue(), span: node.Span()}

	case *ast.EachExpr, *ast.MapExpr, *ast.FoldExpr, *ast.FilterExpr:
		return ev.evalCollectionOp(ctx, node, rtc)

	case *ast.Capture:
		return ev.evalCapture(ctx, node, rtc)

	case *ast.RecoveryError:
		return nil, runtime.NewError(runtime.ErrParseInvalid, node.Span(),
			"script contains invalid syntax: %s", node.Message)
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"cannot evaluate %T", node)
}

// evalStringLiteral concatenates literal parts with formatted interpolation
// values.
func (ev *Evaluator) evalStringLiteral(ctx context.Context, lit *ast.StringLiteral, rtc *runtime.Context) (runtime.Value, error) {
	if len(lit.Parts) == 1 {
		if text, ok := lit.Parts[0].(*ast.TextPart); ok {
			return runtime.NewString(text.Text), nil
		}
	}

	var sb strings.Builder
	for _, part := range lit.Parts {
		switch part := part.(type) {
		case *ast.TextPart:
			sb.WriteString(part.Text)
		case *ast.Interpolation:
			value, err := ev.eval(ctx, part.Expr, rtc)
			if err != nil {
				return nil, err
			}
			sb.WriteString(value.String())
		}
	}
	return runtime.NewString(sb.String()), nil
}

// evalTupleLiteral builds a list from a positional bracket literal. Spread
// elements splice their sequence in place.
func (ev *Evaluator) evalTupleLiteral(ctx context.Context, lit *ast.TupleLiteral, rtc *runtime.Context) (runtime.Value, error) {
	elements := make([]runtime.Value, 0, len(lit.Elements))
	for _, el := range lit.Elements {
		if spread, ok := el.(*ast.Spread); ok {
			value, err := ev.evalSpread(ctx, spread, rtc)
			if err != nil {
				return nil, err
			}
			tuple := value.(*runtime.TupleValue)
			elements = append(elements, tuple.Positional...)
			continue
		}
		value, err := ev.eval(ctx, el, rtc)
		if err != nil {
			return nil, err
		}
		elements = append(elements, value)
	}
	return runtime.NewList(elements), nil
}

// evalDictLiteral builds a dict, rejecting reserved method keys, and binds
// any closure values to the dict so `self` semantics work.
func (ev *Evaluator) evalDictLiteral(ctx context.Context, lit *ast.DictLiteral, rtc *runtime.Context) (runtime.Value, error) {
	dict := runtime.NewDict()
	for _, entry := range lit.Entries {
		if runtime.IsReservedDictKey(entry.Key) {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, entry.Span(),
				"'%s' is a reserved dict method and cannot be a field", entry.Key)
		}
		value, err := ev.eval(ctx, entry.Value, rtc)
		if err != nil {
			return nil, err
		}
		dict.SetEntry(entry.Key, value)
	}
	return rtc.BindDictCallables(dict), nil
}

// evalConditional evaluates `cond ? then ! else`. The piped form (nil cond)
// requires the pipe value to be a Bool; a missing else passes the pipe value
// through.
func (ev *Evaluator) evalConditional(ctx context.Context, node *ast.Conditional, rtc *runtime.Context) (runtime.Value, error) {
	var condValue runtime.Value
	if node.Cond == nil {
		condValue = rtc.PipeValue()
	} else {
		var err error
		condValue, err = ev.eval(ctx, node.Cond, rtc)
		if err != nil {
			return nil, err
		}
	}

	truth, ok := runtime.Truthy(condValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrNonBoolCondition, node.Span(),
			"condition must be a bool, got %s", runtime.TypeOf(condValue))
	}

	if truth {
		return ev.eval(ctx, node.Then, rtc)
	}
	if node.Else != nil {
		return ev.eval(ctx, node.Else, rtc)
	}
	return rtc.PipeValue(), nil
}

// evalBlock executes the block's statements in order and yields the last
// statement's value. The caller supplies the child scope.
func (ev *Evaluator) evalBlock(ctx context.Context, block *ast.Block, rtc *runtime.Context) (runtime.Value, error) {
	if len(block.Statements) == 0 {
		return nil, runtime.NewError(runtime.ErrEmptyBlock, block.Span(), "empty block")
	}

	var value runtime.Value = rtc.PipeValue()
	for _, stmt := range block.Statements {
		if err := checkAbort(ctx, stmt.Span()); err != nil {
			return nil, err
		}
		var err error
		value, err = ev.evalStatement(ctx, stmt, rtc)
		if err != nil {
			return nil, err
		}
		rtc.SetPipeValue(value)
	}
	return value, nil
}

// evalAssert checks a condition (or, bare, the pipe value) and yields the
// checked value on success.
func (ev *Evaluator) evalAssert(ctx context.Context, node *ast.Assert, rtc *runtime.Context) (runtime.Value, error) {
	value := rtc.PipeValue()
	if node.Cond != nil {
		var err error
		value, err = ev.eval(ctx, node.Cond, rtc)
		if err != nil {
			return nil, err
		}
	}
	truth, ok := runtime.Truthy(value)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"assert requires a bool, got %s", runtime.TypeOf(value))
	}
	if !truth {
		return nil, runtime.NewError(runtime.ErrAssertFailed, node.Span(), "assertion failed")
	}
	if node.Cond != nil {
		return value, nil
	}
	return rtc.PipeValue(), nil
}

// evalErrorExpr raises a script-level error with the message expression (or
// the pipe value, formatted).
func (ev *Evaluator) evalErrorExpr(ctx context.Context, node *ast.ErrorExpr, rtc *runtime.Context) (runtime.Value, error) {
	message := rtc.PipeValue()
	if node.Message != nil {
		var err error
		message, err = ev.eval(ctx, node.Message, rtc)
		if err != nil {
			return nil, err
		}
	}
	text := "error"
	if message != nil {
		text = message.String()
	}
	return nil, runtime.NewError(runtime.ErrUserError, node.Span(), "%s", text)
}

// evalTypeAssertion passes the value through when its type matches, errors
// otherwise. `any` accepts every type.
func (ev *Evaluator) evalTypeAssertion(ctx context.Context, node *ast.TypeAssertion, rtc *runtime.Context) (runtime.Value, error) {
	value, err := ev.eval(ctx, node.Target, rtc)
	if err != nil {
		return nil, err
	}
	if node.TypeName != "any" && runtime.TypeOf(value) != node.TypeName {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"expected %s, got %s", node.TypeName, runtime.TypeOf(value))
	}
	return value, nil
}

// evalTypeCheck returns a Bool for `expr:?T`.
func (ev *Evaluator) evalTypeCheck(ctx context.Context, node *ast.TypeCheck, rtc *runtime.Context) (runtime.Value, error) {
	value, err := ev.eval(ctx, node.Target, rtc)
	if err != nil {
		return nil, err
	}
	if node.TypeName == "any" {
		return runtime.True, nil
	}
	return runtime.NewBool(runtime.TypeOf(value) == node.TypeName), nil
}

// evalCapture stores the pipe value under the capture's name (implicit
// inline capture inside a chain) and yields it unchanged.
func (ev *Evaluator) evalCapture(ctx context.Context, node *ast.Capture, rtc *runtime.Context) (runtime.Value, error) {
	value := rtc.PipeValue()
	if err := ev.storeCapture(node, value, rtc); err != nil {
		return nil, err
	}
	return value, nil
}

// storeCapture writes a captured value, honoring the optional type assertion
// and the variable's type lock.
func (ev *Evaluator) storeCapture(capture *ast.Capture, value runtime.Value, rtc *runtime.Context) error {
	if capture.TypeName != "" && capture.TypeName != "any" &&
		runtime.TypeOf(value) != capture.TypeName {
		return runtime.NewError(runtime.ErrTypeMismatch, capture.Span(),
			"cannot capture %s into $%s:%s", runtime.TypeOf(value), capture.Name, capture.TypeName)
	}
	if lockedType, ok := rtc.SetVariable(capture.Name, value); !ok {
		return runtime.NewError(runtime.ErrTypeLock, capture.Span(),
			"$%s is locked to %s, cannot assign %s", capture.Name, lockedType, runtime.TypeOf(value))
	}
	return nil
}
