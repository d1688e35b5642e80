package eval

import (
	"context"
	"math"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
)

// evalBinaryExpr evaluates arithmetic, comparison, and logical operators.
// There is no coercion: operand types must match what the operator requires.
// Logical operators short-circuit.
func (ev *Evaluator) evalBinaryExpr(ctx context.Context, node *ast.BinaryExpr, rtc *runtime.Context) (runtime.Value, error) {
	if node.Operator == "&&" || node.Operator == "||" {
		return ev.evalLogical(ctx, node, rtc)
	}

	left, err := ev.eval(ctx, node.Left, rtc)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(ctx, node.Right, rtc)
	if err != nil {
		return nil, err
	}

	switch node.Operator {
	case "==":
		return runtime.NewBool(runtime.Equals(left, right)), nil
	case "!=":
		return runtime.NewBool(!runtime.Equals(left, right)), nil
	}

	if ls, ok := left.(*runtime.StringValue); ok {
		return ev.evalStringOp(node, ls, right)
	}

	ln, ok := left.(*runtime.NumberValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"operator '%s' requires numbers, got %s", node.Operator, runtime.TypeOf(left))
	}
	rn, ok := right.(*runtime.NumberValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"operator '%s' requires numbers, got %s", node.Operator, runtime.TypeOf(right))
	}

	switch node.Operator {
	case "+":
		return runtime.NewNumber(ln.Value + rn.Value), nil
	case "-":
		return runtime.NewNumber(ln.Value - rn.Value), nil
	case "*":
		return runtime.NewNumber(ln.Value * rn.Value), nil
	case "/":
		// Division by zero raises rather than producing IEEE infinities.
		if rn.Value == 0 {
			return nil, runtime.NewError(runtime.ErrDivisionByZero, node.Span(), "division by zero")
		}
		return runtime.NewNumber(ln.Value / rn.Value), nil
	case "%":
		if rn.Value == 0 {
			return nil, runtime.NewError(runtime.ErrDivisionByZero, node.Span(), "modulo by zero")
		}
		return runtime.NewNumber(math.Mod(ln.Value, rn.Value)), nil
	case "<":
		return runtime.NewBool(ln.Value < rn.Value), nil
	case ">":
		return runtime.NewBool(ln.Value > rn.Value), nil
	case "<=":
		return runtime.NewBool(ln.Value <= rn.Value), nil
	case ">=":
		return runtime.NewBool(ln.Value >= rn.Value), nil
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"unknown operator '%s'", node.Operator)
}

// evalStringOp handles the string operators: concatenation and ordering.
func (ev *Evaluator) evalStringOp(node *ast.BinaryExpr, left *runtime.StringValue, right runtime.Value) (runtime.Value, error) {
	rs, ok := right.(*runtime.StringValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"operator '%s' requires both operands to be strings, got %s",
			node.Operator, runtime.TypeOf(right))
	}
	switch node.Operator {
	case "+":
		return runtime.NewString(left.Value + rs.Value), nil
	case "<":
		return runtime.NewBool(left.Value < rs.Value), nil
	case ">":
		return runtime.NewBool(left.Value > rs.Value), nil
	case "<=":
		return runtime.NewBool(left.Value <= rs.Value), nil
	case ">=":
		return runtime.NewBool(left.Value >= rs.Value), nil
	}
	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"operator '%s' is not defined for strings", node.Operator)
}

// evalLogical evaluates && and || with short-circuiting. Both sides must be
// Bool.
func (ev *Evaluator) evalLogical(ctx context.Context, node *ast.BinaryExpr, rtc *runtime.Context) (runtime.Value, error) {
	left, err := ev.eval(ctx, node.Left, rtc)
	if err != nil {
		return nil, err
	}
	lb, ok := runtime.Truthy(left)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"operator '%s' requires bools, got %s", node.Operator, runtime.TypeOf(left))
	}

	if node.Operator == "&&" && !lb {
		return runtime.False, nil
	}
	if node.Operator == "||" && lb {
		return runtime.True, nil
	}

	right, err := ev.eval(ctx, node.Right, rtc)
	if err != nil {
		return nil, err
	}
	rb, ok := runtime.Truthy(right)
	if !ok {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
			"operator '%s' requires bools, got %s", node.Operator, runtime.TypeOf(right))
	}
	return runtime.NewBool(rb), nil
}

// evalUnaryExpr evaluates `-` and `!`.
func (ev *Evaluator) evalUnaryExpr(ctx context.Context, node *ast.UnaryExpr, rtc *runtime.Context) (runtime.Value, error) {
	operand, err := ev.eval(ctx, node.Operand, rtc)
	if err != nil {
		return nil, err
	}

	switch node.Operator {
	case "-":
		n, ok := operand.(*runtime.NumberValue)
		if !ok {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
				"unary '-' requires a number, got %s", runtime.TypeOf(operand))
		}
		return runtime.NewNumber(-n.Value), nil
	case "!":
		b, ok := runtime.Truthy(operand)
		if !ok {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
				"unary '!' requires a bool, got %s", runtime.TypeOf(operand))
		}
		return runtime.NewBool(!b), nil
	}

	return nil, runtime.NewError(runtime.ErrTypeMismatch, node.Span(),
		"unknown unary operator '%s'", node.Operator)
}
