package ast

import (
	"testing"

	"github.com/rcrsr/rill/pkg/token"
)

func num(v float64) *NumberLiteral {
	return &NumberLiteral{Value: v}
}

func str(text string) *StringLiteral {
	return &StringLiteral{Parts: []StringPart{&TextPart{Text: text}}}
}

func spanned(n *NumberLiteral, offset int) *NumberLiteral {
	n.Loc = token.Span{
		Start: token.Position{Offset: offset, Line: 1, Column: offset + 1},
		End:   token.Position{Offset: offset + 1, Line: 1, Column: offset + 2},
	}
	return n
}

func TestEqualIgnoresSpans(t *testing.T) {
	a := spanned(num(1), 0)
	b := spanned(num(1), 40)
	if !Equal(a, b) {
		t.Error("nodes differing only in span should be equal")
	}
}

func TestEqualDistinguishesVariants(t *testing.T) {
	if Equal(num(1), str("1")) {
		t.Error("NumberLiteral and StringLiteral must not be equal")
	}
	if Equal(num(1), num(2)) {
		t.Error("different number values must not be equal")
	}
	if Equal(&BoolLiteral{Value: true}, &BoolLiteral{Value: false}) {
		t.Error("different bool values must not be equal")
	}
}

func TestEqualPipeChains(t *testing.T) {
	mk := func() *PipeChain {
		return &PipeChain{
			Head: str("x"),
			Pipes: []Expression{
				&PostfixExpr{
					Primary: &Variable{IsPipeVar: true},
					Methods: []PostfixOp{&MethodCall{Name: "upper"}},
				},
			},
			Terminator: &Capture{Name: "v"},
		}
	}
	if !Equal(mk(), mk()) {
		t.Error("identical chains should be equal")
	}

	other := mk()
	other.Terminator = &Capture{Name: "w"}
	if Equal(mk(), other) {
		t.Error("chains with different capture names must not be equal")
	}

	noTerm := mk()
	noTerm.Terminator = nil
	if Equal(mk(), noTerm) {
		t.Error("terminator presence must participate in equality")
	}
}

func TestEqualClosures(t *testing.T) {
	mk := func(def float64) *Closure {
		return &Closure{
			Params: []*Param{{Name: "x", TypeName: "number", Default: num(def)}},
			Body:   &GroupedExpr{Expr: &BinaryExpr{Operator: "*", Left: &Variable{Name: "x"}, Right: num(2)}},
		}
	}
	if !Equal(mk(1), mk(1)) {
		t.Error("structurally identical closures should be equal")
	}
	// Parameter defaults compare structurally.
	if Equal(mk(1), mk(2)) {
		t.Error("closures with different parameter defaults must not be equal")
	}
}

func TestEqualDictOrderSensitiveInAST(t *testing.T) {
	// AST equality is positional: entry order is part of the structure.
	a := &DictLiteral{Entries: []*DictEntry{{Key: "a", Value: num(1)}, {Key: "b", Value: num(2)}}}
	b := &DictLiteral{Entries: []*DictEntry{{Key: "b", Value: num(2)}, {Key: "a", Value: num(1)}}}
	if Equal(a, b) {
		t.Error("dict literals with different entry order are different ASTs")
	}
}

func TestStringDumps(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{num(5), "5"},
		{&BoolLiteral{Value: true}, "true"},
		{str("hi"), `"hi"`},
		{&UnaryExpr{Operator: "-", Operand: num(1)}, "(-1)"},
		{&BinaryExpr{Operator: "+", Left: num(1), Right: num(2)}, "(1 + 2)"},
		{&Variable{Name: "v"}, "$v"},
		{&Variable{IsPipeVar: true}, "$"},
		{&Variable{IsAccumulator: true}, "$@"},
		{&Variable{Name: "u", ExistenceCheck: "email"}, "$u.?email"},
		{&Capture{Name: "x", TypeName: "string"}, "$x:string"},
		{&HostCall{Namespace: "str", Name: "upper", HasArgs: true}, "str::upper()"},
		{&Slice{Start: num(1), Stop: num(3)}, "/<1:3>"},
		{&DictLiteral{}, "[:]"},
		{&TupleLiteral{}, "[]"},
		{&PassStmt{}, "pass"},
		{&MapExpr{Body: &Closure{
			Params: []*Param{{Name: "x"}},
			Body:   &GroupedExpr{Expr: &BinaryExpr{Operator: "*", Left: &Variable{Name: "x"}, Right: num(2)}},
		}}, "map |x| (($x * 2))"},
	}
	for _, tt := range tests {
		if got := tt.node.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestHasRecoveryErrors(t *testing.T) {
	clean := &Script{Statements: []Statement{
		&ExprStatement{Chain: &PipeChain{Head: num(1)}},
	}}
	if clean.HasRecoveryErrors() {
		t.Error("clean script reported recovery errors")
	}

	broken := &Script{Statements: []Statement{
		&ExprStatement{Chain: &PipeChain{Head: num(1)}},
		&RecoveryError{Message: "unexpected token", Text: "[1,2"},
	}}
	if !broken.HasRecoveryErrors() {
		t.Error("script with RecoveryError not detected")
	}
}

func TestQualifiedName(t *testing.T) {
	if got := (&HostCall{Name: "log"}).QualifiedName(); got != "log" {
		t.Errorf("bare name = %q", got)
	}
	if got := (&HostCall{Namespace: "db", Name: "query"}).QualifiedName(); got != "db::query" {
		t.Errorf("qualified name = %q", got)
	}
}
