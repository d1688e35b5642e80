package parser

import (
	"testing"

	"github.com/rcrsr/rill/internal/ast"
)

// parseOne parses a source expected to contain a single clean statement.
func parseOne(t *testing.T, source string) ast.Statement {
	t.Helper()
	p := New(source)
	script := p.ParseScript()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse %q: unexpected errors: %v", source, p.Errors()[0])
	}
	if len(script.Statements) != 1 {
		t.Fatalf("parse %q: expected 1 statement, got %d", source, len(script.Statements))
	}
	return script.Statements[0]
}

// chainOf extracts the pipe chain of a plain expression statement.
func chainOf(t *testing.T, stmt ast.Statement) *ast.PipeChain {
	t.Helper()
	expr, ok := stmt.(*ast.ExprStatement)
	if !ok {
		t.Fatalf("expected ExprStatement, got %T", stmt)
	}
	return expr.Chain
}

func TestParseDumps(t *testing.T) {
	// The String() dump pins down structure: one entry per grammar form.
	tests := []struct {
		input string
		want  string
	}{
		{`5`, `5`},
		{`"hi"`, `"hi"`},
		{`true`, `true`},
		{`1 + 2 * 3`, `(1 + (2 * 3))`},
		{`(1 + 2) * 3`, `(((1 + 2)) * 3)`},
		{`-1 + 2`, `((-1) + 2)`},
		{`!true`, `(!true)`},
		{`1 < 2 && 3 >= 4`, `((1 < 2) && (3 >= 4))`},
		{`$x`, `$x`},
		{`$`, `$`},
		{`$x.field`, `$x.field`},
		{`$x.field[0]`, `$x.field[0]`},
		{`$x.("key")`, `$x.("key")`},
		{`$.^limit`, `$.^limit`},
		{`$user.?email`, `$user.?email`},
		{`$x ?? 5`, `$x ?? 5`},
		{`fetch()`, `fetch()`},
		{`db::query("q", 1)`, `db::query("q", 1)`},
		{`$f(1, 2)`, `$f(1, 2)`},
		{`[1, 2, 3]`, `[1, 2, 3]`},
		{`[]`, `[]`},
		{`[:]`, `[:]`},
		{`[a: 1, b: 2]`, `[a: 1, b: 2]`},
		{`|x| ($x * 2)`, `|x| (($x * 2))`},
		{`|x: number = 1, y: string| { $x }`, `|x: number = 1, y: string| { $x }`},
		{`"hello" -> .upper`, `"hello" -> $.upper`},
		{`"x" => $v`, `"x" => $v`},
		{`"x" => $v:string`, `"x" => $v:string`},
		{`1 -> $n -> .round`, `1 -> $n -> $.round`},
		{`[1, 2] -> map |x| ($x * 2)`, `[1, 2] -> map |x| (($x * 2))`},
		{`[1, 2] -> each { $ }`, `[1, 2] -> each { $ }`},
		{`[1, 2] -> fold(0) { $@ + $ }`, `[1, 2] -> fold(0) { ($@ + $) }`},
		{`[1, 2] -> filter |x| ($x > 1)`, `[1, 2] -> filter |x| (($x > 1))`},
		{`5 -> ($ > 3) ? "big" ! "small"`, `5 -> (($ > 3)) ? "big" ! "small"`},
		{`$x ? "a" ! $y ? "b" ! "c"`, `$x ? "a" ! $y ? "b" ! "c"`},
		{`0 -> ($ < 5) @ { $ + 1 }`, `0 -> ((($ < 5))) @ { ($ + 1) }`},
		{`@ { $ + 1 } ? ($ < 5)`, `@ { ($ + 1) } ? (($ < 5))`},
		{`$v -> *<a, b>`, `$v -> *<a, b>`},
		{`$v -> *<x: number, _, y <- key>`, `$v -> *<x: number, _, y <- key>`},
		{`$v -> /<1:3>`, `$v -> /<1:3>`},
		{`$v -> /<::-1>`, `$v -> /<::(-1)>`},
		{`$v -> *$args`, `$v -> *$args`},
		{`$x:number`, `$x:number`},
		{`$x:?string`, `$x:?string`},
		{`error "boom"`, `error "boom"`},
		{`assert $x == 1`, `assert ($x == 1)`},
		{`1 -> pass`, `1 -> pass`},
		{`$v -> $( 1 )`, `$v -> $(1)`},
		{`^(limit: 5) [1] -> map $f`, `^(limit: 5) [1] -> map $f`},
	}

	for _, tt := range tests {
		stmt := parseOne(t, tt.input)
		if got := stmt.String(); got != tt.want {
			t.Errorf("parse %q:\n  got  %s\n  want %s", tt.input, got, tt.want)
		}
	}
}

func TestTwoParsesAreStructurallyEqual(t *testing.T) {
	sources := []string{
		`"hello" -> .upper => $v`,
		`[1, 2, 3] -> map |x| ($x * 2)`,
		`^(limit: 3, timeout: 100) $xs -> filter |x| ($x > 0)`,
		`0 -> ($ < 5) @ { $ + 1 }`,
	}
	for _, source := range sources {
		a := parseOne(t, source)
		b := parseOne(t, source)
		if !ast.Equal(a, b) {
			t.Errorf("two parses of %q are not structurally equal", source)
		}
	}
}

func TestChainShape(t *testing.T) {
	chain := chainOf(t, parseOne(t, `"x" -> .upper -> .lower => $v`))

	if _, ok := chain.Head.(*ast.StringLiteral); !ok {
		t.Errorf("head = %T, want StringLiteral", chain.Head)
	}
	if len(chain.Pipes) != 2 {
		t.Fatalf("pipes = %d, want 2", len(chain.Pipes))
	}
	capture, ok := chain.Terminator.(*ast.Capture)
	if !ok {
		t.Fatalf("terminator = %T, want Capture", chain.Terminator)
	}
	if capture.Name != "v" {
		t.Errorf("capture name = %q", capture.Name)
	}
}

func TestMidChainCapture(t *testing.T) {
	chain := chainOf(t, parseOne(t, `"x" => $v -> .upper`))

	if len(chain.Pipes) != 2 {
		t.Fatalf("pipes = %d, want 2", len(chain.Pipes))
	}
	if _, ok := chain.Pipes[0].(*ast.Capture); !ok {
		t.Errorf("pipes[0] = %T, want Capture", chain.Pipes[0])
	}
	if chain.Terminator != nil {
		t.Errorf("terminator = %v, want nil", chain.Terminator)
	}
}

func TestInlineVariableTarget(t *testing.T) {
	chain := chainOf(t, parseOne(t, `"x" -> $v -> .upper`))
	v, ok := chain.Pipes[0].(*ast.Variable)
	if !ok {
		t.Fatalf("pipes[0] = %T, want Variable", chain.Pipes[0])
	}
	if v.Name != "v" || v.IsPipeVar {
		t.Errorf("variable = %+v", v)
	}
}

func TestBreakTerminator(t *testing.T) {
	chain := chainOf(t, parseOne(t, `$x -> break`))
	if _, ok := chain.Terminator.(*ast.BreakStmt); !ok {
		t.Fatalf("terminator = %T, want BreakStmt", chain.Terminator)
	}
}

func TestTerminatorMustBeLast(t *testing.T) {
	p := New(`$x -> break -> .upper`)
	p.ParseScript()
	if !hasErrorCode(p.Errors(), ErrTerminatorNotLast) {
		t.Fatalf("expected %s, got %v", ErrTerminatorNotLast, p.Errors())
	}
}

func TestInterpolation(t *testing.T) {
	stmt := parseOne(t, `"val:{$v}"`)
	lit, ok := chainOf(t, stmt).Head.(*ast.StringLiteral)
	if !ok {
		t.Fatalf("head = %T", chainOf(t, stmt).Head)
	}
	if len(lit.Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(lit.Parts))
	}
	interp, ok := lit.Parts[1].(*ast.Interpolation)
	if !ok {
		t.Fatalf("parts[1] = %T, want Interpolation", lit.Parts[1])
	}
	if _, ok := interp.Expr.(*ast.Variable); !ok {
		t.Errorf("interpolation expr = %T, want Variable", interp.Expr)
	}
}

func TestFrontmatter(t *testing.T) {
	p := New("---\nname: test\n---\n1\n")
	script := p.ParseScript()
	if len(p.Errors()) > 0 {
		t.Fatalf("errors: %v", p.Errors())
	}
	if !script.HasFrontmatter || script.Frontmatter != "name: test\n" {
		t.Errorf("frontmatter = %q (has=%v)", script.Frontmatter, script.HasFrontmatter)
	}
	if len(script.Statements) != 1 {
		t.Errorf("statements = %d", len(script.Statements))
	}
}

func TestAnnotations(t *testing.T) {
	stmt := parseOne(t, `^(limit: 5, timeout: 100) $x`)
	annotated, ok := stmt.(*ast.AnnotatedStatement)
	if !ok {
		t.Fatalf("statement = %T, want AnnotatedStatement", stmt)
	}
	if len(annotated.Annotations) != 2 {
		t.Fatalf("annotations = %d, want 2", len(annotated.Annotations))
	}
	if annotated.Annotations[0].Key != "limit" || annotated.Annotations[1].Key != "timeout" {
		t.Errorf("keys = %q, %q", annotated.Annotations[0].Key, annotated.Annotations[1].Key)
	}
}

func TestAnnotationSpread(t *testing.T) {
	stmt := parseOne(t, `^(*$opts, limit: 2) $x`)
	annotated := stmt.(*ast.AnnotatedStatement)
	if !annotated.Annotations[0].Spread {
		t.Error("first annotation should be a spread")
	}
}

func TestDictTupleDisambiguation(t *testing.T) {
	if _, ok := chainOf(t, parseOne(t, `[]`)).Head.(*ast.TupleLiteral); !ok {
		t.Error("[] should parse as an empty tuple/list literal")
	}
	if _, ok := chainOf(t, parseOne(t, `[:]`)).Head.(*ast.DictLiteral); !ok {
		t.Error("[:] should parse as an empty dict literal")
	}
	if _, ok := chainOf(t, parseOne(t, `[a: 1]`)).Head.(*ast.DictLiteral); !ok {
		t.Error("[a: 1] should parse as a dict literal")
	}
	if _, ok := chainOf(t, parseOne(t, `[a(), 1]`)).Head.(*ast.TupleLiteral); !ok {
		t.Error("[a(), 1] should parse as a positional literal")
	}
}

func TestDispatchDefault(t *testing.T) {
	chain := chainOf(t, parseOne(t, `"b" -> [a: "one", b: "two"] ?? "other"`))
	dict, ok := chain.Pipes[0].(*ast.DictLiteral)
	if !ok {
		t.Fatalf("pipes[0] = %T, want DictLiteral", chain.Pipes[0])
	}
	if dict.Default == nil {
		t.Error("dict dispatch default not attached")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{`[1, 2, 3`, ErrMissingRBracket},
		{`(1 + 2`, ErrMissingRParen},
		{`{ }`, ErrEmptyBlock},
		{`$x => 5`, ErrExpectedCaptureVar},
		{`1 -> "str"`, ErrInvalidPipeTarget},
		{`-`, ErrBareNegation},
		{`1 ~ 2`, ErrLexical},
	}

	for _, tt := range tests {
		p := New(tt.input)
		p.ParseScript()
		if !hasErrorCode(p.Errors(), tt.code) {
			t.Errorf("parse %q: expected code %s, got %v", tt.input, tt.code, p.Errors())
		}
	}
}

func TestDeprecatedCaptureHint(t *testing.T) {
	p := New(`"x" :> $v`)
	p.ParseScript()
	if !hasErrorCode(p.Errors(), ErrDeprecatedCapture) {
		t.Fatalf("expected %s, got %v", ErrDeprecatedCapture, p.Errors())
	}
}

func TestErrorSpans(t *testing.T) {
	p := New(`[1,2,3`)
	p.ParseScript()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatal("expected a parse error")
	}
	if errs[0].Span.Start.Offset != 6 {
		t.Errorf("error offset = %d, want 6 (end of input)", errs[0].Span.Start.Offset)
	}
}

func TestRecoveryMode(t *testing.T) {
	p := New("[1,2,3\n\"ok\" -> .upper\n", WithRecovery(true))
	script := p.ParseScript()

	if len(p.Errors()) == 0 {
		t.Fatal("expected recorded errors")
	}
	if len(script.Statements) != 2 {
		t.Fatalf("statements = %d, want 2", len(script.Statements))
	}
	recovery, ok := script.Statements[0].(*ast.RecoveryError)
	if !ok {
		t.Fatalf("statements[0] = %T, want RecoveryError", script.Statements[0])
	}
	if recovery.Text != "[1,2,3" {
		t.Errorf("recovery text = %q", recovery.Text)
	}
	if !script.HasRecoveryErrors() {
		t.Error("script should report recovery errors")
	}
	// The second statement parsed cleanly.
	if _, ok := script.Statements[1].(*ast.ExprStatement); !ok {
		t.Errorf("statements[1] = %T, want ExprStatement", script.Statements[1])
	}
}

func TestRecoveryNeverReturnsNil(t *testing.T) {
	sources := []string{
		`)`,
		`-> .upper`,
		"=> $\n",
		`^(]`,
	}
	for _, source := range sources {
		p := New(source, WithRecovery(true))
		script := p.ParseScript()
		if script == nil {
			t.Fatalf("recovery parse of %q returned nil script", source)
		}
	}
}

func TestNonEmptySpans(t *testing.T) {
	stmt := parseOne(t, `"hello" -> .upper => $v`)
	span := stmt.Span()
	if span.End.Offset <= span.Start.Offset {
		t.Errorf("statement span is empty: %+v", span)
	}
}

func hasErrorCode(errs []*Error, code string) bool {
	for _, err := range errs {
		if err.Code == code {
			return true
		}
	}
	return false
}
