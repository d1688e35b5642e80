package lexer

import (
	"testing"

	"github.com/rcrsr/rill/pkg/token"
)

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestBasicTokens(t *testing.T) {
	input := `"x" -> .upper => $v`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.STRING, "x"},
		{token.ARROW, "->"},
		{token.DOT, "."},
		{token.IDENT, "upper"},
		{token.CAPTURE_ARROW, "=>"},
		{token.DOLLAR_IDENT, "v"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%s, got=%s (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `-> => ?? /< *< @ ^ ? ! + - * / % == != < > <= >= && || :: : . , |`

	expected := []token.Type{
		token.ARROW, token.CAPTURE_ARROW, token.COALESCE, token.SLASH_LT,
		token.STAR_LT, token.AT, token.CARET, token.QUESTION, token.BANG,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LESS, token.GREATER, token.LESS_EQ,
		token.GREATER_EQ, token.AND, token.OR, token.COLONCOLON, token.COLON,
		token.DOT, token.COMMA, token.PIPE, token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected=%s, got=%s (%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `true false each map fold filter break return pass assert error ident`

	expected := []token.Type{
		token.TRUE, token.FALSE, token.EACH, token.MAP, token.FOLD,
		token.FILTER, token.BREAK, token.RETURN, token.PASS, token.ASSERT,
		token.ERROR, token.IDENT, token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected=%s, got=%s", i, want, tok.Type)
		}
	}
}

func TestDollarSigils(t *testing.T) {
	input := `$ $name $@ $x2`

	tests := []struct {
		typ token.Type
		lit string
	}{
		{token.DOLLAR, "$"},
		{token.DOLLAR_IDENT, "name"},
		{token.DOLLAR_AT, "$@"},
		{token.DOLLAR_IDENT, "x2"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.lit {
			t.Fatalf("tests[%d] - expected=(%s,%q), got=(%s,%q)",
				i, tt.typ, tt.lit, tok.Type, tok.Literal)
		}
	}
}

func TestExistenceCheckSigil(t *testing.T) {
	toks := collect(t, `$user.?email`)

	expected := []token.Type{
		token.DOLLAR_IDENT, token.DOT, token.QUESTION_IDENT, token.EOF,
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Fatalf("tokens[%d] - expected=%s, got=%s", i, want, toks[i].Type)
		}
	}
	if toks[2].Literal != "email" {
		t.Errorf("existence ident literal = %q, want %q", toks[2].Literal, "email")
	}
}

func TestNewlinesAreSignificant(t *testing.T) {
	toks := collect(t, "1\n2\n")

	expected := []token.Type{
		token.NUMBER, token.NEWLINE, token.NUMBER, token.NEWLINE, token.EOF,
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Fatalf("tokens[%d] - expected=%s, got=%s", i, want, toks[i].Type)
		}
	}
}

func TestComments(t *testing.T) {
	toks := collect(t, "1 # a comment\n2")
	expected := []token.Type{token.NUMBER, token.NEWLINE, token.NUMBER, token.EOF}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Fatalf("tokens[%d] - expected=%s, got=%s", i, want, toks[i].Type)
		}
	}
}

func TestPreserveComments(t *testing.T) {
	l := New("# hello\n1", WithPreserveComments(true))
	tok := l.NextToken()
	if tok.Type != token.COMMENT {
		t.Fatalf("expected COMMENT, got %s", tok.Type)
	}
	if tok.Literal != "# hello" {
		t.Errorf("comment literal = %q", tok.Literal)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		lit   string
	}{
		{"0", "0"},
		{"123", "123"},
		{"3.14", "3.14"},
		{"1.5e10", "1.5e10"},
		{"2E-3", "2E-3"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.NUMBER || tok.Literal != tt.lit {
			t.Errorf("input %q: got (%s,%q)", tt.input, tok.Type, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\t\\\"\{c"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	want := "a\nb\t\\\"{c"
	if tok.Literal != want {
		t.Errorf("literal = %q, want %q", tok.Literal, want)
	}
	if len(l.Errors()) != 0 {
		t.Errorf("unexpected lexer errors: %v", l.Errors())
	}
}

func TestStringInterpolation(t *testing.T) {
	l := New(`"val:{$v}!"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if len(tok.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %#v", len(tok.Segments), tok.Segments)
	}
	if tok.Segments[0].Kind != token.SegmentText || tok.Segments[0].Text != "val:" {
		t.Errorf("segment 0 = %#v", tok.Segments[0])
	}
	if tok.Segments[1].Kind != token.SegmentExpr || tok.Segments[1].Text != "$v" {
		t.Errorf("segment 1 = %#v", tok.Segments[1])
	}
	if tok.Segments[2].Kind != token.SegmentText || tok.Segments[2].Text != "!" {
		t.Errorf("segment 2 = %#v", tok.Segments[2])
	}
}

func TestNestedInterpolation(t *testing.T) {
	l := New(`"x{$d.get("k")}y"`)
	tok := l.NextToken()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", l.Errors())
	}
	if len(tok.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(tok.Segments))
	}
	if tok.Segments[1].Text != `$d.get("k")` {
		t.Errorf("expr segment = %q", tok.Segments[1].Text)
	}
}

func TestMultilineString(t *testing.T) {
	l := New("\"\"\"line1\nline2\"\"\"")
	tok := l.NextToken()
	if tok.Type != token.STRING || !tok.Multiline {
		t.Fatalf("expected multiline STRING, got %s multiline=%v", tok.Type, tok.Multiline)
	}
	if tok.Literal != "line1\nline2" {
		t.Errorf("literal = %q", tok.Literal)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	l.NextToken()
	errs := l.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Message != "unterminated string literal" {
		t.Errorf("message = %q", errs[0].Message)
	}
}

func TestInvalidEscape(t *testing.T) {
	l := New(`"a\qb"`)
	l.NextToken()
	if len(l.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(l.Errors()), l.Errors())
	}
}

func TestHeredocMigrationError(t *testing.T) {
	l := New(`<<EOF`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected a heredoc migration error")
	}
}

func TestDeprecatedCaptureTokenizes(t *testing.T) {
	// `:>` must come out as COLON GREATER so the parser can hint at `=>`.
	toks := collect(t, `:>`)
	if toks[0].Type != token.COLON || toks[1].Type != token.GREATER {
		t.Fatalf("expected COLON GREATER, got %s %s", toks[0].Type, toks[1].Type)
	}
}

func TestFrontmatter(t *testing.T) {
	src := "---\nname: demo\n---\n1"
	l := New(src)
	tok := l.NextToken()
	if tok.Type != token.FRONTMATTER {
		t.Fatalf("expected FRONTMATTER, got %s", tok.Type)
	}
	if tok.Literal != "name: demo\n" {
		t.Errorf("frontmatter body = %q", tok.Literal)
	}
}

func TestPositions(t *testing.T) {
	l := New("ab\ncd")
	tok := l.NextToken()
	if tok.Span.Start.Line != 1 || tok.Span.Start.Column != 1 || tok.Span.Start.Offset != 0 {
		t.Errorf("first token start = %+v", tok.Span.Start)
	}
	l.NextToken() // newline
	tok = l.NextToken()
	if tok.Span.Start.Line != 2 || tok.Span.Start.Column != 1 || tok.Span.Start.Offset != 3 {
		t.Errorf("second line token start = %+v", tok.Span.Start)
	}
}

func TestUnicodeColumns(t *testing.T) {
	l := New(`"Δ" x`)
	l.NextToken()
	tok := l.NextToken()
	// "Δ" is 4 bytes of source but 3 runes; x sits at column 5.
	if tok.Span.Start.Column != 5 {
		t.Errorf("x column = %d, want 5", tok.Span.Start.Column)
	}
}

func TestPeek(t *testing.T) {
	l := New("1 -> 2")
	if l.Peek(0).Type != token.NUMBER {
		t.Errorf("Peek(0) = %s", l.Peek(0).Type)
	}
	if l.Peek(1).Type != token.ARROW {
		t.Errorf("Peek(1) = %s", l.Peek(1).Type)
	}
	if l.Peek(2).Type != token.NUMBER {
		t.Errorf("Peek(2) = %s", l.Peek(2).Type)
	}
	// NextToken drains the buffer in order.
	if tok := l.NextToken(); tok.Type != token.NUMBER {
		t.Errorf("NextToken = %s", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != token.ARROW {
		t.Errorf("NextToken = %s", tok.Type)
	}
}

func TestStrayCharacter(t *testing.T) {
	l := New("~")
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if len(l.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d", len(l.Errors()))
	}
}
