package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  Type
	}{
		{"true", TRUE},
		{"false", FALSE},
		{"each", EACH},
		{"map", MAP},
		{"fold", FOLD},
		{"filter", FILTER},
		{"break", BREAK},
		{"return", RETURN},
		{"pass", PASS},
		{"assert", ASSERT},
		{"error", ERROR},
		{"upper", IDENT},
		{"Each", IDENT}, // keywords are case-sensitive
	}
	for _, tt := range tests {
		if got := LookupIdent(tt.ident); got != tt.want {
			t.Errorf("LookupIdent(%q) = %s, want %s", tt.ident, got, tt.want)
		}
	}
}

func TestTypePredicates(t *testing.T) {
	if !NUMBER.IsLiteral() || !STRING.IsLiteral() {
		t.Error("NUMBER and STRING are literals")
	}
	if ARROW.IsLiteral() {
		t.Error("ARROW is not a literal")
	}
	if !EACH.IsKeyword() || !PASS.IsKeyword() {
		t.Error("EACH and PASS are keywords")
	}
	if IDENT.IsKeyword() {
		t.Error("IDENT is not a keyword")
	}
	if !IsKeyword("fold") || IsKeyword("folds") {
		t.Error("IsKeyword string check failed")
	}
}

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{EOF, "EOF"},
		{ARROW, "ARROW"},
		{CAPTURE_ARROW, "CAPTURE_ARROW"},
		{DOLLAR_IDENT, "DOLLAR_IDENT"},
		{SLASH_LT, "SLASH_LT"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestPositionAndSpan(t *testing.T) {
	pos := Position{Offset: 12, Line: 2, Column: 5}
	if pos.String() != "2:5" {
		t.Errorf("Position.String() = %q", pos.String())
	}
	span := Span{Start: pos, End: Position{Offset: 15, Line: 2, Column: 8}}
	if span.String() != "2:5" {
		t.Errorf("Span.String() = %q", span.String())
	}
}

func TestNewToken(t *testing.T) {
	start := Position{Offset: 0, Line: 1, Column: 1}
	end := Position{Offset: 5, Line: 1, Column: 6}
	tok := New(STRING, "hello", start, end)
	if tok.Pos() != start || tok.Span.End != end {
		t.Errorf("token span = %+v", tok.Span)
	}
}
