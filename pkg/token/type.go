package token

// Type classifies a token produced by the lexer.
type Type int

// Token type constants organized by category.
const (
	// Special tokens
	ILLEGAL Type = iota // unexpected character
	EOF                 // end of file
	NEWLINE             // significant line break
	COMMENT             // # comment (only with comment preservation enabled)

	// Identifiers and literals
	IDENT       // host call names: upper, json::encode
	NUMBER      // 123, 1.5, 2e10
	STRING      // "text", "with {interpolation}", """multiline"""
	FRONTMATTER // raw ---...--- block at the start of a script

	literalEnd

	// Keywords
	TRUE   // true
	FALSE  // false
	EACH   // each
	MAP    // map
	FOLD   // fold
	FILTER // filter
	BREAK  // break
	RETURN // return
	PASS   // pass
	ASSERT // assert
	ERROR  // error

	keywordEnd

	// Sigils
	DOLLAR         // $ (pipe value)
	DOLLAR_IDENT   // $name (variable reference / closure call)
	DOLLAR_AT      // $@ (accumulator inside each/fold bodies)
	QUESTION_IDENT // ?name (existence check, follows a dot)

	// Delimiters
	LPAREN     // (
	RPAREN     // )
	LBRACKET   // [
	RBRACKET   // ]
	LBRACE     // {
	RBRACE     // }
	COMMA      // ,
	DOT        // .
	COLON      // :
	COLONCOLON // :: (namespace separator)
	PIPE       // | (closure parameter delimiter)

	// Operators
	ARROW         // ->
	CAPTURE_ARROW // =>
	COALESCE      // ??
	SLASH_LT      // /< (slice)
	STAR_LT       // *< (destructure)
	AT            // @ (loop)
	CARET         // ^ (annotation)
	QUESTION      // ? (conditional then)
	BANG          // ! (unary not, conditional else)
	PLUS          // +
	MINUS         // -
	STAR          // * (multiply, spread)
	SLASH         // /
	PERCENT       // %
	ASSIGN        // = (closure parameter defaults)
	EQ            // ==
	NOT_EQ        // !=
	LESS          // <
	GREATER       // >
	LESS_EQ       // <=
	GREATER_EQ    // >=
	AND           // &&
	OR            // ||
)

// keywords maps reserved words to their token types. Rill is case-sensitive.
var keywords = map[string]Type{
	"true":   TRUE,
	"false":  FALSE,
	"each":   EACH,
	"map":    MAP,
	"fold":   FOLD,
	"filter": FILTER,
	"break":  BREAK,
	"return": RETURN,
	"pass":   PASS,
	"assert": ASSERT,
	"error":  ERROR,
}

// LookupIdent returns the keyword type for reserved words, IDENT otherwise.
func LookupIdent(ident string) Type {
	if typ, ok := keywords[ident]; ok {
		return typ
	}
	return IDENT
}

// IsKeyword reports whether the identifier is a reserved word.
func IsKeyword(ident string) bool {
	_, ok := keywords[ident]
	return ok
}

// IsLiteral reports whether the type is a literal value.
func (t Type) IsLiteral() bool {
	return t > EOF && t < literalEnd
}

// IsKeyword reports whether the type is a keyword.
func (t Type) IsKeyword() bool {
	return t > literalEnd && t < keywordEnd
}

// String returns the name of a token type.
func (t Type) String() string {
	if int(t) < len(typeStrings) && typeStrings[t] != "" {
		return typeStrings[t]
	}
	return "UNKNOWN"
}

var typeStrings = [...]string{
	ILLEGAL:     "ILLEGAL",
	EOF:         "EOF",
	NEWLINE:     "NEWLINE",
	COMMENT:     "COMMENT",
	IDENT:       "IDENT",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	FRONTMATTER: "FRONTMATTER",

	TRUE:   "TRUE",
	FALSE:  "FALSE",
	EACH:   "EACH",
	MAP:    "MAP",
	FOLD:   "FOLD",
	FILTER: "FILTER",
	BREAK:  "BREAK",
	RETURN: "RETURN",
	PASS:   "PASS",
	ASSERT: "ASSERT",
	ERROR:  "ERROR",

	DOLLAR:         "DOLLAR",
	DOLLAR_IDENT:   "DOLLAR_IDENT",
	DOLLAR_AT:      "DOLLAR_AT",
	QUESTION_IDENT: "QUESTION_IDENT",

	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	COMMA:      "COMMA",
	DOT:        "DOT",
	COLON:      "COLON",
	COLONCOLON: "COLONCOLON",
	PIPE:       "PIPE",

	ARROW:         "ARROW",
	CAPTURE_ARROW: "CAPTURE_ARROW",
	COALESCE:      "COALESCE",
	SLASH_LT:      "SLASH_LT",
	STAR_LT:       "STAR_LT",
	AT:            "AT",
	CARET:         "CARET",
	QUESTION:      "QUESTION",
	BANG:          "BANG",
	PLUS:          "PLUS",
	MINUS:         "MINUS",
	STAR:          "STAR",
	SLASH:         "SLASH",
	PERCENT:       "PERCENT",
	ASSIGN:        "ASSIGN",
	EQ:            "EQ",
	NOT_EQ:        "NOT_EQ",
	LESS:          "LESS",
	GREATER:       "GREATER",
	LESS_EQ:       "LESS_EQ",
	GREATER_EQ:    "GREATER_EQ",
	AND:           "AND",
	OR:            "OR",
}
