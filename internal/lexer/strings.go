package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/rcrsr/rill/pkg/token"
)

// readStringToken reads a string literal starting at the current `"`.
// Strings decode the escapes \n \t \\ \" \{ and record interpolation
// segments for each {expr}; the expressions themselves are re-parsed by the
// parser. Triple-quoted strings ("""...""") may span multiple lines.
func (l *Lexer) readStringToken(pos token.Position) token.Token {
	multiline := false
	if l.peekChar() == '"' && l.peekCharAfter() == '"' {
		multiline = true
		l.readChar()
		l.readChar()
	}
	l.readChar() // skip opening quote

	var segments []token.Segment
	var literal strings.Builder
	var text strings.Builder
	textPos := l.currentPos()

	flushText := func() {
		if text.Len() > 0 {
			segments = append(segments, token.Segment{
				Kind: token.SegmentText,
				Text: text.String(),
				Pos:  textPos,
			})
			text.Reset()
		}
	}

	for l.ch != 0 {
		switch {
		case l.ch == '"' && !multiline:
			flushText()
			l.readChar()
			tok := l.newToken(token.STRING, literal.String(), pos)
			tok.Segments = segments
			return tok

		case l.ch == '"' && multiline && l.peekChar() == '"' && l.peekCharAfter() == '"':
			flushText()
			l.readChar()
			l.readChar()
			l.readChar()
			tok := l.newToken(token.STRING, literal.String(), pos)
			tok.Segments = segments
			tok.Multiline = true
			return tok

		case l.ch == '\n':
			if !multiline {
				l.addError("unterminated string literal", pos)
				flushText()
				tok := l.newToken(token.STRING, literal.String(), pos)
				tok.Segments = segments
				return tok
			}
			text.WriteRune('\n')
			literal.WriteRune('\n')
			l.line++
			l.column = 0
			l.readChar()

		case l.ch == '\\':
			decoded, ok := l.readEscape()
			if ok {
				text.WriteRune(decoded)
				literal.WriteRune(decoded)
			}

		case l.ch == '{':
			flushText()
			seg, ok := l.readInterpolation()
			if !ok {
				tok := l.newToken(token.STRING, literal.String(), pos)
				tok.Segments = segments
				return tok
			}
			segments = append(segments, seg)
			literal.WriteString("{" + seg.Text + "}")
			textPos = l.currentPos()

		default:
			text.WriteRune(l.ch)
			literal.WriteRune(l.ch)
			l.readChar()
		}
	}

	l.addError("unterminated string literal", pos)
	flushText()
	tok := l.newToken(token.STRING, literal.String(), pos)
	tok.Segments = segments
	tok.Multiline = multiline
	return tok
}

// readEscape decodes a backslash escape. The cursor is on the backslash.
func (l *Lexer) readEscape() (rune, bool) {
	escPos := l.currentPos()
	l.readChar() // skip backslash
	var decoded rune
	switch l.ch {
	case 'n':
		decoded = '\n'
	case 't':
		decoded = '\t'
	case '\\':
		decoded = '\\'
	case '"':
		decoded = '"'
	case '{':
		decoded = '{'
	case 0:
		l.addError("invalid escape sequence at end of input", escPos)
		return 0, false
	default:
		l.addError("invalid escape sequence: \\"+string(l.ch), escPos)
		l.readChar()
		return 0, false
	}
	l.readChar()
	return decoded, true
}

// readInterpolation captures the raw source of a {expr} interpolation. The
// cursor is on the opening brace. Nested braces and nested string literals
// are tracked so the closing brace is matched correctly.
func (l *Lexer) readInterpolation() (token.Segment, bool) {
	bracePos := l.currentPos()
	l.readChar() // skip {
	exprPos := l.currentPos()
	start := l.position
	depth := 1

	for l.ch != 0 {
		switch l.ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				raw := l.input[start:l.position]
				l.readChar()
				if strings.TrimSpace(raw) == "" {
					l.addError("empty interpolation expression", bracePos)
					return token.Segment{}, false
				}
				return token.Segment{Kind: token.SegmentExpr, Text: raw, Pos: exprPos}, true
			}
		case '"':
			l.skipNestedString()
			continue
		case '\n':
			l.line++
			l.column = 0
		}
		l.readChar()
	}

	l.addError("unterminated interpolation expression", bracePos)
	return token.Segment{}, false
}

// skipNestedString advances past a string literal inside an interpolation.
func (l *Lexer) skipNestedString() {
	l.readChar() // skip opening quote
	for l.ch != 0 && l.ch != '"' && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar()
	}
}

// peekCharAfter returns the rune two positions ahead without advancing.
func (l *Lexer) peekCharAfter() rune {
	pos := l.readPosition
	if pos >= len(l.input) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[pos:])
	pos += size
	if pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos:])
	return r
}
