// Package parser converts Rill tokens into the AST.
//
// Parsing is single pass, recursive descent, with bounded lookahead (at most
// three tokens) for arrow / capture-arrow / method-dot disambiguation. The
// `$` sigil discipline makes the language parseable without a symbol table:
// `$name` is a variable or closure call, bare `name` / `ns::name` is a host
// call, and `.name` is a method call on the current pipe value.
//
// The parser accumulates errors rather than stopping at the first problem.
// In recovery mode it never fails: unparseable statements become
// ast.RecoveryError nodes and parsing continues at the next statement
// boundary.
package parser

import (
	"fmt"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/lexer"
	"github.com/rcrsr/rill/pkg/token"
)

// Parser parses a single Rill source text.
type Parser struct {
	l        *lexer.Lexer
	source   string
	tokens   []token.Token
	pos      int
	prevEnd  token.Position
	errors   []*Error
	recovery bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithRecovery switches the parser into recovery mode: it never fails, and
// unparseable statements become RecoveryError nodes.
func WithRecovery(enabled bool) Option {
	return func(p *Parser) {
		p.recovery = enabled
	}
}

// New creates a parser over the given source.
func New(source string, opts ...Option) *Parser {
	p := &Parser{
		l:      lexer.New(source),
		source: source,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Errors returns the accumulated parse errors, including lexical errors.
func (p *Parser) Errors() []*Error {
	return p.errors
}

// cur returns the current token.
func (p *Parser) cur() token.Token {
	return p.peek(0)
}

// peek returns the token n positions ahead of the current one. peek(0) is the
// current token.
func (p *Parser) peek(n int) token.Token {
	for len(p.tokens) <= p.pos+n {
		p.tokens = append(p.tokens, p.l.NextToken())
	}
	return p.tokens[p.pos+n]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() token.Token {
	tok := p.cur()
	if tok.Type != token.EOF {
		p.prevEnd = tok.Span.End
		p.pos++
	}
	return tok
}

func (p *Parser) curIs(t token.Type) bool {
	return p.cur().Type == t
}

func (p *Parser) peekIs(n int, t token.Type) bool {
	return p.peek(n).Type == t
}

// spanFrom builds a span from a start position to the end of the last
// consumed token.
func (p *Parser) spanFrom(start token.Position) token.Span {
	end := p.prevEnd
	if end.Offset < start.Offset {
		end = start
	}
	return token.Span{Start: start, End: end}
}

// base builds an ast.Base from a start position.
func (p *Parser) base(start token.Position) ast.Base {
	return ast.Base{Loc: p.spanFrom(start)}
}

// addError records a parse error.
func (p *Parser) addError(span token.Span, code, format string, args ...any) {
	p.errors = append(p.errors, NewError(span, fmt.Sprintf(format, args...), code))
}

// addErrorAt records a parse error at the given token.
func (p *Parser) addErrorAt(tok token.Token, code, format string, args ...any) {
	p.addError(tok.Span, code, format, args...)
}

// expect consumes a token of the given type or records an error.
func (p *Parser) expect(t token.Type, code, what string) (token.Token, bool) {
	if p.curIs(t) {
		return p.advance(), true
	}
	p.addErrorAt(p.cur(), code, "expected %s, got %s", what, describe(p.cur()))
	return p.cur(), false
}

// skipNewlines consumes any run of NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.advance()
	}
}

// skipNewlinesBefore consumes a run of NEWLINE tokens only when the first
// token after the run is one of the given types. Used inside bracketed
// constructs so a trailing newline before the closer is tolerated without
// swallowing a statement boundary on malformed input.
func (p *Parser) skipNewlinesBefore(types ...token.Type) {
	if !p.curIs(token.NEWLINE) {
		return
	}
	n := 0
	for p.peekIs(n, token.NEWLINE) {
		n++
	}
	next := p.peek(n).Type
	for _, t := range types {
		if next == t {
			p.skipNewlines()
			return
		}
	}
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.NEWLINE:
		return "end of line"
	case token.STRING:
		return "string literal"
	case token.NUMBER:
		return fmt.Sprintf("number %s", tok.Literal)
	case token.IDENT:
		return fmt.Sprintf("'%s'", tok.Literal)
	default:
		return fmt.Sprintf("'%s'", tok.Literal)
	}
}

// ParseScript parses a complete script. In strict mode the returned script
// may be partial when Errors() is non-empty; in recovery mode the script is
// always complete and failed statements appear as RecoveryError nodes.
func (p *Parser) ParseScript() *ast.Script {
	start := p.cur().Span.Start
	script := &ast.Script{}

	if p.curIs(token.FRONTMATTER) {
		fm := p.advance()
		script.Frontmatter = fm.Literal
		script.HasFrontmatter = true
	}

	p.skipNewlines()
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			script.Statements = append(script.Statements, stmt)
		}
		if !p.curIs(token.EOF) && !p.curIs(token.NEWLINE) {
			if stmt != nil {
				// The statement parsed but trailing tokens remain.
				p.addErrorAt(p.cur(), ErrUnexpectedToken,
					"unexpected %s after statement", describe(p.cur()))
				if rec := p.recoverStatement(p.cur().Span.Start, "unexpected trailing tokens"); rec != nil {
					script.Statements = append(script.Statements, rec)
				}
			}
		}
		p.skipNewlines()
	}

	// Fold lexical errors into the parse error list so callers see one set.
	for i := range p.l.Errors() {
		le := p.l.Errors()[i]
		span := token.Span{Start: le.Pos, End: le.Pos}
		p.errors = append(p.errors, NewError(span, le.Message, ErrLexical))
	}

	script.Loc = p.spanFrom(start)
	if script.Loc.End.Offset == script.Loc.Start.Offset {
		script.Loc.End = token.Position{
			Offset: len(p.source),
			Line:   script.Loc.Start.Line,
			Column: script.Loc.Start.Column,
		}
	}
	return script
}

// parseStatement parses one statement: an optional annotation prefix and a
// pipe chain.
func (p *Parser) parseStatement() ast.Statement {
	start := p.cur().Span.Start

	if p.curIs(token.CARET) {
		annotations := p.parseAnnotations()
		if annotations == nil {
			return p.recoverStatement(start, "invalid annotation")
		}
		p.skipNewlines()
		inner := p.parseStatement()
		if inner == nil {
			return nil
		}
		return &ast.AnnotatedStatement{
			Base:        p.base(start),
			Annotations: annotations,
			Statement:   inner,
		}
	}

	before := len(p.errors)
	chain := p.parsePipeChain()
	if chain == nil || len(p.errors) > before {
		if chain == nil {
			return p.recoverStatement(start, "invalid statement")
		}
		if p.recovery {
			return p.recoverStatement(start, p.errors[before].Message)
		}
		// Strict mode keeps the partial statement and synchronizes so later
		// statements still report their own errors.
		p.synchronize()
	}
	return &ast.ExprStatement{Base: p.base(start), Chain: chain}
}

// parseAnnotations parses `^(key: value, ...)` including `*expr` spreads.
func (p *Parser) parseAnnotations() []*ast.Annotation {
	p.advance() // consume ^
	if _, ok := p.expect(token.LPAREN, ErrUnexpectedToken, "'(' after '^'"); !ok {
		return nil
	}
	p.skipNewlines()

	var annotations []*ast.Annotation
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		start := p.cur().Span.Start

		if p.curIs(token.STAR) {
			p.advance()
			value := p.parseExpression()
			if value == nil {
				return nil
			}
			annotations = append(annotations, &ast.Annotation{
				Base:   p.base(start),
				Value:  value,
				Spread: true,
			})
		} else {
			key, ok := p.expect(token.IDENT, ErrExpectedIdent, "annotation key")
			if !ok {
				return nil
			}
			if _, ok := p.expect(token.COLON, ErrUnexpectedToken, "':' after annotation key"); !ok {
				return nil
			}
			value := p.parseExpression()
			if value == nil {
				return nil
			}
			annotations = append(annotations, &ast.Annotation{
				Base:  p.base(start),
				Key:   key.Literal,
				Value: value,
			})
		}

		p.skipNewlinesBefore(token.COMMA, token.RPAREN)
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}

	if _, ok := p.expect(token.RPAREN, ErrMissingRParen, "')' to close annotation"); !ok {
		return nil
	}
	return annotations
}
