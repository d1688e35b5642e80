package parser

import (
	"strconv"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/pkg/token"
)

// parsePrimary parses the atoms of the expression grammar.
func (p *Parser) parsePrimary() ast.Expression {
	start := p.cur().Span.Start

	switch p.cur().Type {
	case token.NUMBER:
		tok := p.advance()
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addErrorAt(tok, ErrInvalidSyntax, "invalid number literal %q", tok.Literal)
			return nil
		}
		return &ast.NumberLiteral{Base: p.base(start), Value: value, Literal: tok.Literal}

	case token.STRING:
		return p.parseStringLiteral()

	case token.TRUE:
		p.advance()
		return &ast.BoolLiteral{Base: p.base(start), Value: true}

	case token.FALSE:
		p.advance()
		return &ast.BoolLiteral{Base: p.base(start), Value: false}

	case token.DOLLAR_IDENT:
		if p.peekIs(1, token.LPAREN) {
			return p.parseClosureCall()
		}
		name := p.advance()
		return &ast.Variable{Base: p.base(start), Name: name.Literal}

	case token.DOLLAR:
		if p.peekIs(1, token.LPAREN) {
			p.advance()
			args := p.parseArgs()
			if args == nil {
				return nil
			}
			return &ast.PipeInvoke{Base: p.base(start), Args: args}
		}
		p.advance()
		return &ast.Variable{Base: p.base(start), IsPipeVar: true}

	case token.DOLLAR_AT:
		p.advance()
		return &ast.Variable{Base: p.base(start), IsAccumulator: true}

	case token.IDENT:
		return p.parseHostCall()

	case token.LPAREN:
		return p.parseGrouped()

	case token.LBRACE:
		return p.parseBlock()

	case token.PIPE:
		return p.parseClosure()
	case token.OR:
		return p.parseEmptyClosure()

	case token.LBRACKET:
		return p.parseBracketLiteral(false)

	case token.AT:
		return p.parsePostTestLoop()

	case token.STAR_LT:
		return p.parseDestructure()

	case token.SLASH_LT:
		return p.parseSlice()

	case token.STAR:
		return p.parseSpread()

	case token.ASSERT:
		return p.parseAssert()

	case token.ERROR:
		return p.parseErrorExpr()

	case token.PASS:
		p.advance()
		return &ast.PassStmt{Base: p.base(start)}

	default:
		p.addErrorAt(p.cur(), ErrUnexpectedToken,
			"unexpected %s", describe(p.cur()))
		return nil
	}
}

// parseStringLiteral converts a STRING token's segments into literal parts,
// re-parsing each {expr} interpolation with a sub-parser.
func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.advance()
	lit := &ast.StringLiteral{
		Base:      ast.Base{Loc: tok.Span},
		Multiline: tok.Multiline,
	}

	if len(tok.Segments) == 0 {
		lit.Parts = []ast.StringPart{&ast.TextPart{
			Base: ast.Base{Loc: tok.Span},
			Text: tok.Literal,
		}}
		return lit
	}

	for _, seg := range tok.Segments {
		segSpan := token.Span{Start: seg.Pos, End: seg.Pos}
		if seg.Kind == token.SegmentText {
			lit.Parts = append(lit.Parts, &ast.TextPart{
				Base: ast.Base{Loc: segSpan},
				Text: seg.Text,
			})
			continue
		}

		expr := p.parseInterpolatedExpr(seg)
		if expr == nil {
			return nil
		}
		lit.Parts = append(lit.Parts, &ast.Interpolation{
			Base: ast.Base{Loc: segSpan},
			Expr: expr,
		})
	}
	return lit
}

// parseInterpolatedExpr parses the raw source of one {expr} segment. Errors
// are reported at the segment's position in the enclosing source.
func (p *Parser) parseInterpolatedExpr(seg token.Segment) ast.Expression {
	sub := New(seg.Text)
	chain := sub.parsePipeChain()
	if chain == nil || !sub.curIs(token.EOF) || len(sub.Errors()) > 0 {
		msg := "invalid interpolation expression"
		if len(sub.Errors()) > 0 {
			msg = sub.Errors()[0].Message
		}
		p.addError(token.Span{Start: seg.Pos, End: seg.Pos}, ErrInvalidSyntax,
			"in interpolation: %s", msg)
		return nil
	}
	if len(chain.Pipes) == 0 && chain.Terminator == nil {
		return chain.Head
	}
	return chain
}

// parseGrouped parses `( chain )`. A grouped expression introduces a child
// scope at evaluation time. Single-element chains unwrap to their head.
func (p *Parser) parseGrouped() ast.Expression {
	start := p.advance().Span.Start // consume (
	p.skipNewlines()

	chain := p.parsePipeChain()
	if chain == nil {
		return nil
	}
	p.skipNewlinesBefore(token.RPAREN)
	if _, ok := p.expect(token.RPAREN, ErrMissingRParen, "')' to close group"); !ok {
		return nil
	}

	var inner ast.Expression = chain
	if len(chain.Pipes) == 0 && chain.Terminator == nil {
		inner = chain.Head
	}
	return &ast.GroupedExpr{Base: p.base(start), Expr: inner}
}

// parseBlock parses `{ statements }`. A block must contain at least one
// statement and yields the value of its last statement.
func (p *Parser) parseBlock() ast.Expression {
	start := p.advance().Span.Start // consume {
	p.skipNewlines()

	block := &ast.Block{}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Statements = append(block.Statements, stmt)
		if !p.curIs(token.RBRACE) && !p.curIs(token.NEWLINE) {
			p.addErrorAt(p.cur(), ErrUnexpectedToken,
				"expected end of line or '}' after statement, got %s", describe(p.cur()))
			return nil
		}
		p.skipNewlines()
	}

	rbrace, ok := p.expect(token.RBRACE, ErrMissingRBrace, "'}' to close block")
	if !ok {
		return nil
	}
	if len(block.Statements) == 0 {
		p.addErrorAt(rbrace, ErrEmptyBlock, "a block must contain at least one statement")
		return nil
	}
	block.Base = p.base(start)
	return block
}

// parseEmptyClosure parses `|| body`: the lexer greedily tokenizes `||` as
// a single token, so a zero-parameter closure arrives here.
func (p *Parser) parseEmptyClosure() ast.Expression {
	start := p.advance().Span.Start // consume ||
	body := p.parseBody()
	if body == nil {
		return nil
	}
	return &ast.Closure{Base: p.base(start), Body: body}
}

// parseClosure parses `|params| body`. Parameters may carry a scalar type
// tag and a default literal: `|retries: number = 3| ...`.
func (p *Parser) parseClosure() ast.Expression {
	start := p.advance().Span.Start // consume |

	var params []*ast.Param
	for !p.curIs(token.PIPE) && !p.curIs(token.EOF) {
		paramStart := p.cur().Span.Start
		name, ok := p.expect(token.IDENT, ErrExpectedIdent, "parameter name")
		if !ok {
			return nil
		}

		param := &ast.Param{Name: name.Literal}
		if p.curIs(token.COLON) {
			p.advance()
			typeTok, ok := p.expect(token.IDENT, ErrExpectedType, "parameter type")
			if !ok {
				return nil
			}
			if !paramTypeNames[typeTok.Literal] {
				p.addErrorAt(typeTok, ErrExpectedType,
					"parameter type must be string, number, or bool, got '%s'", typeTok.Literal)
				return nil
			}
			param.TypeName = typeTok.Literal
		}
		if p.curIs(token.ASSIGN) {
			p.advance()
			def := p.parseUnary()
			if def == nil {
				return nil
			}
			param.Default = def
		}
		param.Base = p.base(paramStart)
		params = append(params, param)

		if p.curIs(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}

	if _, ok := p.expect(token.PIPE, ErrUnexpectedToken, "'|' to close parameter list"); !ok {
		return nil
	}

	body := p.parseBody()
	if body == nil {
		return nil
	}
	return &ast.Closure{Base: p.base(start), Params: params, Body: body}
}

// parseHostCall parses `name`, `ns::name`, `name(args)`, `ns::name(args)`.
func (p *Parser) parseHostCall() ast.Expression {
	start := p.cur().Span.Start
	name := p.advance()

	call := &ast.HostCall{Name: name.Literal}
	if p.curIs(token.COLONCOLON) {
		p.advance()
		sub, ok := p.expect(token.IDENT, ErrExpectedIdent, "name after '::'")
		if !ok {
			return nil
		}
		call.Namespace = name.Literal
		call.Name = sub.Literal
	}

	if p.curIs(token.LPAREN) {
		args := p.parseArgs()
		if args == nil {
			return nil
		}
		call.Args = args
		call.HasArgs = true
	}
	call.Base = p.base(start)
	return call
}

// parseClosureCall parses `$name(args)`.
func (p *Parser) parseClosureCall() ast.Expression {
	start := p.cur().Span.Start
	name := p.advance()
	args := p.parseArgs()
	if args == nil {
		return nil
	}
	return &ast.ClosureCall{Base: p.base(start), Name: name.Literal, Args: args}
}

// parseVariable parses a `$`-sigil primary with its access chain, used from
// pipe-target position.
func (p *Parser) parseVariable() ast.Expression {
	start := p.cur().Span.Start
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}
	return p.parsePostfixOps(primary, start)
}

// parseBracketLiteral parses `[...]` literals: `[]` (empty list), `[:]`
// (empty dict), positional elements, or key: value entries. When
// allowDefault is set (dispatch pipe targets), a trailing `?? body` attaches
// as the literal's default.
func (p *Parser) parseBracketLiteral(allowDefault bool) ast.Expression {
	start := p.advance().Span.Start // consume [
	p.skipNewlines()

	// Empty forms: `[]` is the empty list, `[:]` the empty dict.
	if p.curIs(token.RBRACKET) {
		p.advance()
		tuple := &ast.TupleLiteral{Base: p.base(start)}
		if allowDefault && p.curIs(token.COALESCE) {
			p.advance()
			if tuple.Default = p.parseBody(); tuple.Default == nil {
				return nil
			}
			tuple.Base = p.base(start)
		}
		return tuple
	}
	if p.curIs(token.COLON) && p.peekIs(1, token.RBRACKET) {
		p.advance()
		p.advance()
		dict := &ast.DictLiteral{Base: p.base(start)}
		if allowDefault && p.curIs(token.COALESCE) {
			p.advance()
			if dict.Default = p.parseBody(); dict.Default == nil {
				return nil
			}
			dict.Base = p.base(start)
		}
		return dict
	}

	if p.isDictEntryStart() {
		return p.parseDictLiteral(start, allowDefault)
	}
	return p.parseTupleLiteral(start, allowDefault)
}

// isDictEntryStart reports whether the current position begins a key: value
// entry rather than a positional element.
func (p *Parser) isDictEntryStart() bool {
	if !p.curIs(token.IDENT) && !p.curIs(token.STRING) {
		return false
	}
	// `foo::bar(...)` is a host call, not a dict key.
	return p.peekIs(1, token.COLON)
}

func (p *Parser) parseDictLiteral(start token.Position, allowDefault bool) ast.Expression {
	dict := &ast.DictLiteral{}
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		entryStart := p.cur().Span.Start
		if !p.curIs(token.IDENT) && !p.curIs(token.STRING) {
			p.addErrorAt(p.cur(), ErrExpectedIdent,
				"expected dict key, got %s", describe(p.cur()))
			return nil
		}
		key := p.advance()
		if _, ok := p.expect(token.COLON, ErrUnexpectedToken, "':' after dict key"); !ok {
			return nil
		}
		p.skipNewlines()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		dict.Entries = append(dict.Entries, &ast.DictEntry{
			Base:  p.base(entryStart),
			Key:   key.Literal,
			Value: value,
		})

		p.skipNewlinesBefore(token.COMMA, token.RBRACKET)
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}
	if _, ok := p.expect(token.RBRACKET, ErrMissingRBracket, "']' to close dict"); !ok {
		return nil
	}
	dict.Base = p.base(start)

	if allowDefault && p.curIs(token.COALESCE) {
		p.advance()
		p.skipNewlines()
		if dict.Default = p.parseBody(); dict.Default == nil {
			return nil
		}
		dict.Base = p.base(start)
	}
	return dict
}

func (p *Parser) parseTupleLiteral(start token.Position, allowDefault bool) ast.Expression {
	tuple := &ast.TupleLiteral{}
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		var element ast.Expression
		if p.curIs(token.STAR) {
			element = p.parseSpread()
		} else {
			element = p.parseExpression()
		}
		if element == nil {
			return nil
		}
		tuple.Elements = append(tuple.Elements, element)

		p.skipNewlinesBefore(token.COMMA, token.RBRACKET)
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}
	if _, ok := p.expect(token.RBRACKET, ErrMissingRBracket, "']' to close list"); !ok {
		return nil
	}
	tuple.Base = p.base(start)

	if allowDefault && p.curIs(token.COALESCE) {
		p.advance()
		p.skipNewlines()
		if tuple.Default = p.parseBody(); tuple.Default == nil {
			return nil
		}
		tuple.Base = p.base(start)
	}
	return tuple
}

// parseDestructure parses `*<pattern, ...>` with nesting, skips, type tags,
// and `name <- key` renames.
func (p *Parser) parseDestructure() ast.Expression {
	start := p.advance().Span.Start // consume *<
	patterns := p.parsePatternList()
	if patterns == nil {
		return nil
	}
	return &ast.Destructure{Base: p.base(start), Patterns: patterns}
}

func (p *Parser) parsePatternList() []*ast.DestructurePattern {
	var patterns []*ast.DestructurePattern
	for !p.curIs(token.GREATER) && !p.curIs(token.EOF) {
		pattern := p.parsePattern()
		if pattern == nil {
			return nil
		}
		patterns = append(patterns, pattern)
		if p.curIs(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, ok := p.expect(token.GREATER, ErrMissingGreater, "'>' to close destructure"); !ok {
		return nil
	}
	return patterns
}

func (p *Parser) parsePattern() *ast.DestructurePattern {
	start := p.cur().Span.Start

	if p.curIs(token.STAR_LT) {
		p.advance()
		nested := p.parsePatternList()
		if nested == nil {
			return nil
		}
		return &ast.DestructurePattern{Base: p.base(start), Nested: nested}
	}

	name, ok := p.expect(token.IDENT, ErrExpectedIdent, "pattern name")
	if !ok {
		return nil
	}
	if name.Literal == "_" {
		return &ast.DestructurePattern{Base: p.base(start), Skip: true}
	}

	pattern := &ast.DestructurePattern{Name: name.Literal}
	if p.curIs(token.COLON) && p.peekIs(1, token.IDENT) {
		p.advance()
		typeTok := p.advance()
		if !typeNames[typeTok.Literal] {
			p.addErrorAt(typeTok, ErrExpectedType, "unknown type '%s'", typeTok.Literal)
			return nil
		}
		pattern.TypeName = typeTok.Literal
	}
	// `name <- key` rebinds from a different dict key.
	if p.curIs(token.LESS) && p.peekIs(1, token.MINUS) {
		p.advance()
		p.advance()
		key, ok := p.expect(token.IDENT, ErrExpectedIdent, "source key after '<-'")
		if !ok {
			return nil
		}
		pattern.Key = key.Literal
	}
	pattern.Base = p.base(start)
	return pattern
}

// parseSlice parses `/<start:stop:step>` with Python semantics. Bounds are
// additive-level expressions so a closing '>' is never taken as comparison.
func (p *Parser) parseSlice() ast.Expression {
	start := p.advance().Span.Start // consume /<
	slice := &ast.Slice{}

	if !p.curIs(token.COLON) && !p.curIs(token.COLONCOLON) {
		if slice.Start = p.parseAdditive(); slice.Start == nil {
			return nil
		}
	}
	hasStep := false
	if p.curIs(token.COLONCOLON) {
		// `::` lexes as one token: both separators with an empty stop.
		p.advance()
		hasStep = true
	} else {
		if _, ok := p.expect(token.COLON, ErrUnexpectedToken, "':' in slice"); !ok {
			return nil
		}
		if !p.curIs(token.COLON) && !p.curIs(token.GREATER) {
			if slice.Stop = p.parseAdditive(); slice.Stop == nil {
				return nil
			}
		}
		if p.curIs(token.COLON) {
			p.advance()
			hasStep = true
		}
	}
	if hasStep && !p.curIs(token.GREATER) {
		if slice.Step = p.parseAdditive(); slice.Step == nil {
			return nil
		}
	}
	if _, ok := p.expect(token.GREATER, ErrMissingGreater, "'>' to close slice"); !ok {
		return nil
	}
	slice.Base = p.base(start)
	return slice
}
