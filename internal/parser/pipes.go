package parser

import (
	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/pkg/token"
)

// parsePipeChain parses `head -> t1 -> t2 => $x ... terminator?`. Pipe
// steps are left-associative; `=>` captures may appear mid-chain and as the
// terminator.
func (p *Parser) parsePipeChain() *ast.PipeChain {
	start := p.cur().Span.Start

	// A bare terminator statement (`break`, `return`, `pass`) is a chain
	// whose head is the current pipe value.
	if p.curIs(token.BREAK) || p.curIs(token.RETURN) || p.curIs(token.PASS) {
		term := p.parseTerminator()
		return &ast.PipeChain{
			Base:       p.base(start),
			Head:       &ast.Variable{Base: p.base(start), IsPipeVar: true},
			Terminator: term,
		}
	}

	head := p.parseChainElement()
	if head == nil {
		return nil
	}

	chain := &ast.PipeChain{Head: head}
	for {
		switch p.cur().Type {
		case token.ARROW:
			p.advance()
			p.skipNewlines()
			if p.curIs(token.BREAK) || p.curIs(token.RETURN) || p.curIs(token.PASS) {
				chain.Terminator = p.parseTerminator()
				p.requireChainEnd()
				chain.Base = p.base(start)
				return chain
			}
			target := p.parsePipeTarget()
			if target == nil {
				return nil
			}
			chain.Pipes = append(chain.Pipes, target)

		case token.CAPTURE_ARROW:
			p.advance()
			p.skipNewlines()
			capture := p.parseCapture()
			if capture == nil {
				return nil
			}
			if p.curIs(token.ARROW) || p.curIs(token.CAPTURE_ARROW) {
				chain.Pipes = append(chain.Pipes, capture)
				continue
			}
			chain.Terminator = capture
			chain.Base = p.base(start)
			return chain

		case token.COLON:
			// `:>` is the removed capture arrow; give a targeted hint.
			if p.peekIs(1, token.GREATER) {
				p.addErrorAt(p.cur(), ErrDeprecatedCapture,
					"the ':>' capture arrow was replaced by '=>'")
				p.advance()
				p.advance()
				capture := p.parseCapture()
				if capture == nil {
					return nil
				}
				chain.Terminator = capture
				chain.Base = p.base(start)
				return chain
			}
			chain.Base = p.base(start)
			return chain

		default:
			chain.Base = p.base(start)
			return chain
		}
	}
}

// parseTerminator parses break/return/pass and rejects anything after it.
func (p *Parser) parseTerminator() ast.Terminator {
	tok := p.advance()
	base := p.base(tok.Span.Start)
	switch tok.Type {
	case token.BREAK:
		return &ast.BreakStmt{Base: base}
	case token.RETURN:
		return &ast.ReturnStmt{Base: base}
	default:
		return &ast.PassStmt{Base: base}
	}
}

// requireChainEnd verifies nothing follows a break/return/pass terminator.
func (p *Parser) requireChainEnd() {
	if p.curIs(token.ARROW) || p.curIs(token.CAPTURE_ARROW) {
		p.addErrorAt(p.cur(), ErrTerminatorNotLast,
			"break, return, and pass must end the pipe chain")
	}
}

// parseCapture parses `$name` with an optional `:type` after `=>`.
func (p *Parser) parseCapture() *ast.Capture {
	start := p.cur().Span.Start
	if !p.curIs(token.DOLLAR_IDENT) {
		p.addErrorAt(p.cur(), ErrExpectedCaptureVar,
			"expected '$name' after '=>', got %s", describe(p.cur()))
		return nil
	}
	name := p.advance()

	capture := &ast.Capture{Name: name.Literal}
	if p.curIs(token.COLON) && p.peekIs(1, token.IDENT) && typeNames[p.peek(1).Literal] {
		p.advance()
		typeTok := p.advance()
		capture.TypeName = typeTok.Literal
	}
	capture.Base = p.base(start)
	return capture
}

// parsePipeTarget parses the restricted grammar of forms allowed after `->`.
func (p *Parser) parsePipeTarget() ast.Expression {
	start := p.cur().Span.Start

	switch p.cur().Type {
	case token.DOT:
		return p.parseMethodTarget()

	case token.IDENT:
		return p.parseHostCall()

	case token.DOLLAR_IDENT:
		// `-> $name(args)` is a closure call; `-> $name` alone is an implicit
		// capture; `-> $name.field` reads through the access chain.
		if p.peekIs(1, token.LPAREN) {
			return p.parseClosureCall()
		}
		return p.parseVariable()

	case token.DOLLAR:
		// `-> $(args)` invokes the pipe value; `-> $` and `-> $.field` read it.
		if p.peekIs(1, token.LPAREN) {
			p.advance()
			args := p.parseArgs()
			if args == nil {
				return nil
			}
			return &ast.PipeInvoke{Base: p.base(start), Args: args}
		}
		return p.parseVariable()

	case token.DOLLAR_AT:
		return p.parseVariable()

	case token.QUESTION:
		return p.parseConditionalBody(nil, start)

	case token.AT:
		return p.parsePostTestLoop()

	case token.LPAREN:
		group := p.parseGrouped()
		if group == nil {
			return nil
		}
		return p.parseHeadSuffix(group, start)

	case token.LBRACE:
		return p.parseBlock()

	case token.PIPE:
		return p.parseClosure()
	case token.OR:
		return p.parseEmptyClosure()

	case token.LBRACKET:
		return p.parseBracketLiteral(true)

	case token.EACH, token.MAP, token.FOLD, token.FILTER:
		return p.parseCollectionOp()

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

	default:
		p.addErrorAt(p.cur(), ErrInvalidPipeTarget,
			"%s cannot be used as a pipe target", describe(p.cur()))
		return nil
	}
}

// parseMethodTarget parses `.name`, `.name(args)`, and further postfix ops
// applied to the current pipe value.
func (p *Parser) parseMethodTarget() ast.Expression {
	start := p.cur().Span.Start
	pipeVar := &ast.Variable{Base: ast.Base{Loc: p.cur().Span}, IsPipeVar: true}
	return p.parsePostfixOps(pipeVar, start)
}

// parseSpread parses `*expr` and the bare `*` form.
func (p *Parser) parseSpread() ast.Expression {
	start := p.advance().Span.Start // consume *
	spread := &ast.Spread{}
	switch p.cur().Type {
	case token.NEWLINE, token.EOF, token.ARROW, token.CAPTURE_ARROW, token.RPAREN, token.RBRACE:
		// bare `*`: spread the pipe value
	default:
		expr := p.parseUnary()
		if expr == nil {
			return nil
		}
		spread.Expr = expr
	}
	spread.Base = p.base(start)
	return spread
}

// parseAssert parses `assert` with an optional condition expression.
func (p *Parser) parseAssert() ast.Expression {
	start := p.advance().Span.Start
	a := &ast.Assert{}
	if p.startsExpression() {
		cond := p.parseExpression()
		if cond == nil {
			return nil
		}
		a.Cond = cond
	}
	a.Base = p.base(start)
	return a
}

// parseErrorExpr parses `error` with an optional message expression.
func (p *Parser) parseErrorExpr() ast.Expression {
	start := p.advance().Span.Start
	e := &ast.ErrorExpr{}
	if p.startsExpression() {
		msg := p.parseExpression()
		if msg == nil {
			return nil
		}
		e.Message = msg
	}
	e.Base = p.base(start)
	return e
}

// startsExpression reports whether the current token can begin an expression.
func (p *Parser) startsExpression() bool {
	switch p.cur().Type {
	case token.NUMBER, token.STRING, token.TRUE, token.FALSE, token.IDENT,
		token.DOLLAR, token.DOLLAR_IDENT, token.DOLLAR_AT, token.LPAREN,
		token.LBRACKET, token.LBRACE, token.PIPE, token.MINUS, token.BANG:
		return true
	}
	return false
}

// parseCollectionOp parses `each`, `map`, `fold`, and `filter` targets with
// their optional accumulator init and body.
func (p *Parser) parseCollectionOp() ast.Expression {
	opTok := p.advance()
	start := opTok.Span.Start

	var init ast.Expression
	if (opTok.Type == token.EACH || opTok.Type == token.FOLD) && p.curIs(token.LPAREN) {
		p.advance()
		p.skipNewlines()
		init = p.parseExpression()
		if init == nil {
			return nil
		}
		p.skipNewlinesBefore(token.RPAREN)
		if _, ok := p.expect(token.RPAREN, ErrMissingRParen, "')' after accumulator init"); !ok {
			return nil
		}
	}

	body := p.parseOperatorBody()
	if body == nil {
		return nil
	}

	base := p.base(start)
	switch opTok.Type {
	case token.EACH:
		return &ast.EachExpr{Base: base, Body: body, Init: init}
	case token.MAP:
		return &ast.MapExpr{Base: base, Body: body}
	case token.FOLD:
		return &ast.FoldExpr{Base: base, Body: body, Init: init}
	default:
		return &ast.FilterExpr{Base: base, Body: body}
	}
}

// parseOperatorBody parses the body of a collection operator: an inline
// closure, a block, a grouped expression, a variable holding a closure, a
// bare host call name, or `*`.
func (p *Parser) parseOperatorBody() ast.Expression {
	start := p.cur().Span.Start
	switch p.cur().Type {
	case token.PIPE:
		return p.parseClosure()
	case token.OR:
		return p.parseEmptyClosure()
	case token.LBRACE:
		return p.parseBlock()
	case token.LPAREN:
		return p.parseGrouped()
	case token.DOLLAR_IDENT:
		name := p.advance()
		return &ast.Variable{Base: p.base(start), Name: name.Literal}
	case token.IDENT:
		return p.parseBareHostName()
	case token.STAR:
		p.advance()
		return &ast.Spread{Base: p.base(start)}
	case token.DOT:
		return p.parseMethodTarget()
	default:
		p.addErrorAt(p.cur(), ErrUnexpectedToken,
			"expected a closure, block, group, '$fn', or host name as operator body, got %s",
			describe(p.cur()))
		return nil
	}
}

// parseBareHostName parses `name` or `ns::name` without arguments.
func (p *Parser) parseBareHostName() ast.Expression {
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
	call.Base = p.base(start)
	return call
}
