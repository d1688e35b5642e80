package parser

import (
	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/pkg/token"
)

// parseChainElement parses the head of a pipe chain: an expression possibly
// followed by a conditional (`cond ? then ! else`) or loop (`(cond) @ body`)
// suffix.
func (p *Parser) parseChainElement() ast.Expression {
	start := p.cur().Span.Start
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return p.parseHeadSuffix(expr, start)
}

// parseHeadSuffix attaches loop and conditional suffixes to a parsed
// expression head.
func (p *Parser) parseHeadSuffix(expr ast.Expression, start token.Position) ast.Expression {
	if p.curIs(token.AT) {
		p.advance()
		body := p.parseBody()
		if body == nil {
			return nil
		}
		return &ast.Loop{Base: p.base(start), Cond: expr, Body: body}
	}
	if p.curIs(token.QUESTION) {
		return p.parseConditionalBody(expr, start)
	}
	return expr
}

// parseConditionalBody parses `? then ! else` with a previously parsed
// condition (nil for the piped form). Else-if chains are right-associative.
func (p *Parser) parseConditionalBody(cond ast.Expression, start token.Position) ast.Expression {
	p.advance() // consume ?
	p.skipNewlines()

	then := p.parseBranch()
	if then == nil {
		return nil
	}

	var els ast.Expression
	if p.curIs(token.BANG) {
		p.advance()
		p.skipNewlines()
		elseStart := p.cur().Span.Start
		els = p.parseBranch()
		if els == nil {
			return nil
		}
		if p.curIs(token.QUESTION) {
			els = p.parseConditionalBody(els, elseStart)
			if els == nil {
				return nil
			}
		}
	}

	return &ast.Conditional{Base: p.base(start), Cond: cond, Then: then, Else: els}
}

// parseBranch parses a conditional branch body.
func (p *Parser) parseBranch() ast.Expression {
	start := p.cur().Span.Start
	switch p.cur().Type {
	case token.PASS:
		p.advance()
		return &ast.PassStmt{Base: p.base(start)}
	case token.BREAK:
		p.advance()
		return &ast.BreakStmt{Base: p.base(start)}
	case token.RETURN:
		p.advance()
		return &ast.ReturnStmt{Base: p.base(start)}
	case token.ERROR:
		return p.parseErrorExpr()
	case token.ASSERT:
		return p.parseAssert()
	default:
		return p.parseBody()
	}
}

// parseBody parses the body of a closure, loop, conditional branch, or `??`
// default: a Block, a GroupedExpr, an inline closure, a method chain on the
// pipe value, or a single postfix-level expression. Pipe chains inside a
// body require grouping or a block.
func (p *Parser) parseBody() ast.Expression {
	switch p.cur().Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.LPAREN:
		return p.parseGrouped()
	case token.PIPE:
		return p.parseClosure()
	case token.OR:
		return p.parseEmptyClosure()
	case token.DOT:
		return p.parseMethodTarget()
	default:
		return p.parseUnary()
	}
}

// parsePostTestLoop parses `@ body ? cond`.
func (p *Parser) parsePostTestLoop() ast.Expression {
	start := p.advance().Span.Start // consume @
	body := p.parseBody()
	if body == nil {
		return nil
	}
	if _, ok := p.expect(token.QUESTION, ErrUnexpectedToken, "'?' and a loop condition"); !ok {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	return &ast.Loop{Base: p.base(start), Cond: cond, Body: body, PostTest: true}
}

// Binary operator precedence, tightest binding handled lowest in the call
// chain: unary, then * / %, + -, comparisons, &&, ||.

func (p *Parser) parseExpression() ast.Expression {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expression {
	start := p.cur().Span.Start
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.curIs(token.OR) {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Base: p.base(start), Operator: op.Literal, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	start := p.cur().Span.Start
	left := p.parseComparison()
	if left == nil {
		return nil
	}
	for p.curIs(token.AND) {
		op := p.advance()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Base: p.base(start), Operator: op.Literal, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expression {
	start := p.cur().Span.Start
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	for isComparisonOp(p.cur().Type) {
		op := p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Base: p.base(start), Operator: op.Literal, Left: left, Right: right}
	}
	return left
}

func isComparisonOp(t token.Type) bool {
	switch t {
	case token.EQ, token.NOT_EQ, token.LESS, token.GREATER, token.LESS_EQ, token.GREATER_EQ:
		return true
	}
	return false
}

func (p *Parser) parseAdditive() ast.Expression {
	start := p.cur().Span.Start
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Base: p.base(start), Operator: op.Literal, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	start := p.cur().Span.Start
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for p.curIs(token.STAR) || p.curIs(token.SLASH) || p.curIs(token.PERCENT) {
		op := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Base: p.base(start), Operator: op.Literal, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.curIs(token.MINUS) || p.curIs(token.BANG) {
		op := p.advance()
		start := op.Span.Start
		if !p.startsExpression() {
			p.addErrorAt(op, ErrBareNegation, "'%s' requires an operand", op.Literal)
			return nil
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Base: p.base(start), Operator: op.Literal, Operand: operand}
	}
	return p.parsePostfixExpr()
}

// parsePostfixExpr parses a primary and its postfix chain.
func (p *Parser) parsePostfixExpr() ast.Expression {
	start := p.cur().Span.Start
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}
	return p.parsePostfixOps(primary, start)
}

// parsePostfixOps attaches dotted access, method calls, indexing, invokes,
// type assertions/checks, and a trailing `??` default to a parsed primary.
// Dotted and bracketed accesses on a plain variable extend its access chain;
// everything else becomes a PostfixExpr op.
func (p *Parser) parsePostfixOps(expr ast.Expression, start token.Position) ast.Expression {
	variable, _ := expr.(*ast.Variable)
	var methods []ast.PostfixOp

	appendOp := func(op ast.PostfixOp) {
		methods = append(methods, op)
		variable = nil
	}

	for {
		switch {
		case p.curIs(token.DOT) && p.peekIs(1, token.QUESTION_IDENT):
			dot := p.advance()
			name := p.advance()
			if variable == nil || len(methods) > 0 {
				p.addErrorAt(dot, ErrInvalidSyntax,
					"existence check '.?%s' applies to variables only", name.Literal)
				return nil
			}
			variable.ExistenceCheck = name.Literal
			variable.Loc = p.spanFrom(start)
			return p.finishPostfix(expr, methods, start)

		case p.curIs(token.DOT) && p.peekIs(1, token.CARET) && p.peekIs(2, token.IDENT):
			dot := p.advance()
			p.advance()
			key := p.advance()
			if variable == nil {
				p.addErrorAt(dot, ErrInvalidSyntax,
					"annotation access '.^%s' applies to variables only", key.Literal)
				return nil
			}
			variable.AccessChain = append(variable.AccessChain, &ast.AnnotationAccess{
				Base: p.base(dot.Span.Start),
				Key:  key.Literal,
			})
			variable.Loc = p.spanFrom(start)

		case p.curIs(token.DOT) && p.peekIs(1, token.LPAREN):
			dot := p.advance()
			p.advance()
			p.skipNewlines()
			key := p.parseExpression()
			if key == nil {
				return nil
			}
			p.skipNewlines()
			if _, ok := p.expect(token.RPAREN, ErrMissingRParen, "')' to close computed access"); !ok {
				return nil
			}
			if variable == nil {
				p.addErrorAt(dot, ErrInvalidSyntax, "computed access applies to variables only")
				return nil
			}
			variable.AccessChain = append(variable.AccessChain, &ast.ComputedAccess{
				Base: p.base(dot.Span.Start),
				Key:  key,
			})
			variable.Loc = p.spanFrom(start)

		case p.curIs(token.DOT) && p.peekIs(1, token.IDENT):
			dot := p.advance()
			name := p.advance()
			if p.curIs(token.LPAREN) {
				args := p.parseArgs()
				if args == nil {
					return nil
				}
				appendOp(&ast.MethodCall{
					Base:    p.base(dot.Span.Start),
					Name:    name.Literal,
					Args:    args,
					HasArgs: true,
				})
			} else if variable != nil && len(methods) == 0 {
				variable.AccessChain = append(variable.AccessChain, &ast.FieldAccess{
					Base: p.base(dot.Span.Start),
					Name: name.Literal,
				})
				variable.Loc = p.spanFrom(start)
			} else {
				appendOp(&ast.MethodCall{
					Base: p.base(dot.Span.Start),
					Name: name.Literal,
				})
			}

		case p.curIs(token.LBRACKET):
			lb := p.advance()
			p.skipNewlines()
			key := p.parseExpression()
			if key == nil {
				return nil
			}
			p.skipNewlines()
			if _, ok := p.expect(token.RBRACKET, ErrMissingRBracket, "']' to close index"); !ok {
				return nil
			}
			if variable != nil && len(methods) == 0 {
				variable.AccessChain = append(variable.AccessChain, &ast.IndexAccess{
					Base: p.base(lb.Span.Start),
					Key:  key,
				})
				variable.Loc = p.spanFrom(start)
			} else {
				appendOp(&ast.Index{Base: p.base(lb.Span.Start), Key: key})
			}

		case p.curIs(token.LPAREN) && canInvoke(expr, methods):
			lp := p.cur()
			args := p.parseArgs()
			if args == nil {
				return nil
			}
			appendOp(&ast.Invoke{Base: p.base(lp.Span.Start), Args: args})

		case p.curIs(token.COLON) && p.peekIs(1, token.IDENT) && typeNames[p.peek(1).Literal]:
			p.advance()
			typeTok := p.advance()
			inner := p.finishPostfix(expr, methods, start)
			return p.parsePostfixOps(&ast.TypeAssertion{
				Base:     p.base(start),
				Target:   inner,
				TypeName: typeTok.Literal,
			}, start)

		case p.curIs(token.COLON) && p.peekIs(1, token.QUESTION_IDENT) && typeNames[p.peek(1).Literal]:
			p.advance()
			typeTok := p.advance()
			inner := p.finishPostfix(expr, methods, start)
			return &ast.TypeCheck{
				Base:     p.base(start),
				Target:   inner,
				TypeName: typeTok.Literal,
			}

		case p.curIs(token.COALESCE):
			p.advance()
			p.skipNewlines()
			def := p.parseBody()
			if def == nil {
				return nil
			}
			if variable != nil && len(methods) == 0 {
				variable.Default = def
				variable.Loc = p.spanFrom(start)
				return expr
			}
			return &ast.PostfixExpr{
				Base:    p.base(start),
				Primary: expr,
				Methods: methods,
				Default: def,
			}

		default:
			return p.finishPostfix(expr, methods, start)
		}
	}
}

// canInvoke reports whether `(` after the expression means a callable invoke.
// Literals and calls already carrying their own argument lists are invokable
// once postfix ops have produced a new value; a bare host call or closure
// call consumed its parentheses during primary parsing.
func canInvoke(expr ast.Expression, methods []ast.PostfixOp) bool {
	if len(methods) > 0 {
		return true
	}
	switch expr.(type) {
	case *ast.GroupedExpr, *ast.Variable, *ast.PostfixExpr:
		return true
	}
	return false
}

// finishPostfix wraps the primary in a PostfixExpr when any ops accumulated.
func (p *Parser) finishPostfix(expr ast.Expression, methods []ast.PostfixOp, start token.Position) ast.Expression {
	if len(methods) == 0 {
		return expr
	}
	return &ast.PostfixExpr{
		Base:    p.base(start),
		Primary: expr,
		Methods: methods,
	}
}

// parseArgs parses a parenthesized argument list. Spread arguments
// (`*expr`) are permitted.
func (p *Parser) parseArgs() []ast.Expression {
	if _, ok := p.expect(token.LPAREN, ErrUnexpectedToken, "'('"); !ok {
		return nil
	}
	p.skipNewlines()

	args := []ast.Expression{}
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		var arg ast.Expression
		if p.curIs(token.STAR) {
			arg = p.parseSpread()
		} else {
			arg = p.parseExpression()
		}
		if arg == nil {
			return nil
		}
		args = append(args, arg)

		p.skipNewlinesBefore(token.COMMA, token.RPAREN)
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}

	if _, ok := p.expect(token.RPAREN, ErrMissingRParen, "')' to close arguments"); !ok {
		return nil
	}
	return args
}
