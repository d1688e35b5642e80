package parser

import (
	"strings"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/pkg/token"
)

// synchronize discards tokens up to the next statement boundary: a newline at
// bracket depth zero, or end of input. Recovery stays at statement level; the
// parser never attempts mid-expression recovery.
func (p *Parser) synchronize() {
	depth := 0
	for {
		switch p.cur().Type {
		case token.EOF:
			return
		case token.NEWLINE:
			if depth <= 0 {
				return
			}
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.RBRACE:
			depth--
			if depth < 0 {
				// A closing brace of an enclosing block also bounds the
				// statement.
				return
			}
		}
		p.advance()
	}
}

// recoverStatement synchronizes to the next statement boundary. In strict
// mode the failed statement is dropped (errors were already recorded); in
// recovery mode it is replaced by a RecoveryError node carrying the skipped
// source text.
func (p *Parser) recoverStatement(start token.Position, message string) ast.Statement {
	p.synchronize()

	if !p.recovery {
		return nil
	}

	end := p.cur().Span.Start.Offset
	if end < start.Offset {
		end = start.Offset
	}
	if end > len(p.source) {
		end = len(p.source)
	}
	text := strings.TrimSpace(p.source[start.Offset:end])

	return &ast.RecoveryError{
		Base: ast.Base{Loc: token.Span{
			Start: start,
			End:   p.cur().Span.Start,
		}},
		Message: message,
		Text:    text,
	}
}
