package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseForeach implements:
//
//	foreach := "foreach" from? into? "(" (statement ";")* ")"
func (p *Parser) parseForeach() *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume 'foreach'

	from := p.parseFrom()
	if from == "" {
		from = "_"
	}
	into := p.parseInto()

	node := p.create(ast.KindForeach, line, map[string]string{"from": from, "into": into})

	p.expect(token.LPAREN)
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		child := p.parseStatement()
		if child != nil {
			_ = node.AddChild(child)
		}
		if !p.expect(token.SEMI) {
			p.clearUntilAfter(token.SEMI, token.RPAREN)
		}
	}
	p.expect(token.RPAREN)

	return node
}
