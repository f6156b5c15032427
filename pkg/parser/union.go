package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseUnionOrDifference implements:
//
//	union := "(" statement ( ";" "-"? statement )* ")" into?
//
// Every parenthesized statement list becomes a union node. A "-" preceding
// any statement after the first marks that statement as the subtrahend of
// a difference paired with whichever statement immediately precedes it in
// the list, matching collect_substatements_and_probe's detection of "-"
// between two adjacent substatements in the original parser; the grammar
// only ever admits one "-" per pair, so the minuend is always the operand
// that sits directly to the left of the "-" in source order, never some
// other statement earlier in the list.
func (p *Parser) parseUnionOrDifference() *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume '('

	var children []*ast.Node
	if !p.check(token.RPAREN) {
		children = append(children, p.parseStatement())
		for p.check(token.SEMI) {
			p.nextToken()
			if p.check(token.RPAREN) {
				break
			}
			if p.match(token.MINUS) {
				children = p.foldDifference(children, line)
				continue
			}
			children = append(children, p.parseStatement())
		}
	}
	p.expect(token.RPAREN)
	into := p.parseInto()

	union := p.create(ast.KindUnion, line, map[string]string{"into": into})
	for _, c := range children {
		if c != nil {
			_ = union.AddChild(c)
		}
	}
	return union
}

// foldDifference parses the statement following an already-consumed "-"
// and replaces the last entry in children with a difference node pairing
// it (the minuend) with the new statement (the subtrahend), enforcing
// that both resolve to the same element variant.
func (p *Parser) foldDifference(children []*ast.Node, line int) []*ast.Node {
	var minuend *ast.Node
	if len(children) > 0 {
		minuend = children[len(children)-1]
		children = children[:len(children)-1]
	}
	subtrahend := p.parseStatement()

	if variant(minuend) != variant(subtrahend) {
		p.addErrorAt(line, errDifferenceArity)
	}

	diff := p.create(ast.KindDifference, line, map[string]string{"into": "_"})
	if minuend != nil {
		_ = diff.AddChild(minuend)
	}
	if subtrahend != nil {
		_ = diff.AddChild(subtrahend)
	}
	return append(children, diff)
}

// variant returns a statement node's resolved element type, or "" if it
// does not carry one (e.g. union, foreach).
func variant(n *ast.Node) string {
	if n == nil {
		return ""
	}
	return n.Attrs["type"]
}
