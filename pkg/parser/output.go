package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseOutputWithFrom implements:
//
//	output   := from? "out" out_opt*
//	out_opt  := "ids" | "tags" | "skel" | "body" | "meta" | "quirks" | "count"
//	          | "qt" | "asc"
//	          | "geom" | "bb" | "center"
//	          | INT
//	          | "(" s "," w "," n "," e ")"
//
// from has already been parsed (and defaulted to "_") by the caller; this
// function consumes the "out" keyword itself and every trailing option.
func (p *Parser) parseOutputWithFrom(from string) *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume 'out'

	attrs := map[string]string{}
	if from != "" {
		attrs["from"] = from
	}

	for {
		switch {
		case p.check(token.IDENT):
			switch p.tok.Literal {
			case "ids", "tags", "skel", "body", "meta", "quirks", "count":
				attrs["mode"] = p.tok.Literal
				p.nextToken()
			case "qt", "asc":
				attrs["order"] = p.tok.Literal
				p.nextToken()
			case "geom", "bb", "center":
				attrs["geometry"] = map[string]string{"geom": "full", "bb": "bounds", "center": "center"}[p.tok.Literal]
				p.nextToken()
			default:
				return p.create(ast.KindOut, line, attrs)
			}
		case p.check(token.INT):
			attrs["limit"] = p.tok.Literal
			p.nextToken()
		case p.check(token.LPAREN):
			p.nextToken()
			s := p.parseNumber()
			p.expect(token.COMMA)
			w := p.parseNumber()
			p.expect(token.COMMA)
			n := p.parseNumber()
			p.expect(token.COMMA)
			e := p.parseNumber()
			p.expect(token.RPAREN)
			attrs["s"], attrs["w"], attrs["n"], attrs["e"] = ftoa(s), ftoa(w), ftoa(n), ftoa(e)
		default:
			return p.create(ast.KindOut, line, attrs)
		}
	}
}
