package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseCoordQuery implements:
//
//	coord_query := "is_in" ("(" lat "," lon ")")? into?
//
// When the coordinate pair is omitted, the statement resolves areas
// containing the points of the current input set instead.
func (p *Parser) parseCoordQuery() *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume 'is_in'

	attrs := map[string]string{"from": "_", "lat": "", "lon": ""}
	if p.check(token.LPAREN) {
		p.nextToken()
		lat := p.parseNumber()
		p.expect(token.COMMA)
		lon := p.parseNumber()
		p.expect(token.RPAREN)
		attrs["lat"] = ftoa(lat)
		attrs["lon"] = ftoa(lon)
	}
	attrs["into"] = p.parseInto()

	return p.create(ast.KindCoordQuery, line, attrs)
}

// parseMapToArea implements:
//
//	map_to_area := "map_to_area" into?
func (p *Parser) parseMapToArea() *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume 'map_to_area'
	into := p.parseInto()
	return p.create(ast.KindMapToArea, line, map[string]string{"from": "_", "into": into})
}
