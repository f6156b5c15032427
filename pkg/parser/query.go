package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// typeKeywords is the set of bare identifiers recognized as the optional
// leading element type of a query, normalizing "rel" to "relation".
var typeKeywords = map[string]string{
	"node": "node", "way": "way", "relation": "relation", "rel": "relation", "area": "area",
}

func isTypeKeyword(lit string) (string, bool) {
	t, ok := typeKeywords[lit]
	return t, ok
}

func orDefault(t, def string) string {
	if t == "" {
		return def
	}
	return t
}

// clause is one bracketed tag filter or parenthesized spatial/id filter
// collected while parsing a query's clause list, before the query-reduction
// decision tree turns it into a final node (possibly hoisted to the top).
type clause struct {
	kind  ast.Kind
	line  int
	attrs map[string]string
	// needsTypeContext marks clauses that can never stand alone as the
	// query's sole result and always force a wrapping query(type) node,
	// per the reduction rule's exception list: tag filters, area, around,
	// pivot, polygon, any recursive arrow, and changed. bbox-query is
	// handled as a special case since its need for a wrap depends on the
	// query's resolved type.
	needsTypeContext bool
}

// parseQuery implements:
//
//	query := type? from? clause* into?
//	type  := "node" | "way" | "relation" | "area"
//
// A bare "out" immediately following an optional from-reference is a
// deferred output statement rather than a query, matching the grammar's
// from-prefixed output form ".set out;".
func (p *Parser) parseQuery() *ast.Node {
	line := p.tok.Pos.Line

	typ := ""
	if p.check(token.IDENT) {
		if t, ok := isTypeKeyword(p.tok.Literal); ok {
			typ = t
			p.nextToken()
		}
	}

	from := p.parseFrom()

	if p.checkIdent("out") {
		return p.parseOutputWithFrom(orDefault(from, "_"))
	}

	var clauses []clause
	for p.check(token.LBRACKET) || p.check(token.LPAREN) {
		if p.check(token.LBRACKET) {
			clauses = append(clauses, p.parseTagFilter())
		} else {
			clauses = append(clauses, p.parseSpatialOrID(typ))
		}
	}

	into := p.parseInto()
	return p.reduceQuery(line, typ, from, clauses, into)
}

// parseTagFilter implements:
//
//	tag_filter := "[" "!" KEY "]"
//	            | "[" "~"? KEY ( ("="|"!="|"~"|"!~") VALUE ","? "i"? )? "]"
func (p *Parser) parseTagFilter() clause {
	line := p.tok.Pos.Line
	p.nextToken() // consume '['

	attrs := map[string]string{}
	if p.check(token.BANG) {
		p.nextToken()
		attrs["k"] = p.parseKey()
		attrs["modv"] = "absent"
	} else {
		regKey := p.match(token.TILDE)
		key := p.parseKey()
		if regKey {
			attrs["regk"] = key
		} else {
			attrs["k"] = key
		}

		switch {
		case p.check(token.EQ):
			p.nextToken()
			attrs["v"] = p.parseValueLiteral()
			attrs["modv"] = "eq"
		case p.check(token.NE):
			p.nextToken()
			attrs["v"] = p.parseValueLiteral()
			attrs["modv"] = "ne"
		case p.check(token.TILDE):
			p.nextToken()
			attrs["regv"] = p.parseValueLiteral()
			attrs["modv"] = "regex"
			p.parseCaseFlag(attrs)
		case p.check(token.NTILDE):
			p.nextToken()
			attrs["regv"] = p.parseValueLiteral()
			attrs["modv"] = "regex-ne"
			p.parseCaseFlag(attrs)
		default:
			attrs["modv"] = "present"
		}
	}
	p.expect(token.RBRACKET)

	return clause{kind: ast.KindHasKV, line: line, attrs: attrs, needsTypeContext: true}
}

// parseCaseFlag consumes an optional trailing ",i" case-insensitivity
// marker on a regex tag filter.
func (p *Parser) parseCaseFlag(attrs map[string]string) {
	if p.check(token.COMMA) && p.peek.Type == token.IDENT && p.peek.Literal == "i" {
		p.nextToken()
		p.nextToken()
		attrs["case"] = "i"
	}
}

// parseSpatialOrID implements the spatial_or_id production: a parenthesized
// clause that is one of around/poly/user/uid/newer/changed/area/pivot, a
// role-aware or bare recursion, or a bare numeric id-query/bbox-query.
func (p *Parser) parseSpatialOrID(typ string) clause {
	line := p.tok.Pos.Line
	p.nextToken() // consume '('

	var c clause
	switch {
	case p.checkIdent("around"):
		c = p.parseAroundClause(line)
	case p.checkIdent("poly"):
		c = p.parsePolyClause(line)
	case p.checkIdent("user"), p.checkIdent("user_i"), p.checkIdent("uid"), p.checkIdent("uid_i"):
		c = p.parseUserClause(line, typ)
	case p.checkIdent("newer"):
		c = p.parseNewerClause(line)
	case p.checkIdent("changed"):
		c = p.parseChangedClause(line)
	case p.checkIdent("area"):
		c = p.parseAreaClause(line)
	case p.checkIdent("pivot"):
		c = p.parsePivotClause(line)
	case token.IsRecurseOperator(p.tok.Type):
		c = p.parseRecurseArrowClause(line)
	case p.checkIdent("r"), p.checkIdent("w"), p.checkIdent("bn"), p.checkIdent("bw"), p.checkIdent("br"):
		c = p.parseRoleRecurseClause(line, typ)
	case p.check(token.INT) || p.check(token.MINUS):
		c = p.parseNumericClause(line, typ)
	default:
		p.addError("unrecognized spatial or id clause")
		p.clearUntilAfter(token.RPAREN)
		return clause{}
	}

	p.expect(token.RPAREN)
	return c
}

func (p *Parser) parseSetSuffix() string {
	if !p.check(token.DOT) {
		return ""
	}
	p.nextToken()
	name := p.tok.Literal
	p.expect(token.IDENT)
	return name
}

func (p *Parser) parseAroundClause(line int) clause {
	p.nextToken() // consume 'around'
	from := orDefault(p.parseSetSuffix(), "_")
	p.expect(token.COLON)
	radius := p.parseNumber()

	attrs := map[string]string{"from": from, "into": "_", "radius": ftoa(radius)}
	if p.check(token.COMMA) {
		p.nextToken()
		lat := p.parseNumber()
		p.expect(token.COMMA)
		lon := p.parseNumber()
		attrs["lat"] = ftoa(lat)
		attrs["lon"] = ftoa(lon)
	}
	return clause{kind: ast.KindAround, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parsePolyClause(line int) clause {
	p.nextToken() // consume 'poly'
	p.expect(token.COLON)
	bounds := p.parseValueLiteral()
	attrs := map[string]string{"bounds": bounds, "into": "_"}
	return clause{kind: ast.KindPolygonQuery, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parseUserClause(line, typ string) clause {
	kw := p.tok.Literal
	p.nextToken() // consume 'user'|'user_i'|'uid'|'uid_i'
	p.expect(token.COLON)

	var values []string
	values = append(values, p.parseValueLiteral())
	for p.check(token.COMMA) {
		p.nextToken()
		values = append(values, p.parseValueLiteral())
	}

	attrKey := map[string]string{"user": "name", "user_i": "name_i", "uid": "uid", "uid_i": "uid_i"}[kw]
	attrs := map[string]string{"type": orDefault(typ, "node"), "into": "_"}
	attrs[attrKey] = joinCSV(values)
	return clause{kind: ast.KindUser, line: line, attrs: attrs}
}

func (p *Parser) parseNewerClause(line int) clause {
	p.nextToken() // consume 'newer'
	p.expect(token.COLON)
	than := p.parseValueLiteral()
	return clause{kind: ast.KindNewer, line: line, attrs: map[string]string{"than": than}}
}

func (p *Parser) parseChangedClause(line int) clause {
	p.nextToken() // consume 'changed'
	attrs := map[string]string{"since": "", "until": "", "into": "_"}
	if p.check(token.COLON) {
		p.nextToken()
		attrs["since"] = p.parseValueLiteral()
		if p.check(token.COMMA) {
			p.nextToken()
			attrs["until"] = p.parseValueLiteral()
		}
	}
	return clause{kind: ast.KindChanged, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parseAreaClause(line int) clause {
	p.nextToken() // consume 'area'
	from := orDefault(p.parseSetSuffix(), "_")
	attrs := map[string]string{"from": from, "into": "_"}
	if p.check(token.COLON) {
		p.nextToken()
		attrs["ref"] = p.parseValueLiteral()
	}
	return clause{kind: ast.KindAreaQuery, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parsePivotClause(line int) clause {
	p.nextToken() // consume 'pivot'
	from := orDefault(p.parseSetSuffix(), "_")
	attrs := map[string]string{"from": from, "into": "_"}
	return clause{kind: ast.KindPivot, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parseRecurseArrowClause(line int) clause {
	kind := bareRecurseKind(p.tok.Type)
	p.nextToken()
	from := orDefault(p.parseSetSuffix(), "_")
	attrs := map[string]string{"type": kind, "from": from, "into": "_"}
	return clause{kind: ast.KindRecurse, line: line, attrs: attrs, needsTypeContext: true}
}

func (p *Parser) parseRoleRecurseClause(line int, typ string) clause {
	flag := p.tok.Literal
	p.nextToken()
	from := orDefault(p.parseSetSuffix(), "_")

	role := ""
	if p.check(token.COLON) {
		p.nextToken()
		role = p.parseKey()
	}

	resolved, err := determineRecurseType(flag, typ)
	if err != nil {
		p.addErrorAt(line, err.Error())
	}
	attrs := map[string]string{"type": resolved, "from": from, "into": "_"}
	if role != "" {
		attrs["role"] = role
	}
	return clause{kind: ast.KindRecurse, line: line, attrs: attrs, needsTypeContext: true}
}

// parseNumericClause reads either a single bare integer (an id-query) or
// four comma-separated numbers in (south,west,north,east) order (a
// bbox-query).
func (p *Parser) parseNumericClause(line int, typ string) clause {
	first := p.parseNumber()
	if !p.check(token.COMMA) {
		attrs := map[string]string{"type": orDefault(typ, "node"), "ref": ftoa(first), "into": "_"}
		return clause{kind: ast.KindIDQuery, line: line, attrs: attrs}
	}

	p.nextToken()
	west := p.parseNumber()
	p.expect(token.COMMA)
	north := p.parseNumber()
	p.expect(token.COMMA)
	east := p.parseNumber()

	attrs := map[string]string{
		"s": ftoa(first), "w": ftoa(west), "n": ftoa(north), "e": ftoa(east), "into": "_",
	}
	return clause{kind: ast.KindBBoxQuery, line: line, attrs: attrs}
}

// reduceQuery implements the query-reduction decision tree: a query with no
// clauses and no input set either resolves to a default global bbox or is a
// static "empty query" error; a query with no clauses but an input set
// becomes a bare item reference, optionally wrapped by type; a query with
// exactly one clause and no input set hoists that clause to the top level
// unless the clause requires a type context; otherwise every clause becomes
// a child of a wrapping query(type) node alongside the input-set item.
func (p *Parser) reduceQuery(line int, typ, from string, clauses []clause, into string) *ast.Node {
	switch {
	case len(clauses) == 0 && from == "":
		if p.allowImplicitBBox && p.globalBBox != nil {
			bb := p.globalBBox
			bboxAttrs := map[string]string{
				"s": ftoa(bb.S), "w": ftoa(bb.W), "n": ftoa(bb.N), "e": ftoa(bb.E), "into": "_",
			}
			q := p.create(ast.KindQuery, line, map[string]string{"type": orDefault(typ, "node"), "into": into})
			_ = q.AddChild(p.create(ast.KindBBoxQuery, line, bboxAttrs))
			return q
		}
		p.addStaticError(line, errEmptyQuery)
		return p.create(ast.KindQuery, line, map[string]string{"type": orDefault(typ, "node"), "into": into})

	case len(clauses) == 0:
		item := p.create(ast.KindItem, line, map[string]string{"set": from})
		if typ == "" {
			return item
		}
		q := p.create(ast.KindQuery, line, map[string]string{"type": typ, "into": into})
		_ = q.AddChild(item)
		return q

	case len(clauses) == 1 && from == "":
		c := clauses[0]
		forced := c.needsTypeContext
		if c.kind == ast.KindBBoxQuery {
			forced = typ != "" && typ != "node"
		}
		if !forced {
			return p.clauseToNode(c, into)
		}
		q := p.create(ast.KindQuery, line, map[string]string{"type": orDefault(typ, "node"), "into": into})
		_ = q.AddChild(p.clauseToNode(c, "_"))
		return q

	default:
		q := p.create(ast.KindQuery, line, map[string]string{"type": orDefault(typ, "node"), "into": into})
		if from != "" {
			_ = q.AddChild(p.create(ast.KindItem, line, map[string]string{"set": from}))
		}
		for _, c := range clauses {
			_ = q.AddChild(p.clauseToNode(c, "_"))
		}
		return q
	}
}

// clauseToNode finalizes a clause into a node, overriding its "into"
// attribute when the clause becomes the statement that owns the result
// (the hoisted single-clause case).
func (p *Parser) clauseToNode(c clause, into string) *ast.Node {
	if _, ok := c.attrs["into"]; ok {
		c.attrs["into"] = into
	}
	return p.create(c.kind, c.line, c.attrs)
}
