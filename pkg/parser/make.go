package parser

import (
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseMake implements:
//
//	make := ("make"|"convert") type tag_assign ("," tag_assign)* into?
func (p *Parser) parseMake(kind ast.Kind) *ast.Node {
	line := p.tok.Pos.Line
	p.nextToken() // consume 'make'|'convert'

	typ := ""
	if p.check(token.IDENT) {
		typ = p.tok.Literal
		p.nextToken()
	} else {
		p.addError("expected a result type after make/convert")
	}

	var assigns []*ast.Node
	assigns = append(assigns, p.parseTagAssign())
	for p.check(token.COMMA) {
		p.nextToken()
		assigns = append(assigns, p.parseTagAssign())
	}
	into := p.parseInto()

	node := p.create(kind, line, map[string]string{"type": typ, "into": into})
	for _, a := range assigns {
		if a != nil {
			_ = node.AddChild(a)
		}
	}
	return node
}

// parseTagAssign implements:
//
//	tag_assign := "!" KEY
//	            | ( "::" ( "." IDENT | "id" ) | KEY ) "=" value_expr
func (p *Parser) parseTagAssign() *ast.Node {
	line := p.tok.Pos.Line

	if p.check(token.BANG) {
		p.nextToken()
		key := p.parseKey()
		return p.create(ast.KindSetTag, line, map[string]string{"keytype": "drop", "k": key})
	}

	attrs := map[string]string{}
	if p.check(token.DCOLON) {
		p.nextToken()
		switch {
		case p.check(token.DOT):
			p.nextToken()
			tagKey := p.tok.Literal
			p.expect(token.IDENT)
			attrs["keytype"] = "fromtag"
			attrs["k"] = tagKey
		case p.checkIdent("id"):
			p.nextToken()
			attrs["keytype"] = "id"
		default:
			p.addError("expected \"id\" or \".KEY\" after \"::\"")
		}
	} else {
		attrs["keytype"] = "literal"
		attrs["k"] = p.parseKey()
	}

	p.expect(token.EQ)
	value := p.parseValueExpr()

	node := p.create(ast.KindSetTag, line, attrs)
	_ = node.AddChild(value)
	return node
}

// parseValueExpr implements the two-pass precedence reduction over
// value_expr: a flat left-to-right scan first combining "*"/"/" operands
// (parseTerm), then combining the resulting sums with "+"/"-". Standard
// precedence-climbing recursion produces the identical tree.
func (p *Parser) parseValueExpr() *ast.Node {
	left := p.parseTerm()
	for p.check(token.PLUS) || p.check(token.MINUS) {
		line := p.tok.Pos.Line
		kind := ast.KindValuePlus
		if p.tok.Type == token.MINUS {
			kind = ast.KindValueMinus
		}
		p.nextToken()
		right := p.parseTerm()

		node := p.create(kind, line, map[string]string{})
		_ = node.AddChild(left)
		_ = node.AddChild(right)
		left = node
	}
	return left
}

func (p *Parser) parseTerm() *ast.Node {
	left := p.parseFactor()
	for p.check(token.STAR) || p.check(token.SLASH) {
		line := p.tok.Pos.Line
		kind := ast.KindValueTimes
		if p.tok.Type == token.SLASH {
			kind = ast.KindValueDivided
		}
		p.nextToken()
		right := p.parseFactor()

		node := p.create(kind, line, map[string]string{})
		_ = node.AddChild(left)
		_ = node.AddChild(right)
		left = node
	}
	return left
}

// parseFactor implements:
//
//	factor := "-"? ( NUMBER | STRING | func_call | "(" value_expr ")" )
func (p *Parser) parseFactor() *ast.Node {
	line := p.tok.Pos.Line
	neg := p.match(token.MINUS)

	var node *ast.Node
	switch {
	case p.check(token.INT) || p.check(token.DECIMAL):
		lit := p.tok.Literal
		p.nextToken()
		node = p.create(ast.KindValueFixed, line, map[string]string{"v": lit})
	case p.check(token.STRING):
		lit := p.tok.Literal
		p.nextToken()
		node = p.create(ast.KindValueFixed, line, map[string]string{"v": lit})
	case p.check(token.LPAREN):
		p.nextToken()
		node = p.parseValueExpr()
		p.expect(token.RPAREN)
	case p.checkIdent("t") && p.peek.Type == token.LBRACKET:
		node = p.parseTagRef(line)
	case p.check(token.DCOLON) && p.peek.Type == token.IDENT && p.peek.Literal == "eval":
		node = p.parseEvalCall(line)
	case p.check(token.IDENT):
		node = p.parseFuncCall(line)
	default:
		p.addError("expected a value expression")
		node = p.create(ast.KindValueFixed, line, map[string]string{"v": "0"})
	}

	if neg {
		wrapped := p.create(ast.KindValueMinus, line, map[string]string{})
		_ = wrapped.AddChild(p.create(ast.KindValueFixed, line, map[string]string{"v": "0"}))
		_ = wrapped.AddChild(node)
		return wrapped
	}
	return node
}

// parseEvalCall implements the `::eval(name, value_expr*)` extension: a
// call into a user-registered macro function, looked up by name at
// evaluation time and given the remaining comma-separated value
// expressions as its arguments.
//
//	eval_call := "::" "eval" "(" KEY ("," value_expr)* ")"
func (p *Parser) parseEvalCall(line int) *ast.Node {
	p.nextToken() // consume "::"
	p.nextToken() // consume "eval"
	p.expect(token.LPAREN)

	name := p.parseKey()
	node := p.create(ast.KindValueEval, line, map[string]string{"name": name})

	for p.check(token.COMMA) {
		p.nextToken()
		_ = node.AddChild(p.parseValueExpr())
	}
	p.expect(token.RPAREN)
	return node
}

// parseTagRef implements the `t["KEY"]` sugar used by make/convert value
// expressions to read the current input object's tag value, equivalent to
// the "u" aggregate over that key.
func (p *Parser) parseTagRef(line int) *ast.Node {
	p.nextToken() // consume 't'
	p.expect(token.LBRACKET)
	key := p.parseKey()
	p.expect(token.RBRACKET)
	return p.create(ast.KindValueUnion, line, map[string]string{"from": "_", "keytype": "key", "k": key})
}

// parseFuncCall implements:
//
//	func_call := NAME ("." IDENT)? "(" ( "::" ("id"|"type")? | KEY )? ")"
//
// "id()" yields the current object's own id; "count"/"u"/"min"/"max"/"set"
// are the aggregate functions available to a value expression.
func (p *Parser) parseFuncCall(line int) *ast.Node {
	name := p.tok.Literal
	p.nextToken()
	if p.check(token.DOT) {
		p.nextToken()
		name += "." + p.tok.Literal
		p.expect(token.IDENT)
	}
	p.expect(token.LPAREN)

	argKind, argKey := "", ""
	switch {
	case p.check(token.RPAREN):
	case p.check(token.DCOLON):
		p.nextToken()
		switch {
		case p.checkIdent("id"):
			argKind = "id"
			p.nextToken()
		case p.checkIdent("type"):
			argKind = "type"
			p.nextToken()
		default:
			p.addError("expected \"id\" or \"type\" after \"::\"")
		}
	default:
		argKind = "key"
		argKey = p.parseKey()
	}
	p.expect(token.RPAREN)

	switch name {
	case "id":
		return p.create(ast.KindValueID, line, map[string]string{})
	case "count":
		typ := "node"
		if argKind == "key" {
			typ = argKey
		}
		return p.create(ast.KindValueCount, line, map[string]string{"type": typ, "from": "_"})
	case "u", "min", "max", "set":
		var kind ast.Kind
		switch name {
		case "u":
			kind = ast.KindValueUnion
		case "min":
			kind = ast.KindValueMin
		case "max":
			kind = ast.KindValueMax
		case "set":
			kind = ast.KindValueSet
		}
		attrs := map[string]string{"from": "_"}
		if argKind != "" {
			attrs["keytype"] = argKind
		}
		if argKind == "key" {
			attrs["k"] = argKey
		}
		return p.create(kind, line, attrs)
	default:
		p.addError("unknown value function " + name)
		return p.create(ast.KindValueFixed, line, map[string]string{"v": "0"})
	}
}
