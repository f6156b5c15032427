package parser

import (
	"fmt"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseProgram implements:
//
//	program := setup* ( statement ";" )*
//
// producing a single osm-script root node whose children are the top-level
// statements, matching generic_parse_and_validate_map_ql's behavior of
// accumulating leading `[key:value]` setup blocks into the script's own
// attribute map before parsing the statement list.
func (p *Parser) parseProgram() *ast.Node {
	line := p.tok.Pos.Line
	scriptAttrs := map[string]string{}

	for p.check(token.LBRACKET) {
		p.parseSetup(scriptAttrs)
	}

	root := p.create(ast.KindOSMScript, line, scriptAttrs)

	for !p.check(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			_ = root.AddChild(stmt)
		}
		if !p.expect(token.SEMI) {
			// resynchronize at the next statement boundary
			p.clearUntilAfter(token.SEMI)
		}
		if err := ast.CheckDepth(root, line); err != nil {
			p.errors = append(p.errors, err)
			break
		}
	}

	return root
}

// parseSetup parses one `[key:value(,value)*]` block, folding recognized
// keys into the osm-script attribute map the way the original's
// parse_setup special-cases `out`, `diff`/`adiff`, and `bbox`.
func (p *Parser) parseSetup(attrs map[string]string) {
	p.nextToken() // consume '['
	key := p.tok.Literal
	p.expect(token.IDENT)
	if !p.expect(token.COLON) {
		p.clearUntilAfter(token.RBRACKET)
		return
	}

	var values []string
	values = append(values, p.parseSetupValue())
	for p.check(token.COMMA) {
		p.nextToken()
		values = append(values, p.parseSetupValue())
	}
	p.expect(token.RBRACKET)

	switch key {
	case "maxsize":
		attrs["element-limit"] = values[0]
	case "timeout":
		attrs["timeout"] = values[0]
	case "out":
		attrs["output"] = values[0]
	case "date":
		attrs["date"] = values[0]
	case "diff":
		attrs["from"] = joinCSV(values)
		attrs["augmented"] = "diff"
	case "adiff":
		attrs["from"] = joinCSV(values)
		attrs["augmented"] = "adiff"
	case "bbox":
		attrs["bbox"] = joinCSV(values)
	default:
		attrs[key] = joinCSV(values)
	}
}

func joinCSV(values []string) string {
	out := values[0]
	for _, v := range values[1:] {
		out += "," + v
	}
	return out
}

func (p *Parser) parseSetupValue() string {
	switch p.tok.Type {
	case token.STRING, token.IDENT, token.INT, token.DECIMAL:
		lit := p.tok.Literal
		p.nextToken()
		return lit
	default:
		p.addError(fmt.Sprintf(errUnexpectedToken, p.tok.Type, token.STRING))
		return ""
	}
}

// parseStatement dispatches on the current token, implementing:
//
//	statement := union | foreach | output | make | recurse
//	           | coord_query | map_to_area | query
func (p *Parser) parseStatement() *ast.Node {
	switch {
	case p.check(token.LPAREN):
		return p.parseUnionOrDifference()
	case p.check(token.MINUS):
		// A bare "-" only ever belongs between the two operands of a
		// difference, and parseUnionOrDifference consumes it itself before
		// parsing the subtrahend; reaching it here means it is either a
		// leading "-" on a union's first operand or a "-" outside any
		// union at all. Reject it directly rather than letting it fall
		// through to parseQuery, which would silently consume nothing and
		// leave the "-" to be misread by whatever parses next.
		p.addError(errLeadingMinus)
		p.nextToken()
		return nil
	case p.checkIdent("foreach"):
		return p.parseForeach()
	case p.checkIdent("make"):
		return p.parseMake(ast.KindMake)
	case p.checkIdent("convert"):
		return p.parseMake(ast.KindConvert)
	case token.IsRecurseOperator(p.tok.Type):
		return p.parseBareRecurse()
	case p.checkIdent("is_in"):
		return p.parseCoordQuery()
	case p.checkIdent("map_to_area"):
		return p.parseMapToArea()
	default:
		return p.parseQuery()
	}
}
