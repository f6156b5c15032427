package parser

import (
	"fmt"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/token"
)

// parseBareRecurse implements the standalone recursion statement:
//
//	recurse := ("<"|"<<"|">"|">>") into?
//
// The implicit input is always the current set "_"; the recurse kind comes
// straight from the operator (down/down-rel/up/up-rel), independent of any
// type context.
func (p *Parser) parseBareRecurse() *ast.Node {
	line := p.tok.Pos.Line
	kind := bareRecurseKind(p.tok.Type)
	p.nextToken()
	into := p.parseInto()

	return p.create(ast.KindRecurse, line, map[string]string{
		"type": kind, "from": "_", "into": into,
	})
}

// bareRecurseKind maps a bare recursion operator to its canonical recurse
// kind, the bottom two rows of the flag × type table in the language spec.
func bareRecurseKind(t token.TokenType) string {
	switch t {
	case token.GT:
		return "down"
	case token.GGT:
		return "down-rel"
	case token.LT:
		return "up"
	case token.LLT:
		return "up-rel"
	default:
		return ""
	}
}

// determineRecurseType resolves the flag × current-type table for the
// role-aware recursion flags usable inside a query clause: r, w, bn, bw, br.
// currentType is "", "node", "way", or "relation" (area never recurses).
func determineRecurseType(flag, currentType string) (string, error) {
	table := map[string]map[string]string{
		"r":  {"node": "relation-node", "way": "relation-way", "relation": "relation-relation"},
		"w":  {"node": "way-node"},
		"bn": {"way": "node-way", "relation": "node-relation"},
		"bw": {"relation": "way-relation"},
		"br": {"relation": "relation-backwards"},
	}
	byType, ok := table[flag]
	if !ok {
		return "", fmt.Errorf("unknown recurse flag %q", flag)
	}
	kind, ok := byType[currentType]
	if !ok {
		return "", fmt.Errorf("recurse flag %q is not valid for type %q", flag, currentType)
	}
	return kind, nil
}
