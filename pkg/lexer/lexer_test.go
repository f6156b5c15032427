package lexer_test

import (
	"testing"

	"github.com/geoql-project/geoql/pkg/lexer"
	"github.com/geoql-project/geoql/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizePunctuation(t *testing.T) {
	toks := lexer.Tokenize(`( ) [ ] { } ; , . : :: -> + - * / < << > >> ! != ~ !~ =`)

	want := []token.TokenType{
		token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET,
		token.LBRACE, token.RBRACE, token.SEMI, token.COMMA, token.DOT,
		token.COLON, token.DCOLON, token.ARROW, token.PLUS, token.MINUS,
		token.STAR, token.SLASH, token.LT, token.LLT, token.GT, token.GGT,
		token.BANG, token.NE, token.TILDE, token.NTILDE, token.EQ, token.EOF,
	}

	require.Len(t, toks, len(want))
	for i, tt := range want {
		assert.Equal(t, tt, toks[i].Type, "token %d (%q)", i, toks[i].Literal)
	}
}

func TestTokenizeIdentifiersAndSet(t *testing.T) {
	toks := lexer.Tokenize(`node.a->.b`)
	require.Len(t, toks, 7)
	assert.Equal(t, token.IDENT, toks[0].Type)
	assert.Equal(t, "node", toks[0].Literal)
	assert.Equal(t, token.DOT, toks[1].Type)
	assert.Equal(t, token.IDENT, toks[2].Type)
	assert.Equal(t, "a", toks[2].Literal)
	assert.Equal(t, token.ARROW, toks[3].Type)
	assert.Equal(t, token.DOT, toks[4].Type)
}

func TestTokenizeNumbers(t *testing.T) {
	toks := lexer.Tokenize(`1234 50.75 0.1`)
	require.Len(t, toks, 4)
	assert.Equal(t, token.INT, toks[0].Type)
	assert.Equal(t, "1234", toks[0].Literal)
	assert.Equal(t, token.DECIMAL, toks[1].Type)
	assert.Equal(t, "50.75", toks[1].Literal)
	assert.Equal(t, token.DECIMAL, toks[2].Type)
}

func TestTokenizeStrings(t *testing.T) {
	toks := lexer.Tokenize(`"primary" 'it\'s ok'`)
	require.Len(t, toks, 3)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "primary", toks[0].Literal)
	assert.Equal(t, token.STRING, toks[1].Type)
	assert.Equal(t, "it's ok", toks[1].Literal)
}

func TestTokenizeSkipsComments(t *testing.T) {
	toks := lexer.Tokenize("node // a comment\n[amenity] /* block\ncomment */ ;")
	var types []token.TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.LBRACKET, token.IDENT, token.RBRACKET, token.SEMI, token.EOF,
	}, types)
}

func TestLineColTracking(t *testing.T) {
	l := lexer.New("node\n[amenity]")
	tok := l.NextToken() // node
	assert.Equal(t, 1, tok.Pos.Line)
	for tok.Type != token.IDENT || tok.Literal != "amenity" {
		tok = l.NextToken()
	}
	assert.Equal(t, 2, tok.Pos.Line)
}

func TestNextRegex(t *testing.T) {
	l := lexer.New(`~"^primary$"`)
	tilde := l.NextToken()
	require.Equal(t, token.TILDE, tilde.Type)
	re := l.NextRegex()
	assert.Equal(t, token.REGEX, re.Type)
	assert.Equal(t, "^primary$", re.Literal)
}
