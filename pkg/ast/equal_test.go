package ast_test

import (
	"testing"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/stretchr/testify/assert"
)

func TestEqualIgnoresFrozenFlag(t *testing.T) {
	a, _ := ast.Create(ast.KindValueFixed, 1, map[string]string{"v": "1"})
	b, _ := ast.Create(ast.KindValueFixed, 1, map[string]string{"v": "1"})
	b.AddFinalText("")

	assert.True(t, ast.Equal(a, b))
}

func TestEqualDetectsAttrDifference(t *testing.T) {
	a, _ := ast.Create(ast.KindQuery, 1, map[string]string{"type": "node", "into": "_"})
	b, _ := ast.Create(ast.KindQuery, 1, map[string]string{"type": "way", "into": "_"})

	assert.False(t, ast.Equal(a, b))
}

func TestEqualDetectsChildDifference(t *testing.T) {
	a, _ := ast.Create(ast.KindUnion, 1, map[string]string{"into": "_"})
	b, _ := ast.Create(ast.KindUnion, 1, map[string]string{"into": "_"})
	child, _ := ast.Create(ast.KindItem, 1, map[string]string{"set": "_"})
	_ = a.AddChild(child)

	assert.False(t, ast.Equal(a, b))
}

func TestEqualNilHandling(t *testing.T) {
	assert.True(t, ast.Equal(nil, nil))
	n, _ := ast.Create(ast.KindUnion, 1, map[string]string{"into": "_"})
	assert.False(t, ast.Equal(n, nil))
	assert.False(t, ast.Equal(nil, n))
}
