package parser_test

import (
	"testing"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioTagFilterAndBBox(t *testing.T) {
	root, err := parser.Parse(`node[amenity=pub](50.7,7.1,50.8,7.2);out;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	query := root.Children[0]
	assert.Equal(t, ast.KindQuery, query.Kind)
	assert.Equal(t, "node", query.Attrs["type"])
	require.Len(t, query.Children, 2)

	hasKV := query.Children[0]
	assert.Equal(t, ast.KindHasKV, hasKV.Kind)
	assert.Equal(t, "amenity", hasKV.Attrs["k"])
	assert.Equal(t, "pub", hasKV.Attrs["v"])
	assert.Equal(t, "eq", hasKV.Attrs["modv"])

	bbox := query.Children[1]
	assert.Equal(t, ast.KindBBoxQuery, bbox.Kind)
	assert.Equal(t, "50.7", bbox.Attrs["s"])
	assert.Equal(t, "7.1", bbox.Attrs["w"])
	assert.Equal(t, "50.8", bbox.Attrs["n"])
	assert.Equal(t, "7.2", bbox.Attrs["e"])

	out := root.Children[1]
	assert.Equal(t, ast.KindOut, out.Kind)
	assert.Equal(t, "_", out.Attrs["from"])
}

func TestScenarioNamedSetOutput(t *testing.T) {
	root, err := parser.Parse(`(node(1);node(2);)->.a; .a out;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	union := root.Children[0]
	assert.Equal(t, ast.KindUnion, union.Kind)
	assert.Equal(t, "a", union.Attrs["into"])
	require.Len(t, union.Children, 2)
	assert.Equal(t, ast.KindIDQuery, union.Children[0].Kind)
	assert.Equal(t, "1", union.Children[0].Attrs["ref"])
	assert.Equal(t, ast.KindIDQuery, union.Children[1].Kind)
	assert.Equal(t, "2", union.Children[1].Attrs["ref"])

	out := root.Children[1]
	assert.Equal(t, ast.KindOut, out.Kind)
	assert.Equal(t, "a", out.Attrs["from"])
}

func TestScenarioCaseInsensitiveRegexTagFilterWithGeomOutput(t *testing.T) {
	root, err := parser.Parse(`way[highway~"^primary$",i];out geom;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	query := root.Children[0]
	require.Len(t, query.Children, 1)
	hasKV := query.Children[0]
	assert.Equal(t, ast.KindHasKV, hasKV.Kind)
	assert.Equal(t, "highway", hasKV.Attrs["k"])
	assert.Equal(t, "^primary$", hasKV.Attrs["regv"])
	assert.Equal(t, "regex", hasKV.Attrs["modv"])
	assert.Equal(t, "i", hasKV.Attrs["case"])

	out := root.Children[1]
	assert.Equal(t, "full", out.Attrs["geometry"])
}

func TestScenarioTransitiveDownRecursion(t *testing.T) {
	root, err := parser.Parse(`rel(1234); >; out;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 3)

	idQuery := root.Children[0]
	assert.Equal(t, ast.KindIDQuery, idQuery.Kind)
	assert.Equal(t, "relation", idQuery.Attrs["type"])
	assert.Equal(t, "1234", idQuery.Attrs["ref"])

	recurse := root.Children[1]
	assert.Equal(t, ast.KindRecurse, recurse.Kind)
	assert.Equal(t, "down", recurse.Attrs["type"])

	assert.Equal(t, ast.KindOut, root.Children[2].Kind)
}

func TestScenarioDifferenceRequiresMatchingVariant(t *testing.T) {
	_, err := parser.Parse(`(way(1); - node(2);)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same variant")
}

func TestScenarioMakeWithIDAndTagRef(t *testing.T) {
	root, err := parser.Parse(`make poi ::id=id(), name=t["name"];`)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)

	makeNode := root.Children[0]
	assert.Equal(t, ast.KindMake, makeNode.Kind)
	assert.Equal(t, "poi", makeNode.Attrs["type"])
	require.Len(t, makeNode.Children, 2)

	idAssign := makeNode.Children[0]
	assert.Equal(t, ast.KindSetTag, idAssign.Kind)
	assert.Equal(t, "id", idAssign.Attrs["keytype"])
	require.Len(t, idAssign.Children, 1)
	assert.Equal(t, ast.KindValueID, idAssign.Children[0].Kind)

	nameAssign := makeNode.Children[1]
	assert.Equal(t, ast.KindSetTag, nameAssign.Kind)
	assert.Equal(t, "name", nameAssign.Attrs["k"])
	require.Len(t, nameAssign.Children, 1)
	assert.Equal(t, ast.KindValueUnion, nameAssign.Children[0].Kind)
	assert.Equal(t, "name", nameAssign.Children[0].Attrs["k"])
}

func TestDifferenceSameVariantParsesCleanly(t *testing.T) {
	root, err := parser.Parse(`(way(1); - way(2););`)
	require.NoError(t, err)
	diff := root.Children[0].Children[0]
	assert.Equal(t, ast.KindDifference, diff.Kind)
}

func TestEmptyQueryWithoutGlobalBBoxIsStaticError(t *testing.T) {
	_, err := parser.Parse(`node;out;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty query")
}

func TestEmptyQueryWithGlobalBBoxResolves(t *testing.T) {
	root, err := parser.Parse(`node;out;`, parser.WithGlobalBBox(true, &parser.BBox{S: 1, W: 2, N: 3, E: 4}))
	require.NoError(t, err)
	query := root.Children[0]
	require.Len(t, query.Children, 1)
	assert.Equal(t, ast.KindBBoxQuery, query.Children[0].Kind)
	assert.Equal(t, "1", query.Children[0].Attrs["s"])
}

func TestValueExprPrecedence(t *testing.T) {
	root, err := parser.Parse(`make x total=2+3*4;`)
	require.NoError(t, err)
	assign := root.Children[0].Children[0]
	require.Len(t, assign.Children, 1)

	sum := assign.Children[0]
	assert.Equal(t, ast.KindValuePlus, sum.Kind)
	require.Len(t, sum.Children, 2)
	assert.Equal(t, ast.KindValueFixed, sum.Children[0].Kind)

	product := sum.Children[1]
	assert.Equal(t, ast.KindValueTimes, product.Kind)
	assert.Equal(t, ast.KindValueFixed, product.Children[0].Kind)
	assert.Equal(t, ast.KindValueFixed, product.Children[1].Kind)
}

func TestUnaryMinusInValueExpr(t *testing.T) {
	root, err := parser.Parse(`make x total=-5;`)
	require.NoError(t, err)
	assign := root.Children[0].Children[0]
	negated := assign.Children[0]
	assert.Equal(t, ast.KindValueMinus, negated.Kind)
	assert.Equal(t, "0", negated.Children[0].Attrs["v"])
	assert.Equal(t, "5", negated.Children[1].Attrs["v"])
}

func TestDepthLimitRejected(t *testing.T) {
	open, close := "", ""
	for i := 0; i < ast.MaxDepth+2; i++ {
		open += "("
		close += ")"
	}
	src := open + "node(1)" + close + ";"
	_, err := parser.Parse(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1023")
}

func TestCountAggregateFuncCall(t *testing.T) {
	root, err := parser.Parse(`make stats total=count(way);`)
	require.NoError(t, err)
	assign := root.Children[0].Children[0]
	count := assign.Children[0]
	assert.Equal(t, ast.KindValueCount, count.Kind)
	assert.Equal(t, "way", count.Attrs["type"])
}

func TestDropTagAssign(t *testing.T) {
	root, err := parser.Parse(`make poi !oldkey;`)
	require.NoError(t, err)
	assign := root.Children[0].Children[0]
	assert.Equal(t, "drop", assign.Attrs["keytype"])
	assert.Equal(t, "oldkey", assign.Attrs["k"])
	assert.Empty(t, assign.Children)
}

func TestRoleRecurseResolvesFromCurrentType(t *testing.T) {
	root, err := parser.Parse(`way(1)->.w; relation(bw.w);`)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	query := root.Children[1]
	assert.Equal(t, ast.KindQuery, query.Kind)
	recurse := query.Children[0]
	assert.Equal(t, ast.KindRecurse, recurse.Kind)
	assert.Equal(t, "way-relation", recurse.Attrs["type"])
	assert.Equal(t, "w", recurse.Attrs["from"])
}

func TestForeachParsesBody(t *testing.T) {
	root, err := parser.Parse(`foreach.a->.x(node(1);out;);`)
	require.NoError(t, err)
	foreach := root.Children[0]
	assert.Equal(t, ast.KindForeach, foreach.Kind)
	assert.Equal(t, "a", foreach.Attrs["from"])
	assert.Equal(t, "x", foreach.Attrs["into"])
	require.Len(t, foreach.Children, 2)
}

func TestScenarioMakeWithEvalCall(t *testing.T) {
	root, err := parser.Parse(`make poi score=::eval(score, t["amenity"], 2);`)
	require.NoError(t, err)
	makeNode := root.Children[0]
	require.Len(t, makeNode.Children, 1)

	assign := makeNode.Children[0]
	assert.Equal(t, "score", assign.Attrs["k"])
	require.Len(t, assign.Children, 1)

	call := assign.Children[0]
	assert.Equal(t, ast.KindValueEval, call.Kind)
	assert.Equal(t, "score", call.Attrs["name"])
	require.Len(t, call.Children, 2)
	assert.Equal(t, ast.KindValueUnion, call.Children[0].Kind)
	assert.Equal(t, ast.KindValueFixed, call.Children[1].Kind)
	assert.Equal(t, "2", call.Children[1].Attrs["v"])
}
