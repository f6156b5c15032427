package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/geoql-project/geoql/internal/macro"
	"github.com/geoql-project/geoql/internal/store/memory"
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
	"github.com/geoql-project/geoql/pkg/parser"
)

func newTestEvaluator(t *testing.T, backend *memory.Backend) *Evaluator {
	t.Helper()
	rm := NewResourceManager(NewEnvironment(), Budget{})
	return New(context.Background(), backend, rm)
}

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, err := parser.Parse(src)
	require.NoError(t, err)
	return root
}

func seedNodes(b *memory.Backend) {
	b.Put(object.Object{Variant: object.VariantNode, ID: 1,
		Node: &object.Node{ID: 1, Pos: object.LatLon{LatE7: 500000000, LonE7: 100000000}, Tags: object.Tags{"amenity": "cafe"}}})
	b.Put(object.Object{Variant: object.VariantNode, ID: 2,
		Node: &object.Node{ID: 2, Pos: object.LatLon{LatE7: 510000000, LonE7: 110000000}, Tags: object.Tags{"amenity": "bar"}}})
}

func TestEvalIDQueryResolvesAndAccounts(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, "node(1); out;")

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	require.Len(t, ev.Records, 1)
	assert.Equal(t, object.ID(1), ev.Records[0].Object.ID)
	assert.Equal(t, "body", ev.Records[0].Mode)
}

func TestEvalTagFilterNarrowsToMatchingNodes(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, `node[amenity=cafe]; out;`)

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	require.Len(t, ev.Records, 1)
	assert.Equal(t, object.ID(1), ev.Records[0].Object.ID)
}

func TestEvalUnionCombinesAndDedupes(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, "(node(1); node(2); node(1);); out;")

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	assert.Len(t, ev.Records, 2)
}

func TestEvalDifferenceRemovesCommonElements(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, "(node(1); - node(2);); out;")

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	require.Len(t, ev.Records, 1)
	assert.Equal(t, object.ID(1), ev.Records[0].Object.ID)
}

func TestEvalForeachRebindsUnderscorePerElement(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, "(node(1); node(2);); foreach(out;);")

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))
	assert.Len(t, ev.Records, 2)
}

func TestEvalRecurseDownCollectsMembersTransitively(t *testing.T) {
	b := memory.New()
	b.Put(object.Object{Variant: object.VariantNode, ID: 10, Node: &object.Node{ID: 10}})
	b.Put(object.Object{Variant: object.VariantNode, ID: 11, Node: &object.Node{ID: 11}})
	b.Put(object.Object{Variant: object.VariantWay, ID: 20, Way: &object.Way{ID: 20, Nodes: []object.ID{10, 11}}})
	b.Put(object.Object{Variant: object.VariantRelation, ID: 30, Relation: &object.Relation{
		ID: 30, Members: []object.Member{{Variant: object.VariantWay, Ref: 20, Role: "outer"}},
	}})
	b.PutWayNodes(20, []object.ID{10, 11})
	b.PutRelationMembers(30, []object.Member{{Variant: object.VariantWay, Ref: 20, Role: "outer"}})

	root := mustParse(t, "rel(30); >; out;")
	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	ids := map[object.ID]object.Variant{}
	for _, r := range ev.Records {
		ids[r.Object.ID] = r.Object.Variant
	}
	assert.Contains(t, ids, object.ID(30))
	assert.Contains(t, ids, object.ID(20))
	assert.Contains(t, ids, object.ID(10))
	assert.Contains(t, ids, object.ID(11))
}

func TestEvalMakeAssemblesSyntheticObjectPerInputRow(t *testing.T) {
	b := memory.New()
	b.Put(object.Object{Variant: object.VariantNode, ID: 5, Node: &object.Node{ID: 5, Tags: object.Tags{"name": "Cafe Roma"}}})

	root := mustParse(t, `node(5); make poi ::id=id(), name=t["name"]; out;`)
	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	require.Len(t, ev.Records, 1)
	obj := ev.Records[0].Object
	assert.Equal(t, object.ID(5), obj.ID)
	assert.Equal(t, "Cafe Roma", obj.Tags()["name"])
}

func TestEvalMakeCallsRegisteredMacro(t *testing.T) {
	b := memory.New()
	b.Put(object.Object{Variant: object.VariantNode, ID: 5, Node: &object.Node{ID: 5, Tags: object.Tags{"amenity": "cafe"}}})

	root := mustParse(t, `node(5); make poi score=::eval(score, t["amenity"]); out;`)
	ev := newTestEvaluator(t, b)
	ev.SetMacros(macro.NewRegistry(starlark.StringDict{
		"score": starlark.NewBuiltin("score", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			if s, ok := args[0].(starlark.String); ok && string(s) == "cafe" {
				return starlark.Float(10), nil
			}
			return starlark.Float(0), nil
		}),
	}))

	require.NoError(t, ev.Run(root))
	require.Len(t, ev.Records, 1)
	assert.Equal(t, "10", ev.Records[0].Object.Tags()["score"])
}

func TestEvalMakeMacroCallErrorsOnUnknownFunction(t *testing.T) {
	b := memory.New()
	b.Put(object.Object{Variant: object.VariantNode, ID: 5, Node: &object.Node{ID: 5}})

	root := mustParse(t, `node(5); make poi x=::eval(missing); out;`)
	ev := newTestEvaluator(t, b)

	err := ev.Run(root)
	require.Error(t, err)
}

func TestResourceManagerAccountEnforcesElementLimit(t *testing.T) {
	rm := NewResourceManager(NewEnvironment(), Budget{ElementLimit: 1})
	require.NoError(t, rm.Account(1))
	err := rm.Account(1)
	require.Error(t, err)
	var costErr CostError
	assert.ErrorAs(t, err, &costErr)
}

func TestResourceManagerAccountEnforcesTimeout(t *testing.T) {
	base := time.Now()
	restore := now
	now = func() time.Time { return base }
	defer func() { now = restore }()

	rm := NewResourceManager(NewEnvironment(), Budget{MaxTimeout: time.Second})
	require.NoError(t, rm.Account(0))

	now = func() time.Time { return base.Add(2 * time.Second) }
	err := rm.Account(0)
	require.Error(t, err)
}

func TestEvalPolygonQueryKeepsOnlyPointsInside(t *testing.T) {
	b := memory.New()
	b.Put(object.Object{Variant: object.VariantNode, ID: 1,
		Node: &object.Node{ID: 1, Pos: object.LatLon{LatE7: 505000000, LonE7: 70500000}}})
	b.Put(object.Object{Variant: object.VariantNode, ID: 2,
		Node: &object.Node{ID: 2, Pos: object.LatLon{LatE7: 600000000, LonE7: 100000000}}})

	root := mustParse(t, `node(poly:"50.0 7.0 50.0 7.2 51.0 7.1"); out;`)
	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))

	require.Len(t, ev.Records, 1)
	assert.Equal(t, object.ID(1), ev.Records[0].Object.ID)
}

func TestEvalOutputAppliesLimit(t *testing.T) {
	b := memory.New()
	seedNodes(b)
	root := mustParse(t, "(node(1); node(2);); out 1;")

	ev := newTestEvaluator(t, b)
	require.NoError(t, ev.Run(root))
	assert.Len(t, ev.Records, 1)
}
