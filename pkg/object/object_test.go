package object_test

import (
	"testing"

	"github.com/geoql-project/geoql/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id object.ID) object.Object {
	return object.Object{Variant: object.VariantNode, ID: id, Node: &object.Node{ID: id}}
}

func TestSetDedupByVariantAndID(t *testing.T) {
	s := object.NewSet()
	s.Add(node(5))
	s.Add(node(5))
	s.Add(node(3))
	assert.Equal(t, 2, s.Len())
}

func TestSetIterationAscendingByID(t *testing.T) {
	s := object.NewSet()
	s.Add(node(9))
	s.Add(node(1))
	s.Add(node(4))

	var seen []object.ID
	s.Each(func(o object.Object) { seen = append(seen, o.ID) })
	require.Equal(t, []object.ID{1, 4, 9}, seen)
}

func TestUnionCommutativeAndIdempotent(t *testing.T) {
	a := object.NewSet()
	a.Add(node(1))
	b := object.NewSet()
	b.Add(node(2))

	ab := object.Union(a, b)
	ba := object.Union(b, a)
	assert.Equal(t, ab.IDs(object.VariantNode), ba.IDs(object.VariantNode))

	aa := object.Union(a, a)
	assert.Equal(t, a.IDs(object.VariantNode), aa.IDs(object.VariantNode))
}

func TestDifferenceOfSetWithItselfIsEmpty(t *testing.T) {
	a := object.NewSet()
	a.Add(node(1))
	a.Add(node(2))
	assert.Equal(t, 0, object.Difference(a, a).Len())
}

func TestIntersectKeepsOnlyCommonObjects(t *testing.T) {
	a := object.NewSet()
	a.Add(node(1))
	a.Add(node(2))
	b := object.NewSet()
	b.Add(node(2))
	b.Add(node(3))

	got := object.Intersect(a, b)
	assert.Equal(t, []object.ID{2}, got.IDs(object.VariantNode))
}

func TestVariantOrderInEach(t *testing.T) {
	s := object.NewSet()
	s.Add(object.Object{Variant: object.VariantArea, ID: 1, Area: &object.Area{ID: 1}})
	s.Add(object.Object{Variant: object.VariantNode, ID: 1, Node: &object.Node{ID: 1}})
	s.Add(object.Object{Variant: object.VariantWay, ID: 1, Way: &object.Way{ID: 1}})
	s.Add(object.Object{Variant: object.VariantRelation, ID: 1, Relation: &object.Relation{ID: 1}})

	var order []object.Variant
	s.Each(func(o object.Object) { order = append(order, o.Variant) })
	assert.Equal(t, []object.Variant{
		object.VariantNode, object.VariantWay, object.VariantRelation, object.VariantArea,
	}, order)
}
