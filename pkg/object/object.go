// Package object defines the map-data object model: nodes, ways, relations,
// and derived areas, plus the tag and named-set containers the evaluator
// operates on.
package object

import "sort"

// Variant identifies which of the four object kinds a value is.
type Variant int

const (
	VariantNode Variant = iota
	VariantWay
	VariantRelation
	VariantArea
)

// variantOrder fixes the iteration order the spec requires for foreach and
// for rendering: node < way < relation < area.
var variantOrder = [...]Variant{VariantNode, VariantWay, VariantRelation, VariantArea}

func (v Variant) String() string {
	switch v {
	case VariantNode:
		return "node"
	case VariantWay:
		return "way"
	case VariantRelation:
		return "relation"
	case VariantArea:
		return "area"
	default:
		return "unknown"
	}
}

// ID is a 64-bit unsigned object identifier.
type ID uint64

// LatLon is a fixed-point coordinate at 1e-7 degree resolution, matching the
// storage backend's on-disk representation.
type LatLon struct {
	LatE7 int32
	LonE7 int32
}

// Lat returns the latitude in degrees.
func (c LatLon) Lat() float64 { return float64(c.LatE7) / 1e7 }

// Lon returns the longitude in degrees.
func (c LatLon) Lon() float64 { return float64(c.LonE7) / 1e7 }

// Tags is an unordered key→value mapping, unique by key.
type Tags map[string]string

// Get returns the tag value and whether the key is present.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Member is one typed, roled element of a relation.
type Member struct {
	Variant Variant
	Ref     ID
	Role    string
}

// Node is a point object.
type Node struct {
	ID   ID
	Pos  LatLon
	Tags Tags
}

// Way is an ordered sequence of node references.
type Way struct {
	ID    ID
	Nodes []ID
	Tags  Tags
}

// Relation is an ordered sequence of typed, roled members.
type Relation struct {
	ID      ID
	Members []Member
	Tags    Tags
}

// Area is derived from a closed way or relation; it carries the bounding
// quadtile blocks used by the spatial index instead of raw geometry.
type Area struct {
	ID     ID
	Blocks []uint64
	Tags   Tags
}

// Object is any one of the four map-data variants, identified uniformly by
// (Variant, ID) for deduplication and ordering purposes.
type Object struct {
	Variant Variant
	ID      ID

	Node     *Node
	Way      *Way
	Relation *Relation
	Area     *Area
}

// Tags returns the tag map of the underlying object, regardless of variant.
func (o Object) Tags() Tags {
	switch o.Variant {
	case VariantNode:
		if o.Node != nil {
			return o.Node.Tags
		}
	case VariantWay:
		if o.Way != nil {
			return o.Way.Tags
		}
	case VariantRelation:
		if o.Relation != nil {
			return o.Relation.Tags
		}
	case VariantArea:
		if o.Area != nil {
			return o.Area.Tags
		}
	}
	return nil
}

// DiffMark records whether an object was added or deleted relative to a
// prior snapshot, used only when a query is evaluated against a temporal
// difference (the `diff`/`adiff` osm-script modes).
type DiffMark int

const (
	DiffNone DiffMark = iota
	DiffAdded
	DiffDeleted
)

// Set is a partitioned, deduplicated, id-ordered container of objects: one
// of the core data-model types (§3), holding at most one entry per
// (variant, id) pair and iterating ascending by id within each partition.
type Set struct {
	partitions [4]map[ID]Object
	diffs      [4]map[ID]DiffMark
}

// NewSet returns an empty Set.
func NewSet() *Set {
	s := &Set{}
	for i := range s.partitions {
		s.partitions[i] = make(map[ID]Object)
	}
	return s
}

// Add inserts o, deduplicating by (variant, id). A later Add for the same
// key overwrites the stored object (last write wins), matching "unique by
// (variant, id)".
func (s *Set) Add(o Object) {
	s.partitions[o.Variant][o.ID] = o
}

// SetDiff records a diff mark for an object already (or about to be) present
// in the set.
func (s *Set) SetDiff(v Variant, id ID, mark DiffMark) {
	if s.diffs[v] == nil {
		s.diffs[v] = make(map[ID]DiffMark)
	}
	s.diffs[v][id] = mark
}

// Diff returns the diff mark recorded for (variant, id), or DiffNone.
func (s *Set) Diff(v Variant, id ID) DiffMark {
	if s.diffs[v] == nil {
		return DiffNone
	}
	return s.diffs[v][id]
}

// Len returns the total number of objects across all variants.
func (s *Set) Len() int {
	n := 0
	for _, p := range s.partitions {
		n += len(p)
	}
	return n
}

// Has reports whether (variant, id) is present.
func (s *Set) Has(v Variant, id ID) bool {
	_, ok := s.partitions[v][id]
	return ok
}

// Get returns the object at (variant, id), if present.
func (s *Set) Get(v Variant, id ID) (Object, bool) {
	o, ok := s.partitions[v][id]
	return o, ok
}

// IDs returns the ids present in a single variant's partition, ascending.
func (s *Set) IDs(v Variant) []ID {
	ids := make([]ID, 0, len(s.partitions[v]))
	for id := range s.partitions[v] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each calls fn for every object in the set, in variant order
// (node < way < relation < area) and ascending id within each variant,
// matching the iteration-order invariant every evaluator must preserve.
func (s *Set) Each(fn func(Object)) {
	for _, v := range variantOrder {
		for _, id := range s.IDs(v) {
			fn(s.partitions[v][id])
		}
	}
}

// Union returns a new Set containing every object in a or b, deduplicated
// by (variant, id). Child ordering does not affect the result, satisfying
// union(a, b) == union(b, a) and union(a, a) == a.
func Union(sets ...*Set) *Set {
	out := NewSet()
	for _, s := range sets {
		if s == nil {
			continue
		}
		s.Each(func(o Object) { out.Add(o) })
	}
	return out
}

// Difference returns a \ b by (variant, id): difference(a, a) == ∅.
func Difference(a, b *Set) *Set {
	out := NewSet()
	a.Each(func(o Object) {
		if !b.Has(o.Variant, o.ID) {
			out.Add(o)
		}
	})
	return out
}

// Intersect returns the objects present in every one of sets. With zero
// sets it returns an empty Set; with one set it returns a clone of it.
func Intersect(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
	sets[0].Each(func(o Object) {
		for _, s := range sets[1:] {
			if !s.Has(o.Variant, o.ID) {
				return
			}
		}
		out.Add(o)
	})
	return out
}

// Clone returns a shallow copy of s; object values themselves are not
// mutated by evaluation, so sharing them between sets is safe.
func (s *Set) Clone() *Set {
	out := NewSet()
	s.Each(func(o Object) { out.Add(o) })
	for v := range s.diffs {
		for id, mark := range s.diffs[v] {
			out.SetDiff(Variant(v), id, mark)
		}
	}
	return out
}

// Singleton returns a new Set containing exactly o.
func Singleton(o Object) *Set {
	s := NewSet()
	s.Add(o)
	return s
}
