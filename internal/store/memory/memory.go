// Package memory is the in-memory reference implementation of
// store.Backend: a full snapshot held in Go maps, used by tests and by
// the standalone CLI's "load a single extract file" mode.
package memory

import (
	"context"
	"sort"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/pkg/object"
)

func init() {
	store.Register("memory", func(dsn string) (store.Backend, error) {
		return New(), nil
	})
}

// Backend is a mutable, non-concurrent-safe-for-writes snapshot. Populate
// it with Put/PutWayNodes/PutRelationMembers before handing it to an
// evaluator; once queries begin, treat it as read-only.
type Backend struct {
	objects   [4]map[object.ID]object.Object
	wayNodes  map[object.ID][]object.ID
	relMems   map[object.ID][]object.Member
	parentWay map[object.ID][]object.ID            // node id -> way ids referencing it
	parentRel map[object.Variant]map[object.ID][]object.ID // member variant/id -> relation ids
	areaBlock map[object.ID][]uint64
	blockArea map[uint64][]object.ID

	baseTS, areaTS string
}

// New returns an empty Backend.
func New() *Backend {
	b := &Backend{
		wayNodes:  make(map[object.ID][]object.ID),
		relMems:   make(map[object.ID][]object.Member),
		parentWay: make(map[object.ID][]object.ID),
		parentRel: make(map[object.Variant]map[object.ID][]object.ID),
		areaBlock: make(map[object.ID][]uint64),
		blockArea: make(map[uint64][]object.ID),
	}
	for i := range b.objects {
		b.objects[i] = make(map[object.ID]object.Object)
	}
	return b
}

// Put inserts or replaces an object.
func (b *Backend) Put(o object.Object) {
	b.objects[o.Variant][o.ID] = o
}

// PutWayNodes records a way's ordered node references and maintains the
// reverse node->way index used by bn-flag recursion.
func (b *Backend) PutWayNodes(way object.ID, nodes []object.ID) {
	b.wayNodes[way] = nodes
	for _, n := range nodes {
		b.parentWay[n] = append(b.parentWay[n], way)
	}
}

// PutRelationMembers records a relation's ordered members and maintains
// the reverse member->relation index used by r/bw-flag recursion.
func (b *Backend) PutRelationMembers(rel object.ID, members []object.Member) {
	b.relMems[rel] = members
	for _, m := range members {
		if b.parentRel[m.Variant] == nil {
			b.parentRel[m.Variant] = make(map[object.ID][]object.ID)
		}
		b.parentRel[m.Variant][m.Ref] = append(b.parentRel[m.Variant][m.Ref], rel)
	}
}

// PutAreaBlocks records an area's covering quadtile blocks and maintains
// the reverse block->area index used by coord-query/map-to-area.
func (b *Backend) PutAreaBlocks(area object.ID, blocks []uint64) {
	b.areaBlock[area] = blocks
	for _, blk := range blocks {
		b.blockArea[blk] = append(b.blockArea[blk], area)
	}
}

// SetSnapshotTimestamps sets the values returned by SnapshotTimestamp.
func (b *Backend) SetSnapshotTimestamps(base, area string) {
	b.baseTS, b.areaTS = base, area
}

func (b *Backend) Get(_ context.Context, v object.Variant, id object.ID) (object.Object, bool, error) {
	o, ok := b.objects[v][id]
	return o, ok, nil
}

func (b *Backend) sortedIDs(v object.Variant) []object.ID {
	ids := make([]object.ID, 0, len(b.objects[v]))
	for id := range b.objects[v] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Backend) ScanAll(_ context.Context, v object.Variant, fn func(object.Object) bool) error {
	for _, id := range b.sortedIDs(v) {
		if !fn(b.objects[v][id]) {
			break
		}
	}
	return nil
}

func (b *Backend) ScanBBox(_ context.Context, v object.Variant, bbox store.BBox, fn func(object.Object) bool) error {
	for _, id := range b.sortedIDs(v) {
		o := b.objects[v][id]
		pos, ok := representativePoint(o)
		if !ok {
			continue
		}
		if pos.Lat() < bbox.S || pos.Lat() > bbox.N || pos.Lon() < bbox.W || pos.Lon() > bbox.E {
			continue
		}
		if !fn(o) {
			break
		}
	}
	return nil
}

// representativePoint returns a coordinate usable for bbox filtering: a
// node's own position, or nothing for way/relation/area (the real spatial
// index resolves those through their constituent geometry; the in-memory
// backend only needs node-level precision for tests).
func representativePoint(o object.Object) (object.LatLon, bool) {
	if o.Variant == object.VariantNode && o.Node != nil {
		return o.Node.Pos, true
	}
	return object.LatLon{}, false
}

func (b *Backend) ScanTag(_ context.Context, v object.Variant, filter store.TagFilter, fn func(object.Object) bool) error {
	for _, id := range b.sortedIDs(v) {
		o := b.objects[v][id]
		if matchesTagFilter(o.Tags(), filter) {
			if !fn(o) {
				break
			}
		}
	}
	return nil
}

func matchesTagFilter(tags object.Tags, f store.TagFilter) bool {
	if f.Absent {
		_, ok := tags.Get(f.Key)
		return !ok
	}
	if f.Regex != nil {
		for k, v := range tags {
			if f.Key != "" && k != f.Key {
				continue
			}
			match := f.Regex.MatchString(v)
			if f.Negate {
				match = !match
			}
			if match {
				return true
			}
		}
		return false
	}
	v, ok := tags.Get(f.Key)
	if !ok {
		return f.Negate && f.ValueSet
	}
	if f.Present && !f.ValueSet {
		return true
	}
	if f.ValueSet {
		eq := v == f.Value
		if f.Negate {
			return !eq
		}
		return eq
	}
	return true
}

func (b *Backend) WayNodes(_ context.Context, id object.ID) ([]object.ID, error) {
	return b.wayNodes[id], nil
}

func (b *Backend) RelationMembers(_ context.Context, id object.ID) ([]object.Member, error) {
	return b.relMems[id], nil
}

func (b *Backend) NodeParentWays(_ context.Context, id object.ID) ([]object.ID, error) {
	return b.parentWay[id], nil
}

func (b *Backend) MemberParentRelations(_ context.Context, v object.Variant, id object.ID) ([]object.ID, error) {
	return b.parentRel[v][id], nil
}

func (b *Backend) AreaBlocks(_ context.Context, id object.ID) ([]uint64, error) {
	return b.areaBlock[id], nil
}

func (b *Backend) AreasCoveringBlock(_ context.Context, block uint64, fn func(object.Object) bool) error {
	ids := append([]object.ID(nil), b.blockArea[block]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if o, ok := b.objects[object.VariantArea][id]; ok {
			if !fn(o) {
				break
			}
		}
	}
	return nil
}

func (b *Backend) SnapshotTimestamp(_ context.Context) (string, string, error) {
	return b.baseTS, b.areaTS, nil
}

func (b *Backend) Close() error { return nil }
