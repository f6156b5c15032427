// Package store defines the read-only storage-backend contract the
// evaluator queries against: an id-keyed index, a tag index, a spatial
// index over bounding boxes, and the member/reference graph recursion
// walks across. Concrete backends (in-memory, DuckDB, Postgres) live in
// subpackages and are selected through the registry in registry.go.
package store

import (
	"context"

	"github.com/geoql-project/geoql/pkg/object"
)

// BBox is a south/west/north/east bounding box in degrees.
type BBox struct {
	S, W, N, E float64
}

// TagFilter is one evaluated has-kv predicate, already resolved from its
// ast.Node attributes (regex compiled, case-folding decided) so backends
// never see raw DSL text.
type TagFilter struct {
	Key      string // with Regex set, empty means any key matches
	Regex    RegexMatcher
	Absent   bool
	Present  bool
	Value    string
	ValueSet bool
	Negate   bool
	CaseFold bool
}

// RegexMatcher is satisfied by *regexp.Regexp; kept as an interface so the
// store package does not need to import regexp-compiling concerns from the
// evaluator's prepass.
type RegexMatcher interface {
	MatchString(string) bool
}

// Backend is the contract every map-data snapshot storage implementation
// satisfies. All methods are read-only and safe for concurrent use by
// multiple single-threaded query evaluations, matching the concurrency
// model's single-writer/many-readers split.
type Backend interface {
	// Get fetches one object by variant and id.
	Get(ctx context.Context, v object.Variant, id object.ID) (object.Object, bool, error)

	// ScanBBox streams every object of variant v whose geometry intersects
	// bbox, in ascending id order, until fn returns false.
	ScanBBox(ctx context.Context, v object.Variant, bbox BBox, fn func(object.Object) bool) error

	// ScanTag streams every object of variant v matching filter, in
	// ascending id order, until fn returns false.
	ScanTag(ctx context.Context, v object.Variant, filter TagFilter, fn func(object.Object) bool) error

	// ScanAll streams every object of variant v, in ascending id order,
	// until fn returns false. Used when a query has no tag or spatial
	// clause to narrow the scan (e.g. a bare id-query's complement).
	ScanAll(ctx context.Context, v object.Variant, fn func(object.Object) bool) error

	// WayNodes returns the ordered node ids a way references.
	WayNodes(ctx context.Context, id object.ID) ([]object.ID, error)

	// RelationMembers returns a relation's ordered, typed, roled members.
	RelationMembers(ctx context.Context, id object.ID) ([]object.Member, error)

	// NodeParentWays returns the ids of every way that references node id.
	NodeParentWays(ctx context.Context, id object.ID) ([]object.ID, error)

	// MemberParentRelations returns the ids of every relation that
	// references (v, id) as a member.
	MemberParentRelations(ctx context.Context, v object.Variant, id object.ID) ([]object.ID, error)

	// AreaBlocks returns the quadtile block ids covering an area, used by
	// the coord-query/map-to-area spatial lookup.
	AreaBlocks(ctx context.Context, id object.ID) ([]uint64, error)

	// AreasCoveringBlock streams areas whose block set includes block,
	// used to resolve is_in/coord-query without a full scan.
	AreasCoveringBlock(ctx context.Context, block uint64, fn func(object.Object) bool) error

	// SnapshotTimestamp returns the base snapshot's generation time and,
	// for a diff-mode environment, the area (augmentation) timestamp.
	SnapshotTimestamp(ctx context.Context) (base, area string, err error)

	// Close releases any resources (connections, file handles) held by
	// the backend.
	Close() error
}
