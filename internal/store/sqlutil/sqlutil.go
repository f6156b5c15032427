// Package sqlutil holds the schema and query logic shared by the SQL-backed
// store.Backend implementations (DuckDB, Postgres): both speak the same
// normalized relational shape over database/sql, differing only in driver
// name and positional-parameter syntax.
package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/pkg/object"
)

// Schema is the DDL every SQL backend applies on open. It is intentionally
// portable ANSI SQL (no dialect-specific types) so both DuckDB and Postgres
// accept it unchanged.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (id BIGINT PRIMARY KEY, lat_e7 INTEGER, lon_e7 INTEGER);
CREATE TABLE IF NOT EXISTS node_tags (id BIGINT, key TEXT, value TEXT);
CREATE TABLE IF NOT EXISTS ways (id BIGINT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS way_tags (id BIGINT, key TEXT, value TEXT);
CREATE TABLE IF NOT EXISTS way_nodes (way_id BIGINT, seq INTEGER, node_id BIGINT);
CREATE TABLE IF NOT EXISTS relations (id BIGINT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS relation_tags (id BIGINT, key TEXT, value TEXT);
CREATE TABLE IF NOT EXISTS relation_members (relation_id BIGINT, seq INTEGER, member_variant INTEGER, member_id BIGINT, role TEXT);
CREATE TABLE IF NOT EXISTS areas (id BIGINT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS area_tags (id BIGINT, key TEXT, value TEXT);
CREATE TABLE IF NOT EXISTS area_blocks (area_id BIGINT, block BIGINT);
CREATE TABLE IF NOT EXISTS snapshot_meta (base_ts TEXT, area_ts TEXT);
`

// Placeholder renders the n-th (1-indexed) positional parameter for a
// dialect: "?" for DuckDB, "$1"/"$2"/... for Postgres.
type Placeholder func(n int) string

// QuestionMark is the DuckDB/MySQL-style placeholder.
func QuestionMark(int) string { return "?" }

// Dollar is the Postgres-style placeholder.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

var tableByVariant = [4]struct{ objects, tags string }{
	object.VariantNode:     {"nodes", "node_tags"},
	object.VariantWay:      {"ways", "way_tags"},
	object.VariantRelation: {"relations", "relation_tags"},
	object.VariantArea:     {"areas", "area_tags"},
}

// Backend implements store.Backend over a database/sql connection shared by
// the DuckDB and Postgres driver packages.
type Backend struct {
	db *sql.DB
	ph Placeholder
}

// Open applies Schema to db and returns a Backend that queries it through ph's placeholder style.
func Open(db *sql.DB, ph Placeholder) (*Backend, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("sqlutil: apply schema: %w", err)
	}
	return &Backend{db: db, ph: ph}, nil
}

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Get(ctx context.Context, v object.Variant, id object.ID) (object.Object, bool, error) {
	found := false
	var o object.Object
	err := b.ScanAll(ctx, v, func(cand object.Object) bool {
		if cand.ID == id {
			o, found = cand, true
			return false
		}
		return true
	})
	return o, found, err
}

func (b *Backend) ScanAll(ctx context.Context, v object.Variant, fn func(object.Object) bool) error {
	ids, err := b.idsOf(ctx, v)
	if err != nil {
		return err
	}
	return b.emit(ctx, v, ids, fn)
}

func (b *Backend) ScanBBox(ctx context.Context, v object.Variant, bbox store.BBox, fn func(object.Object) bool) error {
	if v != object.VariantNode {
		// Only nodes carry a coordinate directly; way/relation/area
		// bbox membership is resolved by the evaluator through their
		// constituent node geometry, not by this backend.
		return b.ScanAll(ctx, v, fn)
	}
	q := fmt.Sprintf(`SELECT id FROM nodes WHERE lat_e7 >= %s AND lat_e7 <= %s AND lon_e7 >= %s AND lon_e7 <= %s ORDER BY id`,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4))
	rows, err := b.db.QueryContext(ctx, q,
		int32(bbox.S*1e7), int32(bbox.N*1e7), int32(bbox.W*1e7), int32(bbox.E*1e7))
	if err != nil {
		return fmt.Errorf("sqlutil: scan bbox: %w", err)
	}
	defer rows.Close()

	var ids []object.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, object.ID(id))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return b.emit(ctx, v, ids, fn)
}

func (b *Backend) ScanTag(ctx context.Context, v object.Variant, filter store.TagFilter, fn func(object.Object) bool) error {
	// Regex and negated-absence filters aren't portably expressible in SQL
	// across dialects, so those fall back to a full scan filtered in Go;
	// the common "has key" / "key=value" case stays a single indexed query.
	if filter.Regex != nil || (filter.Negate && !filter.ValueSet) {
		ids, err := b.idsOf(ctx, v)
		if err != nil {
			return err
		}
		return b.emitFiltered(ctx, v, ids, filter, fn)
	}

	tbl := tableByVariant[v].tags
	var (
		q    string
		args []any
	)
	switch {
	case filter.Absent:
		q = fmt.Sprintf(`SELECT o.id FROM %s o WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.id = o.id AND t.key = %s) ORDER BY o.id`,
			tableByVariant[v].objects, tbl, b.ph(1))
		args = []any{filter.Key}
	case filter.ValueSet:
		q = fmt.Sprintf(`SELECT DISTINCT id FROM %s WHERE key = %s AND value %s %s ORDER BY id`,
			tbl, b.ph(1), cmpOp(filter.Negate), b.ph(2))
		args = []any{filter.Key, filter.Value}
	default:
		q = fmt.Sprintf(`SELECT DISTINCT id FROM %s WHERE key = %s ORDER BY id`, tbl, b.ph(1))
		args = []any{filter.Key}
	}

	rows, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlutil: scan tag: %w", err)
	}
	defer rows.Close()

	var ids []object.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, object.ID(id))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return b.emit(ctx, v, ids, fn)
}

func cmpOp(negate bool) string {
	if negate {
		return "!="
	}
	return "="
}

func (b *Backend) idsOf(ctx context.Context, v object.Variant) ([]object.ID, error) {
	q := fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, tableByVariant[v].objects)
	rows, err := b.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlutil: list ids: %w", err)
	}
	defer rows.Close()

	var ids []object.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, object.ID(id))
	}
	return ids, rows.Err()
}

func (b *Backend) emit(ctx context.Context, v object.Variant, ids []object.ID, fn func(object.Object) bool) error {
	for _, id := range ids {
		o, err := b.load(ctx, v, id)
		if err != nil {
			return err
		}
		if !fn(o) {
			return nil
		}
	}
	return nil
}

func (b *Backend) emitFiltered(ctx context.Context, v object.Variant, ids []object.ID, filter store.TagFilter, fn func(object.Object) bool) error {
	for _, id := range ids {
		o, err := b.load(ctx, v, id)
		if err != nil {
			return err
		}
		if MatchesTagFilter(o.Tags(), filter) {
			if !fn(o) {
				return nil
			}
		}
	}
	return nil
}

func (b *Backend) load(ctx context.Context, v object.Variant, id object.ID) (object.Object, error) {
	tags, err := b.loadTags(ctx, v, id)
	if err != nil {
		return object.Object{}, err
	}

	o := object.Object{Variant: v, ID: id}
	switch v {
	case object.VariantNode:
		var latE7, lonE7 int32
		row := b.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT lat_e7, lon_e7 FROM nodes WHERE id = %s`, b.ph(1)), int64(id))
		if err := row.Scan(&latE7, &lonE7); err != nil && err != sql.ErrNoRows {
			return object.Object{}, fmt.Errorf("sqlutil: load node %d: %w", id, err)
		}
		o.Node = &object.Node{ID: id, Pos: object.LatLon{LatE7: latE7, LonE7: lonE7}, Tags: tags}
	case object.VariantWay:
		nodes, err := b.WayNodes(ctx, id)
		if err != nil {
			return object.Object{}, err
		}
		o.Way = &object.Way{ID: id, Nodes: nodes, Tags: tags}
	case object.VariantRelation:
		members, err := b.RelationMembers(ctx, id)
		if err != nil {
			return object.Object{}, err
		}
		o.Relation = &object.Relation{ID: id, Members: members, Tags: tags}
	case object.VariantArea:
		blocks, err := b.AreaBlocks(ctx, id)
		if err != nil {
			return object.Object{}, err
		}
		o.Area = &object.Area{ID: id, Blocks: blocks, Tags: tags}
	}
	return o, nil
}

func (b *Backend) loadTags(ctx context.Context, v object.Variant, id object.ID) (object.Tags, error) {
	tbl := tableByVariant[v].tags
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(`SELECT key, value FROM %s WHERE id = %s`, tbl, b.ph(1)), int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: load tags: %w", err)
	}
	defer rows.Close()

	tags := object.Tags{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		tags[k] = v
	}
	return tags, rows.Err()
}

func (b *Backend) WayNodes(ctx context.Context, id object.ID) ([]object.ID, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT node_id FROM way_nodes WHERE way_id = %s ORDER BY seq`, b.ph(1)), int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: way nodes: %w", err)
	}
	defer rows.Close()

	var nodes []object.ID
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		nodes = append(nodes, object.ID(n))
	}
	return nodes, rows.Err()
}

func (b *Backend) RelationMembers(ctx context.Context, id object.ID) ([]object.Member, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT member_variant, member_id, role FROM relation_members WHERE relation_id = %s ORDER BY seq`, b.ph(1)),
		int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: relation members: %w", err)
	}
	defer rows.Close()

	var members []object.Member
	for rows.Next() {
		var variant int
		var ref int64
		var role string
		if err := rows.Scan(&variant, &ref, &role); err != nil {
			return nil, err
		}
		members = append(members, object.Member{Variant: object.Variant(variant), Ref: object.ID(ref), Role: role})
	}
	return members, rows.Err()
}

func (b *Backend) NodeParentWays(ctx context.Context, id object.ID) ([]object.ID, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT way_id FROM way_nodes WHERE node_id = %s ORDER BY way_id`, b.ph(1)), int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: node parent ways: %w", err)
	}
	defer rows.Close()

	var ways []object.ID
	for rows.Next() {
		var w int64
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		ways = append(ways, object.ID(w))
	}
	return ways, rows.Err()
}

func (b *Backend) MemberParentRelations(ctx context.Context, v object.Variant, id object.ID) ([]object.ID, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT relation_id FROM relation_members WHERE member_variant = %s AND member_id = %s ORDER BY relation_id`,
			b.ph(1), b.ph(2)),
		int(v), int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: member parent relations: %w", err)
	}
	defer rows.Close()

	var rels []object.ID
	for rows.Next() {
		var r int64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		rels = append(rels, object.ID(r))
	}
	return rels, rows.Err()
}

func (b *Backend) AreaBlocks(ctx context.Context, id object.ID) ([]uint64, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT block FROM area_blocks WHERE area_id = %s ORDER BY block`, b.ph(1)), int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlutil: area blocks: %w", err)
	}
	defer rows.Close()

	var blocks []uint64
	for rows.Next() {
		var blk int64
		if err := rows.Scan(&blk); err != nil {
			return nil, err
		}
		blocks = append(blocks, uint64(blk))
	}
	return blocks, rows.Err()
}

func (b *Backend) AreasCoveringBlock(ctx context.Context, block uint64, fn func(object.Object) bool) error {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT area_id FROM area_blocks WHERE block = %s ORDER BY area_id`, b.ph(1)), int64(block))
	if err != nil {
		return fmt.Errorf("sqlutil: areas covering block: %w", err)
	}
	var ids []object.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, object.ID(id))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return b.emit(ctx, object.VariantArea, ids, fn)
}

func (b *Backend) SnapshotTimestamp(ctx context.Context) (string, string, error) {
	var base, area sql.NullString
	row := b.db.QueryRowContext(ctx, `SELECT base_ts, area_ts FROM snapshot_meta LIMIT 1`)
	if err := row.Scan(&base, &area); err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		return "", "", fmt.Errorf("sqlutil: snapshot timestamp: %w", err)
	}
	return base.String, area.String, nil
}

// MatchesTagFilter applies a resolved store.TagFilter against an object's
// tags in Go, used for the filter shapes ScanTag can't push into SQL.
func MatchesTagFilter(tags object.Tags, f store.TagFilter) bool {
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
