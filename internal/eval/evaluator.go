package eval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/geoql-project/geoql/internal/macro"
	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
)

// Record is one formatted query result handed to the output stage: an
// object plus the metadata (mode/geometry) its "out" statement requested.
type Record struct {
	Object   object.Object
	Mode     string
	Geometry string
}

// Evaluator walks a parsed statement tree (C6), executing each node
// against a store.Backend and a ResourceManager-owned environment.
type Evaluator struct {
	ctx     context.Context
	store   store.Backend
	rm      *ResourceManager
	macros  *macro.Registry
	Records []Record

	tokenAcquired bool
	baseTS, areaTS string
}

// New returns an Evaluator ready to execute a parsed program. It has no
// macro functions available until SetMacros is called.
func New(ctx context.Context, backend store.Backend, rm *ResourceManager) *Evaluator {
	return &Evaluator{ctx: ctx, store: backend, rm: rm, macros: macro.NewRegistry(nil)}
}

// SetMacros binds the registry "::eval" calls in this evaluation's
// make/convert value expressions resolve against.
func (ev *Evaluator) SetMacros(r *macro.Registry) {
	ev.macros = r
}

// Run executes every top-level statement of an osm-script root node in
// order, committing each to its own "into" target as it completes.
// Children nested inside union/difference do not consult their own "into":
// they return their result straight to their parent's evaluator. The body
// statements of a foreach are committed to their "into" by evalForeach.
func (ev *Evaluator) Run(root *ast.Node) error {
	if root.Kind != ast.KindOSMScript {
		return fmt.Errorf("expected osm-script root, got %q", root.Kind)
	}
	if err := ev.acquireReadToken(); err != nil {
		return err
	}
	for _, stmt := range root.Children {
		if stmt.Kind == ast.KindOut {
			if err := ev.execOut(stmt); err != nil {
				return err
			}
			continue
		}
		result, err := ev.eval(stmt)
		if err != nil {
			return err
		}
		if into, ok := stmt.Attrs["into"]; ok {
			ev.rm.SwapSet(into, result)
		}
	}
	return nil
}

// acquireReadToken performs the dispatcher read-token handshake's index-open
// cost once per evaluator, sharing the result with any other evaluator
// that starts against the same backend instance concurrently.
func (ev *Evaluator) acquireReadToken() error {
	if ev.tokenAcquired {
		return nil
	}
	type timestamps struct{ base, area string }
	result, err := acquireReadToken(ev.ctx, fmt.Sprintf("%p", ev.store), func() (any, error) {
		base, area, err := ev.store.SnapshotTimestamp(ev.ctx)
		return timestamps{base, area}, err
	})
	if err != nil {
		return err
	}
	ts := result.(timestamps)
	ev.baseTS, ev.areaTS = ts.base, ts.area
	ev.tokenAcquired = true
	return nil
}

// eval dispatches a set-producing statement node to its evaluator and
// returns its result, without touching the environment.
func (ev *Evaluator) eval(n *ast.Node) (*object.Set, error) {
	switch n.Kind {
	case ast.KindUnion:
		return ev.evalUnion(n)
	case ast.KindDifference:
		return ev.evalDifference(n)
	case ast.KindForeach:
		return ev.evalForeach(n)
	case ast.KindQuery:
		return ev.evalQuery(n)
	case ast.KindItem:
		return ev.rm.GetSet(n.Attrs["set"]), nil
	case ast.KindIDQuery:
		return ev.evalIDQuery(n)
	case ast.KindBBoxQuery:
		return ev.evalBBoxQuery(n, object.VariantNode)
	case ast.KindRecurse:
		return ev.evalRecurse(n)
	case ast.KindAround:
		return ev.evalAround(n, object.VariantNode)
	case ast.KindAreaQuery:
		return ev.evalAreaQuery(n)
	case ast.KindPivot:
		return ev.evalPivot(n)
	case ast.KindCoordQuery:
		return ev.evalCoordQuery(n)
	case ast.KindMapToArea:
		return ev.evalMapToArea(n)
	case ast.KindMake, ast.KindConvert:
		return ev.evalMake(n)
	default:
		return nil, fmt.Errorf("statement kind %q cannot be evaluated as a value", n.Kind)
	}
}

// SnapshotTimestamps returns the backend's base/area timestamps as cached
// by the read-token handshake Run performs; callers that need them before
// calling Run should query store.Backend.SnapshotTimestamp directly.
func (ev *Evaluator) SnapshotTimestamps() (base, area string) {
	return ev.baseTS, ev.areaTS
}

// Set returns the named set bound in ev's environment after Run has
// executed, e.g. the "into" target of a make/convert statement driving an
// area-derivation job.
func (ev *Evaluator) Set(name string) *object.Set {
	return ev.rm.GetSet(name)
}

func (ev *Evaluator) account(s *object.Set) (*object.Set, error) {
	if err := ev.rm.Account(s.Len()); err != nil {
		return nil, err
	}
	return s, nil
}

// evalUnion executes every child independently and unions their results;
// order does not affect the outcome (union(a,b) == union(b,a)).
func (ev *Evaluator) evalUnion(n *ast.Node) (*object.Set, error) {
	parts := make([]*object.Set, 0, len(n.Children))
	for _, c := range n.Children {
		s, err := ev.eval(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return ev.account(object.Union(parts...))
}

// evalDifference executes both operands and returns the first minus the
// second; difference(a, a) == ∅.
func (ev *Evaluator) evalDifference(n *ast.Node) (*object.Set, error) {
	if len(n.Children) != 2 {
		return nil, fmt.Errorf("difference requires exactly two operands, got %d", len(n.Children))
	}
	a, err := ev.eval(n.Children[0])
	if err != nil {
		return nil, err
	}
	b, err := ev.eval(n.Children[1])
	if err != nil {
		return nil, err
	}
	return ev.account(object.Difference(a, b))
}

// evalForeach iterates the input set, running the body against "_" rebound
// to each singleton in turn and union-accumulating whatever the body wrote
// to "_" back into the foreach's result. An empty input set is a no-op.
func (ev *Evaluator) evalForeach(n *ast.Node) (*object.Set, error) {
	input := ev.rm.GetSet(n.Attrs["from"])
	result := object.NewSet()

	var iterErr error
	input.Each(func(o object.Object) {
		if iterErr != nil {
			return
		}
		saved := ev.rm.GetSet("_")
		ev.rm.SwapSet("_", object.Singleton(o))

		for _, stmt := range n.Children {
			if stmt.Kind == ast.KindOut {
				if err := ev.execOut(stmt); err != nil {
					iterErr = err
					return
				}
				continue
			}
			s, err := ev.eval(stmt)
			if err != nil {
				iterErr = err
				return
			}
			if into, ok := stmt.Attrs["into"]; ok {
				ev.rm.SwapSet(into, s)
			}
		}

		ev.rm.GetSet("_").Each(func(o object.Object) { result.Add(o) })
		ev.rm.SwapSet("_", saved)
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return ev.account(result)
}

// evalQuery intersects every clause's candidate set (tag filters, spatial
// filters, recursion, or a bare input-set reference) under a shared
// element-variant context.
func (ev *Evaluator) evalQuery(n *ast.Node) (*object.Set, error) {
	variant := parseVariant(n.Attrs["type"])

	if len(n.Children) == 0 {
		return ev.account(object.NewSet())
	}

	results := make([]*object.Set, 0, len(n.Children))
	for _, c := range n.Children {
		s, err := ev.evalClause(c, variant)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return ev.account(object.Intersect(results...))
}

// evalClause evaluates one query child under variant, the type context of
// the enclosing query.
func (ev *Evaluator) evalClause(c *ast.Node, variant object.Variant) (*object.Set, error) {
	switch c.Kind {
	case ast.KindItem:
		return ev.rm.GetSet(c.Attrs["set"]), nil
	case ast.KindHasKV:
		return ev.evalHasKV(c, variant)
	case ast.KindBBoxQuery:
		return ev.evalBBoxQuery(c, variant)
	case ast.KindIDQuery:
		return ev.evalIDQuery(c)
	case ast.KindAround:
		return ev.evalAround(c, variant)
	case ast.KindRecurse:
		return ev.evalRecurse(c)
	case ast.KindAreaQuery:
		return ev.evalAreaQuery(c)
	case ast.KindPivot:
		return ev.evalPivot(c)
	case ast.KindPolygonQuery:
		return ev.evalPolygonQuery(c, variant)
	case ast.KindChanged, ast.KindUser, ast.KindNewer:
		// The storage-backend contract (internal/store.Backend) does not
		// expose a per-object edit log (author, timestamp, changeset), so
		// these temporal/authorship clauses cannot currently narrow a
		// scan; they degrade to "every object of this type" until the
		// backend contract grows a ChangeLog method.
		s := object.NewSet()
		if err := ev.store.ScanAll(ev.ctx, variant, func(o object.Object) bool { s.Add(o); return true }); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("statement kind %q is not a valid query clause", c.Kind)
	}
}

func (ev *Evaluator) evalIDQuery(n *ast.Node) (*object.Set, error) {
	variant := parseVariant(n.Attrs["type"])
	id, err := strconv.ParseUint(n.Attrs["ref"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id-query ref %q: %w", n.Attrs["ref"], err)
	}
	o, ok, err := ev.store.Get(ev.ctx, variant, object.ID(id))
	if err != nil {
		return nil, err
	}
	s := object.NewSet()
	if ok {
		s.Add(o)
	}
	return ev.account(s)
}

func (ev *Evaluator) evalBBoxQuery(n *ast.Node, variant object.Variant) (*object.Set, error) {
	bbox, err := parseBBox(n.Attrs)
	if err != nil {
		return nil, err
	}
	s := object.NewSet()
	if err := ev.store.ScanBBox(ev.ctx, variant, bbox, func(o object.Object) bool { s.Add(o); return true }); err != nil {
		return nil, err
	}
	return s, nil
}

func parseBBox(attrs map[string]string) (store.BBox, error) {
	var bb store.BBox
	var err error
	if bb.S, err = strconv.ParseFloat(attrs["s"], 64); err != nil {
		return bb, err
	}
	if bb.W, err = strconv.ParseFloat(attrs["w"], 64); err != nil {
		return bb, err
	}
	if bb.N, err = strconv.ParseFloat(attrs["n"], 64); err != nil {
		return bb, err
	}
	if bb.E, err = strconv.ParseFloat(attrs["e"], 64); err != nil {
		return bb, err
	}
	return bb, nil
}

func parseVariant(s string) object.Variant {
	switch s {
	case "way":
		return object.VariantWay
	case "relation":
		return object.VariantRelation
	case "area":
		return object.VariantArea
	default:
		return object.VariantNode
	}
}
