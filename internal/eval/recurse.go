package eval

import (
	"fmt"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
)

// ref identifies one (variant, id) graph edge target during recursion.
type ref struct {
	Variant object.Variant
	ID      object.ID
}

// evalRecurse dispatches a recurse node to its canonical kind's traversal.
// "down"/"down-rel"/"up"/"up-rel" (the bare "<"/"<<"/">"/">>" operators)
// are transitive closures, matching the spec's worked scenario where a
// bare ">" over a relation pulls in every member way and node; the
// role-aware flag kinds (way-node, node-way, node-relation, way-relation,
// relation-node, relation-way, relation-relation, relation-backwards) are
// single-level graph steps.
func (ev *Evaluator) evalRecurse(n *ast.Node) (*object.Set, error) {
	from := ev.rm.GetSet(n.Attrs["from"])
	role := n.Attrs["role"]

	switch n.Attrs["type"] {
	case "down", "down-rel":
		return ev.transitiveClosure(from, ev.stepDown)
	case "up", "up-rel":
		return ev.transitiveClosure(from, ev.stepUp)
	case "way-node":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) { return ev.parentWays(o) })
	case "node-way":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) { return ev.wayMemberNodes(o) })
	case "node-relation":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) {
			return ev.relationMembersOfVariant(o, object.VariantNode, role)
		})
	case "way-relation":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) {
			return ev.relationMembersOfVariant(o, object.VariantWay, role)
		})
	case "relation-node":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) { return ev.parentRelations(o, role) })
	case "relation-way":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) { return ev.parentRelations(o, role) })
	case "relation-relation":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) { return ev.parentRelations(o, role) })
	case "relation-backwards":
		return ev.oneLevel(from, func(o object.Object) ([]ref, error) {
			return ev.relationMembersOfVariant(o, object.VariantRelation, role)
		})
	default:
		return nil, fmt.Errorf("unknown recurse type %q", n.Attrs["type"])
	}
}

func (ev *Evaluator) oneLevel(from *object.Set, step func(object.Object) ([]ref, error)) (*object.Set, error) {
	result := object.NewSet()
	var iterErr error
	from.Each(func(o object.Object) {
		if iterErr != nil {
			return
		}
		refs, err := step(o)
		if err != nil {
			iterErr = err
			return
		}
		for _, r := range refs {
			if obj, ok, err := ev.store.Get(ev.ctx, r.Variant, r.ID); err != nil {
				iterErr = err
				return
			} else if ok {
				result.Add(obj)
			}
		}
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return result, nil
}

func (ev *Evaluator) transitiveClosure(from *object.Set, step func(object.Object) ([]ref, error)) (*object.Set, error) {
	result := from.Clone()
	frontier := from.Clone()

	for frontier.Len() > 0 {
		next := object.NewSet()
		var iterErr error
		frontier.Each(func(o object.Object) {
			if iterErr != nil {
				return
			}
			refs, err := step(o)
			if err != nil {
				iterErr = err
				return
			}
			for _, r := range refs {
				if result.Has(r.Variant, r.ID) {
					continue
				}
				obj, ok, err := ev.store.Get(ev.ctx, r.Variant, r.ID)
				if err != nil {
					iterErr = err
					return
				}
				if ok {
					next.Add(obj)
				}
			}
		})
		if iterErr != nil {
			return nil, iterErr
		}
		next.Each(func(o object.Object) { result.Add(o) })
		frontier = next
	}
	return result, nil
}

// stepDown expands a way to its nodes or a relation to its members.
func (ev *Evaluator) stepDown(o object.Object) ([]ref, error) {
	switch o.Variant {
	case object.VariantWay:
		nodes, err := ev.store.WayNodes(ev.ctx, o.ID)
		if err != nil {
			return nil, err
		}
		refs := make([]ref, len(nodes))
		for i, id := range nodes {
			refs[i] = ref{object.VariantNode, id}
		}
		return refs, nil
	case object.VariantRelation:
		members, err := ev.store.RelationMembers(ev.ctx, o.ID)
		if err != nil {
			return nil, err
		}
		refs := make([]ref, len(members))
		for i, m := range members {
			refs[i] = ref{m.Variant, m.Ref}
		}
		return refs, nil
	default:
		return nil, nil
	}
}

// stepUp expands a node to its parent ways and relations, or a way/
// relation to its parent relations.
func (ev *Evaluator) stepUp(o object.Object) ([]ref, error) {
	var refs []ref
	if o.Variant == object.VariantNode {
		ways, err := ev.store.NodeParentWays(ev.ctx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ways {
			refs = append(refs, ref{object.VariantWay, id})
		}
	}
	rels, err := ev.store.MemberParentRelations(ev.ctx, o.Variant, o.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range rels {
		refs = append(refs, ref{object.VariantRelation, id})
	}
	return refs, nil
}

func (ev *Evaluator) parentWays(o object.Object) ([]ref, error) {
	if o.Variant != object.VariantNode {
		return nil, nil
	}
	ways, err := ev.store.NodeParentWays(ev.ctx, o.ID)
	if err != nil {
		return nil, err
	}
	refs := make([]ref, len(ways))
	for i, id := range ways {
		refs[i] = ref{object.VariantWay, id}
	}
	return refs, nil
}

func (ev *Evaluator) wayMemberNodes(o object.Object) ([]ref, error) {
	if o.Variant != object.VariantWay {
		return nil, nil
	}
	nodes, err := ev.store.WayNodes(ev.ctx, o.ID)
	if err != nil {
		return nil, err
	}
	refs := make([]ref, len(nodes))
	for i, id := range nodes {
		refs[i] = ref{object.VariantNode, id}
	}
	return refs, nil
}

func (ev *Evaluator) relationMembersOfVariant(o object.Object, want object.Variant, role string) ([]ref, error) {
	if o.Variant != object.VariantRelation {
		return nil, nil
	}
	members, err := ev.store.RelationMembers(ev.ctx, o.ID)
	if err != nil {
		return nil, err
	}
	var refs []ref
	for _, m := range members {
		if m.Variant != want {
			continue
		}
		if role != "" && m.Role != role {
			continue
		}
		refs = append(refs, ref{m.Variant, m.Ref})
	}
	return refs, nil
}

func (ev *Evaluator) parentRelations(o object.Object, role string) ([]ref, error) {
	rels, err := ev.store.MemberParentRelations(ev.ctx, o.Variant, o.ID)
	if err != nil {
		return nil, err
	}
	var refs []ref
	for _, relID := range rels {
		if role == "" {
			refs = append(refs, ref{object.VariantRelation, relID})
			continue
		}
		members, err := ev.store.RelationMembers(ev.ctx, relID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.Variant == o.Variant && m.Ref == o.ID && m.Role == role {
				refs = append(refs, ref{object.VariantRelation, relID})
				break
			}
		}
	}
	return refs, nil
}
