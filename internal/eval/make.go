package eval

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
)

// scalar is a make/convert value expression's runtime value: either a
// number or a string, matching the DSL's dynamically-typed value_expr.
type scalar struct {
	num   float64
	str   string
	isNum bool
}

func numScalar(v float64) scalar { return scalar{num: v, isNum: true} }
func strScalar(v string) scalar { return scalar{str: v} }

func (s scalar) String() string {
	if s.isNum {
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	}
	return s.str
}

// evalMake executes a make/convert statement: once per object currently
// bound to "_" (or once with no source object, when "_" is empty, so an
// aggregate-only make still produces a single synthetic row), evaluating
// every set-tag child's value expression and assembling a synthetic
// object.Object of the requested type.
func (ev *Evaluator) evalMake(n *ast.Node) (*object.Set, error) {
	variant := parseVariant(n.Attrs["type"])
	input := ev.rm.GetSet("_")

	result := object.NewSet()
	nextID := object.ID(1)

	row := func(current object.Object, hasCurrent bool) error {
		tags := object.Tags{}
		var dropKeys []string
		var idOverride *object.ID

		for _, assign := range n.Children {
			switch assign.Attrs["keytype"] {
			case "drop":
				dropKeys = append(dropKeys, assign.Attrs["k"])
				continue
			case "id":
				v, err := ev.evalValueExpr(assign.Children[0], current, hasCurrent)
				if err != nil {
					return err
				}
				id := object.ID(uint64(v.num))
				idOverride = &id
				continue
			}

			key := assign.Attrs["k"]
			if assign.Attrs["keytype"] == "fromtag" && hasCurrent {
				if v, ok := current.Tags().Get(key); ok {
					tags[key] = v
				}
				continue
			}
			v, err := ev.evalValueExpr(assign.Children[0], current, hasCurrent)
			if err != nil {
				return err
			}
			tags[key] = v.String()
		}
		for _, k := range dropKeys {
			delete(tags, k)
		}

		id := nextID
		nextID++
		if idOverride != nil {
			id = *idOverride
		}
		result.Add(newSyntheticObject(variant, id, tags))
		return nil
	}

	if input.Len() == 0 {
		if err := row(object.Object{}, false); err != nil {
			return nil, err
		}
		return ev.account(result)
	}

	var rowErr error
	input.Each(func(o object.Object) {
		if rowErr != nil {
			return
		}
		rowErr = row(o, true)
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return ev.account(result)
}

func newSyntheticObject(v object.Variant, id object.ID, tags object.Tags) object.Object {
	switch v {
	case object.VariantWay:
		return object.Object{Variant: v, ID: id, Way: &object.Way{ID: id, Tags: tags}}
	case object.VariantRelation:
		return object.Object{Variant: v, ID: id, Relation: &object.Relation{ID: id, Tags: tags}}
	case object.VariantArea:
		return object.Object{Variant: v, ID: id, Area: &object.Area{ID: id, Tags: tags}}
	default:
		return object.Object{Variant: object.VariantNode, ID: id, Node: &object.Node{ID: id, Tags: tags}}
	}
}

// evalValueExpr evaluates a make/convert value_expr subtree against the
// current row's source object (if any).
func (ev *Evaluator) evalValueExpr(n *ast.Node, current object.Object, hasCurrent bool) (scalar, error) {
	switch n.Kind {
	case ast.KindValueFixed:
		lit := n.Attrs["v"]
		if f, err := strconv.ParseFloat(lit, 64); err == nil {
			return numScalar(f), nil
		}
		return strScalar(lit), nil
	case ast.KindValueID:
		if hasCurrent {
			return numScalar(float64(current.ID)), nil
		}
		return numScalar(0), nil
	case ast.KindValuePlus, ast.KindValueMinus, ast.KindValueTimes, ast.KindValueDivided:
		a, err := ev.evalValueExpr(n.Children[0], current, hasCurrent)
		if err != nil {
			return scalar{}, err
		}
		b, err := ev.evalValueExpr(n.Children[1], current, hasCurrent)
		if err != nil {
			return scalar{}, err
		}
		if !a.isNum || !b.isNum {
			return scalar{}, fmt.Errorf("arithmetic operator applied to a non-numeric value")
		}
		switch n.Kind {
		case ast.KindValuePlus:
			return numScalar(a.num + b.num), nil
		case ast.KindValueMinus:
			return numScalar(a.num - b.num), nil
		case ast.KindValueTimes:
			return numScalar(a.num * b.num), nil
		default:
			if b.num == 0 {
				return scalar{}, fmt.Errorf("division by zero in value expression")
			}
			return numScalar(a.num / b.num), nil
		}
	case ast.KindValueCount:
		variant := parseVariant(countVariantWord(n.Attrs["type"]))
		s := ev.rm.GetSet(n.Attrs["from"])
		count := 0
		s.Each(func(o object.Object) {
			if o.Variant == variant {
				count++
			}
		})
		return numScalar(float64(count)), nil
	case ast.KindValueUnion, ast.KindValueMin, ast.KindValueMax, ast.KindValueSet:
		return ev.evalAggregate(n, current, hasCurrent)
	case ast.KindValueEval:
		return ev.evalMacroCall(n, current, hasCurrent)
	default:
		return scalar{}, fmt.Errorf("statement kind %q cannot be evaluated as a value expression", n.Kind)
	}
}

// evalAggregate implements the u/min/max/set family: each scans the
// keytype-selected facet (id, type, or a tag key) of every object in the
// aggregate's "from" set (defaulting to the current row when "from" is
// "_" and a row is active), and combines them per the aggregate's kind.
func (ev *Evaluator) evalAggregate(n *ast.Node, current object.Object, hasCurrent bool) (scalar, error) {
	var objs []object.Object
	if n.Attrs["from"] == "_" && hasCurrent {
		objs = []object.Object{current}
	} else {
		ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) { objs = append(objs, o) })
	}

	var values []scalar
	for _, o := range objs {
		switch n.Attrs["keytype"] {
		case "id":
			values = append(values, numScalar(float64(o.ID)))
		case "type":
			values = append(values, strScalar(o.Variant.String()))
		default:
			if v, ok := o.Tags().Get(n.Attrs["k"]); ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					values = append(values, numScalar(f))
				} else {
					values = append(values, strScalar(v))
				}
			}
		}
	}

	switch n.Kind {
	case ast.KindValueSet:
		strs := make([]string, 0, len(values))
		seen := map[string]bool{}
		for _, v := range values {
			s := v.String()
			if !seen[s] {
				seen[s] = true
				strs = append(strs, s)
			}
		}
		sort.Strings(strs)
		joined := ""
		for i, s := range strs {
			if i > 0 {
				joined += ";"
			}
			joined += s
		}
		return strScalar(joined), nil
	case ast.KindValueMin, ast.KindValueMax:
		if len(values) == 0 {
			return numScalar(0), nil
		}
		best := values[0]
		for _, v := range values[1:] {
			if (n.Kind == ast.KindValueMin && less(v, best)) || (n.Kind == ast.KindValueMax && less(best, v)) {
				best = v
			}
		}
		return best, nil
	default: // KindValueUnion
		if len(values) == 0 {
			return strScalar(""), nil
		}
		return values[0], nil
	}
}

// evalMacroCall evaluates a "::eval(name, args...)" value expression: each
// child is evaluated as a value_expr in this row's context, then the
// resulting scalars are handed to the named macro function.
func (ev *Evaluator) evalMacroCall(n *ast.Node, current object.Object, hasCurrent bool) (scalar, error) {
	name := n.Attrs["name"]

	args := make([]any, len(n.Children))
	for i, c := range n.Children {
		v, err := ev.evalValueExpr(c, current, hasCurrent)
		if err != nil {
			return scalar{}, err
		}
		if v.isNum {
			args[i] = v.num
		} else {
			args[i] = v.str
		}
	}

	result, err := ev.macros.Call(name, args)
	if err != nil {
		return scalar{}, fmt.Errorf("eval %q: %w", name, err)
	}
	switch v := result.(type) {
	case float64:
		return numScalar(v), nil
	case bool:
		if v {
			return strScalar("true"), nil
		}
		return strScalar("false"), nil
	case nil:
		return strScalar(""), nil
	default:
		return strScalar(fmt.Sprint(v)), nil
	}
}

// countVariantWord normalizes count()'s bare-KEY argument ("nodes",
// "ways", "relations", "deriveds") to the singular form parseVariant
// expects; an unrecognized word counts nodes, matching count()'s default
// when called with no argument at all.
func countVariantWord(word string) string {
	switch word {
	case "ways":
		return "way"
	case "relations":
		return "relation"
	case "deriveds", "areas":
		return "area"
	default:
		return "node"
	}
}

func less(a, b scalar) bool {
	if a.isNum && b.isNum {
		return a.num < b.num
	}
	return a.String() < b.String()
}
