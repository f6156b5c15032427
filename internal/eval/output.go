package eval

import (
	"io"
	"strconv"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
	"github.com/geoql-project/geoql/pkg/output"
)

// execOut resolves an "out" statement's from-set, applies its bbox/limit
// filters, and appends one Record per surviving object in set order. The
// formatted rendering (XML/JSON/CSV/HTML) is a separate concern layered on
// top of these Records by the output-serialization front end.
func (ev *Evaluator) execOut(n *ast.Node) error {
	from := n.Attrs["from"]
	if from == "" {
		from = "_"
	}
	set := ev.rm.GetSet(from)

	mode := n.Attrs["mode"]
	if mode == "" {
		mode = "body"
	}
	geometry := n.Attrs["geometry"]

	var bbox *store.BBox
	if n.Attrs["s"] != "" {
		bb, err := parseBBox(n.Attrs)
		if err != nil {
			return err
		}
		bbox = &bb
	}

	limit := -1
	if lim, ok := n.Attrs["limit"]; ok {
		v, err := strconv.Atoi(lim)
		if err != nil {
			return err
		}
		limit = v
	}

	// "qt" (quadtile/spatial order) degrades to the set's natural id order:
	// the storage-backend contract exposes objects by id, not by the
	// spatial index's own quadtile ordering. "asc" (id order) already
	// matches Set.Each's iteration order, so both request the same walk.
	emitted := 0
	set.Each(func(o object.Object) {
		if limit >= 0 && emitted >= limit {
			return
		}
		if bbox != nil && !inBBox(o, *bbox) {
			return
		}
		ev.Records = append(ev.Records, Record{Object: o, Mode: mode, Geometry: geometry})
		emitted++
	})
	return nil
}

// Render writes every accumulated Record to w in the requested format,
// framed with the backend's snapshot timestamps.
func (ev *Evaluator) Render(w io.Writer, format output.Format) error {
	base, area := ev.baseTS, ev.areaTS
	if !ev.tokenAcquired {
		var err error
		base, area, err = ev.store.SnapshotTimestamp(ev.ctx)
		if err != nil {
			return err
		}
	}
	rows := make([]output.Row, len(ev.Records))
	for i, r := range ev.Records {
		rows[i] = output.Row{Object: r.Object, Mode: r.Mode, Geometry: r.Geometry}
	}
	return output.Write(w, format, rows, output.Timestamps{Base: base, Area: area})
}

func inBBox(o object.Object, bb store.BBox) bool {
	pos, ok := nodePos(o)
	if !ok {
		return true
	}
	return pos.Lat() >= bb.S && pos.Lat() <= bb.N && pos.Lon() >= bb.W && pos.Lon() <= bb.E
}
