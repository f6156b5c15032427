package eval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/object"
)

const earthRadiusMeters = 6371000.0

// evalHasKV resolves a tag_filter clause to a store.TagFilter and scans
// for it. Regex values are compiled here (the design notes' recommended
// up-front compile pass, surfacing bad patterns before any scan begins).
func (ev *Evaluator) evalHasKV(n *ast.Node, variant object.Variant) (*object.Set, error) {
	if n.Attrs["regk"] != "" {
		return nil, fmt.Errorf("regex tag keys are not supported by the storage backend contract: %q", n.Attrs["regk"])
	}

	f := store.TagFilter{Key: n.Attrs["k"]}
	switch n.Attrs["modv"] {
	case "absent":
		f.Absent = true
	case "present":
		f.Present = true
	case "eq":
		f.Value, f.ValueSet = n.Attrs["v"], true
	case "ne":
		f.Value, f.ValueSet, f.Negate = n.Attrs["v"], true, true
	case "regex", "regex-ne":
		pattern := n.Attrs["regv"]
		if n.Attrs["case"] == "i" {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tag filter regex %q: %w", n.Attrs["regv"], err)
		}
		f.Regex = re
		f.Negate = n.Attrs["modv"] == "regex-ne"
	default:
		return nil, fmt.Errorf("unknown has-kv modifier %q", n.Attrs["modv"])
	}

	s := object.NewSet()
	if err := ev.store.ScanTag(ev.ctx, variant, f, func(o object.Object) bool { s.Add(o); return true }); err != nil {
		return nil, err
	}
	return s, nil
}

// evalAround resolves each node in the from-set's position (or an
// explicit lat/lon pair) as a radius-meters search center, and collects
// every variant object within that radius of any center.
func (ev *Evaluator) evalAround(n *ast.Node, variant object.Variant) (*object.Set, error) {
	radius, err := strconv.ParseFloat(n.Attrs["radius"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid around radius %q: %w", n.Attrs["radius"], err)
	}

	var centers []object.LatLon
	if lat, ok := n.Attrs["lat"]; ok && lat != "" {
		latF, _ := strconv.ParseFloat(lat, 64)
		lonF, _ := strconv.ParseFloat(n.Attrs["lon"], 64)
		centers = append(centers, object.LatLon{LatE7: int32(latF * 1e7), LonE7: int32(lonF * 1e7)})
	} else {
		ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) {
			if o.Variant == object.VariantNode && o.Node != nil {
				centers = append(centers, o.Node.Pos)
			}
		})
	}

	result := object.NewSet()
	for _, c := range centers {
		bbox := radiusBBox(c, radius)
		if err := ev.store.ScanBBox(ev.ctx, variant, bbox, func(o object.Object) bool {
			if pos, ok := nodePos(o); ok && haversine(c, pos) <= radius {
				result.Add(o)
			}
			return true
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func nodePos(o object.Object) (object.LatLon, bool) {
	if o.Variant == object.VariantNode && o.Node != nil {
		return o.Node.Pos, true
	}
	return object.LatLon{}, false
}

// radiusBBox bounds a search radius (meters) with a conservative lat/lon
// box, narrowing the backend scan before the exact haversine check.
func radiusBBox(center object.LatLon, radiusMeters float64) store.BBox {
	dLat := (radiusMeters / earthRadiusMeters) * (180 / math.Pi)
	dLon := dLat / math.Max(math.Cos(center.Lat()*math.Pi/180), 0.01)
	return store.BBox{
		S: center.Lat() - dLat, N: center.Lat() + dLat,
		W: center.Lon() - dLon, E: center.Lon() + dLon,
	}
}

func haversine(a, b object.LatLon) float64 {
	lat1, lon1 := a.Lat()*math.Pi/180, a.Lon()*math.Pi/180
	lat2, lon2 := b.Lat()*math.Pi/180, b.Lon()*math.Pi/180
	dLat, dLon := lat2-lat1, lon2-lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// evalPolygonQuery resolves every node inside the polygon named by the
// clause's "bounds" attribute, a space-separated "lat lon lat lon ..."
// literal matching the poly: filter's wire format. Way/relation/area
// membership degrades to "none", since the storage contract only exposes
// a representative node position, not the full geometry a true
// point-in-polygon test against a way or relation would need.
func (ev *Evaluator) evalPolygonQuery(n *ast.Node, variant object.Variant) (*object.Set, error) {
	poly, err := parsePolygon(n.Attrs["bounds"])
	if err != nil {
		return nil, err
	}
	if variant != object.VariantNode {
		return object.NewSet(), nil
	}

	bbox := polygonBBox(poly)
	result := object.NewSet()
	if err := ev.store.ScanBBox(ev.ctx, variant, bbox, func(o object.Object) bool {
		if pos, ok := nodePos(o); ok && pointInPolygon(pos, poly) {
			result.Add(o)
		}
		return true
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func parsePolygon(bounds string) ([]object.LatLon, error) {
	fields := strings.Fields(bounds)
	if len(fields)%2 != 0 || len(fields) < 6 {
		return nil, fmt.Errorf("polygon filter requires at least 3 lat/lon pairs, got %d values", len(fields))
	}
	poly := make([]object.LatLon, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		lat, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid polygon latitude %q: %w", fields[i], err)
		}
		lon, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid polygon longitude %q: %w", fields[i+1], err)
		}
		poly = append(poly, object.LatLon{LatE7: int32(lat * 1e7), LonE7: int32(lon * 1e7)})
	}
	return poly, nil
}

func polygonBBox(poly []object.LatLon) store.BBox {
	bb := store.BBox{S: poly[0].Lat(), N: poly[0].Lat(), W: poly[0].Lon(), E: poly[0].Lon()}
	for _, p := range poly[1:] {
		bb.S, bb.N = math.Min(bb.S, p.Lat()), math.Max(bb.N, p.Lat())
		bb.W, bb.E = math.Min(bb.W, p.Lon()), math.Max(bb.E, p.Lon())
	}
	return bb
}

// pointInPolygon is the standard even-odd ray-casting test.
func pointInPolygon(p object.LatLon, poly []object.LatLon) bool {
	inside := false
	x, y := p.Lon(), p.Lat()
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		xi, yi := poly[i].Lon(), poly[i].Lat()
		xj, yj := poly[j].Lon(), poly[j].Lat()
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// evalAreaQuery resolves every area derived from the from-set, or a single
// area by explicit ref.
func (ev *Evaluator) evalAreaQuery(n *ast.Node) (*object.Set, error) {
	s := object.NewSet()
	if ref, ok := n.Attrs["ref"]; ok {
		id, err := strconv.ParseUint(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid area ref %q: %w", ref, err)
		}
		o, ok, err := ev.store.Get(ev.ctx, object.VariantArea, object.ID(id))
		if err != nil {
			return nil, err
		}
		if ok {
			s.Add(o)
		}
		return s, nil
	}

	ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) {
		if o.Variant == object.VariantArea {
			s.Add(o)
		}
	})
	return s, nil
}

// evalPivot resolves the convex outline of the from-set; since the store
// contract exposes areas rather than raw way/relation geometry, pivot
// degrades to "the areas already present in the from-set".
func (ev *Evaluator) evalPivot(n *ast.Node) (*object.Set, error) {
	s := object.NewSet()
	ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) {
		if o.Variant == object.VariantArea {
			s.Add(o)
		}
	})
	return s, nil
}

// evalCoordQuery resolves the areas containing an explicit coordinate, or
// (when none is given) the areas containing each point of the from-set.
func (ev *Evaluator) evalCoordQuery(n *ast.Node) (*object.Set, error) {
	var points []object.LatLon
	if lat, ok := n.Attrs["lat"]; ok && lat != "" {
		latF, _ := strconv.ParseFloat(lat, 64)
		lonF, _ := strconv.ParseFloat(n.Attrs["lon"], 64)
		points = append(points, object.LatLon{LatE7: int32(latF * 1e7), LonE7: int32(lonF * 1e7)})
	} else {
		ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) {
			if pos, ok := nodePos(o); ok {
				points = append(points, pos)
			}
		})
	}

	result := object.NewSet()
	for _, p := range points {
		block := quadtileBlock(p)
		if err := ev.store.AreasCoveringBlock(ev.ctx, block, func(o object.Object) bool {
			result.Add(o)
			return true
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// evalMapToArea derives one area per object in "_", keyed by the object's
// own id, by looking up the area with that id in the backend.
func (ev *Evaluator) evalMapToArea(n *ast.Node) (*object.Set, error) {
	result := object.NewSet()
	var iterErr error
	ev.rm.GetSet(n.Attrs["from"]).Each(func(o object.Object) {
		if iterErr != nil {
			return
		}
		area, ok, err := ev.store.Get(ev.ctx, object.VariantArea, o.ID)
		if err != nil {
			iterErr = err
			return
		}
		if ok {
			result.Add(area)
		}
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return result, nil
}

// quadtileBlock maps a coordinate to the same block addressing scheme the
// spatial index partitions objects by: a coarse fixed-precision grid cell.
func quadtileBlock(p object.LatLon) uint64 {
	const gridBits = 16
	latIdx := uint64(uint32(p.LatE7+900000000) >> gridBits)
	lonIdx := uint64(uint32(p.LonE7+1800000000) >> gridBits)
	return latIdx<<32 | lonIdx
}
