package memory

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/geoql-project/geoql/pkg/object"
)

// extractDoc mirrors the element list shape pkg/output's JSON writer
// produces, so a query result or a hand-written fixture can be loaded back
// in as a standalone snapshot for the CLI and tests.
type extractDoc struct {
	OSM3S struct {
		TimestampOSMBase string `json:"timestamp_osm_base"`
		TimestampAreas   string `json:"timestamp_areas_base"`
	} `json:"osm3s"`
	Elements []extractElem `json:"elements"`
}

type extractElem struct {
	Type string            `json:"type"`
	ID   uint64            `json:"id"`
	Lat  *float64          `json:"lat,omitempty"`
	Lon  *float64          `json:"lon,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

// LoadJSON populates a new Backend from an OSM-JSON extract file, the
// format this package's companion pkg/output writer produces. Only node
// elements carry a decodable Go struct yet; way/relation elements are
// recorded with their tags but without geometry/member data, since the
// extract format alone doesn't carry the node/member reference lists.
func LoadJSON(r io.Reader) (*Backend, error) {
	var doc extractDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("memory: decode extract: %w", err)
	}

	b := New()
	b.SetSnapshotTimestamps(doc.OSM3S.TimestampOSMBase, doc.OSM3S.TimestampAreas)
	for _, el := range doc.Elements {
		id := object.ID(el.ID)
		tags := object.Tags(el.Tags)
		switch el.Type {
		case "node":
			n := &object.Node{ID: id, Tags: tags}
			if el.Lat != nil && el.Lon != nil {
				n.Pos = object.LatLon{LatE7: int32(*el.Lat * 1e7), LonE7: int32(*el.Lon * 1e7)}
			}
			b.Put(object.Object{Variant: object.VariantNode, ID: id, Node: n})
		case "way":
			b.Put(object.Object{Variant: object.VariantWay, ID: id, Way: &object.Way{ID: id, Tags: tags}})
		case "relation":
			b.Put(object.Object{Variant: object.VariantRelation, ID: id, Relation: &object.Relation{ID: id, Tags: tags}})
		default:
			return nil, fmt.Errorf("memory: unknown element type %q", el.Type)
		}
	}
	return b, nil
}
