// Package output renders evaluated query results to the wire formats a
// client requests: OSM-flavored XML (the historical default), JSON, CSV,
// and a minimal HTML listing for the server's playground page.
package output

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"

	"github.com/geoql-project/geoql/pkg/object"
)

// Row is one object selected for output, annotated with the mode/geometry
// its "out" statement requested.
type Row struct {
	Object   object.Object
	Mode     string // ids | tags | skel | body | meta | quirks | count
	Geometry string // "", full, bounds, center
}

// Timestamps carries the base snapshot generation time and, for a
// diff/adiff-mode query, the area (augmentation) snapshot time. XML and
// JSON render both in their header, HTML renders only Base, and CSV
// renders neither.
type Timestamps struct {
	Base string
	Area string
}

// Format names the supported renderings, matching the CLI/server's
// "--format" surface.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Write renders rows in the requested format to w, framed (except for CSV)
// with ts's header/footer. An unrecognized format falls back to XML, the language's
// historical default output.
func Write(w io.Writer, format Format, rows []Row, ts Timestamps) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rows, ts)
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatHTML:
		return writeHTML(w, rows, ts)
	default:
		return writeXML(w, rows, ts)
	}
}

// --- XML ---

type xmlDoc struct {
	XMLName   xml.Name   `xml:"osm"`
	Version   string     `xml:"version,attr"`
	Generator string     `xml:"generator,attr"`
	Note      xmlNote    `xml:"note"`
	Meta      xmlMeta    `xml:"meta"`
	Elements  []xmlEl    `xml:",any"`
}

type xmlNote struct {
	Text string `xml:",chardata"`
}

type xmlMeta struct {
	OSMBase string `xml:"osm_base,attr"`
	Areas   string `xml:"areas,attr,omitempty"`
}

type xmlEl struct {
	XMLName xml.Name
	ID      uint64   `xml:"id,attr"`
	Lat     *float64 `xml:"lat,attr,omitempty"`
	Lon     *float64 `xml:"lon,attr,omitempty"`
	Tags    []xmlTag `xml:"tag,omitempty"`
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

func writeXML(w io.Writer, rows []Row, ts Timestamps) error {
	doc := xmlDoc{
		Version:   "0.6",
		Generator: "geoql",
		Note:      xmlNote{Text: "The data included in this document is from www.openstreetmap.org. It has approximately the same license as the OpenStreetMap data itself."},
		Meta:      xmlMeta{OSMBase: ts.Base, Areas: ts.Area},
	}
	for _, r := range rows {
		doc.Elements = append(doc.Elements, toXMLElement(r))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLElement(r Row) xmlEl {
	el := xmlEl{XMLName: xml.Name{Local: r.Object.Variant.String()}, ID: uint64(r.Object.ID)}
	if r.Object.Variant == object.VariantNode && r.Object.Node != nil {
		lat, lon := r.Object.Node.Pos.Lat(), r.Object.Node.Pos.Lon()
		el.Lat, el.Lon = &lat, &lon
	}
	if r.Mode != "ids" && r.Mode != "skel" {
		for _, k := range sortedKeys(r.Object.Tags()) {
			el.Tags = append(el.Tags, xmlTag{K: k, V: r.Object.Tags()[k]})
		}
	}
	return el
}

// --- JSON ---

type jsonDoc struct {
	Version   float64    `json:"version"`
	Generator string     `json:"generator"`
	OSM3S     jsonOSM3S  `json:"osm3s"`
	Elements  []jsonElem `json:"elements"`
}

type jsonOSM3S struct {
	TimestampOSMBase string `json:"timestamp_osm_base"`
	TimestampAreas   string `json:"timestamp_areas_base,omitempty"`
}

type jsonElem struct {
	Type string            `json:"type"`
	ID   uint64            `json:"id"`
	Lat  *float64          `json:"lat,omitempty"`
	Lon  *float64          `json:"lon,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

func writeJSON(w io.Writer, rows []Row, ts Timestamps) error {
	doc := jsonDoc{
		Version:   0.6,
		Generator: "geoql",
		OSM3S:     jsonOSM3S{TimestampOSMBase: ts.Base, TimestampAreas: ts.Area},
	}
	for _, r := range rows {
		e := jsonElem{Type: r.Object.Variant.String(), ID: uint64(r.Object.ID)}
		if r.Object.Variant == object.VariantNode && r.Object.Node != nil {
			lat, lon := r.Object.Node.Pos.Lat(), r.Object.Node.Pos.Lon()
			e.Lat, e.Lon = &lat, &lon
		}
		if r.Mode != "ids" && r.Mode != "skel" {
			if tags := r.Object.Tags(); len(tags) > 0 {
				e.Tags = tags
			}
		}
		doc.Elements = append(doc.Elements, e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// --- CSV ---

// writeCSV flattens every distinct tag key seen across rows into its own
// column, following the language's "out csv" mode rather than a fixed
// schema, since the result set's tag keys are not known ahead of time.
func writeCSV(w io.Writer, rows []Row) error {
	keySet := map[string]bool{}
	for _, r := range rows {
		for k := range r.Object.Tags() {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw := csv.NewWriter(w)
	header := append([]string{"@id", "@type"}, keys...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.FormatUint(uint64(r.Object.ID), 10), r.Object.Variant.String())
		tags := r.Object.Tags()
		for _, k := range keys {
			record = append(record, tags[k])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// --- HTML ---

func writeHTML(w io.Writer, rows []Row, ts Timestamps) error {
	if _, err := fmt.Fprintf(w, "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>geoql result</title></head><body>\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<p>base snapshot: %s</p>\n<table border=\"1\">\n<tr><th>type</th><th>id</th><th>tags</th></tr>\n",
		html.EscapeString(ts.Base)); err != nil {
		return err
	}
	for _, r := range rows {
		tagStr := ""
		for _, k := range sortedKeys(r.Object.Tags()) {
			tagStr += fmt.Sprintf("%s=%s; ", html.EscapeString(k), html.EscapeString(r.Object.Tags()[k]))
		}
		if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>\n",
			html.EscapeString(r.Object.Variant.String()), r.Object.ID, tagStr); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</table>\n</body></html>\n")
	return err
}

func sortedKeys(tags object.Tags) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
