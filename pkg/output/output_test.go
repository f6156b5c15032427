package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoql-project/geoql/pkg/object"
)

func sampleRows() []Row {
	return []Row{
		{Object: object.Object{Variant: object.VariantNode, ID: 1, Node: &object.Node{
			ID: 1, Pos: object.LatLon{LatE7: 500000000, LonE7: 70000000}, Tags: object.Tags{"amenity": "cafe"},
		}}, Mode: "body"},
	}
}

func TestWriteXMLIncludesTagAndCoordinates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXML, sampleRows(), Timestamps{Base: "2026-01-01T00:00:00Z"}))

	out := buf.String()
	assert.Contains(t, out, `<node id="1"`)
	assert.Contains(t, out, `k="amenity"`)
	assert.Contains(t, out, `osm_base="2026-01-01T00:00:00Z"`)
}

func TestWriteJSONRoundTripsElementFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRows(), Timestamps{Base: "2026-01-01T00:00:00Z"}))

	var decoded jsonDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Elements, 1)
	assert.Equal(t, "node", decoded.Elements[0].Type)
	assert.Equal(t, uint64(1), decoded.Elements[0].ID)
	assert.Equal(t, "cafe", decoded.Elements[0].Tags["amenity"])
}

func TestWriteCSVIncludesUnionOfTagKeysAsColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRows(), Timestamps{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "amenity")
	assert.Contains(t, lines[1], "cafe")
}

func TestWriteUnknownFormatFallsBackToXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Format("bogus"), sampleRows(), Timestamps{}))
	assert.Contains(t, buf.String(), "<node")
}
