package commands

import (
	"bytes"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/geoql-project/geoql/internal/eval"
	"github.com/geoql-project/geoql/pkg/object"
)

func TestRenderTableIncludesTypeIDAndTags(t *testing.T) {
	records := []eval.Record{
		{
			Object: object.Object{Variant: object.VariantNode, ID: 1, Node: &object.Node{ID: 1, Tags: object.Tags{"amenity": "cafe"}}},
			Mode:   "body",
		},
	}

	var buf bytes.Buffer
	renderTable(&buf, records)

	out := buf.String()
	assert.Contains(t, out, "node")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "amenity=cafe")
}

func TestFormatTagsSortsKeys(t *testing.T) {
	got := formatTags(map[string]string{"name": "Cafe Roma", "amenity": "cafe"}, 0)
	assert.Equal(t, "amenity=cafe, name=Cafe Roma", got)
}

func TestFormatTagsEmpty(t *testing.T) {
	assert.Equal(t, "", formatTags(nil, 0))
}

func TestFormatTagsTruncatesToMaxWidth(t *testing.T) {
	got := formatTags(map[string]string{"name": "Cafe Roma Ristorante"}, 10)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 10)
	assert.Contains(t, got, "…")
}
