package commands

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/geoql-project/geoql/internal/eval"
)

// renderTable writes records as an aligned terminal table (type, id, mode, tags),
// the CLI's own eyeballing-friendly view distinct from pkg/output's wire
// formats: a query result's columns aren't known ahead of time, so the tag
// column is a single "k=v, k=v" cell rather than one column per key.
func renderTable(w io.Writer, records []eval.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"type", "id", "mode", "tags"})

	tagsWidth := tagsColumnWidth()

	for _, r := range records {
		t.AppendRow(table.Row{
			r.Object.Variant.String(),
			uint64(r.Object.ID),
			r.Mode,
			formatTags(r.Object.Tags(), tagsWidth),
		})
	}

	t.Render()
}

// tagsColumnWidth returns how wide the tags cell may grow before being
// truncated, leaving room for the other three columns on a real terminal;
// unconstrained (0) when stdout isn't one, e.g. when piped to a file.
func tagsColumnWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 40 {
		return 0
	}
	return w - 40
}

func formatTags(tags map[string]string, maxWidth int) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	joined := strings.Join(parts, ", ")
	if maxWidth > 0 && len(joined) > maxWidth {
		return joined[:maxWidth-1] + "…"
	}
	return joined
}
