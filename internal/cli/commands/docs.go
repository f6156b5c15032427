package commands

import (
	"fmt"
	"html"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/pkg/ast"
)

// NewDocsCommand renders the statement-kind attribute table as Markdown,
// built from an HTML table and converted the same way the project's own
// tooling turns scraped documentation pages into Markdown.
func NewDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Print the statement-kind attribute reference as Markdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			md, err := htmltomarkdown.ConvertString(schemaTableHTML())
			if err != nil {
				return fmt.Errorf("docs: convert table: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(md))
			return err
		},
	}
}

func schemaTableHTML() string {
	var b strings.Builder
	b.WriteString("<h1>geoql statement kinds</h1>\n<table>\n")
	b.WriteString("<tr><th>kind</th><th>required</th><th>optional</th></tr>\n")
	for _, s := range ast.Schemas() {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(string(s.Kind)),
			html.EscapeString(strings.Join(s.Required, ", ")),
			html.EscapeString(strings.Join(s.Optional, ", ")))
	}
	b.WriteString("</table>\n")
	return b.String()
}
