package commands

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/parser"
)

// NewParseCommand dumps a query's parsed statement tree instead of
// evaluating it, in one of three render modes mirroring the original's
// parse_and_dump_{xml,compact,pretty}_from_map_ql diagnostics.
func NewParseCommand() *cobra.Command {
	var mode string
	var input string

	cmd := &cobra.Command{
		Use:   "parse [DSL]",
		Short: "Parse a query and dump its statement tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readQuerySource(args, input)
			if err != nil {
				return err
			}
			root, err := parser.Parse(src)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			switch mode {
			case "compact":
				fmt.Fprintln(cmd.OutOrStdout(), dumpCompact(root))
			case "pretty":
				dumpPretty(cmd.OutOrStdout(), root, 0)
			default:
				return dumpXML(cmd.OutOrStdout(), root)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "xml", "render mode: xml|compact|pretty")
	cmd.Flags().StringVarP(&input, "input", "i", "", "read DSL text from a file instead of the first argument")
	return cmd
}

// treeNode is the XML-serializable mirror of an ast.Node, since ast.Node
// itself carries unexported state (the frozen flag) xml.Marshal can't see.
type treeNode struct {
	XMLName  xml.Name
	Line     int        `xml:"line,attr"`
	Attrs    []xmlAttr  `xml:"attr,omitempty"`
	Text     string     `xml:",chardata"`
	Children []treeNode `xml:",any"`
}

type xmlAttr struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

func toTreeNode(n *ast.Node) treeNode {
	t := treeNode{XMLName: xml.Name{Local: string(n.Kind)}, Line: n.Line, Text: n.Text}
	for _, k := range sortedAttrKeys(n.Attrs) {
		t.Attrs = append(t.Attrs, xmlAttr{K: k, V: n.Attrs[k]})
	}
	for _, c := range n.Children {
		t.Children = append(t.Children, toTreeNode(c))
	}
	return t
}

func dumpXML(w io.Writer, root *ast.Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toTreeNode(root)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// compactNode is the one-line-per-node JSON mirror used by "compact" mode.
type compactNode struct {
	Kind     string            `json:"kind"`
	Line     int               `json:"line,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []compactNode     `json:"children,omitempty"`
}

func toCompactNode(n *ast.Node) compactNode {
	c := compactNode{Kind: string(n.Kind), Line: n.Line, Attrs: n.Attrs}
	for _, ch := range n.Children {
		c.Children = append(c.Children, toCompactNode(ch))
	}
	return c
}

func dumpCompact(root *ast.Node) string {
	b, err := json.Marshal(toCompactNode(root))
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func dumpPretty(w io.Writer, n *ast.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	attrs := ""
	for _, k := range sortedAttrKeys(n.Attrs) {
		attrs += fmt.Sprintf(" %s=%q", k, n.Attrs[k])
	}
	fmt.Fprintf(w, "%s%s%s\n", indent, n.Kind, attrs)
	for _, c := range n.Children {
		dumpPretty(w, c, depth+1)
	}
}

func sortedAttrKeys(attrs map[string]string) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
