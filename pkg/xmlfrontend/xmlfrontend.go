// Package xmlfrontend implements the XML front end (C4): an event-driven
// parser consuming an XML surface syntax in which tag `<x line="N" .../>`
// becomes create(x, line, attrs) and nested tags become children, sharing
// C2 (pkg/ast) with the DSL parser so both front ends build the same tree
// shape. Encode is the inverse, serializing a statement tree back to that
// surface syntax; together they support the round-trip property required
// of every DSL input the statement parser accepts.
package xmlfrontend

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/geoql-project/geoql/pkg/ast"
	"github.com/geoql-project/geoql/pkg/errsink"
)

// frame tracks one in-progress element's attrs, children, and text while
// its matching end tag is still pending. Parse keeps a per-call stack of
// frames rather than any package-level state, replacing the process-wide
// statement/text stacks the original XML parser used with a builder object
// scoped to a single parse.
type frame struct {
	kind     ast.Kind
	line     int
	attrs    map[string]string
	children []*ast.Node
	text     []byte
}

type builder struct {
	stack  []*frame
	root   *ast.Node
	errors []error
}

// Parse reads the XML surface syntax from r and returns the statement tree
// it describes. Diagnostics accumulate in the builder; the first one is
// also returned as err for convenience, matching pkg/parser.Parse's return
// contract so callers can treat either front end identically.
func Parse(r io.Reader) (*ast.Node, error) {
	b := &builder{}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.addEncodingError(fmt.Sprintf("malformed XML: %v", err))
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			b.start(t)
		case xml.CharData:
			b.text(t)
		case xml.EndElement:
			b.end(t.Name.Local)
		}
	}

	if len(b.stack) > 0 {
		b.addEncodingError(fmt.Sprintf("unclosed tag %q", b.stack[len(b.stack)-1].kind))
	}
	if b.root == nil && len(b.errors) == 0 {
		b.addEncodingError("empty XML document")
	}
	if b.root != nil {
		if err := ast.CheckDepth(b.root, b.root.Line); err != nil {
			b.errors = append(b.errors, err)
		}
	}

	if len(b.errors) > 0 {
		return b.root, b.errors[0]
	}
	return b.root, nil
}

// ParseString is a convenience wrapper over Parse for literal XML text.
func ParseString(src string) (*ast.Node, error) {
	return Parse(strings.NewReader(src))
}

func (b *builder) addEncodingError(msg string) {
	b.errors = append(b.errors, errsink.Diagnostic{Kind: errsink.Encoding, Severity: errsink.SeverityError, Message: msg})
}

func (b *builder) start(se xml.StartElement) {
	if len(b.stack) == 0 && b.root != nil {
		b.addEncodingError("XML document must have exactly one root element")
	}

	fr := &frame{kind: ast.Kind(se.Name.Local), attrs: map[string]string{}}
	for _, a := range se.Attr {
		if a.Name.Local == "line" {
			if n, err := strconv.Atoi(a.Value); err == nil {
				fr.line = n
			}
			continue
		}
		fr.attrs[a.Name.Local] = a.Value
	}
	b.stack = append(b.stack, fr)
}

func (b *builder) text(cd xml.CharData) {
	if len(b.stack) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1]
	top.text = append(top.text, cd...)
}

func (b *builder) end(name string) {
	if len(b.stack) == 0 {
		b.addEncodingError(fmt.Sprintf("unmatched closing tag %q", name))
		return
	}
	fr := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	if string(fr.kind) != name {
		b.addEncodingError(fmt.Sprintf("mismatched closing tag: expected %q, got %q", fr.kind, name))
	}

	node, err := ast.Create(fr.kind, fr.line, fr.attrs)
	if err != nil {
		b.errors = append(b.errors, err)
		node = &ast.Node{Kind: fr.kind, Line: fr.line, Attrs: fr.attrs}
	}
	for _, c := range fr.children {
		_ = node.AddChild(c)
	}
	if len(fr.text) > 0 {
		node.AddFinalText(string(fr.text))
	}

	if len(b.stack) == 0 {
		b.root = node
		return
	}
	parent := b.stack[len(b.stack)-1]
	parent.children = append(parent.children, node)
}

// Encode serializes root to the XML surface syntax Parse accepts: one
// element per statement node, its line and attributes as XML attributes,
// its text body (if any) as character data, and its children as nested
// elements in order.
func Encode(w io.Writer, root *ast.Node) error {
	enc := xml.NewEncoder(w)
	if err := encodeNode(enc, root); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeNode(enc *xml.Encoder, n *ast.Node) error {
	name := xml.Name{Local: string(n.Kind)}
	start := xml.StartElement{Name: name, Attr: attrList(n)}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: name})
}

func attrList(n *ast.Node) []xml.Attr {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]xml.Attr, 0, len(keys)+1)
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "line"}, Value: strconv.Itoa(n.Line)})
	for _, k := range keys {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: k}, Value: n.Attrs[k]})
	}
	return attrs
}

// EncodeString is a convenience wrapper over Encode returning the result
// as a string.
func EncodeString(root *ast.Node) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}
