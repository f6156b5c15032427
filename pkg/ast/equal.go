package ast

// Equal reports whether a and b describe the same statement tree: same
// kind, line, attribute map, text body, and children in the same order.
// It deliberately ignores the frozen bookkeeping flag, which records
// parse-time state rather than anything belonging to the tree's shape —
// two trees built by different front ends (the DSL parser never calls
// AddFinalText; the XML front end does whenever a node carries ≠"" text)
// can be Equal without having identical internal flags.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Line != b.Line || a.Text != b.Text {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		if bv, ok := b.Attrs[k]; !ok || bv != v {
			return false
		}
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
