package scanner

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxSnippetLen caps the text carried by an event.
const maxSnippetLen = 160

// nodeText extracts the text content of a tree-sitter node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// snippet returns the first line of the node text, trimmed and capped.
func snippet(node *sitter.Node, source []byte) string {
	return firstLine(nodeText(node, source))
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) <= maxSnippetLen {
		return text
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// namedChildren returns all named children of node.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// sameNode reports whether two nodes cover the same span.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// lineCount returns the number of lines in source; a trailing newline does
// not start a new line.
func lineCount(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := strings.Count(string(source), "\n")
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}
