package editor

import (
	"strings"

	"golang.org/x/net/html"
)

// TextContent returns the plain text of the subtree at key. Blocks are
// separated by a blank line.
func (v *View) TextContent(key NodeKey) string {
	var b strings.Builder
	v.writeText(&b, key)
	return b.String()
}

func (v *View) writeText(b *strings.Builder, key NodeKey) {
	switch n := v.nodes[key].(type) {
	case *TextNode:
		b.WriteString(n.text)
	case *LineBreakNode:
		b.WriteByte('\n')
	case *EmojiNode:
		b.WriteString(n.glyph)
	case Element:
		kids := n.element().children
		for i, c := range kids {
			v.writeText(b, c)
			if i < len(kids)-1 && !v.reg.IsInline(v.nodes[c].Kind()) {
				b.WriteString("\n\n")
			}
		}
	}
}

// TextContent returns the plain text of the whole document.
func TextContent(s *EditorState) string {
	v := s.View()
	return v.TextContent(v.root)
}

// RenderHTML renders the document body as HTML. It does not touch the
// state and may run concurrently with other readers.
func RenderHTML(s *EditorState) (string, error) {
	v := s.View()
	var b strings.Builder
	for _, n := range v.renderNode(v.root) {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func (v *View) renderNode(key NodeKey) []*html.Node {
	n := v.nodes[key]
	var children []*html.Node
	if e, ok := asElement(n); ok {
		for _, c := range e.children {
			children = append(children, v.renderNode(c)...)
		}
	}
	return n.RenderHTML(children)
}
