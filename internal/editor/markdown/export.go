package markdown

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/johnquangdev/notetaker/internal/editor"
)

const listIndent = "    "

// inlineSpecials start Markdown syntax anywhere in a line.
const inlineSpecials = "\\`*_[]<~"

var (
	blockMarker   = regexp.MustCompile(`^[#>+=-]`)
	orderedMarker = regexp.MustCompile(`^\d{1,9}[.)]`)
)

// ExportContext is handed to transformer export functions.
type ExportContext struct {
	v       *editor.View
	p       *Pipeline
	formats []*TextFormatTransformer
}

func (c *ExportContext) View() *editor.View { return c.v }

// Inline exports the inline children of key. Block children are skipped.
func (c *ExportContext) Inline(key editor.NodeKey) string {
	var b strings.Builder
	for _, n := range c.v.Children(key) {
		b.WriteString(c.inlineNode(n))
	}
	return b.String()
}

func (c *ExportContext) inlineNode(n editor.Node) string {
	switch n := n.(type) {
	case *editor.TextNode:
		return c.text(n)
	case *editor.LineBreakNode:
		return "\n"
	}
	for _, t := range c.p.transformers {
		if tm, ok := t.(*TextMatchTransformer); ok && tm.Export != nil {
			if out, ok := tm.Export(c, n); ok {
				return out
			}
		}
	}
	if !c.v.Registry().IsInline(n.Kind()) {
		return ""
	}
	if _, isElement := n.(editor.Element); isElement {
		return c.Inline(n.Key())
	}
	return ""
}

func (c *ExportContext) block(n editor.Node) string {
	for _, t := range c.p.transformers {
		if et, ok := t.(*ElementTransformer); ok && et.Export != nil {
			if out, ok := et.Export(c, n); ok {
				return out
			}
		}
	}
	if _, isElement := n.(editor.Element); isElement {
		return c.Inline(n.Key())
	}
	return c.inlineNode(n)
}

// text wraps a text node in the delimiters of its format. Surrounding
// whitespace stays outside the delimiters.
func (c *ExportContext) text(n *editor.TextNode) string {
	text := n.Text()
	f := n.Format()
	if text == "" {
		return text
	}
	if f.Has(editor.FormatCode) {
		for _, t := range c.formats {
			if t.Format == editor.FormatCode {
				return t.Tag + text + t.Tag
			}
		}
	}
	core := strings.TrimFunc(text, unicode.IsSpace)
	if core == "" {
		return text
	}
	start := strings.Index(text, core)
	lead, trail := text[:start], text[start+len(core):]
	core = c.escape(core, c.atLineStart(n))
	if f == 0 {
		return lead + core + trail
	}

	var opening, closing string
	var applied editor.TextFormat
	for _, t := range c.formats {
		if t.Format == editor.FormatCode || !f.Has(t.Format) || applied&t.Format != 0 {
			continue
		}
		opening += t.Tag
		closing = t.Tag + closing
		applied |= t.Format
	}
	return lead + opening + core + closing + trail
}

func (c *ExportContext) list(l *editor.ListNode, depth int) string {
	indent := strings.Repeat(listIndent, depth)
	var lines []string
	for i, item := range c.v.Children(l.Key()) {
		marker := "- "
		if l.ListType() == editor.ListNumber {
			marker = strconv.Itoa(l.Start()+i) + ". "
		}
		lines = append(lines, indent+marker+c.Inline(item.Key()))
		for _, child := range c.v.Children(item.Key()) {
			if nested, ok := child.(*editor.ListNode); ok {
				lines = append(lines, c.list(nested, depth+1))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Export renders the whole document. Blocks are separated by a blank line
// and empty blocks are left out.
func (p *Pipeline) Export(s *editor.EditorState) string {
	c := p.exportContext(s.View())
	var blocks []string
	for _, n := range c.v.Children(c.v.RootKey()) {
		if out := c.block(n); out != "" {
			blocks = append(blocks, out)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// ExportNode renders a single block or inline node.
func (p *Pipeline) ExportNode(s *editor.EditorState, key editor.NodeKey) string {
	c := p.exportContext(s.View())
	n, ok := c.v.Node(key)
	if !ok {
		return ""
	}
	if c.v.Registry().IsInline(n.Kind()) {
		return c.inlineNode(n)
	}
	return c.block(n)
}

func (p *Pipeline) exportContext(v *editor.View) *ExportContext {
	c := &ExportContext{v: v, p: p}
	for _, t := range p.transformers {
		if ft, ok := t.(*TextFormatTransformer); ok {
			c.formats = append(c.formats, ft)
		}
	}
	return c
}

// escape backslash-escapes characters that the importer would read as
// syntax, including the triggers of text-match transformers that would
// build a node from plain text.
func (c *ExportContext) escape(s string, lineStart bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if strings.IndexByte(inlineSpecials, ch) >= 0 || c.startsMatch(s, i) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	out := b.String()
	if !lineStart {
		return out
	}
	if loc := orderedMarker.FindStringIndex(out); loc != nil {
		return out[:loc[1]-1] + "\\" + out[loc[1]-1:]
	}
	if blockMarker.MatchString(out) {
		return "\\" + out
	}
	return out
}

func (c *ExportContext) startsMatch(s string, i int) bool {
	for _, t := range c.p.transformers {
		tm, ok := t.(*TextMatchTransformer)
		if !ok || tm.Trigger != s[i] || tm.Import == nil || tm.Build == nil {
			continue
		}
		if m := tm.Import.FindStringSubmatch(s[i:]); m != nil {
			if _, ok := tm.Build(m); ok {
				return true
			}
		}
	}
	return false
}

// atLineStart reports whether n opens a line of its block.
func (c *ExportContext) atLineStart(n editor.Node) bool {
	i := c.v.Index(n.Key())
	if i <= 0 {
		return true
	}
	prev := c.v.Children(n.Parent())[i-1]
	return prev.Kind() == editor.KindLineBreak
}
