package editor

import (
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RootNode is the single top-level container of a document.
type RootNode struct{ ElementHeader }

func (n *RootNode) Kind() Kind { return KindRoot }
func (n *RootNode) Clone() Node {
	return &RootNode{ElementHeader: n.cloneElement()}
}
func (n *RootNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindRoot, Version: 1}
}
func (n *RootNode) RenderHTML(children []*html.Node) []*html.Node { return children }

// ParagraphNode is a block of inline content.
type ParagraphNode struct{ ElementHeader }

func NewParagraph() *ParagraphNode { return &ParagraphNode{} }

func (n *ParagraphNode) Kind() Kind { return KindParagraph }
func (n *ParagraphNode) Clone() Node {
	return &ParagraphNode{ElementHeader: n.cloneElement()}
}
func (n *ParagraphNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindParagraph, Version: 1, Align: n.align}
}
func (n *ParagraphNode) RenderHTML(children []*html.Node) []*html.Node {
	return []*html.Node{newElement(atom.P, alignAttr(n.align), children)}
}

// MaxHeadingLevel is the deepest heading level kept. Deeper levels are
// clamped on import.
const MaxHeadingLevel = 3

// HeadingNode is a block heading of level 1 to MaxHeadingLevel.
type HeadingNode struct {
	ElementHeader
	level int
}

func NewHeading(level int) *HeadingNode { return &HeadingNode{level: clampLevel(level)} }

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > MaxHeadingLevel:
		return MaxHeadingLevel
	}
	return level
}

func (n *HeadingNode) Level() int { return n.level }
func (n *HeadingNode) Kind() Kind { return KindHeading }
func (n *HeadingNode) Clone() Node {
	return &HeadingNode{ElementHeader: n.cloneElement(), level: n.level}
}
func (n *HeadingNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindHeading, Version: 1, Tag: "h" + strconv.Itoa(n.level), Align: n.align}
}
func (n *HeadingNode) RenderHTML(children []*html.Node) []*html.Node {
	a := [...]atom.Atom{atom.H1, atom.H2, atom.H3}[n.level-1]
	return []*html.Node{newElement(a, alignAttr(n.align), children)}
}

// ListType distinguishes bullet and numbered lists.
type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
)

// ListNode holds list items.
type ListNode struct {
	ElementHeader
	listType ListType
	start    int
}

func NewList(t ListType, start int) *ListNode {
	if t != ListNumber {
		t = ListBullet
	}
	if start < 1 {
		start = 1
	}
	return &ListNode{listType: t, start: start}
}

func (n *ListNode) ListType() ListType { return n.listType }
func (n *ListNode) Start() int         { return n.start }
func (n *ListNode) Kind() Kind         { return KindList }
func (n *ListNode) Clone() Node {
	return &ListNode{ElementHeader: n.cloneElement(), listType: n.listType, start: n.start}
}
func (n *ListNode) ExportJSON() SerializedNode {
	tag := "ul"
	if n.listType == ListNumber {
		tag = "ol"
	}
	return SerializedNode{Type: KindList, Version: 1, ListType: n.listType, Start: n.start, Tag: tag}
}
func (n *ListNode) RenderHTML(children []*html.Node) []*html.Node {
	if n.listType == ListNumber {
		var attrs []html.Attribute
		if n.start != 1 {
			attrs = append(attrs, html.Attribute{Key: "start", Val: strconv.Itoa(n.start)})
		}
		return []*html.Node{newElement(atom.Ol, attrs, children)}
	}
	return []*html.Node{newElement(atom.Ul, nil, children)}
}

// ListItemNode is one entry of a list.
type ListItemNode struct{ ElementHeader }

func NewListItem() *ListItemNode { return &ListItemNode{} }

func (n *ListItemNode) Kind() Kind { return KindListItem }
func (n *ListItemNode) Clone() Node {
	return &ListItemNode{ElementHeader: n.cloneElement()}
}
func (n *ListItemNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindListItem, Version: 1}
}
func (n *ListItemNode) RenderHTML(children []*html.Node) []*html.Node {
	return []*html.Node{newElement(atom.Li, nil, children)}
}

// QuoteNode is a block quotation.
type QuoteNode struct{ ElementHeader }

func NewQuote() *QuoteNode { return &QuoteNode{} }

func (n *QuoteNode) Kind() Kind { return KindQuote }
func (n *QuoteNode) Clone() Node {
	return &QuoteNode{ElementHeader: n.cloneElement()}
}
func (n *QuoteNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindQuote, Version: 1, Align: n.align}
}
func (n *QuoteNode) RenderHTML(children []*html.Node) []*html.Node {
	return []*html.Node{newElement(atom.Blockquote, alignAttr(n.align), children)}
}

// LinkNode wraps inline content pointing at a URL.
type LinkNode struct {
	ElementHeader
	url string
}

func NewLink(url string) *LinkNode { return &LinkNode{url: url} }

func (n *LinkNode) URL() string { return n.url }
func (n *LinkNode) Kind() Kind  { return KindLink }
func (n *LinkNode) Clone() Node {
	return &LinkNode{ElementHeader: n.cloneElement(), url: n.url}
}
func (n *LinkNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindLink, Version: 1, URL: n.url}
}
func (n *LinkNode) RenderHTML(children []*html.Node) []*html.Node {
	return []*html.Node{newElement(atom.A, []html.Attribute{{Key: "href", Val: n.url}}, children)}
}

// TextNode is a run of characters sharing one format.
type TextNode struct {
	Header
	text   string
	format TextFormat
}

func NewText(text string) *TextNode { return &TextNode{text: text} }

func NewFormattedText(text string, format TextFormat) *TextNode {
	return &TextNode{text: text, format: format}
}

func (n *TextNode) Text() string       { return n.text }
func (n *TextNode) Format() TextFormat { return n.format }
func (n *TextNode) Kind() Kind         { return KindText }
func (n *TextNode) Clone() Node {
	c := *n
	return &c
}
func (n *TextNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindText, Version: 1, Text: n.text, Format: n.format, Mode: "normal"}
}
func (n *TextNode) RenderHTML([]*html.Node) []*html.Node {
	out := &html.Node{Type: html.TextNode, Data: n.text}
	wrap := []struct {
		f TextFormat
		a atom.Atom
	}{
		{FormatCode, atom.Code},
		{FormatStrikethrough, atom.S},
		{FormatUnderline, atom.U},
		{FormatItalic, atom.Em},
		{FormatBold, atom.Strong},
	}
	for _, w := range wrap {
		if n.format.Has(w.f) {
			out = newElement(w.a, nil, []*html.Node{out})
		}
	}
	return []*html.Node{out}
}

// LineBreakNode is a soft break inside a block.
type LineBreakNode struct{ Header }

func NewLineBreak() *LineBreakNode { return &LineBreakNode{} }

func (n *LineBreakNode) Kind() Kind { return KindLineBreak }
func (n *LineBreakNode) Clone() Node {
	c := *n
	return &c
}
func (n *LineBreakNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindLineBreak, Version: 1}
}
func (n *LineBreakNode) RenderHTML([]*html.Node) []*html.Node {
	return []*html.Node{newElement(atom.Br, nil, nil)}
}

// EmojiNode is an inline emoji glyph. Name is the short code without
// colons.
type EmojiNode struct {
	Header
	glyph string
	name  string
}

func NewEmoji(glyph, name string) *EmojiNode { return &EmojiNode{glyph: glyph, name: name} }

func (n *EmojiNode) Glyph() string { return n.glyph }
func (n *EmojiNode) Name() string  { return n.name }
func (n *EmojiNode) Kind() Kind    { return KindEmoji }
func (n *EmojiNode) Clone() Node {
	c := *n
	return &c
}
func (n *EmojiNode) ExportJSON() SerializedNode {
	return SerializedNode{Type: KindEmoji, Version: 1, Emoji: n.glyph, Name: n.name}
}
func (n *EmojiNode) RenderHTML([]*html.Node) []*html.Node {
	span := newElement(atom.Span, []html.Attribute{
		{Key: "class", Val: "emoji"},
		{Key: "title", Val: ":" + n.name + ":"},
	}, []*html.Node{{Type: html.TextNode, Data: n.glyph}})
	return []*html.Node{span}
}

func newElement(a atom.Atom, attrs []html.Attribute, children []*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func alignAttr(a Align) []html.Attribute {
	if a == AlignNone {
		return nil
	}
	return []html.Attribute{{Key: "style", Val: "text-align: " + string(a)}}
}
