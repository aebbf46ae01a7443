package editor

import (
	"slices"

	"golang.org/x/net/html"
)

// NodeKey identifies a node within one document lineage. Keys are never
// reused, including across undo and redo.
type NodeKey uint64

// Kind is the type tag of a node. It is also the "type" field of the
// serialized form.
type Kind string

const (
	KindRoot      Kind = "root"
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindListItem  Kind = "listitem"
	KindQuote     Kind = "quote"
	KindLink      Kind = "link"
	KindText      Kind = "text"
	KindLineBreak Kind = "linebreak"
	KindEmoji     Kind = "emoji"
	KindImage     Kind = "image"
)

// TextFormat is a bitmask of inline text styles.
type TextFormat uint8

const (
	FormatBold TextFormat = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
)

// Has reports whether every bit of f2 is set in f.
func (f TextFormat) Has(f2 TextFormat) bool { return f&f2 == f2 }

// Align is the horizontal alignment of an element.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Node is one vertex of the document tree. Nodes are immutable once
// committed; all mutation goes through a Tx.
//
// Custom kinds embed Header (leaves) or ElementHeader (containers) and
// register a KindSpec with the Registry.
type Node interface {
	Key() NodeKey
	Kind() Kind
	Parent() NodeKey

	// Clone returns a copy that keeps the key. Children slices must not
	// be shared with the receiver.
	Clone() Node

	// ExportJSON returns the node's own fields. Children are filled in
	// by the serializer.
	ExportJSON() SerializedNode

	// RenderHTML renders the node around its already rendered children.
	RenderHTML(children []*html.Node) []*html.Node

	header() *Header
}

// Header carries the fields every node shares.
type Header struct {
	key    NodeKey
	parent NodeKey
}

func (h *Header) Key() NodeKey    { return h.key }
func (h *Header) Parent() NodeKey { return h.parent }
func (h *Header) header() *Header { return h }

// ElementHeader is the shared part of container nodes.
type ElementHeader struct {
	Header
	children []NodeKey
	align    Align
}

// Children returns the ordered child keys.
func (e *ElementHeader) Children() []NodeKey { return slices.Clone(e.children) }

func (e *ElementHeader) Align() Align { return e.align }

func (e *ElementHeader) element() *ElementHeader { return e }

func (e *ElementHeader) cloneElement() ElementHeader {
	c := *e
	c.children = slices.Clone(e.children)
	return c
}

// Element is implemented by every node that owns children.
type Element interface {
	Node
	Children() []NodeKey
	Align() Align
	element() *ElementHeader
}

func asElement(n Node) (*ElementHeader, bool) {
	if e, ok := n.(Element); ok {
		return e.element(), true
	}
	return nil, false
}

func indexOf(keys []NodeKey, k NodeKey) int {
	return slices.Index(keys, k)
}
