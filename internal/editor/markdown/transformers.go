// Package markdown converts note documents to and from Markdown. One
// ordered transformer list drives export, import and typing shortcuts.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark-emoji/definition"

	"github.com/johnquangdev/notetaker/internal/editor"
)

// Transformer is one of *ElementTransformer, *TextFormatTransformer or
// *TextMatchTransformer.
type Transformer interface {
	transformerType() string
}

// ElementTransformer handles a block kind.
type ElementTransformer struct {
	Name string
	// Shortcut must match the whole text before the caret at the start of
	// a paragraph, trailing space included.
	Shortcut *regexp.Regexp
	Replace  func(tx *editor.Tx, block editor.NodeKey, match []string) error
	Export   func(c *ExportContext, n editor.Node) (string, bool)
}

// TextFormatTransformer maps a format bit set to a delimiter.
type TextFormatTransformer struct {
	Name   string
	Tag    string
	Format editor.TextFormat
}

// TextMatchTransformer turns a pattern inside text into a node.
type TextMatchTransformer struct {
	Name string
	// Trigger is the first byte of Import matches. Zero leaves import to
	// the Markdown parser.
	Trigger byte
	// Import is anchored at the start of the remaining line.
	Import *regexp.Regexp
	// Shortcut is anchored at the caret.
	Shortcut *regexp.Regexp
	// Build returns the node for a match, or false to leave the text alone.
	Build func(match []string) (editor.Node, bool)
	// Replace, when set, is used instead of Build for shortcuts. It gets
	// a text node holding exactly the matched text.
	Replace func(tx *editor.Tx, text editor.NodeKey, match []string) error
	Export  func(c *ExportContext, n editor.Node) (string, bool)
}

func (*ElementTransformer) transformerType() string    { return "element" }
func (*TextFormatTransformer) transformerType() string { return "text-format" }
func (*TextMatchTransformer) transformerType() string  { return "text-match" }

// CaptionSyntax selects how image captions are written.
type CaptionSyntax string

const (
	// CaptionInline writes ![alt](src)[image_description: caption].
	CaptionInline CaptionSyntax = "inline"
	// CaptionComment writes the caption in an HTML comment on the next line.
	CaptionComment CaptionSyntax = "comment"
)

var (
	imageImport   = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)(?:\[image_description:\s*([^\]]*)\])?`)
	imageShortcut = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)(?:\[image_description:\s*([^\]]*)\])?$`)
	emojiImport   = regexp.MustCompile(`^:([a-z0-9_+\-]+):`)
	emojiShortcut = regexp.MustCompile(`:([a-z0-9_+\-]+):$`)
	linkShortcut  = regexp.MustCompile(`\[([^\[\]]+)\]\(([^()\s]+)\)$`)
	captionNote   = regexp.MustCompile(`<!--\s*image_description:\s*(.*?)\s*-->`)
)

// EmojiTransformer resolves :short_code: against table. Unknown codes stay
// plain text.
func EmojiTransformer(table definition.Emojis) *TextMatchTransformer {
	build := func(m []string) (editor.Node, bool) {
		e, ok := table.Get(m[1])
		if !ok {
			return nil, false
		}
		return editor.NewEmoji(string(e.Unicode), m[1]), true
	}
	return &TextMatchTransformer{
		Name:     "emoji",
		Trigger:  ':',
		Import:   emojiImport,
		Shortcut: emojiShortcut,
		Build:    build,
		Export: func(_ *ExportContext, n editor.Node) (string, bool) {
			e, ok := n.(*editor.EmojiNode)
			if !ok {
				return "", false
			}
			return ":" + e.Name() + ":", true
		},
	}
}

// ImageTransformer handles ![alt](src) with an optional caption.
// Placeholders still uploading export as nothing.
func ImageTransformer(syntax CaptionSyntax) *TextMatchTransformer {
	return &TextMatchTransformer{
		Name:     "image",
		Trigger:  '!',
		Import:   imageImport,
		Shortcut: imageShortcut,
		Build: func(m []string) (editor.Node, bool) {
			return editor.NewImage(m[2], m[1], strings.TrimSpace(m[3])), true
		},
		Export: func(_ *ExportContext, n editor.Node) (string, bool) {
			img, ok := n.(*editor.ImageNode)
			if !ok {
				return "", false
			}
			if img.Uploading() {
				return "", true
			}
			out := fmt.Sprintf("![%s](%s)", img.AltText(), img.Src())
			if img.Caption() == "" {
				return out, true
			}
			if syntax == CaptionComment {
				return out + "\n<!-- image_description: " + img.Caption() + " -->", true
			}
			return out + "[image_description: " + img.Caption() + "]", true
		},
	}
}

var Heading = &ElementTransformer{
	Name:     "heading",
	Shortcut: regexp.MustCompile(`^(#{1,6})\s$`),
	Replace: func(tx *editor.Tx, block editor.NodeKey, m []string) error {
		bt := [...]editor.BlockType{editor.BlockH1, editor.BlockH2, editor.BlockH3}
		_, err := tx.SetBlockType(block, bt[min(len(m[1]), editor.MaxHeadingLevel)-1])
		return err
	},
	Export: func(c *ExportContext, n editor.Node) (string, bool) {
		h, ok := n.(*editor.HeadingNode)
		if !ok {
			return "", false
		}
		return strings.Repeat("#", h.Level()) + " " + c.Inline(h.Key()), true
	},
}

var Quote = &ElementTransformer{
	Name:     "quote",
	Shortcut: regexp.MustCompile(`^>\s$`),
	Replace: func(tx *editor.Tx, block editor.NodeKey, _ []string) error {
		_, err := tx.SetBlockType(block, editor.BlockQuote)
		return err
	},
	Export: func(c *ExportContext, n editor.Node) (string, bool) {
		if n.Kind() != editor.KindQuote {
			return "", false
		}
		lines := strings.Split(c.Inline(n.Key()), "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		return strings.Join(lines, "\n"), true
	},
}

var UnorderedList = &ElementTransformer{
	Name:     "unordered-list",
	Shortcut: regexp.MustCompile(`^[-*+]\s$`),
	Replace: func(tx *editor.Tx, block editor.NodeKey, _ []string) error {
		_, err := tx.SetBlockType(block, editor.BlockBullet)
		return err
	},
	Export: func(c *ExportContext, n editor.Node) (string, bool) {
		l, ok := n.(*editor.ListNode)
		if !ok || l.ListType() != editor.ListBullet {
			return "", false
		}
		return c.list(l, 0), true
	},
}

var OrderedList = &ElementTransformer{
	Name:     "ordered-list",
	Shortcut: regexp.MustCompile(`^(\d{1,9})\.\s$`),
	Replace: func(tx *editor.Tx, block editor.NodeKey, m []string) error {
		list, err := tx.SetBlockType(block, editor.BlockNumber)
		if err != nil {
			return err
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return err
		}
		return tx.SetListStart(list, start)
	},
	Export: func(c *ExportContext, n editor.Node) (string, bool) {
		l, ok := n.(*editor.ListNode)
		if !ok || l.ListType() != editor.ListNumber {
			return "", false
		}
		return c.list(l, 0), true
	},
}

var (
	InlineCode     = &TextFormatTransformer{Name: "inline-code", Tag: "`", Format: editor.FormatCode}
	BoldItalicStar = &TextFormatTransformer{Name: "bold-italic-star", Tag: "***", Format: editor.FormatBold | editor.FormatItalic}
	BoldStar       = &TextFormatTransformer{Name: "bold-star", Tag: "**", Format: editor.FormatBold}
	ItalicStar     = &TextFormatTransformer{Name: "italic-star", Tag: "*", Format: editor.FormatItalic}
	Strikethrough  = &TextFormatTransformer{Name: "strikethrough", Tag: "~~", Format: editor.FormatStrikethrough}
)

var Link = &TextMatchTransformer{
	Name:     "link",
	Shortcut: linkShortcut,
	Replace: func(tx *editor.Tx, text editor.NodeKey, m []string) error {
		link := editor.NewLink(m[2])
		if err := tx.InsertAfter(text, link); err != nil {
			return err
		}
		if err := tx.SetText(text, m[1]); err != nil {
			return err
		}
		n, _ := tx.Node(text)
		if err := tx.Append(link.Key(), n); err != nil {
			return err
		}
		return tx.SetSelection(editor.Selection{Key: link.Parent(), Offset: tx.Index(link.Key()) + 1})
	},
	Export: func(c *ExportContext, n editor.Node) (string, bool) {
		l, ok := n.(*editor.LinkNode)
		if !ok {
			return "", false
		}
		return "[" + c.Inline(l.Key()) + "](" + l.URL() + ")", true
	},
}

// DefaultTransformers returns the note transformer list in priority order:
// custom nodes first, then block elements, text formats and links.
func DefaultTransformers(cfg Config) []Transformer {
	return []Transformer{
		EmojiTransformer(cfg.Emoji),
		ImageTransformer(cfg.CaptionSyntax),
		Heading,
		Quote,
		UnorderedList,
		OrderedList,
		InlineCode,
		BoldItalicStar,
		BoldStar,
		ItalicStar,
		Strikethrough,
		Link,
	}
}
