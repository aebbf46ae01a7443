package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/internal/editor"
)

var kindMatch = ast.NewNodeKind("TransformerMatch")

// matchNode carries the editor node built by a text-match transformer
// through the goldmark AST.
type matchNode struct {
	ast.BaseInline
	transformer *TextMatchTransformer
	node        editor.Node
}

func (n *matchNode) Kind() ast.NodeKind { return kindMatch }

func (n *matchNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Transformer": n.transformer.Name}, nil)
}

type matchParser struct {
	t *TextMatchTransformer
}

func (p *matchParser) Trigger() []byte { return []byte{p.t.Trigger} }

func (p *matchParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	loc := p.t.Import.FindSubmatchIndex(line)
	if loc == nil || loc[0] != 0 {
		return nil
	}
	node, ok := p.t.Build(submatches(string(line), loc))
	if !ok {
		return nil
	}
	block.Advance(loc[1])
	return &matchNode{transformer: p.t, node: node}
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

// Import replaces the document in tx with the parsed Markdown.
func (p *Pipeline) Import(tx *editor.Tx, markdown string) error {
	src := []byte(markdown)
	doc := p.md.Parser().Parse(text.NewReader(src))
	if err := tx.Clear(); err != nil {
		return err
	}
	im := &importer{tx: tx, src: src, logger: p.logger}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := im.block(tx.RootKey(), n); err != nil {
			return err
		}
	}
	if len(tx.Root().Children()) == 0 {
		return tx.Append(tx.RootKey(), editor.NewParagraph())
	}
	return nil
}

// ImportState parses Markdown into a fresh document.
func (p *Pipeline) ImportState(reg *editor.Registry, markdown string) (*editor.EditorState, error) {
	return editor.Apply(editor.CreateEmpty(reg), func(tx *editor.Tx) error {
		return p.Import(tx, markdown)
	})
}

type importer struct {
	tx        *editor.Tx
	src       []byte
	logger    *zap.Logger
	lastImage editor.NodeKey
}

func (im *importer) block(parent editor.NodeKey, n ast.Node) error {
	tx := im.tx
	switch n := n.(type) {
	case *ast.Heading:
		h := editor.NewHeading(n.Level)
		if err := tx.Append(parent, h); err != nil {
			return err
		}
		return im.inlines(h.Key(), n, 0)

	case *ast.Paragraph, *ast.TextBlock:
		p := editor.NewParagraph()
		if err := tx.Append(parent, p); err != nil {
			return err
		}
		return im.inlines(p.Key(), n, 0)

	case *ast.Blockquote:
		q := editor.NewQuote()
		if err := tx.Append(parent, q); err != nil {
			return err
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if c != n.FirstChild() {
				if err := tx.Append(q.Key(), editor.NewLineBreak()); err != nil {
					return err
				}
			}
			if err := im.inlines(q.Key(), c, 0); err != nil {
				return err
			}
		}
		return nil

	case *ast.List:
		return im.list(parent, n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		p := editor.NewParagraph()
		if err := tx.Append(parent, p); err != nil {
			return err
		}
		return im.lines(p.Key(), n.Lines(), editor.FormatCode)

	case *ast.HTMLBlock:
		raw := im.rawLines(n.Lines())
		if n.HasClosure() {
			raw += string(n.ClosureLine.Value(im.src))
		}
		if im.applyCaption(raw) {
			return nil
		}
		p := editor.NewParagraph()
		if err := tx.Append(parent, p); err != nil {
			return err
		}
		return im.lines(p.Key(), n.Lines(), 0)

	case *ast.ThematicBreak:
		return nil

	default:
		im.logger.Debug("markdown block imported as paragraph", zap.String("kind", n.Kind().String()))
		p := editor.NewParagraph()
		if err := tx.Append(parent, p); err != nil {
			return err
		}
		return im.inlines(p.Key(), n, 0)
	}
}

func (im *importer) list(parent editor.NodeKey, n *ast.List) error {
	lt := editor.ListBullet
	if n.IsOrdered() {
		lt = editor.ListNumber
	}
	l := editor.NewList(lt, n.Start)
	if err := im.tx.Append(parent, l); err != nil {
		return err
	}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		li := editor.NewListItem()
		if err := im.tx.Append(l.Key(), li); err != nil {
			return err
		}
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				if err := im.list(li.Key(), nested); err != nil {
					return err
				}
				continue
			}
			if !first {
				if err := im.tx.Append(li.Key(), editor.NewLineBreak()); err != nil {
					return err
				}
			}
			first = false
			if err := im.inlines(li.Key(), c, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (im *importer) inlines(parent editor.NodeKey, n ast.Node, format editor.TextFormat) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := im.inline(parent, c, format); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) inline(parent editor.NodeKey, n ast.Node, format editor.TextFormat) error {
	tx := im.tx
	switch n := n.(type) {
	case *ast.Text:
		if err := im.text(parent, string(util.UnescapePunctuations(n.Segment.Value(im.src))), format); err != nil {
			return err
		}
		if n.SoftLineBreak() || n.HardLineBreak() {
			return tx.Append(parent, editor.NewLineBreak())
		}
		return nil

	case *ast.String:
		return im.text(parent, string(n.Value), format)

	case *ast.Emphasis:
		f := editor.FormatItalic
		if n.Level >= 2 {
			f = editor.FormatBold
		}
		return im.inlines(parent, n, format|f)

	case *extast.Strikethrough:
		return im.inlines(parent, n, format|editor.FormatStrikethrough)

	case *ast.CodeSpan:
		var b strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(im.src))
			case *ast.String:
				b.Write(c.Value)
			}
		}
		return im.text(parent, b.String(), format|editor.FormatCode)

	case *ast.Link:
		link := editor.NewLink(string(n.Destination))
		if err := tx.Append(parent, link); err != nil {
			return err
		}
		return im.inlines(link.Key(), n, format)

	case *ast.AutoLink:
		link := editor.NewLink(string(n.URL(im.src)))
		if err := tx.Append(parent, link); err != nil {
			return err
		}
		return im.text(link.Key(), string(n.Label(im.src)), format)

	case *ast.Image:
		img := editor.NewImage(string(n.Destination), im.plain(n), "")
		if err := tx.Append(parent, img); err != nil {
			return err
		}
		im.lastImage = img.Key()
		return nil

	case *matchNode:
		if err := tx.Append(parent, n.node); err != nil {
			return err
		}
		im.lastImage = 0
		if n.node.Kind() == editor.KindImage {
			im.lastImage = n.node.Key()
		}
		return nil

	case *ast.RawHTML:
		raw := im.rawLines(n.Segments)
		if im.applyCaption(raw) {
			kids := tx.Children(parent)
			if len(kids) > 0 && kids[len(kids)-1].Kind() == editor.KindLineBreak {
				return tx.Remove(kids[len(kids)-1].Key())
			}
			return nil
		}
		return im.text(parent, raw, format)

	default:
		return im.inlines(parent, n, format)
	}
}

func (im *importer) text(parent editor.NodeKey, s string, format editor.TextFormat) error {
	if s == "" {
		return nil
	}
	im.lastImage = 0
	return im.tx.Append(parent, editor.NewFormattedText(s, format))
}

// lines imports raw block lines as text separated by line breaks.
func (im *importer) lines(parent editor.NodeKey, segs *text.Segments, format editor.TextFormat) error {
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		line := strings.TrimRight(string(seg.Value(im.src)), "\r\n")
		if i > 0 {
			if err := im.tx.Append(parent, editor.NewLineBreak()); err != nil {
				return err
			}
		}
		if err := im.text(parent, line, format); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) rawLines(segs *text.Segments) string {
	var b strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(im.src))
	}
	return b.String()
}

// applyCaption attaches a caption comment to the image imported just
// before it.
func (im *importer) applyCaption(raw string) bool {
	m := captionNote.FindStringSubmatch(raw)
	if m == nil || im.lastImage == 0 {
		return false
	}
	if err := im.tx.SetImageCaption(im.lastImage, m[1]); err != nil {
		return false
	}
	im.lastImage = 0
	return true
}

// plain collects the text of n's descendants.
func (im *importer) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(im.src))
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
