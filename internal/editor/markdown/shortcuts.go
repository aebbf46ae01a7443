package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/johnquangdev/notetaker/internal/editor"
)

// Shortcuts returns a text transform that applies Markdown as it is typed.
// Register it with Editor.RegisterTextTransform.
func (p *Pipeline) Shortcuts() editor.TextTransform {
	return p.runShortcuts
}

func (p *Pipeline) runShortcuts(tx *editor.Tx, key editor.NodeKey) error {
	sel := tx.Selection()
	if sel.Key != key {
		return nil
	}
	n, ok := tx.Node(key)
	if !ok {
		return nil
	}
	t, ok := n.(*editor.TextNode)
	if !ok || t.Format().Has(editor.FormatCode) {
		return nil
	}
	runes := []rune(t.Text())
	before := string(runes[:min(sel.Offset, len(runes))])
	if before == "" {
		return nil
	}

	if done, err := p.elementShortcut(tx, t, before); done || err != nil {
		return err
	}
	if parent, ok := tx.Node(t.Parent()); ok && parent.Kind() == editor.KindLink {
		return nil
	}
	if done, err := p.textMatchShortcut(tx, t, before); done || err != nil {
		return err
	}
	_, err := p.formatShortcut(tx, t, before)
	return err
}

// elementShortcut converts a paragraph whose text starts with a block
// marker such as "# " or "- ".
func (p *Pipeline) elementShortcut(tx *editor.Tx, t *editor.TextNode, before string) (bool, error) {
	if !strings.HasSuffix(before, " ") || tx.Index(t.Key()) != 0 {
		return false, nil
	}
	parent, ok := tx.Node(t.Parent())
	if !ok || parent.Kind() != editor.KindParagraph || parent.Parent() != tx.RootKey() {
		return false, nil
	}
	for _, tr := range p.transformers {
		et, ok := tr.(*ElementTransformer)
		if !ok || et.Shortcut == nil || et.Replace == nil {
			continue
		}
		m := et.Shortcut.FindStringSubmatch(before)
		if m == nil || len(m[0]) != len(before) {
			continue
		}
		rest := strings.TrimPrefix(t.Text(), before)
		if err := tx.SetText(t.Key(), rest); err != nil {
			return true, err
		}
		if err := tx.SetSelection(editor.Selection{Key: t.Key()}); err != nil {
			return true, err
		}
		return true, et.Replace(tx, parent.Key(), m)
	}
	return false, nil
}

// isolate splits t so that the runes [from, to) form their own text node
// and returns it.
func isolate(tx *editor.Tx, t editor.NodeKey, from, to int) (editor.NodeKey, error) {
	_, mid, err := tx.SplitText(t, from)
	if err != nil {
		return 0, err
	}
	if _, _, err := tx.SplitText(mid, to-from); err != nil {
		return 0, err
	}
	return mid, nil
}

func caretAfter(tx *editor.Tx, key editor.NodeKey) error {
	n, ok := tx.Node(key)
	if !ok {
		return nil
	}
	return tx.SetSelection(editor.Selection{Key: n.Parent(), Offset: tx.Index(key) + 1})
}

func (p *Pipeline) textMatchShortcut(tx *editor.Tx, t *editor.TextNode, before string) (bool, error) {
	for _, tr := range p.transformers {
		tm, ok := tr.(*TextMatchTransformer)
		if !ok || tm.Shortcut == nil {
			continue
		}
		loc := tm.Shortcut.FindStringSubmatchIndex(before)
		if loc == nil {
			continue
		}
		m := submatches(before, loc)
		from := utf8.RuneCountInString(before[:loc[0]])
		to := utf8.RuneCountInString(before)

		if tm.Replace != nil {
			mid, err := isolate(tx, t.Key(), from, to)
			if err != nil {
				return true, err
			}
			return true, tm.Replace(tx, mid, m)
		}
		if tm.Build == nil {
			continue
		}
		node, ok := tm.Build(m)
		if !ok {
			continue
		}
		mid, err := isolate(tx, t.Key(), from, to)
		if err != nil {
			return true, err
		}
		if err := tx.Replace(mid, node, false); err != nil {
			return true, err
		}
		return true, caretAfter(tx, node.Key())
	}
	return false, nil
}

// formatShortcut applies a format when its closing delimiter is typed,
// e.g. **bold**.
func (p *Pipeline) formatShortcut(tx *editor.Tx, t *editor.TextNode, before string) (bool, error) {
	for _, tr := range p.transformers {
		ft, ok := tr.(*TextFormatTransformer)
		if !ok {
			continue
		}
		open, content, ok := matchDelimited(before, ft.Tag)
		if !ok {
			continue
		}
		from := utf8.RuneCountInString(before[:open])
		to := utf8.RuneCountInString(before)
		mid, err := isolate(tx, t.Key(), from, to)
		if err != nil {
			return true, err
		}
		if err := tx.SetText(mid, content); err != nil {
			return true, err
		}
		if err := tx.SetFormat(mid, t.Format()|ft.Format); err != nil {
			return true, err
		}
		return true, caretAfter(tx, mid)
	}
	return false, nil
}

// matchDelimited finds tag+content+tag at the end of s. It returns the
// byte offset of the opening tag.
func matchDelimited(s, tag string) (open int, content string, ok bool) {
	if !strings.HasSuffix(s, tag) {
		return 0, "", false
	}
	closeAt := len(s) - len(tag)
	open = strings.LastIndex(s[:closeAt], tag)
	if open < 0 {
		return 0, "", false
	}
	content = s[open+len(tag) : closeAt]
	if content == "" {
		return 0, "", false
	}
	first, _ := utf8.DecodeRuneInString(content)
	last, _ := utf8.DecodeLastRuneInString(content)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return 0, "", false
	}
	if open > 0 && s[open-1] == tag[0] {
		return 0, "", false
	}
	if content[len(content)-1] == tag[len(tag)-1] {
		return 0, "", false
	}
	return open, content, true
}
