package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/notetaker/internal/editor"
)

// typeString inserts s one character at a time, like a user typing.
func typeString(t *testing.T, ed *editor.Editor, s string) {
	t.Helper()
	for _, r := range s {
		_, err := ed.Update(func(tx *editor.Tx) error { return tx.InsertText(string(r)) })
		require.NoError(t, err)
	}
}

func shortcutEditor() (*editor.Editor, *Pipeline) {
	p := testPipeline(CaptionInline)
	ed := editor.New(editor.Config{}, nil)
	ed.RegisterTextTransform(p.Shortcuts())
	return ed, p
}

func TestElementShortcuts(t *testing.T) {
	cases := []struct {
		typed string
		want  string
		kind  editor.Kind
	}{
		{"# Title", "# Title", editor.KindHeading},
		{"### Small", "### Small", editor.KindHeading},
		{"- item", "- item", editor.KindList},
		{"3. third", "3. third", editor.KindList},
		{"> said", "> said", editor.KindQuote},
	}
	for _, tc := range cases {
		t.Run(tc.typed, func(t *testing.T) {
			ed, p := shortcutEditor()
			typeString(t, ed, tc.typed)

			bs := blocks(ed.State())
			require.Len(t, bs, 1)
			assert.Equal(t, tc.kind, bs[0].Kind())
			assert.Equal(t, tc.want, p.Export(ed.State()))
		})
	}
}

func TestFormatShortcuts(t *testing.T) {
	cases := []struct {
		typed string
		want  string
	}{
		{"**bold** x", "**bold** x"},
		{"an *it* word", "an *it* word"},
		{"~~old~~", "~~old~~"},
		{"run `go test`", "run `go test`"},
		{"2 * 3 = 6", `2 \* 3 = 6`},
	}
	for _, tc := range cases {
		t.Run(tc.typed, func(t *testing.T) {
			ed, p := shortcutEditor()
			typeString(t, ed, tc.typed)
			assert.Equal(t, tc.want, p.Export(ed.State()))
		})
	}

	t.Run("text after the closing marker is plain", func(t *testing.T) {
		ed, _ := shortcutEditor()
		typeString(t, ed, "**b** c")

		v := ed.State().View()
		kids := v.Children(v.Root().Children()[0])
		require.Len(t, kids, 2)
		assert.Equal(t, editor.FormatBold, kids[0].(*editor.TextNode).Format())
		assert.Equal(t, editor.TextFormat(0), kids[1].(*editor.TextNode).Format())
	})
}

func TestTextMatchShortcuts(t *testing.T) {
	t.Run("emoji", func(t *testing.T) {
		ed, p := shortcutEditor()
		typeString(t, ed, "hi :smile: there")

		assert.Len(t, findKind(ed.State(), editor.KindEmoji), 1)
		assert.Equal(t, "hi 😄 there", editor.TextContent(ed.State()))
		assert.Equal(t, "hi :smile: there", p.Export(ed.State()))
	})

	t.Run("unknown emoji stays text", func(t *testing.T) {
		ed, _ := shortcutEditor()
		typeString(t, ed, ":nope:")

		assert.Empty(t, findKind(ed.State(), editor.KindEmoji))
		assert.Equal(t, ":nope:", editor.TextContent(ed.State()))
	})

	t.Run("image", func(t *testing.T) {
		ed, _ := shortcutEditor()
		typeString(t, ed, "![cat](https://cdn.example/cat.png)")

		imgs := ed.State().View().Images()
		require.Len(t, imgs, 1)
		assert.Equal(t, "cat", imgs[0].AltText())
		assert.Equal(t, "https://cdn.example/cat.png", imgs[0].Src())
		assert.Empty(t, findKind(ed.State(), editor.KindLink))
	})

	t.Run("link", func(t *testing.T) {
		ed, p := shortcutEditor()
		typeString(t, ed, "see [docs](https://example.com) now")

		links := findKind(ed.State(), editor.KindLink)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com", links[0].(*editor.LinkNode).URL())
		assert.Equal(t, "see [docs](https://example.com) now", p.Export(ed.State()))
	})

	t.Run("shortcut is one undo step with the keystroke", func(t *testing.T) {
		ed, _ := shortcutEditor()
		typeString(t, ed, ":smile:")
		require.Len(t, findKind(ed.State(), editor.KindEmoji), 1)

		ed.Undo()
		assert.Empty(t, findKind(ed.State(), editor.KindEmoji))
		assert.Equal(t, ":smile", editor.TextContent(ed.State()))
	})
}
