package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark-emoji/definition"

	"github.com/johnquangdev/notetaker/internal/editor"
)

func testEmoji() definition.Emojis {
	return definition.NewEmojis(
		definition.NewEmoji("smiling face with open mouth and smiling eyes", []rune{0x1F604}, "smile"),
		definition.NewEmoji("thumbs up", []rune{0x1F44D}, "+1", "thumbsup"),
	)
}

func testPipeline(syntax CaptionSyntax) *Pipeline {
	return New(Config{Emoji: testEmoji(), CaptionSyntax: syntax})
}

func importDoc(t *testing.T, p *Pipeline, md string) *editor.EditorState {
	t.Helper()
	s, err := p.ImportState(nil, md)
	require.NoError(t, err)
	return s
}

func blocks(s *editor.EditorState) []editor.Node {
	v := s.View()
	return v.Children(v.RootKey())
}

func TestImportInlineContent(t *testing.T) {
	p := testPipeline(CaptionInline)
	s := importDoc(t, p, "Hello **bold** and :smile: text")

	bs := blocks(s)
	require.Len(t, bs, 1)
	require.Equal(t, editor.KindParagraph, bs[0].Kind())

	kids := s.View().Children(bs[0].Key())
	require.Len(t, kids, 5)
	assert.Equal(t, "Hello ", kids[0].(*editor.TextNode).Text())
	assert.Equal(t, "bold", kids[1].(*editor.TextNode).Text())
	assert.Equal(t, editor.FormatBold, kids[1].(*editor.TextNode).Format())
	assert.Equal(t, " and ", kids[2].(*editor.TextNode).Text())
	emoji, ok := kids[3].(*editor.EmojiNode)
	require.True(t, ok)
	assert.Equal(t, "smile", emoji.Name())
	assert.Equal(t, "😄", emoji.Glyph())
	assert.Equal(t, " text", kids[4].(*editor.TextNode).Text())

	assert.Equal(t, "Hello **bold** and :smile: text", p.Export(s))
}

func TestImportUnknownEmojiStaysText(t *testing.T) {
	p := testPipeline(CaptionInline)
	s := importDoc(t, p, "meet at 10:30: bring :nope: and :+1:")

	assert.Len(t, findKind(s, editor.KindEmoji), 1)
	assert.Equal(t, "meet at 10:30: bring :nope: and 👍", editor.TextContent(s))
	assert.Equal(t, "meet at 10:30: bring :nope: and :+1:", p.Export(s))
}

func TestDefaultEmojiTable(t *testing.T) {
	p := New(Config{})
	s := importDoc(t, p, ":smile:")

	emojis := findKind(s, editor.KindEmoji)
	require.Len(t, emojis, 1)
	assert.NotEmpty(t, emojis[0].(*editor.EmojiNode).Glyph())
}

func findKind(s *editor.EditorState, k editor.Kind) []editor.Node {
	var out []editor.Node
	s.View().Walk(func(n editor.Node, _ int) bool {
		if n.Kind() == k {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestImageCaptions(t *testing.T) {
	t.Run("inline caption", func(t *testing.T) {
		p := testPipeline(CaptionInline)
		md := "![Screenshot 2025-01-11 at 3.23.28 PM.png](https://cdn.example/u/1.png)[image_description: adding a description here.]"
		s := importDoc(t, p, md)

		imgs := s.View().Images()
		require.Len(t, imgs, 1)
		assert.Equal(t, "Screenshot 2025-01-11 at 3.23.28 PM.png", imgs[0].AltText())
		assert.Equal(t, "https://cdn.example/u/1.png", imgs[0].Src())
		assert.Equal(t, "adding a description here.", imgs[0].Caption())
		assert.False(t, imgs[0].Uploading())

		assert.Equal(t, md, p.Export(s))
	})

	t.Run("comment caption", func(t *testing.T) {
		p := testPipeline(CaptionComment)
		md := "![chart](https://cdn.example/c.png)\n<!-- image_description: Q3 revenue -->"
		s := importDoc(t, p, md)

		imgs := s.View().Images()
		require.Len(t, imgs, 1)
		assert.Equal(t, "Q3 revenue", imgs[0].Caption())
		assert.Equal(t, md, p.Export(s))
	})

	t.Run("image without caption", func(t *testing.T) {
		p := testPipeline(CaptionInline)
		s := importDoc(t, p, "before ![](https://cdn.example/x.png) after")

		imgs := s.View().Images()
		require.Len(t, imgs, 1)
		assert.Equal(t, "", imgs[0].Caption())
		assert.Equal(t, "before ![](https://cdn.example/x.png) after", p.Export(s))
	})

	t.Run("uploading placeholders are not exported", func(t *testing.T) {
		p := testPipeline(CaptionInline)
		ed := editor.New(editor.Config{}, nil)
		typeString(t, ed, "text")
		_, err := ed.InsertImagePlaceholder("pending")
		require.NoError(t, err)

		assert.Equal(t, "text", p.Export(ed.State()))
	})
}

func TestBlockRoundTrip(t *testing.T) {
	md := "# Title\n\n" +
		"- a\n- b\n    - nested\n\n" +
		"3. three\n4. four\n\n" +
		"> quoted\n> more\n\n" +
		"***both*** ~~gone~~ `code` *it* [site](https://example.com)"

	p := testPipeline(CaptionInline)
	s := importDoc(t, p, md)

	bs := blocks(s)
	require.Len(t, bs, 5)
	assert.Equal(t, 1, bs[0].(*editor.HeadingNode).Level())
	assert.Equal(t, editor.ListBullet, bs[1].(*editor.ListNode).ListType())
	assert.Equal(t, 3, bs[2].(*editor.ListNode).Start())
	assert.Equal(t, editor.KindQuote, bs[3].Kind())

	assert.Equal(t, md, p.Export(s))
}

func TestImportClampsHeadings(t *testing.T) {
	p := testPipeline(CaptionInline)
	s := importDoc(t, p, "#### Deep")

	assert.Equal(t, "### Deep", p.Export(s))
}

func TestExportMovesWhitespaceOutsideMarkers(t *testing.T) {
	s, err := editor.Apply(editor.CreateEmpty(nil), func(tx *editor.Tx) error {
		p := tx.Root().Children()[0]
		return tx.Append(p,
			editor.NewFormattedText("bold ", editor.FormatBold),
			editor.NewText("plain"),
			editor.NewFormattedText(" under", editor.FormatUnderline),
		)
	})
	require.NoError(t, err)

	assert.Equal(t, "**bold** plain under", testPipeline(CaptionInline).Export(s))
}

func TestImportEmptyDocument(t *testing.T) {
	p := testPipeline(CaptionInline)
	s := importDoc(t, p, "")

	bs := blocks(s)
	require.Len(t, bs, 1)
	assert.Equal(t, editor.KindParagraph, bs[0].Kind())
	assert.Equal(t, "", p.Export(s))
}

func TestMatchDelimited(t *testing.T) {
	cases := []struct {
		in, tag string
		content string
		ok      bool
	}{
		{"say **hi**", "**", "hi", true},
		{"*it*", "*", "it", true},
		{"**bold*", "*", "", false},
		{"** spaced**", "**", "", false},
		{"****", "**", "", false},
		{"~~x~~", "~~", "x", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			_, content, ok := matchDelimited(tc.in, tc.tag)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.content, content)
		})
	}
}

func TestListItemToBlockKeepsOrder(t *testing.T) {
	p := testPipeline(CaptionInline)

	convert := func(t *testing.T, md string, item int) string {
		t.Helper()
		s := importDoc(t, p, md)
		items := findKind(s, editor.KindListItem)
		require.Len(t, items, 3)
		next, err := editor.Apply(s, func(tx *editor.Tx) error {
			_, err := tx.SetBlockType(items[item].Key(), editor.BlockParagraph)
			return err
		})
		require.NoError(t, err)
		return p.Export(next)
	}

	t.Run("first item", func(t *testing.T) {
		assert.Equal(t, "a\n\n- b\n- c", convert(t, "- a\n- b\n- c", 0))
	})

	t.Run("middle item", func(t *testing.T) {
		assert.Equal(t, "- a\n\nb\n\n- c", convert(t, "- a\n- b\n- c", 1))
	})

	t.Run("numbering continues after the split", func(t *testing.T) {
		assert.Equal(t, "1. a\n\nb\n\n3. c", convert(t, "1. a\n2. b\n3. c", 1))
	})

	t.Run("last item", func(t *testing.T) {
		assert.Equal(t, "- a\n- b\n\nc", convert(t, "- a\n- b\n- c", 2))
	})
}

func TestLiteralTextRoundTrip(t *testing.T) {
	p := testPipeline(CaptionInline)
	lines := []string{
		"2*3*4 costs :smile: # x",
		"# not a heading",
		"- not a list",
		"12. not numbered",
		"[not a link](https://example.com) and ![no image](x.png)",
		`path C:\tmp _under_ ~~keep~~ <b> and :nope:`,
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			s, err := editor.Apply(editor.CreateEmpty(nil), func(tx *editor.Tx) error {
				return tx.Append(tx.Root().Children()[0], editor.NewText(line))
			})
			require.NoError(t, err)

			md := p.Export(s)
			back := importDoc(t, p, md)

			bs := blocks(back)
			require.Len(t, bs, 1, md)
			assert.Equal(t, editor.KindParagraph, bs[0].Kind(), md)
			assert.Empty(t, findKind(back, editor.KindEmoji), md)
			assert.Empty(t, findKind(back, editor.KindLink), md)
			assert.Empty(t, back.View().Images(), md)
			assert.Equal(t, line, editor.TextContent(back), md)
			assert.Equal(t, md, p.Export(back))
		})
	}

	t.Run("escapes stay inside format markers", func(t *testing.T) {
		s, err := editor.Apply(editor.CreateEmpty(nil), func(tx *editor.Tx) error {
			return tx.Append(tx.Root().Children()[0], editor.NewFormattedText("a*b", editor.FormatBold))
		})
		require.NoError(t, err)
		assert.Equal(t, `**a\*b**`, p.Export(s))

		back := importDoc(t, p, p.Export(s))
		assert.Equal(t, "a*b", editor.TextContent(back))
	})
}
