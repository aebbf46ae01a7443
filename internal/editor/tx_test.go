package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstBlock(s *EditorState) NodeKey {
	return s.View().Root().Children()[0]
}

func TestApply(t *testing.T) {
	t.Run("commits a new version and leaves the base untouched", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)

		s1, err := Apply(s0, func(tx *Tx) error {
			return tx.Append(p, NewText("hello "), NewFormattedText("world", FormatBold))
		})
		require.NoError(t, err)

		assert.Equal(t, uint64(1), s1.Version())
		assert.Equal(t, "hello world", TextContent(s1))
		assert.Equal(t, "", TextContent(s0))
		assert.Len(t, s0.View().Children(p), 0)
	})

	t.Run("error discards every change", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		boom := errors.New("boom")

		s1, err := Apply(s0, func(tx *Tx) error {
			if err := tx.Append(p, NewText("partial")); err != nil {
				return err
			}
			return boom
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		var txErr *TransactionError
		assert.ErrorAs(t, err, &txErr)
		assert.Same(t, s0, s1)
		assert.Equal(t, "", TextContent(s0))
	})

	t.Run("panic is recovered and rolled back", func(t *testing.T) {
		s0 := CreateEmpty(nil)

		s1, err := Apply(s0, func(tx *Tx) error {
			_ = tx.InsertText("lost")
			panic("bad transform")
		})

		var txErr *TransactionError
		require.ErrorAs(t, err, &txErr)
		assert.Equal(t, "bad transform", txErr.Recovered)
		assert.Same(t, s0, s1)
	})

	t.Run("read-only transaction returns the same state", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		s1, err := Apply(s0, func(tx *Tx) error {
			_ = tx.TextContent(tx.RootKey())
			return nil
		})
		require.NoError(t, err)
		assert.Same(t, s0, s1)
	})

	t.Run("rejects children the parent does not accept", func(t *testing.T) {
		s0 := CreateEmpty(nil)

		_, err := Apply(s0, func(tx *Tx) error {
			return tx.Append(tx.RootKey(), NewText("loose"))
		})
		assert.ErrorIs(t, err, ErrInvalidChild)

		_, err = Apply(s0, func(tx *Tx) error {
			link := NewLink("https://a.example")
			if err := tx.Append(firstBlock(s0), link); err != nil {
				return err
			}
			return tx.Append(link.Key(), NewLink("https://b.example"))
		})
		assert.ErrorIs(t, err, ErrInvalidChild)
	})

	t.Run("root cannot be removed", func(t *testing.T) {
		_, err := Apply(CreateEmpty(nil), func(tx *Tx) error {
			return tx.Remove(tx.RootKey())
		})
		assert.ErrorIs(t, err, ErrRootRemoval)
	})
}

func TestTxText(t *testing.T) {
	t.Run("adjacent text with equal format is merged", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)

		s1, err := Apply(s0, func(tx *Tx) error {
			return tx.Append(p, NewText("a"), NewText("b"), NewFormattedText("c", FormatItalic))
		})
		require.NoError(t, err)

		kids := s1.View().Children(p)
		require.Len(t, kids, 2)
		assert.Equal(t, "ab", kids[0].(*TextNode).Text())
		assert.Equal(t, "c", kids[1].(*TextNode).Text())
	})

	t.Run("insert text into an empty document", func(t *testing.T) {
		s, err := Apply(CreateEmpty(nil), func(tx *Tx) error {
			if err := tx.InsertText("hel"); err != nil {
				return err
			}
			return tx.InsertText("lo")
		})
		require.NoError(t, err)

		assert.Equal(t, "hello", TextContent(s))
		sel := s.Selection()
		assert.Equal(t, 5, sel.Offset)
		_, isText := s.View().nodes[sel.Key].(*TextNode)
		assert.True(t, isText)
	})

	t.Run("insert nodes splits text at the caret", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		text := NewText("hello world")

		s1, err := Apply(s0, func(tx *Tx) error {
			if err := tx.Append(p, text); err != nil {
				return err
			}
			if err := tx.SetSelection(Selection{Key: text.Key(), Offset: 5}); err != nil {
				return err
			}
			return tx.InsertNodes(NewEmoji("😄", "smile"))
		})
		require.NoError(t, err)

		kids := s1.View().Children(p)
		require.Len(t, kids, 3)
		assert.Equal(t, "hello", kids[0].(*TextNode).Text())
		assert.Equal(t, KindEmoji, kids[1].Kind())
		assert.Equal(t, " world", kids[2].(*TextNode).Text())
		assert.Equal(t, Selection{Key: p, Offset: 2}, s1.Selection())
	})

	t.Run("split text keeps format on both halves", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		text := NewFormattedText("abcdef", FormatBold)
		var right NodeKey

		s1, err := Apply(s0, func(tx *Tx) error {
			if err := tx.Append(p, text); err != nil {
				return err
			}
			var err error
			_, right, err = tx.SplitText(text.Key(), 2)
			if err != nil {
				return err
			}
			return tx.ToggleFormat(right, FormatItalic)
		})
		require.NoError(t, err)

		kids := s1.View().Children(p)
		require.Len(t, kids, 2)
		assert.Equal(t, "ab", kids[0].(*TextNode).Text())
		assert.Equal(t, FormatBold, kids[0].(*TextNode).Format())
		assert.Equal(t, "cdef", kids[1].(*TextNode).Text())
		assert.Equal(t, FormatBold|FormatItalic, kids[1].(*TextNode).Format())
	})
}

func TestTxStructure(t *testing.T) {
	t.Run("duplicate assigns fresh keys", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		var dup NodeKey

		s1, err := Apply(s0, func(tx *Tx) error {
			if err := tx.Append(p, NewText("copy me")); err != nil {
				return err
			}
			var err error
			dup, err = tx.Duplicate(p)
			return err
		})
		require.NoError(t, err)

		v := s1.View()
		assert.Equal(t, []NodeKey{p, dup}, v.Root().Children())
		assert.NotEqual(t, v.Children(p)[0].Key(), v.Children(dup)[0].Key())
		assert.Equal(t, "copy me", v.TextContent(dup))
	})

	t.Run("keys are not reused after removal", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		a := NewText("a")
		s1, err := Apply(s0, func(tx *Tx) error { return tx.Append(p, a) })
		require.NoError(t, err)

		b := NewText("b")
		_, err = Apply(s0, func(tx *Tx) error { return tx.Append(p, b) })
		require.NoError(t, err)

		assert.NotEqual(t, a.Key(), b.Key())
		_, found := s1.View().Node(b.Key())
		assert.False(t, found)
	})

	t.Run("moving a node under itself fails", func(t *testing.T) {
		_, err := Apply(CreateEmpty(nil), func(tx *Tx) error {
			list := NewList(ListBullet, 1)
			if err := tx.Append(tx.RootKey(), list); err != nil {
				return err
			}
			item := NewListItem()
			if err := tx.Append(list.Key(), item); err != nil {
				return err
			}
			return tx.Append(item.Key(), list)
		})
		assert.ErrorIs(t, err, ErrInvalidChild)
	})

	t.Run("set block type keeps content", func(t *testing.T) {
		s0 := CreateEmpty(nil)
		p := firstBlock(s0)
		s1, err := Apply(s0, func(tx *Tx) error {
			if err := tx.Append(p, NewText("Title")); err != nil {
				return err
			}
			_, err := tx.SetBlockType(p, BlockH2)
			return err
		})
		require.NoError(t, err)

		blocks := s1.View().Children(s1.View().RootKey())
		require.Len(t, blocks, 1)
		h, ok := blocks[0].(*HeadingNode)
		require.True(t, ok)
		assert.Equal(t, 2, h.Level())
		assert.Equal(t, "Title", TextContent(s1))

		s2, err := Apply(s1, func(tx *Tx) error {
			_, err := tx.SetBlockType(h.Key(), BlockBullet)
			return err
		})
		require.NoError(t, err)
		list, ok := s2.View().Children(s2.View().RootKey())[0].(*ListNode)
		require.True(t, ok)
		assert.Equal(t, ListBullet, list.ListType())
		assert.Equal(t, "Title", TextContent(s2))
	})
}
