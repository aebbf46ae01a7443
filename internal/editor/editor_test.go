package editor

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func typeText(t *testing.T, ed *Editor, s string) *EditorState {
	t.Helper()
	next, err := ed.Update(func(tx *Tx) error { return tx.InsertText(s) })
	require.NoError(t, err)
	return next
}

func TestEditorHistory(t *testing.T) {
	t.Run("undo with empty history is a no-op", func(t *testing.T) {
		ed := New(Config{}, nil)
		s0 := ed.State()

		assert.Same(t, s0, ed.Undo())
		assert.Same(t, s0, ed.Redo())
		assert.False(t, ed.CanUndo())
	})

	t.Run("undo and redo walk the history", func(t *testing.T) {
		ed := New(Config{}, nil)
		s0 := ed.State()
		s1 := typeText(t, ed, "one")
		s2 := typeText(t, ed, " two")

		assert.Same(t, s1, ed.Undo())
		assert.Same(t, s0, ed.Undo())
		assert.Same(t, s0, ed.Undo())
		assert.Same(t, s1, ed.Redo())
		assert.Same(t, s2, ed.Redo())
		assert.Equal(t, "one two", TextContent(ed.State()))
	})

	t.Run("a new transaction clears redo", func(t *testing.T) {
		ed := New(Config{}, nil)
		typeText(t, ed, "a")
		ed.Undo()
		require.True(t, ed.CanRedo())

		typeText(t, ed, "b")
		assert.False(t, ed.CanRedo())
		assert.Equal(t, "b", TextContent(ed.State()))
	})

	t.Run("history is bounded", func(t *testing.T) {
		ed := New(Config{HistoryLimit: 2}, nil)
		typeText(t, ed, "a")
		typeText(t, ed, "b")
		typeText(t, ed, "c")

		ed.Undo()
		ed.Undo()
		assert.False(t, ed.CanUndo())
		assert.Equal(t, "a", TextContent(ed.State()))
	})

	t.Run("merged transactions join the previous undo step", func(t *testing.T) {
		ed := New(Config{}, nil)
		s0 := ed.State()
		typeText(t, ed, "draft")
		_, err := ed.Update(func(tx *Tx) error { return tx.InsertText(" more") }, TagHistoryMerge)
		require.NoError(t, err)

		assert.Same(t, s0, ed.Undo())
	})

	t.Run("failed transaction leaves history alone", func(t *testing.T) {
		ed := New(Config{}, nil)
		s0 := ed.State()
		_, err := ed.Update(func(tx *Tx) error { return tx.Remove(tx.RootKey()) })
		require.Error(t, err)

		assert.Same(t, s0, ed.State())
		assert.False(t, ed.CanUndo())
	})

	t.Run("set state drops history", func(t *testing.T) {
		ed := New(Config{}, nil)
		typeText(t, ed, "old")
		fresh := CreateEmpty(nil)
		ed.SetState(fresh)

		assert.Same(t, fresh, ed.State())
		assert.False(t, ed.CanUndo())
	})
}

func TestEditorListeners(t *testing.T) {
	ed := New(Config{}, nil)
	var events []UpdateEvent
	unregister := ed.RegisterUpdateListener(func(ev UpdateEvent) {
		events = append(events, ev)
	})

	s1 := typeText(t, ed, "x")
	ed.Undo()
	unregister()
	typeText(t, ed, "y")

	require.Len(t, events, 2)
	assert.Same(t, s1, events[0].State)
	assert.True(t, events[1].HasTag(TagHistoric))
}

func TestEditorTextTransforms(t *testing.T) {
	ed := New(Config{}, nil)
	ed.RegisterTextTransform(func(tx *Tx, key NodeKey) error {
		n, _ := tx.Node(key)
		text := n.(*TextNode).Text()
		if strings.Contains(text, "(c)") {
			return tx.SetText(key, strings.ReplaceAll(text, "(c)", "©"))
		}
		return nil
	})

	typeText(t, ed, "(c) 2024")
	assert.Equal(t, "© 2024", TextContent(ed.State()))

	// the transform is part of the same undo step
	ed.Undo()
	assert.Equal(t, "", TextContent(ed.State()))
}

func TestEditorConcurrentUpdates(t *testing.T) {
	ed := New(Config{}, nil)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ed.Update(func(tx *Tx) error { return tx.InsertText("a") })
		}()
	}
	wg.Wait()

	assert.Equal(t, strings.Repeat("a", 50), TextContent(ed.State()))
	assert.Equal(t, uint64(50), ed.State().Version())
}

func TestEditorRollbackIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ed := New(Config{Logger: zap.New(core)}, nil)
	s1 := typeText(t, ed, "kept")

	got, err := ed.Update(func(tx *Tx) error {
		if err := tx.InsertText(" lost"); err != nil {
			return err
		}
		return errors.New("boom")
	}, "paste")
	require.Error(t, err)
	assert.Same(t, s1, got)
	assert.Equal(t, "kept", TextContent(ed.State()))

	entries := logs.FilterMessage("editor transaction rolled back").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, []interface{}{"paste"}, fields["tags"])
	assert.EqualValues(t, s1.Version(), fields["version"])
	assert.Contains(t, fields["error"], "boom")
}
