// Package editor implements the note document model: an immutable tree of
// typed nodes, transactions that produce new snapshots, undo history and
// the image upload lifecycle.
//
// A document is an EditorState. States are never modified; Apply and
// Editor.Update run a function against a Tx and commit a new state when it
// returns nil:
//
//	ed := editor.New(editor.Config{}, nil)
//	_, err := ed.Update(func(tx *editor.Tx) error {
//		return tx.InsertText("hello")
//	})
//
// States serialize to a JSON tree rooted at {"root": ...} and render to
// HTML without side effects.
package editor
