package editor

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Transaction tags understood by the Editor.
const (
	// TagHistoric marks states produced by Undo and Redo.
	TagHistoric = "historic"
	// TagHistoryMerge commits without adding an undo step.
	TagHistoryMerge = "history-merge"
	// TagSetState marks a wholesale state replacement.
	TagSetState = "set-state"
)

const (
	DefaultHistoryLimit = 100
	maxTransformPasses  = 8
)

// TextTransform runs inside a transaction for every text node changed by
// InsertText.
type TextTransform func(tx *Tx, key NodeKey) error

// UpdateEvent is delivered to listeners after a commit.
type UpdateEvent struct {
	State *EditorState
	Prev  *EditorState
	Tags  []string
}

func (u UpdateEvent) HasTag(tag string) bool { return slices.Contains(u.Tags, tag) }

type UpdateListener func(UpdateEvent)

type Config struct {
	Registry     *Registry
	HistoryLimit int
	Logger       *zap.Logger
}

// Editor owns the current EditorState of one document and its undo
// history. Updates are serialized; reads of returned states need no lock.
type Editor struct {
	mu         sync.Mutex
	state      *EditorState
	undo       []*EditorState
	redo       []*EditorState
	limit      int
	transforms []registeredTransform
	listeners  []registeredListener
	nextID     int
	logger     *zap.Logger
}

type registeredTransform struct {
	id int
	fn TextTransform
}

type registeredListener struct {
	id int
	fn UpdateListener
}

// New returns an Editor starting at initial, or at an empty document when
// initial is nil.
func New(cfg Config, initial *EditorState) *Editor {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if initial == nil {
		initial = CreateEmpty(cfg.Registry)
	}
	return &Editor{state: initial, limit: cfg.HistoryLimit, logger: cfg.Logger}
}

func (e *Editor) State() *EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Read(fn func(v *View) error) error {
	return e.State().Read(fn)
}

// Apply runs fn as a single transaction against state and returns the
// resulting state. On error the original state is returned untouched.
func Apply(state *EditorState, fn func(tx *Tx) error, tags ...string) (*EditorState, error) {
	next, _, err := apply(state, fn, nil, tags)
	return next, err
}

func apply(base *EditorState, fn func(*Tx) error, transforms []TextTransform, tags []string) (next *EditorState, tx *Tx, err error) {
	tx = newTx(base, tags)
	defer func() {
		if r := recover(); r != nil {
			next, err = base, &TransactionError{Recovered: r}
		}
	}()
	if err := fn(tx); err != nil {
		return base, tx, &TransactionError{Err: err}
	}
	if err := tx.runTransforms(transforms); err != nil {
		return base, tx, &TransactionError{Err: err}
	}
	tx.normalize()
	if !tx.changed() {
		return base, tx, nil
	}
	return tx.commit(), tx, nil
}

func (tx *Tx) runTransforms(transforms []TextTransform) error {
	if len(transforms) == 0 {
		return nil
	}
	for pass := 0; pass < maxTransformPasses && len(tx.touched) > 0; pass++ {
		keys := make([]NodeKey, 0, len(tx.touched))
		for k := range tx.touched {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		clear(tx.touched)
		for _, k := range keys {
			for _, t := range transforms {
				if _, ok := tx.nodes[k].(*TextNode); !ok {
					break
				}
				if err := t(tx, k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Update runs fn as one transaction. A failed or panicking transaction
// leaves the editor untouched and returns the error.
func (e *Editor) Update(fn func(tx *Tx) error, tags ...string) (*EditorState, error) {
	e.mu.Lock()
	prev := e.state
	transforms := make([]TextTransform, 0, len(e.transforms))
	for _, t := range e.transforms {
		transforms = append(transforms, t.fn)
	}
	next, tx, err := apply(prev, fn, transforms, tags)
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("editor transaction rolled back",
			zap.Strings("tags", tags),
			zap.Uint64("version", prev.Version()),
			zap.Error(err),
		)
		return prev, err
	}
	if next == prev {
		e.mu.Unlock()
		return prev, nil
	}
	if !tx.HasTag(TagHistoryMerge) {
		e.pushUndo(prev)
	}
	e.redo = nil
	e.state = next
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	applied := make([]string, 0, len(tx.tags))
	for t := range tx.tags {
		applied = append(applied, t)
	}
	slices.Sort(applied)
	notify(listeners, UpdateEvent{State: next, Prev: prev, Tags: applied})
	return next, nil
}

func (e *Editor) pushUndo(s *EditorState) {
	e.undo = append(e.undo, s)
	if over := len(e.undo) - e.limit; over > 0 {
		e.undo = slices.Delete(e.undo, 0, over)
	}
}

// Undo steps back one transaction. With an empty history the current
// state is returned unchanged.
func (e *Editor) Undo() *EditorState {
	e.mu.Lock()
	if len(e.undo) == 0 {
		defer e.mu.Unlock()
		return e.state
	}
	prev := e.state
	e.state = e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, prev)
	next := e.state
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	notify(listeners, UpdateEvent{State: next, Prev: prev, Tags: []string{TagHistoric}})
	return next
}

// Redo re-applies the last undone transaction.
func (e *Editor) Redo() *EditorState {
	e.mu.Lock()
	if len(e.redo) == 0 {
		defer e.mu.Unlock()
		return e.state
	}
	prev := e.state
	e.state = e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.pushUndo(prev)
	next := e.state
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	notify(listeners, UpdateEvent{State: next, Prev: prev, Tags: []string{TagHistoric}})
	return next
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo) > 0
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo) > 0
}

// SetState replaces the document and drops the history.
func (e *Editor) SetState(s *EditorState) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.undo, e.redo = nil, nil
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	notify(listeners, UpdateEvent{State: s, Prev: prev, Tags: []string{TagSetState}})
}

// RegisterUpdateListener subscribes fn to commits. Listeners run on the
// committing goroutine after the editor lock is released.
func (e *Editor) RegisterUpdateListener(fn UpdateListener) (unregister func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, registeredListener{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.listeners = slices.DeleteFunc(e.listeners, func(l registeredListener) bool { return l.id == id })
	}
}

// RegisterTextTransform adds a transform that runs on typed text.
func (e *Editor) RegisterTextTransform(fn TextTransform) (unregister func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.transforms = append(e.transforms, registeredTransform{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.transforms = slices.DeleteFunc(e.transforms, func(t registeredTransform) bool { return t.id == id })
	}
}

func notify(listeners []registeredListener, ev UpdateEvent) {
	for _, l := range listeners {
		l.fn(ev)
	}
}
