package editor

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"
)

// Tx is a transaction against a working copy of an EditorState. Nodes are
// copied on first write, so the base state is never touched. A Tx is
// only valid inside the function it was handed to.
type Tx struct {
	View
	base    *EditorState
	keys    *keySource
	owned   bool
	dirty   map[NodeKey]struct{}
	touched map[NodeKey]struct{}
	tags    map[string]struct{}
}

func newTx(base *EditorState, tags []string) *Tx {
	sel := base.selection
	tx := &Tx{
		View:    View{nodes: base.nodes, root: base.root, sel: &sel, reg: base.reg},
		base:    base,
		keys:    base.keys,
		dirty:   make(map[NodeKey]struct{}),
		touched: make(map[NodeKey]struct{}),
		tags:    make(map[string]struct{}),
	}
	for _, t := range tags {
		tx.tags[t] = struct{}{}
	}
	return tx
}

// AddTag marks the transaction. Tags are visible to listeners.
func (tx *Tx) AddTag(tag string) { tx.tags[tag] = struct{}{} }

func (tx *Tx) HasTag(tag string) bool {
	_, ok := tx.tags[tag]
	return ok
}

func (tx *Tx) own() {
	if tx.owned {
		return
	}
	m := make(map[NodeKey]Node, len(tx.nodes)+8)
	maps.Copy(m, tx.nodes)
	tx.nodes = m
	tx.owned = true
}

// writable returns a node that may be mutated in place for the rest of
// the transaction.
func (tx *Tx) writable(key NodeKey) (Node, error) {
	n, ok := tx.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	tx.own()
	if _, ok := tx.dirty[key]; ok {
		return n, nil
	}
	c := n.Clone()
	tx.nodes[key] = c
	tx.dirty[key] = struct{}{}
	return c, nil
}

func (tx *Tx) writableElement(key NodeKey) (*ElementHeader, error) {
	n, err := tx.writable(key)
	if err != nil {
		return nil, err
	}
	e, ok := asElement(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no children", ErrInvalidChild, n.Kind())
	}
	return e, nil
}

// Mutate hands fn a writable copy of the node. It is the way to change
// fields of custom kinds.
func (tx *Tx) Mutate(key NodeKey, fn func(n Node) error) error {
	n, err := tx.writable(key)
	if err != nil {
		return err
	}
	return fn(n)
}

// isAncestor reports whether a is b or one of b's ancestors.
func (tx *Tx) isAncestor(a, b NodeKey) bool {
	for b != 0 {
		if a == b {
			return true
		}
		n, ok := tx.nodes[b]
		if !ok {
			return false
		}
		b = n.Parent()
	}
	return false
}

func (tx *Tx) detach(key NodeKey) error {
	n, ok := tx.nodes[key]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	if n.Parent() == 0 {
		return nil
	}
	pe, err := tx.writableElement(n.Parent())
	if err != nil {
		return err
	}
	if i := indexOf(pe.children, key); i >= 0 {
		pe.children = slices.Delete(pe.children, i, i+1)
	}
	w, err := tx.writable(key)
	if err != nil {
		return err
	}
	w.header().parent = 0
	return nil
}

// place attaches n under parent at the index chosen by at. A node without
// a key is new and receives one; a node with a key is moved.
func (tx *Tx) place(parent NodeKey, n Node, at func(children []NodeKey) int) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidChild)
	}
	pn, ok := tx.nodes[parent]
	if !ok {
		return fmt.Errorf("%w: parent %d", ErrNodeNotFound, parent)
	}
	if !tx.reg.Accepts(pn.Kind(), n.Kind()) {
		return fmt.Errorf("%w: %s in %s", ErrInvalidChild, n.Kind(), pn.Kind())
	}
	h := n.header()
	switch {
	case h.key == 0:
		h.key = tx.keys.next()
		h.parent = 0
		tx.own()
		tx.nodes[h.key] = n
		tx.dirty[h.key] = struct{}{}
	case h.key == tx.root:
		return ErrRootRemoval
	default:
		if _, ok := tx.nodes[h.key]; !ok {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, h.key)
		}
		if tx.isAncestor(h.key, parent) {
			return fmt.Errorf("%w: node cannot contain itself", ErrInvalidChild)
		}
		if err := tx.detach(h.key); err != nil {
			return err
		}
	}
	key := h.key
	pe, err := tx.writableElement(parent)
	if err != nil {
		return err
	}
	i := min(max(at(pe.children), 0), len(pe.children))
	pe.children = slices.Insert(pe.children, i, key)
	w, err := tx.writable(key)
	if err != nil {
		return err
	}
	w.header().parent = parent
	return nil
}

// Append adds nodes as the last children of parent.
func (tx *Tx) Append(parent NodeKey, nodes ...Node) error {
	for _, n := range nodes {
		err := tx.place(parent, n, func(c []NodeKey) int { return len(c) })
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertAt adds n as the index-th child of parent.
func (tx *Tx) InsertAt(parent NodeKey, index int, n Node) error {
	return tx.place(parent, n, func([]NodeKey) int { return index })
}

func (tx *Tx) InsertBefore(ref NodeKey, n Node) error {
	return tx.insertBeside(ref, n, 0)
}

func (tx *Tx) InsertAfter(ref NodeKey, n Node) error {
	return tx.insertBeside(ref, n, 1)
}

func (tx *Tx) insertBeside(ref NodeKey, n Node, shift int) error {
	rn, ok := tx.nodes[ref]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, ref)
	}
	if ref == tx.root {
		return ErrRootRemoval
	}
	return tx.place(rn.Parent(), n, func(c []NodeKey) int {
		return indexOf(c, ref) + shift
	})
}

// Remove deletes a node and its subtree.
func (tx *Tx) Remove(key NodeKey) error {
	if key == tx.root {
		return ErrRootRemoval
	}
	n, ok := tx.nodes[key]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	parent, idx := n.Parent(), tx.Index(key)
	if err := tx.detach(key); err != nil {
		return err
	}
	removed := tx.deleteSubtree(key)
	if _, gone := removed[tx.sel.Key]; gone {
		*tx.sel = Selection{}
		if _, ok := tx.nodes[parent]; ok && idx >= 0 {
			*tx.sel = Selection{Key: parent, Offset: idx}
		}
	}
	return nil
}

func (tx *Tx) deleteSubtree(key NodeKey) map[NodeKey]struct{} {
	tx.own()
	removed := make(map[NodeKey]struct{})
	stack := []NodeKey{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := tx.nodes[k]
		if !ok {
			continue
		}
		if e, ok := asElement(n); ok {
			stack = append(stack, e.children...)
		}
		delete(tx.nodes, k)
		delete(tx.dirty, k)
		delete(tx.touched, k)
		removed[k] = struct{}{}
	}
	return removed
}

// Clear removes every block under the root.
func (tx *Tx) Clear() error {
	for _, c := range slices.Clone(tx.Root().children) {
		if err := tx.Remove(c); err != nil {
			return err
		}
	}
	*tx.sel = Selection{}
	return nil
}

// Replace puts n where key is. With keepChildren the children of key are
// moved into n.
func (tx *Tx) Replace(key NodeKey, n Node, keepChildren bool) error {
	old, ok := tx.nodes[key]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	if err := tx.InsertAfter(key, n); err != nil {
		return err
	}
	sel := *tx.sel
	if oe, ok := asElement(old); ok && keepChildren {
		if err := tx.Append(n.Key(), tx.Children(oe.Key())...); err != nil {
			return err
		}
	}
	if err := tx.Remove(key); err != nil {
		return err
	}
	if sel.Key == key {
		*tx.sel = Selection{Key: n.Key(), Offset: sel.Offset}
	} else if _, ok := tx.nodes[sel.Key]; ok {
		*tx.sel = sel
	}
	return nil
}

// Duplicate copies the subtree at key with fresh keys and inserts the
// copy right after the original.
func (tx *Tx) Duplicate(key NodeKey) (NodeKey, error) {
	if key == tx.root {
		return 0, ErrRootRemoval
	}
	if _, ok := tx.nodes[key]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	cp := tx.copySubtree(key)
	if err := tx.InsertAfter(key, cp); err != nil {
		return 0, err
	}
	return cp.Key(), nil
}

func (tx *Tx) copySubtree(key NodeKey) Node {
	c := tx.nodes[key].Clone()
	h := c.header()
	h.key = tx.keys.next()
	h.parent = 0
	if e, ok := asElement(c); ok {
		kids := e.children
		e.children = make([]NodeKey, 0, len(kids))
		for _, k := range kids {
			kc := tx.copySubtree(k)
			kc.header().parent = h.key
			e.children = append(e.children, kc.Key())
		}
	}
	tx.own()
	tx.nodes[h.key] = c
	tx.dirty[h.key] = struct{}{}
	return c
}

// SetSelection moves the caret. The zero Selection clears it.
func (tx *Tx) SetSelection(s Selection) error {
	if s.IsZero() {
		*tx.sel = s
		return nil
	}
	n, ok := tx.nodes[s.Key]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, s.Key)
	}
	*tx.sel = Selection{Key: s.Key, Offset: clampOffset(n, s.Offset)}
	return nil
}

func clampOffset(n Node, off int) int {
	limit := 0
	switch n := n.(type) {
	case *TextNode:
		limit = utf8.RuneCountInString(n.text)
	default:
		if e, ok := asElement(n); ok {
			limit = len(e.children)
		}
	}
	return min(max(off, 0), limit)
}

func (tx *Tx) writableText(key NodeKey) (*TextNode, error) {
	n, ok := tx.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	if _, ok := n.(*TextNode); !ok {
		return nil, fmt.Errorf("%w: %s is not text", ErrInvalidChild, n.Kind())
	}
	w, err := tx.writable(key)
	if err != nil {
		return nil, err
	}
	return w.(*TextNode), nil
}

func (tx *Tx) SetText(key NodeKey, text string) error {
	t, err := tx.writableText(key)
	if err != nil {
		return err
	}
	t.text = text
	if tx.sel.Key == key {
		tx.sel.Offset = min(tx.sel.Offset, utf8.RuneCountInString(text))
	}
	return nil
}

func (tx *Tx) SetFormat(key NodeKey, f TextFormat) error {
	t, err := tx.writableText(key)
	if err != nil {
		return err
	}
	t.format = f
	return nil
}

// ToggleFormat flips f on a text node.
func (tx *Tx) ToggleFormat(key NodeKey, f TextFormat) error {
	t, err := tx.writableText(key)
	if err != nil {
		return err
	}
	t.format ^= f
	return nil
}

// SplitText cuts a text node at a rune offset. The left part keeps the
// key. A zero key is returned for an empty side.
func (tx *Tx) SplitText(key NodeKey, offset int) (left, right NodeKey, err error) {
	n, ok := tx.nodes[key]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	tn, ok := n.(*TextNode)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s is not text", ErrInvalidChild, n.Kind())
	}
	r := []rune(tn.text)
	switch {
	case offset <= 0:
		return 0, key, nil
	case offset >= len(r):
		return key, 0, nil
	}
	t, err := tx.writableText(key)
	if err != nil {
		return 0, 0, err
	}
	t.text = string(r[:offset])
	rest := NewFormattedText(string(r[offset:]), t.format)
	if err := tx.InsertAfter(key, rest); err != nil {
		return 0, 0, err
	}
	if tx.sel.Key == key && tx.sel.Offset > offset {
		*tx.sel = Selection{Key: rest.key, Offset: tx.sel.Offset - offset}
	}
	return key, rest.key, nil
}

func (tx *Tx) SetURL(key NodeKey, url string) error {
	n, err := tx.writable(key)
	if err != nil {
		return err
	}
	l, ok := n.(*LinkNode)
	if !ok {
		return fmt.Errorf("%w: %s is not a link", ErrInvalidChild, n.Kind())
	}
	l.url = url
	return nil
}

func (tx *Tx) SetAlign(key NodeKey, a Align) error {
	if key == tx.root {
		return fmt.Errorf("%w: root has no alignment", ErrInvalidChild)
	}
	e, err := tx.writableElement(key)
	if err != nil {
		return err
	}
	e.align = a
	return nil
}

// caret returns the selection, or the end of the document when there is
// none. It may append an empty paragraph.
func (tx *Tx) caret() (Selection, error) {
	if !tx.sel.IsZero() {
		if _, ok := tx.nodes[tx.sel.Key]; ok {
			return *tx.sel, nil
		}
	}
	root := tx.Root()
	var block NodeKey
	if len(root.children) > 0 {
		block = root.children[len(root.children)-1]
	}
	for block != 0 {
		if l, ok := tx.nodes[block].(*ListNode); ok && len(l.children) > 0 {
			block = l.children[len(l.children)-1]
			continue
		}
		break
	}
	if block == 0 || !tx.reg.Accepts(tx.nodes[block].Kind(), KindText) {
		p := NewParagraph()
		if err := tx.Append(tx.root, p); err != nil {
			return Selection{}, err
		}
		block = p.key
	}
	e, _ := asElement(tx.nodes[block])
	if len(e.children) > 0 {
		if t, ok := tx.nodes[e.children[len(e.children)-1]].(*TextNode); ok {
			return Selection{Key: t.key, Offset: utf8.RuneCountInString(t.text)}, nil
		}
	}
	return Selection{Key: block, Offset: len(e.children)}, nil
}

// InsertText types s at the caret. Text transforms run on the affected
// node before the transaction commits.
func (tx *Tx) InsertText(s string) error {
	if s == "" {
		return nil
	}
	sel, err := tx.caret()
	if err != nil {
		return err
	}
	n := tx.nodes[sel.Key]
	if tn, ok := n.(*TextNode); ok {
		r := []rune(tn.text)
		off := min(max(sel.Offset, 0), len(r))
		t, err := tx.writableText(tn.key)
		if err != nil {
			return err
		}
		t.text = string(r[:off]) + s + string(r[off:])
		*tx.sel = Selection{Key: t.key, Offset: off + utf8.RuneCountInString(s)}
		tx.touched[t.key] = struct{}{}
		return nil
	}
	t := NewText(s)
	if err := tx.insertInline(sel, t); err != nil {
		return err
	}
	*tx.sel = Selection{Key: t.key, Offset: utf8.RuneCountInString(s)}
	tx.touched[t.key] = struct{}{}
	return nil
}

// InsertNodes inserts nodes at the caret, splitting text when the caret is
// inside it. Block nodes go after the enclosing top-level block.
func (tx *Tx) InsertNodes(nodes ...Node) error {
	for _, n := range nodes {
		sel, err := tx.caret()
		if err != nil {
			return err
		}
		if tx.reg.IsInline(n.Kind()) {
			if err := tx.insertInline(sel, n); err != nil {
				return err
			}
		} else if err := tx.insertBlock(sel, n); err != nil {
			return err
		}
		placed := tx.nodes[n.Key()]
		if t, ok := placed.(*TextNode); ok {
			*tx.sel = Selection{Key: t.key, Offset: utf8.RuneCountInString(t.text)}
		} else if tx.reg.IsInline(placed.Kind()) {
			*tx.sel = Selection{Key: placed.Parent(), Offset: tx.Index(placed.Key()) + 1}
		} else if e, ok := asElement(placed); ok {
			*tx.sel = Selection{Key: placed.Key(), Offset: len(e.children)}
		}
	}
	return nil
}

func (tx *Tx) insertInline(sel Selection, n Node) error {
	at := tx.nodes[sel.Key]
	switch at := at.(type) {
	case *TextNode:
		left, right, err := tx.SplitText(at.key, sel.Offset)
		if err != nil {
			return err
		}
		if left != 0 {
			return tx.InsertAfter(left, n)
		}
		return tx.InsertBefore(right, n)
	}
	if _, ok := asElement(at); !ok {
		return tx.InsertAfter(sel.Key, n)
	}
	if tx.reg.Accepts(at.Kind(), n.Kind()) {
		return tx.InsertAt(sel.Key, sel.Offset, n)
	}
	if sel.Key == tx.root {
		p := NewParagraph()
		if err := tx.InsertAt(tx.root, sel.Offset, p); err != nil {
			return err
		}
		return tx.Append(p.key, n)
	}
	*tx.sel = Selection{}
	end, err := tx.caret()
	if err != nil {
		return err
	}
	return tx.insertInline(end, n)
}

func (tx *Tx) insertBlock(sel Selection, n Node) error {
	if sel.Key == tx.root {
		return tx.InsertAt(tx.root, sel.Offset, n)
	}
	top := tx.TopLevelBlock(sel.Key)
	if top == 0 {
		return tx.Append(tx.root, n)
	}
	return tx.InsertAfter(top, n)
}

// normalize merges neighbouring text nodes with equal format and drops
// empty text nodes the caret is not on.
func (tx *Tx) normalize() {
	parents := make(map[NodeKey]struct{})
	for k := range tx.dirty {
		if n, ok := tx.nodes[k]; ok {
			if _, isText := n.(*TextNode); isText {
				parents[n.Parent()] = struct{}{}
			} else if _, isElem := asElement(n); isElem {
				parents[k] = struct{}{}
			}
		}
	}
	for p := range parents {
		if _, ok := tx.nodes[p]; ok {
			tx.normalizeChildren(p)
		}
	}
}

func (tx *Tx) normalizeChildren(parent NodeKey) {
	e, ok := asElement(tx.nodes[parent])
	if !ok {
		return
	}
	kids := slices.Clone(e.children)
	var prev *TextNode
	for _, k := range kids {
		t, ok := tx.nodes[k].(*TextNode)
		if !ok {
			prev = nil
			continue
		}
		if t.text == "" && tx.sel.Key != k {
			_ = tx.Remove(k)
			continue
		}
		if prev == nil || prev.format != t.format {
			prev = t
			continue
		}
		w, err := tx.writableText(prev.key)
		if err != nil {
			return
		}
		shift := utf8.RuneCountInString(w.text)
		w.text += t.text
		if tx.sel.Key == k {
			*tx.sel = Selection{Key: w.key, Offset: tx.sel.Offset + shift}
		}
		sel := *tx.sel
		_ = tx.Remove(k)
		*tx.sel = sel
		prev = w
	}
}

func (tx *Tx) changed() bool {
	return tx.owned || *tx.sel != tx.base.selection
}

func (tx *Tx) commit() *EditorState {
	sel := *tx.sel
	if n, ok := tx.nodes[sel.Key]; ok {
		sel.Offset = clampOffset(n, sel.Offset)
	} else {
		sel = Selection{}
	}
	return &EditorState{
		nodes:     tx.nodes,
		root:      tx.root,
		selection: sel,
		version:   tx.base.version + 1,
		keys:      tx.keys,
		reg:       tx.reg,
	}
}
