package editor

import "sync/atomic"

// keySource hands out node keys for a whole state lineage. States derived
// from one another share it so undone keys are never issued again.
type keySource struct{ last atomic.Uint64 }

func (k *keySource) next() NodeKey { return NodeKey(k.last.Add(1)) }

// observe makes sure later keys are above key.
func (k *keySource) observe(key NodeKey) {
	for {
		cur := k.last.Load()
		if uint64(key) <= cur || k.last.CompareAndSwap(cur, uint64(key)) {
			return
		}
	}
}

// Selection is a caret. On a text node Offset counts runes; on an
// element it is a child index. The zero value means no selection.
type Selection struct {
	Key    NodeKey
	Offset int
}

func (s Selection) IsZero() bool { return s.Key == 0 }

// EditorState is an immutable snapshot of a document. It is safe to share
// between goroutines.
type EditorState struct {
	nodes     map[NodeKey]Node
	root      NodeKey
	selection Selection
	version   uint64
	keys      *keySource
	reg       *Registry
}

// CreateEmpty returns a document holding a single empty paragraph.
func CreateEmpty(reg *Registry) *EditorState {
	if reg == nil {
		reg = NewRegistry()
	}
	keys := &keySource{}
	root := &RootNode{}
	root.key = keys.next()
	p := NewParagraph()
	p.key = keys.next()
	p.parent = root.key
	root.children = []NodeKey{p.key}
	return &EditorState{
		nodes: map[NodeKey]Node{root.key: root, p.key: p},
		root:  root.key,
		keys:  keys,
		reg:   reg,
	}
}

// Version increases by one with every committed transaction.
func (s *EditorState) Version() uint64 { return s.version }

func (s *EditorState) Registry() *Registry { return s.reg }

func (s *EditorState) Selection() Selection { return s.selection }

// View returns a read-only view of the snapshot.
func (s *EditorState) View() *View {
	sel := s.selection
	return &View{nodes: s.nodes, root: s.root, sel: &sel, reg: s.reg}
}

// Read runs fn against the snapshot.
func (s *EditorState) Read(fn func(v *View) error) error {
	return fn(s.View())
}

// View gives read access to a tree, either a committed snapshot or the
// working copy of a transaction.
type View struct {
	nodes map[NodeKey]Node
	root  NodeKey
	sel   *Selection
	reg   *Registry
}

func (v *View) Root() *RootNode { return v.nodes[v.root].(*RootNode) }

func (v *View) RootKey() NodeKey { return v.root }

func (v *View) Registry() *Registry { return v.reg }

func (v *View) Selection() Selection { return *v.sel }

// Len is the number of nodes in the tree, root included.
func (v *View) Len() int { return len(v.nodes) }

func (v *View) Node(key NodeKey) (Node, bool) {
	n, ok := v.nodes[key]
	return n, ok
}

// Children returns the child nodes of key, or nil for leaves.
func (v *View) Children(key NodeKey) []Node {
	n, ok := v.nodes[key]
	if !ok {
		return nil
	}
	e, ok := asElement(n)
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(e.children))
	for _, k := range e.children {
		out = append(out, v.nodes[k])
	}
	return out
}

// Index returns the position of key among its siblings, or -1.
func (v *View) Index(key NodeKey) int {
	n, ok := v.nodes[key]
	if !ok {
		return -1
	}
	p, ok := v.nodes[n.Parent()]
	if !ok {
		return -1
	}
	e, _ := asElement(p)
	return indexOf(e.children, key)
}

// TopLevelBlock returns the ancestor of key that sits directly under the
// root, or 0.
func (v *View) TopLevelBlock(key NodeKey) NodeKey {
	for {
		n, ok := v.nodes[key]
		if !ok || key == v.root {
			return 0
		}
		if n.Parent() == v.root {
			return key
		}
		key = n.Parent()
	}
}

// Walk visits the tree in document order. Returning false from fn skips
// the node's children.
func (v *View) Walk(fn func(n Node, depth int) bool) {
	v.walk(v.root, 0, fn)
}

func (v *View) walk(key NodeKey, depth int, fn func(Node, int) bool) {
	n := v.nodes[key]
	if !fn(n, depth) {
		return
	}
	if e, ok := asElement(n); ok {
		for _, c := range e.children {
			v.walk(c, depth+1, fn)
		}
	}
}
