package editor

import (
	"encoding/json"
	"fmt"
)

// MaxDepth bounds the nesting accepted when deserializing.
const MaxDepth = 64

// SerializedNode is the JSON form of one node. Fields that do not apply to
// a kind stay empty.
type SerializedNode struct {
	Type     Kind             `json:"type"`
	Version  int              `json:"version"`
	Children []SerializedNode `json:"children,omitempty"`

	Text   string     `json:"text,omitempty"`
	Format TextFormat `json:"format,omitempty"`
	Mode   string     `json:"mode,omitempty"`

	Tag      string   `json:"tag,omitempty"`
	ListType ListType `json:"listType,omitempty"`
	Start    int      `json:"start,omitempty"`
	URL      string   `json:"url,omitempty"`
	Align    Align    `json:"align,omitempty"`

	Emoji string `json:"emoji,omitempty"`
	Name  string `json:"name,omitempty"`

	Src         string       `json:"src,omitempty"`
	AltText     string       `json:"altText,omitempty"`
	Caption     string       `json:"caption,omitempty"`
	Width       int          `json:"width,omitempty"`
	UploadState UploadStatus `json:"uploadState,omitempty"`
	Progress    *float64     `json:"progress,omitempty"`
}

// SerializedState is the JSON form of a whole document.
type SerializedState struct {
	Root SerializedNode `json:"root"`
}

// Export returns the serialized tree of s.
func Export(s *EditorState) SerializedState {
	v := s.View()
	return SerializedState{Root: exportNode(v, v.root)}
}

func exportNode(v *View, key NodeKey) SerializedNode {
	n := v.nodes[key]
	out := n.ExportJSON()
	if e, ok := asElement(n); ok {
		out.Children = make([]SerializedNode, 0, len(e.children))
		for _, c := range e.children {
			out.Children = append(out.Children, exportNode(v, c))
		}
	}
	return out
}

// Serialize encodes s as JSON.
func Serialize(s *EditorState) ([]byte, error) {
	return json.Marshal(Export(s))
}

// Deserialize decodes a document produced by Serialize. Any structural
// problem is reported as a *MalformedDocumentError.
func Deserialize(reg *Registry, data []byte) (*EditorState, error) {
	var doc SerializedState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedDocumentError{Reason: "invalid json", Err: err}
	}
	return Import(reg, doc)
}

// Import builds a state from an already decoded document.
func Import(reg *Registry, doc SerializedState) (*EditorState, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	if doc.Root.Type != KindRoot {
		return nil, &MalformedDocumentError{Reason: fmt.Sprintf("top-level node is %q, want root", doc.Root.Type)}
	}
	b := &builder{reg: reg, keys: &keySource{}, nodes: make(map[NodeKey]Node)}
	root, err := b.build(doc.Root, 0, 0)
	if err != nil {
		return nil, err
	}
	s := &EditorState{nodes: b.nodes, root: root, keys: b.keys, reg: reg}
	if err := validateTree(s); err != nil {
		return nil, err
	}
	return s, nil
}

type builder struct {
	reg   *Registry
	keys  *keySource
	nodes map[NodeKey]Node
}

func (b *builder) build(sn SerializedNode, parent NodeKey, depth int) (NodeKey, error) {
	if depth > MaxDepth {
		return 0, &MalformedDocumentError{Reason: "document nested too deeply"}
	}
	if depth > 0 && sn.Type == KindRoot {
		return 0, &MalformedDocumentError{Reason: "nested root node"}
	}
	spec, ok := b.reg.Lookup(sn.Type)
	if !ok {
		return 0, &MalformedDocumentError{Reason: fmt.Sprintf("node type %q", sn.Type), Err: ErrUnknownKind}
	}
	n, err := spec.Import(sn)
	if err != nil {
		return 0, &MalformedDocumentError{Reason: fmt.Sprintf("decode %s node", sn.Type), Err: err}
	}
	h := n.header()
	h.key = b.keys.next()
	h.parent = parent
	b.nodes[h.key] = n

	e, isElement := asElement(n)
	if !isElement {
		if len(sn.Children) > 0 {
			return 0, &MalformedDocumentError{Reason: fmt.Sprintf("%s node cannot have children", sn.Type)}
		}
		return h.key, nil
	}
	switch sn.Align {
	case AlignNone, AlignLeft, AlignCenter, AlignRight:
		e.align = sn.Align
	default:
		return 0, &MalformedDocumentError{Reason: fmt.Sprintf("alignment %q", sn.Align)}
	}
	for _, c := range sn.Children {
		if !b.reg.Accepts(sn.Type, c.Type) {
			if _, known := b.reg.Lookup(c.Type); !known {
				return 0, &MalformedDocumentError{Reason: fmt.Sprintf("node type %q", c.Type), Err: ErrUnknownKind}
			}
			return 0, &MalformedDocumentError{
				Reason: fmt.Sprintf("%s inside %s", c.Type, sn.Type),
				Err:    ErrInvalidChild,
			}
		}
		ck, err := b.build(c, h.key, depth+1)
		if err != nil {
			return 0, err
		}
		e.children = append(e.children, ck)
	}
	return h.key, nil
}

// validateTree checks that every node is reachable exactly once from the
// root and that parent links agree with child lists.
func validateTree(s *EditorState) error {
	seen := make(map[NodeKey]bool, len(s.nodes))
	stack := []NodeKey{s.root}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[k] {
			return &MalformedDocumentError{Reason: fmt.Sprintf("node %d reachable twice", k)}
		}
		seen[k] = true
		n, ok := s.nodes[k]
		if !ok {
			return &MalformedDocumentError{Reason: fmt.Sprintf("dangling child %d", k)}
		}
		e, ok := asElement(n)
		if !ok {
			continue
		}
		for _, c := range e.children {
			if cn, ok := s.nodes[c]; ok && cn.Parent() != k {
				return &MalformedDocumentError{Reason: fmt.Sprintf("node %d has wrong parent", c)}
			}
			stack = append(stack, c)
		}
	}
	if len(seen) != len(s.nodes) {
		return &MalformedDocumentError{Reason: "unreachable nodes"}
	}
	return nil
}
