package editor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// KindSpec describes one node kind to the Registry.
type KindSpec struct {
	Kind Kind
	// Inline kinds live inside blocks. Everything else is a block or the root.
	Inline bool
	// Element kinds own children.
	Element bool
	// AcceptInline admits every registered inline kind as a child.
	AcceptInline bool
	// Accept lists further child kinds; Reject overrides both.
	Accept []Kind
	Reject []Kind
	// Import builds a detached node from its serialized fields. Children
	// are attached by the deserializer.
	Import func(s SerializedNode) (Node, error)
}

// Registry maps kind tags to their behavior. Registration must finish
// before any document using the registry is built or deserialized.
type Registry struct {
	mu    sync.RWMutex
	specs map[Kind]KindSpec
}

// NewRegistry returns a registry with the built-in kinds plus extra.
func NewRegistry(extra ...KindSpec) *Registry {
	r := &Registry{specs: make(map[Kind]KindSpec)}
	for _, s := range builtinKinds() {
		r.specs[s.Kind] = s
	}
	for _, s := range extra {
		r.specs[s.Kind] = s
	}
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(spec KindSpec) error {
	if spec.Kind == "" {
		return fmt.Errorf("register kind: empty tag")
	}
	if spec.Import == nil {
		return fmt.Errorf("register kind %q: missing import function", spec.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Kind] = spec
	return nil
}

func (r *Registry) Lookup(k Kind) (KindSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[k]
	return s, ok
}

func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) IsInline(k Kind) bool {
	s, ok := r.Lookup(k)
	return ok && s.Inline
}

// Accepts reports whether a parent of kind parent may hold a child of
// kind child.
func (r *Registry) Accepts(parent, child Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps, ok := r.specs[parent]
	if !ok || !ps.Element {
		return false
	}
	cs, ok := r.specs[child]
	if !ok || child == KindRoot {
		return false
	}
	if slices.Contains(ps.Reject, child) {
		return false
	}
	if ps.AcceptInline && cs.Inline {
		return true
	}
	return slices.Contains(ps.Accept, child)
}

func builtinKinds() []KindSpec {
	blocks := []Kind{KindParagraph, KindHeading, KindList, KindQuote}
	return []KindSpec{
		{
			Kind: KindRoot, Element: true, Accept: blocks,
			Import: func(SerializedNode) (Node, error) { return &RootNode{}, nil },
		},
		{
			Kind: KindParagraph, Element: true, AcceptInline: true,
			Import: func(SerializedNode) (Node, error) { return NewParagraph(), nil },
		},
		{
			Kind: KindHeading, Element: true, AcceptInline: true,
			Import: importHeading,
		},
		{
			Kind: KindList, Element: true, Accept: []Kind{KindListItem},
			Import: func(s SerializedNode) (Node, error) { return NewList(s.ListType, s.Start), nil },
		},
		{
			Kind: KindListItem, Element: true, AcceptInline: true, Accept: []Kind{KindList},
			Import: func(SerializedNode) (Node, error) { return NewListItem(), nil },
		},
		{
			Kind: KindQuote, Element: true, AcceptInline: true,
			Import: func(SerializedNode) (Node, error) { return NewQuote(), nil },
		},
		{
			Kind: KindLink, Element: true, Inline: true, AcceptInline: true, Reject: []Kind{KindLink},
			Import: func(s SerializedNode) (Node, error) { return NewLink(s.URL), nil },
		},
		{
			Kind: KindText, Inline: true,
			Import: func(s SerializedNode) (Node, error) { return NewFormattedText(s.Text, s.Format), nil },
		},
		{
			Kind: KindLineBreak, Inline: true,
			Import: func(SerializedNode) (Node, error) { return NewLineBreak(), nil },
		},
		{
			Kind: KindEmoji, Inline: true,
			Import: func(s SerializedNode) (Node, error) { return NewEmoji(s.Emoji, s.Name), nil },
		},
		{
			Kind: KindImage, Inline: true,
			Import: importImage,
		},
	}
}

func importHeading(s SerializedNode) (Node, error) {
	if !strings.HasPrefix(s.Tag, "h") {
		return nil, fmt.Errorf("heading tag %q", s.Tag)
	}
	level, err := strconv.Atoi(s.Tag[1:])
	if err != nil {
		return nil, fmt.Errorf("heading tag %q: %w", s.Tag, err)
	}
	return NewHeading(level), nil
}
