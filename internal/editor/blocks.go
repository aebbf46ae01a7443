package editor

import "fmt"

// BlockType is a toolbar choice for the block around the caret.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockH1        BlockType = "h1"
	BlockH2        BlockType = "h2"
	BlockH3        BlockType = "h3"
	BlockQuote     BlockType = "quote"
	BlockBullet    BlockType = "bullet"
	BlockNumber    BlockType = "number"
)

func (b BlockType) listType() (ListType, bool) {
	switch b {
	case BlockBullet:
		return ListBullet, true
	case BlockNumber:
		return ListNumber, true
	}
	return "", false
}

func newBlock(b BlockType) (Node, error) {
	switch b {
	case BlockParagraph:
		return NewParagraph(), nil
	case BlockH1:
		return NewHeading(1), nil
	case BlockH2:
		return NewHeading(2), nil
	case BlockH3:
		return NewHeading(3), nil
	case BlockQuote:
		return NewQuote(), nil
	}
	return nil, fmt.Errorf("block type %q", b)
}

// BlockOf returns the closest non-inline element holding key.
func (v *View) BlockOf(key NodeKey) NodeKey {
	for key != 0 && key != v.root {
		n, ok := v.nodes[key]
		if !ok {
			return 0
		}
		if _, isElem := asElement(n); isElem && !v.reg.IsInline(n.Kind()) {
			return key
		}
		key = n.Parent()
	}
	return 0
}

// SetBlockType turns the block holding key into another block type,
// keeping its inline content. It returns the key of the resulting block,
// which is the list for list types.
func (tx *Tx) SetBlockType(key NodeKey, bt BlockType) (NodeKey, error) {
	block := tx.BlockOf(key)
	if block == 0 {
		return 0, fmt.Errorf("%w: %d has no block", ErrNodeNotFound, key)
	}
	n := tx.nodes[block]
	if item, ok := n.(*ListItemNode); ok {
		return tx.convertListItem(item, bt)
	}
	if lt, ok := bt.listType(); ok {
		list := NewList(lt, 1)
		if err := tx.InsertAfter(block, list); err != nil {
			return 0, err
		}
		item := NewListItem()
		if err := tx.Append(list.key, item); err != nil {
			return 0, err
		}
		if err := tx.Append(item.key, tx.Children(block)...); err != nil {
			return 0, err
		}
		return list.key, tx.Remove(block)
	}
	nb, err := newBlock(bt)
	if err != nil {
		return 0, err
	}
	if h, ok := n.(*HeadingNode); ok {
		if nh, ok := nb.(*HeadingNode); ok && nh.level == h.level {
			return block, nil
		}
	}
	if nb.Kind() == n.Kind() && n.Kind() != KindHeading {
		return block, nil
	}
	e, _ := asElement(n)
	nb.(Element).element().align = e.align
	return nb.Key(), tx.Replace(block, nb, true)
}

func (tx *Tx) convertListItem(item *ListItemNode, bt BlockType) (NodeKey, error) {
	listKey := item.parent
	if lt, ok := bt.listType(); ok {
		w, err := tx.writable(listKey)
		if err != nil {
			return 0, err
		}
		w.(*ListNode).listType = lt
		return listKey, nil
	}
	if tx.nodes[listKey].Parent() != tx.root {
		return 0, fmt.Errorf("%w: nested list item", ErrInvalidChild)
	}
	nb, err := newBlock(bt)
	if err != nil {
		return 0, err
	}
	list := tx.nodes[listKey].(*ListNode)
	items := tx.Children(listKey)
	idx := indexOf(list.children, item.key)

	if err := tx.InsertAfter(listKey, nb); err != nil {
		return 0, err
	}
	for _, c := range tx.Children(item.key) {
		if tx.reg.IsInline(c.Kind()) {
			if err := tx.Append(nb.Key(), c); err != nil {
				return 0, err
			}
		}
	}
	// Items after the converted one continue in a list of their own.
	if idx >= 0 && idx+1 < len(items) {
		rest := NewList(list.listType, list.start+idx+1)
		if err := tx.InsertAfter(nb.Key(), rest); err != nil {
			return 0, err
		}
		if err := tx.Append(rest.key, items[idx+1:]...); err != nil {
			return 0, err
		}
	}
	if err := tx.Remove(item.key); err != nil {
		return 0, err
	}
	if l, _ := asElement(tx.nodes[listKey]); len(l.children) == 0 {
		return nb.Key(), tx.Remove(listKey)
	}
	return nb.Key(), nil
}

// SetListStart changes the first number of an ordered list.
func (tx *Tx) SetListStart(key NodeKey, start int) error {
	n, err := tx.writable(key)
	if err != nil {
		return err
	}
	l, ok := n.(*ListNode)
	if !ok {
		return fmt.Errorf("%w: %s is not a list", ErrInvalidChild, n.Kind())
	}
	l.start = max(start, 1)
	return nil
}
