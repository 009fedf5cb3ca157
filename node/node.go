package node

import (
	"fmt"
	"slices"

	"blinkpage/itemptr"

	"github.com/pkg/errors"
)

// Kind tags a node as leaf or internal. Zero is never a valid tag.
type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

/*
Node is one B-link tree node.

keys are kept sorted and highKey is always their maximum. link points to the right
sibling at the same level so a reader that lands here after a concurrent split can
follow it. ptrs holds record pointers for a leaf and child page pointers for an
internal node; how many there are per key is the tree layer's business.
*/
type Node[K Key] struct {
	kind    Kind
	order   uint32
	loc     itemptr.ItemPtr
	link    itemptr.ItemPtr
	highKey K
	keys    []K
	ptrs    []itemptr.ItemPtr
}

// New builds a leaf node. It is the same as NewLeaf.
func New[K Key](order uint32, loc, link itemptr.ItemPtr, keys []K, children []itemptr.ItemPtr) (*Node[K], error) {
	return newNode(KindLeaf, order, loc, link, keys, children)
}

// NewLeaf builds a leaf whose values point at records.
func NewLeaf[K Key](order uint32, loc, link itemptr.ItemPtr, keys []K, values []itemptr.ItemPtr) (*Node[K], error) {
	return newNode(KindLeaf, order, loc, link, keys, values)
}

// NewInternal builds an internal node whose children point at pages one level down.
func NewInternal[K Key](order uint32, loc, link itemptr.ItemPtr, keys []K, children []itemptr.ItemPtr) (*Node[K], error) {
	return newNode(KindInternal, order, loc, link, keys, children)
}

func newNode[K Key](kind Kind, order uint32, loc, link itemptr.ItemPtr, keys []K, ptrs []itemptr.ItemPtr) (*Node[K], error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	return &Node[K]{
		kind:    kind,
		order:   order,
		loc:     loc,
		link:    link,
		highKey: keys[len(keys)-1],
		keys:    slices.Clone(keys),
		ptrs:    slices.Clone(ptrs),
	}, nil
}

func checkKeys[K Key](keys []K) error {
	if len(keys) == 0 {
		return &ConstructionError{Err: ErrEmptyKeys}
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] < keys[i-1] {
			return &ConstructionError{Err: errors.Wrapf(ErrUnsortedKeys, "key %d (%v) < key %d (%v)", i, keys[i], i-1, keys[i-1])}
		}
	}
	return nil
}

func (n *Node[K]) Kind() Kind             { return n.kind }
func (n *Node[K]) IsLeaf() bool           { return n.kind == KindLeaf }
func (n *Node[K]) Order() uint32          { return n.order }
func (n *Node[K]) Loc() itemptr.ItemPtr   { return n.loc }
func (n *Node[K]) Link() itemptr.ItemPtr  { return n.link }
func (n *Node[K]) HighKey() K             { return n.highKey }
func (n *Node[K]) Len() int               { return len(n.keys) }
func (n *Node[K]) Keys() []K              { return slices.Clone(n.keys) }
func (n *Node[K]) Ptrs() []itemptr.ItemPtr { return slices.Clone(n.ptrs) }

// Values returns the record pointers of a leaf, nil for an internal node.
func (n *Node[K]) Values() []itemptr.ItemPtr {
	if n.kind != KindLeaf {
		return nil
	}
	return slices.Clone(n.ptrs)
}

// Children returns the child page pointers of an internal node, nil for a leaf.
func (n *Node[K]) Children() []itemptr.ItemPtr {
	if n.kind != KindInternal {
		return nil
	}
	return slices.Clone(n.ptrs)
}

// SetKeys replaces the keys and recomputes the high key. On error n is unchanged.
func (n *Node[K]) SetKeys(keys []K) error {
	if err := checkKeys(keys); err != nil {
		return err
	}
	n.keys = slices.Clone(keys)
	n.highKey = keys[len(keys)-1]
	return nil
}

// SetPtrs replaces the value or child pointers.
func (n *Node[K]) SetPtrs(ptrs []itemptr.ItemPtr) {
	n.ptrs = slices.Clone(ptrs)
}

func (n *Node[K]) SetLink(link itemptr.ItemPtr) { n.link = link }
func (n *Node[K]) SetLoc(loc itemptr.ItemPtr)   { n.loc = loc }

// Promote returns an internal copy of n that points at children. n itself is not modified.
func (n *Node[K]) Promote(children []itemptr.ItemPtr) *Node[K] {
	return &Node[K]{
		kind:    KindInternal,
		order:   n.order,
		loc:     n.loc,
		link:    n.link,
		highKey: n.highKey,
		keys:    slices.Clone(n.keys),
		ptrs:    slices.Clone(children),
	}
}

// Equal compares every field, high key included.
func (n *Node[K]) Equal(o *Node[K]) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.kind == o.kind &&
		n.order == o.order &&
		n.loc == o.loc &&
		n.link == o.link &&
		n.highKey == o.highKey &&
		slices.Equal(n.keys, o.keys) &&
		slices.Equal(n.ptrs, o.ptrs)
}

func (n *Node[K]) String() string {
	return fmt.Sprintf("Node[kind=%s order=%d loc=%s link=%s high_key=%v keys=%v ptrs=%v]",
		n.kind, n.order, n.loc, n.link, n.highKey, n.keys, n.ptrs)
}
