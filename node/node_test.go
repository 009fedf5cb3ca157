package node

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"blinkpage/itemptr"
)

func ptrs(n int) []itemptr.ItemPtr {
	out := make([]itemptr.ItemPtr, n)
	for i := range out {
		out[i] = itemptr.New(int32(10+i), uint32(i*16))
	}
	return out
}

func TestNewIsLeafWithHighKey(t *testing.T) {
	loc := itemptr.New(1, 2)
	n, err := New[uint32](2, loc, loc, []uint32{1, 2, 3, 4}, ptrs(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !n.IsLeaf() || n.Kind() != KindLeaf {
		t.Fatalf("New must build a leaf, got %s", n.Kind())
	}
	if n.HighKey() != 4 {
		t.Fatalf("HighKey = %d, want 4", n.HighKey())
	}
	if n.Order() != 2 || n.Loc() != loc || n.Link() != loc {
		t.Fatalf("metadata not kept: %s", n)
	}
	if len(n.Values()) != 4 || n.Children() != nil {
		t.Fatalf("leaf should expose values only")
	}
}

func TestNewEmptyKeys(t *testing.T) {
	_, err := New[uint32](2, itemptr.Null(), itemptr.Null(), nil, nil)
	var ce *ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *ConstructionError", err)
	}
	if !errors.Is(err, ErrEmptyKeys) {
		t.Fatalf("got %v, want ErrEmptyKeys", err)
	}
}

func TestNewUnsortedKeys(t *testing.T) {
	_, err := New[int64](2, itemptr.Null(), itemptr.Null(), []int64{3, 1, 2}, nil)
	if !errors.Is(err, ErrUnsortedKeys) {
		t.Fatalf("got %v, want ErrUnsortedKeys", err)
	}
}

func TestHighKeyIsMax(t *testing.T) {
	cases := [][]int16{
		{7},
		{-5, -5, -1},
		{-300, 0, 300},
		{1, 1, 1, 1},
	}
	for _, keys := range cases {
		n, err := New[int16](4, itemptr.Null(), itemptr.Null(), keys, nil)
		if err != nil {
			t.Fatalf("New(%v): %v", keys, err)
		}
		if want := slices.Max(keys); n.HighKey() != want {
			t.Fatalf("HighKey(%v) = %d, want %d", keys, n.HighKey(), want)
		}
	}
}

func TestInputsAreCopied(t *testing.T) {
	keys := []uint32{1, 2, 3}
	children := ptrs(3)
	n, err := New[uint32](2, itemptr.Null(), itemptr.Null(), keys, children)
	if err != nil {
		t.Fatal(err)
	}
	keys[2] = 0
	children[0] = itemptr.Null()
	if n.HighKey() != 3 || n.Keys()[2] != 3 {
		t.Fatalf("node aliases caller keys: %s", n)
	}
	if n.Ptrs()[0].IsNull() {
		t.Fatalf("node aliases caller pointers: %s", n)
	}
	got := n.Keys()
	got[0] = 99
	if n.Keys()[0] != 1 {
		t.Fatalf("Keys() must return a copy")
	}
}

func TestSetKeysRecomputesHighKey(t *testing.T) {
	n, err := New[uint32](2, itemptr.Null(), itemptr.Null(), []uint32{1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetKeys([]uint32{5, 9, 12}); err != nil {
		t.Fatalf("SetKeys: %v", err)
	}
	if n.HighKey() != 12 || n.Len() != 3 {
		t.Fatalf("after SetKeys: %s", n)
	}
	if err := n.SetKeys(nil); !errors.Is(err, ErrEmptyKeys) {
		t.Fatalf("SetKeys(nil) = %v, want ErrEmptyKeys", err)
	}
	if err := n.SetKeys([]uint32{4, 2}); !errors.Is(err, ErrUnsortedKeys) {
		t.Fatalf("SetKeys unsorted = %v, want ErrUnsortedKeys", err)
	}
	if n.HighKey() != 12 {
		t.Fatalf("failed SetKeys changed the node: %s", n)
	}
}

func TestSetPtrs(t *testing.T) {
	n, err := New[uint32](2, itemptr.Null(), itemptr.Null(), []uint32{1, 2}, ptrs(2))
	if err != nil {
		t.Fatal(err)
	}
	repl := ptrs(3)
	n.SetPtrs(repl)
	repl[0] = itemptr.Null()
	if got := n.Ptrs(); len(got) != 3 || got[0].IsNull() {
		t.Fatalf("SetPtrs did not copy its input: %v", got)
	}
	if n.HighKey() != 2 || !n.IsLeaf() {
		t.Fatalf("SetPtrs changed more than the pointers: %s", n)
	}
	n.SetPtrs(nil)
	if len(n.Values()) != 0 {
		t.Fatalf("SetPtrs(nil) left %v", n.Values())
	}
}

func TestPromote(t *testing.T) {
	leaf, err := New[uint32](3, itemptr.New(4, 0), itemptr.New(5, 0), []uint32{10, 20}, ptrs(2))
	if err != nil {
		t.Fatal(err)
	}
	internal := leaf.Promote(ptrs(3))
	if internal.IsLeaf() || internal.Kind() != KindInternal {
		t.Fatalf("Promote must produce an internal node")
	}
	if !leaf.IsLeaf() {
		t.Fatalf("Promote modified the receiver")
	}
	if internal.HighKey() != 20 || internal.Link() != leaf.Link() || internal.Loc() != leaf.Loc() {
		t.Fatalf("Promote lost metadata: %s", internal)
	}
	if len(internal.Children()) != 3 || internal.Values() != nil {
		t.Fatalf("internal should expose children only")
	}
	if leaf.Equal(internal) {
		t.Fatalf("leaf and internal must not be equal")
	}
}

func TestSearch(t *testing.T) {
	n, err := NewInternal[int32](4, itemptr.Null(), itemptr.Null(), []int32{10, 20, 20, 30}, ptrs(5))
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		key   int32
		pos   int
		found bool
	}{
		{5, 0, false},
		{10, 0, true},
		{15, 1, false},
		{20, 1, true},
		{30, 3, true},
		{31, 4, false},
	}
	for _, c := range cases {
		pos, found := n.Search(c.key)
		if pos != c.pos || found != c.found {
			t.Fatalf("Search(%d) = (%d, %v), want (%d, %v)", c.key, pos, found, c.pos, c.found)
		}
	}
}

func TestMustMoveRight(t *testing.T) {
	n, err := New[uint64](2, itemptr.New(1, 0), itemptr.New(2, 0), []uint64{1, 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n.MustMoveRight(5) {
		t.Fatalf("key equal to high key stays here")
	}
	if !n.MustMoveRight(6) {
		t.Fatalf("key above high key must follow the link")
	}
	n.SetLink(itemptr.Null())
	if n.MustMoveRight(6) {
		t.Fatalf("rightmost node has nowhere to move")
	}
}

func TestString(t *testing.T) {
	n, err := New[uint8](2, itemptr.New(1, 2), itemptr.Null(), []uint8{1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := n.String()
	for _, want := range []string{"kind=leaf", "high_key=2", "loc=ItemPtr[page_no=1 offset=2]"} {
		if !strings.Contains(s, want) {
			t.Fatalf("String() = %q, missing %q", s, want)
		}
	}
}
