package nodestore

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"blinkpage/itemptr"
	"blinkpage/node"
	"blinkpage/pagecodec"
	"blinkpage/pagestore"

	"github.com/go-faker/faker/v4"
)

func newStore(t *testing.T, pager pagestore.Pager, cfg pagecodec.Config) *Store[uint32] {
	t.Helper()
	c, err := pagecodec.New[uint32](cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New[uint32](pager, c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func memStore(t *testing.T, cfg pagecodec.Config) *Store[uint32] {
	t.Helper()
	pager, err := pagestore.NewMem(cfg.PageSize)
	if err != nil {
		t.Fatal(err)
	}
	return newStore(t, pager, cfg)
}

func mustNode(t *testing.T, page int32, keys ...uint32) *node.Node[uint32] {
	t.Helper()
	children := make([]itemptr.ItemPtr, len(keys))
	for i := range children {
		children[i] = itemptr.New(page*100+int32(i), 0)
	}
	n, err := node.New[uint32](4, itemptr.New(page, 0), itemptr.Null(), keys, children)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPageSizeMismatch(t *testing.T) {
	pager, err := pagestore.NewMem(256)
	if err != nil {
		t.Fatal(err)
	}
	c, err := pagecodec.New[uint32](pagecodec.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New[uint32](pager, c); !errors.Is(err, ErrPageSizeMismatch) {
		t.Fatalf("New = %v, want ErrPageSizeMismatch", err)
	}
}

func TestPutGet(t *testing.T) {
	s := memStore(t, pagecodec.DefaultConfig())
	want := mustNode(t, 3, 1, 2, 3, 4)
	if err := s.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("Get = %s, want %s", got, want)
	}
	ok, err := s.Exists(3)
	if err != nil || !ok {
		t.Fatalf("Exists(3) = %v, %v", ok, err)
	}
	ok, err = s.Exists(4)
	if err != nil || ok {
		t.Fatalf("Exists(4) = %v, %v", ok, err)
	}
}

func TestPutNullLocation(t *testing.T) {
	s := memStore(t, pagecodec.DefaultConfig())
	n, err := node.New[uint32](2, itemptr.Null(), itemptr.Null(), []uint32{1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(n); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("Put = %v, want ErrNoLocation", err)
	}
	if err := s.Put(nil); !errors.Is(err, node.ErrNilNode) {
		t.Fatalf("Put(nil) = %v, want ErrNilNode", err)
	}
}

func TestPutOverflowKeepsPage(t *testing.T) {
	s := memStore(t, pagecodec.Config{PageSize: 64})
	small := mustNode(t, 1, 1, 2)
	if err := s.Put(small); err != nil {
		t.Fatal(err)
	}
	keys := make([]uint32, 100)
	for i := range keys {
		keys[i] = uint32(i)
	}
	err := s.Put(mustNode(t, 1, keys...))
	if !errors.Is(err, pagecodec.ErrPageOverflow) {
		t.Fatalf("Put = %v, want ErrPageOverflow", err)
	}
	got, err := s.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(small) {
		t.Fatalf("overflowing Put clobbered page: %s", got)
	}
}

func TestGetBlankPage(t *testing.T) {
	s := memStore(t, pagecodec.DefaultConfig())
	_, err := s.Get(7)
	var de *node.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Get blank = %v, want *node.DecodeError", err)
	}
}

func TestRaw(t *testing.T) {
	s := memStore(t, pagecodec.DefaultConfig())
	n := mustNode(t, 2, 5)
	if err := s.Put(n); err != nil {
		t.Fatal(err)
	}
	raw, err := s.Raw(2)
	if err != nil {
		t.Fatal(err)
	}
	want, err := s.Codec().ToPage(n)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(raw, want) {
		t.Fatalf("Raw differs from ToPage")
	}
}

func TestFileBackedCompressed(t *testing.T) {
	cfg := pagecodec.Config{PageSize: 128, Compress: true}
	path := filepath.Join(t.TempDir(), "nodes.db")
	pager, err := pagestore.OpenFile(path, cfg.PageSize, true)
	if err != nil {
		t.Fatal(err)
	}
	s := newStore(t, pager, cfg)
	left := mustNode(t, 1, 1, 2, 3)
	right := mustNode(t, 2, 4, 5, 6)
	left.SetLink(right.Loc())
	for _, n := range []*node.Node[uint32]{left, right} {
		if err := s.Put(n); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := pager.Close(); err != nil {
		t.Fatal(err)
	}

	pager, err = pagestore.OpenFile(path, cfg.PageSize, false)
	if err != nil {
		t.Fatal(err)
	}
	defer pager.Close()
	s = newStore(t, pager, cfg)
	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(left) {
		t.Fatalf("Get = %s, want %s", got, left)
	}
	if !got.MustMoveRight(9) {
		t.Fatalf("key above high key should move right")
	}
	sib, err := s.Get(got.Link().PageNo)
	if err != nil {
		t.Fatal(err)
	}
	if !sib.Equal(right) {
		t.Fatalf("sibling = %s, want %s", sib, right)
	}
}

type fakeKeys struct {
	Keys []uint32 `faker:"slice_len=16"`
}

func TestConcurrentPutGet(t *testing.T) {
	s := memStore(t, pagecodec.DefaultConfig())
	const pages, rounds = 8, 20
	// faker is fed from the test goroutine only
	var batches [pages][rounds]fakeKeys
	for p := range batches {
		for i := range batches[p] {
			if err := faker.FakeData(&batches[p][i]); err != nil {
				t.Fatalf("FakeData: %v", err)
			}
			slices.Sort(batches[p][i].Keys)
		}
	}

	var wg sync.WaitGroup
	errc := make(chan error, pages)
	for p := int32(0); p < pages; p++ {
		wg.Add(1)
		go func(p int32) {
			defer wg.Done()
			for _, fk := range batches[p] {
				n, err := node.New[uint32](4, itemptr.New(p, 0), itemptr.Null(), fk.Keys, nil)
				if err != nil {
					errc <- err
					return
				}
				if err := s.Put(n); err != nil {
					errc <- err
					return
				}
				got, err := s.Get(p)
				if err != nil {
					errc <- err
					return
				}
				if !got.Equal(n) {
					errc <- fmt.Errorf("page %d: got %s, want %s", p, got, n)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Fatal(err)
	}
}
