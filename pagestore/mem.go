package pagestore

import "sync"

type memBackend struct {
	mu    sync.Mutex
	pages map[int32][]byte
}

// NewMem returns a Store whose pages live in memory only.
func NewMem(pageSize int) (*Store, error) {
	return New(pageSize, &memBackend{pages: make(map[int32][]byte)})
}

func (b *memBackend) ReadPage(pageNo int32, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(buf)
	copy(buf, b.pages[pageNo])
	return nil
}

func (b *memBackend) WritePage(pageNo int32, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[pageNo] = append(b.pages[pageNo][:0], buf...)
	return nil
}

func (b *memBackend) Close() error { return nil }
