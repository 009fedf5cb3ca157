package pagestore

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrNullPage        = errors.New("pagestore: page number is null or negative")
	ErrClosed          = errors.New("pagestore: store is closed")
	ErrInvalidPageSize = errors.New("pagestore: invalid page size")
)

// Pager is what the node layer needs from a buffer pool: shared page buffers and a way
// to persist them. Caching, eviction and pinning are up to the implementation.
type Pager interface {
	// Acquire returns the shared buffer of a page. Every Acquire must be paired with
	// a Release on the returned handle.
	Acquire(pageNo int32) (*Handle, error)
	// Flush persists the buffer of h. The caller must hold h's lock, read or write.
	Flush(h *Handle) error
	PageSize() int
}

// Backend reads and writes whole pages. Implementations must be safe for concurrent use
// on distinct pages.
type Backend interface {
	ReadPage(pageNo int32, buf []byte) error
	WritePage(pageNo int32, buf []byte) error
	Close() error
}

/*
Handle is a page buffer shared by everyone who acquired the same page number.
Access to Bytes must be serialized with the handle's lock: RLock for readers, Lock
for writers. The store never takes these locks itself.
*/
type Handle struct {
	mu     sync.RWMutex
	pageNo int32
	buf    []byte
	refs   int // guarded by Store.mu
	store  *Store
}

func (h *Handle) RLock()        { h.mu.RLock() }
func (h *Handle) RUnlock()      { h.mu.RUnlock() }
func (h *Handle) Lock()         { h.mu.Lock() }
func (h *Handle) Unlock()       { h.mu.Unlock() }
func (h *Handle) PageNo() int32 { return h.pageNo }

// Bytes returns the page buffer itself, not a copy.
func (h *Handle) Bytes() []byte { return h.buf }

// Release gives the handle back. The buffer must not be used afterwards.
func (h *Handle) Release() {
	h.store.release(h)
}

// Store hands out one shared Handle per page number and persists it through a Backend.
// Unflushed changes are dropped once the last holder releases the handle.
type Store struct {
	pageSize int
	backend  Backend

	// mu is held shared across a backend write so Close cannot close the backend under it.
	mu      sync.RWMutex
	handles map[int32]*Handle
	closed  bool
}

var _ Pager = (*Store)(nil)

func New(pageSize int, backend Backend) (*Store, error) {
	if pageSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidPageSize, "%d", pageSize)
	}
	return &Store{
		pageSize: pageSize,
		backend:  backend,
		handles:  make(map[int32]*Handle),
	}, nil
}

func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) Acquire(pageNo int32) (*Handle, error) {
	if pageNo < 0 {
		return nil, errors.Wrapf(ErrNullPage, "acquire %d", pageNo)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if h, ok := s.handles[pageNo]; ok {
		h.refs++
		return h, nil
	}
	h := &Handle{pageNo: pageNo, buf: make([]byte, s.pageSize), refs: 1, store: s}
	if err := s.backend.ReadPage(pageNo, h.buf); err != nil {
		return nil, errors.Wrapf(err, "read page %d", pageNo)
	}
	s.handles[pageNo] = h
	return h, nil
}

func (s *Store) Flush(h *Handle) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.backend.WritePage(h.pageNo, h.buf); err != nil {
		return errors.Wrapf(err, "write page %d", h.pageNo)
	}
	return nil
}

func (s *Store) release(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.refs == 0 {
		return
	}
	h.refs--
	if h.refs == 0 && s.handles[h.pageNo] == h {
		delete(s.handles, h.pageNo)
	}
}

// Close closes the backend. Handles still held stay readable but can no longer be flushed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}

// View runs fn on the page under its read lock and releases it afterwards.
func View(p Pager, pageNo int32, fn func(page []byte) error) error {
	h, err := p.Acquire(pageNo)
	if err != nil {
		return err
	}
	defer h.Release()
	h.RLock()
	defer h.RUnlock()
	return fn(h.Bytes())
}

// Update runs fn on the page under its write lock and flushes the page if fn succeeds.
// fn must leave the buffer unchanged when it returns an error.
func Update(p Pager, pageNo int32, fn func(page []byte) error) error {
	h, err := p.Acquire(pageNo)
	if err != nil {
		return err
	}
	defer h.Release()
	h.Lock()
	defer h.Unlock()
	if err := fn(h.Bytes()); err != nil {
		return err
	}
	return p.Flush(h)
}
