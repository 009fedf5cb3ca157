// Package nodestore keeps B-link nodes in pages handed out by a pagestore.Pager.
package nodestore

import (
	"blinkpage/node"
	"blinkpage/pagecodec"
	"blinkpage/pagestore"

	"github.com/pkg/errors"
)

var (
	ErrNoLocation       = errors.New("nodestore: node has a null location")
	ErrPageSizeMismatch = errors.New("nodestore: pager and codec disagree on page size")
)

type Store[K node.Key] struct {
	pager pagestore.Pager
	codec *pagecodec.Codec[K]
}

func New[K node.Key](pager pagestore.Pager, codec *pagecodec.Codec[K]) (*Store[K], error) {
	if pager.PageSize() != codec.PageSize() {
		return nil, errors.Wrapf(ErrPageSizeMismatch, "pager %d, codec %d", pager.PageSize(), codec.PageSize())
	}
	return &Store[K]{pager: pager, codec: codec}, nil
}

func (s *Store[K]) Codec() *pagecodec.Codec[K] { return s.codec }

// Put writes n to the page named by n.Loc() and flushes it. The in-page offset of the
// location is informational and ignored. On overflow the page keeps its old contents.
func (s *Store[K]) Put(n *node.Node[K]) error {
	if n == nil {
		return &node.EncodeError{Err: node.ErrNilNode}
	}
	loc := n.Loc()
	if loc.IsNull() {
		return ErrNoLocation
	}
	err := pagestore.Update(s.pager, loc.PageNo, func(page []byte) error {
		return s.codec.WritePage(n, page)
	})
	return errors.Wrapf(err, "put page %d", loc.PageNo)
}

func (s *Store[K]) Get(pageNo int32) (*node.Node[K], error) {
	var n *node.Node[K]
	err := pagestore.View(s.pager, pageNo, func(page []byte) (err error) {
		n, err = s.codec.FromPage(page)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get page %d", pageNo)
	}
	return n, nil
}

// Exists reports whether anything was ever written to the page.
func (s *Store[K]) Exists(pageNo int32) (bool, error) {
	var blank bool
	err := pagestore.View(s.pager, pageNo, func(page []byte) error {
		blank = pagecodec.IsBlank(page)
		return nil
	})
	if err != nil {
		return false, err
	}
	return !blank, nil
}

// Raw returns a copy of the page bytes as stored.
func (s *Store[K]) Raw(pageNo int32) ([]byte, error) {
	var out []byte
	err := pagestore.View(s.pager, pageNo, func(page []byte) error {
		out = append([]byte(nil), page...)
		return nil
	})
	return out, err
}
