package pagecodec

import (
	"encoding/binary"
	"fmt"

	"blinkpage/node"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

const (
	// DefaultPageSize is the reference page size in bytes.
	DefaultPageSize = 512
	// MinPageSize is the smallest page that holds a one-key node of any key type.
	MinPageSize = 40

	// maxExpansion caps the decoded length a compressed page may claim, as a multiple of
	// the page size. A snappy block never inflates by more than about 22x.
	maxExpansion = 32
)

var (
	ErrPageOverflow    = errors.New("encoded node does not fit in page")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// OverflowError reports a node whose encoding is larger than the page. Nothing is written
// when it is returned; the caller can split the node or move to a bigger page size.
type OverflowError struct {
	Size     int // bytes the node needs
	Capacity int // bytes the page offers
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("pagecodec: node needs %d bytes, page holds %d", e.Size, e.Capacity)
}

func (e *OverflowError) Unwrap() error { return ErrPageOverflow }

type Config struct {
	PageSize int
	// Compress stores the node snappy-compressed behind a uvarint length prefix.
	Compress bool
}

func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize}
}

/*
Codec moves nodes in and out of fixed-size pages.

Plain page layout:      node bytes | zero padding
Compressed page layout: uvarint(len) | snappy block | zero padding

The node encoding is self-delimiting, so the codec always knows where the content ends.
Everything after it must be zero; anything else is treated as corruption.
A Codec holds no mutable state and is safe for concurrent use.
*/
type Codec[K node.Key] struct {
	pageSize int
	compress bool
}

func New[K node.Key](cfg Config) (*Codec[K], error) {
	if cfg.PageSize < MinPageSize {
		return nil, errors.Wrapf(ErrInvalidPageSize, "%d is below the minimum of %d", cfg.PageSize, MinPageSize)
	}
	return &Codec[K]{pageSize: cfg.PageSize, compress: cfg.Compress}, nil
}

func (c *Codec[K]) PageSize() int   { return c.pageSize }
func (c *Codec[K]) Compressed() bool { return c.compress }

// Capacity is the largest key count a node of the given kind is guaranteed to store in one
// page, with one pointer per key plus one more for an internal node. With compression on
// it assumes the keys do not compress at all; Fits gives the exact answer for a given node.
func (c *Codec[K]) Capacity(kind node.Kind) int {
	if !c.compress {
		return node.MaxKeys[K](c.pageSize, kind)
	}
	raw := c.pageSize
	for raw > 0 {
		m := snappy.MaxEncodedLen(raw)
		if m >= 0 && len(binary.AppendUvarint(nil, uint64(m)))+m <= c.pageSize {
			break
		}
		raw--
	}
	return node.MaxKeys[K](raw, kind)
}

func (c *Codec[K]) content(n *node.Node[K]) ([]byte, error) {
	raw, err := n.Encode()
	if err != nil {
		return nil, err
	}
	if !c.compress {
		return raw, nil
	}
	block := snappy.Encode(nil, raw)
	out := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(block)), uint64(len(block)))
	return append(out, block...), nil
}

// Fits reports whether n can be stored in one page. A nil node never fits.
func (c *Codec[K]) Fits(n *node.Node[K]) bool {
	if n == nil {
		return false
	}
	if !c.compress {
		return n.EncodedSize() <= c.pageSize
	}
	b, err := c.content(n)
	return err == nil && len(b) <= c.pageSize
}

// ToPage encodes n into a fresh zero-padded page.
func (c *Codec[K]) ToPage(n *node.Node[K]) ([]byte, error) {
	if n == nil {
		return nil, &node.EncodeError{Err: node.ErrNilNode}
	}
	page := make([]byte, c.pageSize)
	if err := c.WritePage(n, page); err != nil {
		return nil, err
	}
	return page, nil
}

// WritePage encodes n into dst, which must be exactly one page long, and zeroes the rest
// of dst. dst is left untouched on error.
func (c *Codec[K]) WritePage(n *node.Node[K], dst []byte) error {
	if len(dst) != c.pageSize {
		return errors.Wrapf(ErrInvalidPageSize, "buffer is %d bytes, page is %d", len(dst), c.pageSize)
	}
	if n == nil {
		return &node.EncodeError{Err: node.ErrNilNode}
	}
	if !c.compress {
		if size := n.EncodedSize(); size > c.pageSize {
			return &OverflowError{Size: size, Capacity: c.pageSize}
		}
		// capped so a bad size estimate can never write past the page
		b, err := n.AppendEncode(dst[:0:c.pageSize])
		if err != nil {
			return err
		}
		clear(dst[len(b):])
		return nil
	}
	b, err := c.content(n)
	if err != nil {
		return err
	}
	if len(b) > c.pageSize {
		return &OverflowError{Size: len(b), Capacity: c.pageSize}
	}
	copy(dst, b)
	clear(dst[len(b):])
	return nil
}

// FromPage decodes the node stored in page. page must be exactly one page long.
func (c *Codec[K]) FromPage(page []byte) (*node.Node[K], error) {
	if len(page) != c.pageSize {
		return nil, &node.DecodeError{Reason: fmt.Sprintf("page is %d bytes, want %d", len(page), c.pageSize)}
	}
	if IsBlank(page) {
		return nil, &node.DecodeError{Reason: "blank page"}
	}
	if !c.compress {
		n, used, err := node.DecodePrefix[K](page)
		if err != nil {
			return nil, err
		}
		if err := checkPadding(page, used); err != nil {
			return nil, err
		}
		return n, nil
	}

	clen, m := binary.Uvarint(page)
	if m <= 0 || clen > uint64(len(page)-m) {
		return nil, &node.DecodeError{Reason: "bad compressed length prefix"}
	}
	end := m + int(clen)
	dlen, err := snappy.DecodedLen(page[m:end])
	if err != nil {
		return nil, &node.DecodeError{Offset: m, Reason: "snappy: " + err.Error()}
	}
	if dlen > maxExpansion*c.pageSize {
		return nil, &node.DecodeError{Offset: m, Reason: fmt.Sprintf("snappy block claims %d decoded bytes", dlen)}
	}
	raw, err := snappy.Decode(make([]byte, dlen), page[m:end])
	if err != nil {
		return nil, &node.DecodeError{Offset: m, Reason: "snappy: " + err.Error()}
	}
	n, err := node.Decode[K](raw)
	if err != nil {
		return nil, err
	}
	if err := checkPadding(page, end); err != nil {
		return nil, err
	}
	return n, nil
}

func checkPadding(page []byte, from int) error {
	for i := from; i < len(page); i++ {
		if page[i] != 0 {
			return &node.DecodeError{Offset: i, Reason: "non-zero padding"}
		}
	}
	return nil
}

// IsBlank reports whether page was never written, i.e. is all zeros.
func IsBlank(page []byte) bool {
	for _, b := range page {
		if b != 0 {
			return false
		}
	}
	return true
}
