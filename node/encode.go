package node

import (
	"encoding/binary"
	"fmt"

	"blinkpage/itemptr"

	"github.com/pkg/errors"
)

/*
Wire format, little-endian, self-delimiting:

	kind (1B) | keyWidth (1B) | order (4B) | loc (8B) | link (8B) | highKey (w)
	| nkeys (uvarint) | keys (w each) | nptrs (uvarint) | ptrs (8B each)

keyWidth lets a decoder reject bytes written for a different key type.
*/
const fixedHeaderSize = 1 + 1 + 4 + 2*itemptr.Size

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

func encodedSize(width, nkeys, nptrs int) int {
	return fixedHeaderSize + width +
		uvarintLen(uint64(nkeys)) + width*nkeys +
		uvarintLen(uint64(nptrs)) + itemptr.Size*nptrs
}

// EncodedSize is the exact length Encode produces for n. It is 0 for a nil node.
func (n *Node[K]) EncodedSize() int {
	if n == nil {
		return 0
	}
	return encodedSize(KeySize[K](), len(n.keys), len(n.ptrs))
}

func (n *Node[K]) Encode() ([]byte, error) {
	if n == nil {
		return nil, &EncodeError{Err: ErrNilNode}
	}
	return n.AppendEncode(make([]byte, 0, n.EncodedSize()))
}

// AppendEncode appends the encoding of n to b.
func (n *Node[K]) AppendEncode(b []byte) ([]byte, error) {
	if n == nil {
		return b, &EncodeError{Err: ErrNilNode}
	}
	if n.kind != KindLeaf && n.kind != KindInternal {
		return b, &EncodeError{Err: errors.Errorf("invalid kind tag %d", uint8(n.kind))}
	}
	// a zero Node never went through a constructor
	if len(n.keys) == 0 {
		return b, &EncodeError{Err: ErrEmptyKeys}
	}
	width := KeySize[K]()
	b = append(b, byte(n.kind), byte(width))
	b = binary.LittleEndian.AppendUint32(b, n.order)
	b = n.loc.AppendTo(b)
	b = n.link.AppendTo(b)
	b = appendKey(b, n.highKey, width)
	b = binary.AppendUvarint(b, uint64(len(n.keys)))
	for _, k := range n.keys {
		b = appendKey(b, k, width)
	}
	b = binary.AppendUvarint(b, uint64(len(n.ptrs)))
	for _, p := range n.ptrs {
		b = p.AppendTo(b)
	}
	return b, nil
}

// Decode parses a node that occupies all of b.
func Decode[K Key](b []byte) (*Node[K], error) {
	n, used, err := DecodePrefix[K](b)
	if err != nil {
		return nil, err
	}
	if used != len(b) {
		return nil, &DecodeError{Offset: used, Reason: fmt.Sprintf("%d trailing bytes", len(b)-used)}
	}
	return n, nil
}

// DecodePrefix parses the node at the start of b and reports how many bytes it used.
// Whatever follows is left for the caller to judge.
func DecodePrefix[K Key](b []byte) (*Node[K], int, error) {
	d := &decoder{buf: b}
	width := KeySize[K]()

	hdr, err := d.take(fixedHeaderSize+width, "header")
	if err != nil {
		return nil, d.off, err
	}
	n := &Node[K]{kind: Kind(hdr[0])}
	if n.kind != KindLeaf && n.kind != KindInternal {
		return nil, 0, &DecodeError{Offset: 0, Reason: fmt.Sprintf("unknown kind tag %d", hdr[0])}
	}
	if int(hdr[1]) != width {
		return nil, 1, &DecodeError{Offset: 1, Reason: fmt.Sprintf("key width %d, want %d", hdr[1], width)}
	}
	n.order = binary.LittleEndian.Uint32(hdr[2:6])
	// lengths were checked by take
	n.loc, _ = itemptr.Read(hdr[6:14])
	n.link, _ = itemptr.Read(hdr[14:22])
	n.highKey = readKey[K](hdr[22:], width)

	nkeys, err := d.count(width, "keys")
	if err != nil {
		return nil, d.off, err
	}
	if nkeys == 0 {
		return nil, d.off, &DecodeError{Offset: d.off, Reason: "node has no keys"}
	}
	n.keys = make([]K, nkeys)
	for i := range n.keys {
		// count() already made sure all keys are present
		raw, _ := d.take(width, "key")
		n.keys[i] = readKey[K](raw, width)
		if i > 0 && n.keys[i] < n.keys[i-1] {
			return nil, d.off, &DecodeError{Offset: d.off - width, Reason: fmt.Sprintf("key %d out of order", i)}
		}
	}
	if n.keys[nkeys-1] != n.highKey {
		return nil, d.off, &DecodeError{Offset: fixedHeaderSize, Reason: fmt.Sprintf("stale high key %v, max key is %v", n.highKey, n.keys[nkeys-1])}
	}

	nptrs, err := d.count(itemptr.Size, "pointers")
	if err != nil {
		return nil, d.off, err
	}
	if nptrs > 0 {
		n.ptrs = make([]itemptr.ItemPtr, nptrs)
		for i := range n.ptrs {
			raw, _ := d.take(itemptr.Size, "pointer")
			n.ptrs[i], _ = itemptr.Read(raw)
		}
	}
	return n, d.off, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) take(size int, what string) ([]byte, error) {
	if len(d.buf)-d.off < size {
		return nil, &DecodeError{Offset: d.off, Reason: fmt.Sprintf("truncated %s: need %d bytes, have %d", what, size, len(d.buf)-d.off)}
	}
	b := d.buf[d.off : d.off+size]
	d.off += size
	return b, nil
}

// count reads a length prefix and checks that count entries of size bytes follow.
func (d *decoder) count(size int, what string) (int, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		return 0, &DecodeError{Offset: d.off, Reason: fmt.Sprintf("bad length prefix for %s", what)}
	}
	avail := uint64(len(d.buf) - d.off - n)
	if v > avail/uint64(size) {
		return 0, &DecodeError{Offset: d.off, Reason: fmt.Sprintf("length prefix %d for %s overruns input", v, what)}
	}
	d.off += n
	return int(v), nil
}

// MaxKeys is the largest number of keys a node of the given kind can hold and still
// fit a page of pageSize bytes, assuming one pointer per key for a leaf and one extra
// pointer for an internal node. It is 0 when not even one key fits.
func MaxKeys[K Key](pageSize int, kind Kind) int {
	width := KeySize[K]()
	extra := 0
	if kind == KindInternal {
		extra = 1
	}
	k := 0
	for encodedSize(width, k+1, k+1+extra) <= pageSize {
		k++
	}
	return k
}
