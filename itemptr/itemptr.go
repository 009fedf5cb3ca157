package itemptr

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel is the page number of a pointer that refers to nothing.
const Sentinel int32 = -1

// Size is the number of bytes an ItemPtr takes on a page.
const Size = 8

var ErrShortBuffer = errors.New("itemptr: short buffer")

/*
ItemPtr locates a logical item: the page it lives on and the byte offset inside that page.
It is a small value type, copied freely and replaced wholesale when the target moves
(e.g. after a split). A pointer whose PageNo is Sentinel is null whatever its Offset.
*/
type ItemPtr struct {
	PageNo int32
	Offset uint32
}

// New builds a pointer without validation; Sentinel is a legitimate input.
func New(pageNo int32, offset uint32) ItemPtr {
	return ItemPtr{PageNo: pageNo, Offset: offset}
}

// Null returns the "not set" pointer. Prefer it over ItemPtr{}, which addresses page 0.
func Null() ItemPtr {
	return ItemPtr{PageNo: Sentinel}
}

func (p ItemPtr) IsNull() bool {
	return p.PageNo == Sentinel
}

func (p ItemPtr) String() string {
	if p.IsNull() {
		return "ItemPtr[null]"
	}
	return fmt.Sprintf("ItemPtr[page_no=%d offset=%d]", p.PageNo, p.Offset)
}

// AppendTo writes page_no (int32) then offset (uint32), both little-endian.
func (p ItemPtr) AppendTo(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(p.PageNo))
	return binary.LittleEndian.AppendUint32(b, p.Offset)
}

// Read parses the first Size bytes of b.
func Read(b []byte) (ItemPtr, error) {
	if len(b) < Size {
		return ItemPtr{}, errors.Wrapf(ErrShortBuffer, "need %d bytes, have %d", Size, len(b))
	}
	return ItemPtr{
		PageNo: int32(binary.LittleEndian.Uint32(b[0:4])),
		Offset: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}
