package node

import (
	"encoding/binary"
	"unsafe"
)

/*
Key is the set of types a node can be keyed by: fixed-width integers only.
A fixed width keeps the page capacity arithmetic (see MaxKeys) exact, and
floats are left out because NaN has no place in a total order.
*/
type Key interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// KeySize is the encoded width of K in bytes.
func KeySize[K Key]() int {
	var k K
	return int(unsafe.Sizeof(k))
}

// signed values are sign-extended by the conversion and truncated back on read
func appendKey[K Key](b []byte, k K, width int) []byte {
	v := uint64(k)
	switch width {
	case 1:
		return append(b, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

func readKey[K Key](b []byte, width int) K {
	var v uint64
	switch width {
	case 1:
		v = uint64(b[0])
	case 2:
		v = uint64(binary.LittleEndian.Uint16(b))
	case 4:
		v = uint64(binary.LittleEndian.Uint32(b))
	default:
		v = binary.LittleEndian.Uint64(b)
	}
	return K(v)
}
