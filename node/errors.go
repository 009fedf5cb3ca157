package node

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyKeys: a node needs at least one key to derive its high key.
	ErrEmptyKeys = errors.New("keys must not be empty")
	// ErrUnsortedKeys: keys must be non-decreasing.
	ErrUnsortedKeys = errors.New("keys must be sorted ascending")
	// ErrNilNode is wrapped in an *EncodeError when a nil *Node is handed to an encoder.
	ErrNilNode = errors.New("nil node")
	// ErrCorrupt is the cause of every *DecodeError.
	ErrCorrupt = errors.New("corrupt node encoding")
)

// ConstructionError is returned when a node cannot be built from the given keys.
type ConstructionError struct {
	Err error
}

func (e *ConstructionError) Error() string { return "node: construct: " + e.Err.Error() }
func (e *ConstructionError) Unwrap() error { return e.Err }

// EncodeError is returned when a node value cannot be represented on the wire.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "node: encode: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports bytes that do not parse as a node of the expected key type.
type DecodeError struct {
	Offset int // position in the input where parsing stopped
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("node: decode at byte %d: %s", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrCorrupt }
