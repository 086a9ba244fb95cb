package comment

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IDLen is the size of an encoded ID in bytes.
const IDLen = 16

// ID is the binary key of a comment. IDs are UUIDv7 values, so comparing the raw
// bytes orders comments by creation time. The zero ID is never issued.
type ID [IDLen]byte

var ErrInvalidID = errors.New("invalid comment id")

// NewID returns a fresh time-ordered ID.
func NewID() (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return ID{}, fmt.Errorf("generate comment id: %w", err)
	}
	return ID(u), nil
}

// MustNewID is NewID for callers that cannot handle an entropy failure.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// IDFromBytes copies a 16-byte slice read from storage.
func IDFromBytes(b []byte) (ID, error) {
	if len(b) != IDLen {
		return ID{}, fmt.Errorf("%w: %d bytes", ErrInvalidID, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// ParseID accepts the 32-char hex form produced by String.
func ParseID(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return IDFromBytes(b)
}

func (id ID) Bytes() []byte { return id[:] }

func (id ID) String() string { return hex.EncodeToString(id[:]) }

func (id ID) IsZero() bool { return id == ID{} }

// Compare orders IDs by raw byte value.
func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
