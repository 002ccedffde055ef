package plumbing

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
)

// HashSize is the size in bytes of a SHA-1 object identifier.
const HashSize = 20

// Hash is a 20-byte SHA-1 hashed content identifier.
type Hash [HashSize]byte

// ZeroHash is a Hash with value zero.
var ZeroHash Hash

// NewHash returns a new Hash from a hexadecimal hash representation.
// Invalid input results in an empty hash.
func NewHash(s string) Hash {
	h, _ := FromHex(s)
	return h
}

// FromHex parses a hexadecimal string and returns the resulting Hash.
func FromHex(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("invalid hash length %d", len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}

	copy(h[:], b)
	return h, nil
}

// FromBytes builds a Hash from a raw 20-byte slice.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d", len(b))
	}

	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash is the zero value.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Compare compares h to the raw hash b, byte-wise.
func (h Hash) Compare(b []byte) int {
	return bytes.Compare(h[:], b)
}

// HashesSort sorts a slice of Hashes in increasing order.
func HashesSort(a []Hash) {
	sort.Sort(HashSlice(a))
}

// HashSlice attaches the methods of sort.Interface to []Hash, sorting in
// increasing order.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return p[i].Compare(p[j][:]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
