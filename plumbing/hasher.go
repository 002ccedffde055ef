package plumbing

import (
	"hash"
	"strconv"

	"github.com/pjbgf/sha1cd"
)

// Hasher computes git object hashes by framing content with the
// "<type> <size>\0" header git prepends before hashing.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a Hasher ready to compute the hash of an object of the
// given type and size.
func NewHasher(t ObjectType, size int64) Hasher {
	h := Hasher{sha1cd.New()}
	h.Reset(t, size)
	return h
}

// Reset resets the hasher with a new object type and size.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Hash.Reset()
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// Sum returns the computed hash.
func (h Hasher) Sum() (hash Hash) {
	copy(hash[:], h.Hash.Sum(nil))
	return
}

// ComputeHash returns the hash of an object of the given type holding the
// content b.
func ComputeHash(t ObjectType, b []byte) Hash {
	h := NewHasher(t, int64(len(b)))
	h.Write(b)
	return h.Sum()
}
