package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHex(t *testing.T) {
	h, err := FromHex("8ab686eafeb1f44702738c8b0f24f2567c36da6d")
	require.NoError(t, err)
	assert.Equal(t, "8ab686eafeb1f44702738c8b0f24f2567c36da6d", h.String())
	assert.False(t, h.IsZero())
}

func TestFromHexInvalid(t *testing.T) {
	_, err := FromHex("short")
	assert.Error(t, err)

	_, err = FromHex("zzzz86eafeb1f44702738c8b0f24f2567c36da6d")
	assert.Error(t, err)
}

func TestNewHashInvalidIsZero(t *testing.T) {
	assert.True(t, NewHash("not a hash").IsZero())
}

func TestComputeHash(t *testing.T) {
	// Well-known git hashes.
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391",
		ComputeHash(BlobObject, nil).String())
	assert.Equal(t, "8ab686eafeb1f44702738c8b0f24f2567c36da6d",
		ComputeHash(BlobObject, []byte("Hello, World!\n")).String())
}

func TestHashesSort(t *testing.T) {
	a := NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	hashes := []Hash{b, a}
	HashesSort(hashes)
	assert.Equal(t, []Hash{a, b}, hashes)
}

func TestObjectTypeString(t *testing.T) {
	assert.Equal(t, "commit", CommitObject.String())
	assert.Equal(t, "tree", TreeObject.String())
	assert.Equal(t, "blob", BlobObject.String())
	assert.Equal(t, "tag", TagObject.String())
	assert.Equal(t, "ofs-delta", OFSDeltaObject.String())
	assert.Equal(t, "ref-delta", REFDeltaObject.String())
	assert.Equal(t, "unknown", InvalidObject.String())
}

func TestObjectTypeValid(t *testing.T) {
	assert.True(t, CommitObject.Valid())
	assert.True(t, REFDeltaObject.Valid())
	assert.False(t, InvalidObject.Valid())
	assert.False(t, ObjectType(5).Valid())
}

func TestParseObjectType(t *testing.T) {
	typ, err := ParseObjectType("tree")
	require.NoError(t, err)
	assert.Equal(t, TreeObject, typ)

	_, err = ParseObjectType("wibble")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestObjectTypeIsDelta(t *testing.T) {
	assert.True(t, OFSDeltaObject.IsDelta())
	assert.True(t, REFDeltaObject.IsDelta())
	assert.False(t, BlobObject.IsDelta())
}
