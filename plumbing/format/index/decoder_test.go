package index

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/testfix"
	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/filemode"
)

func decodeFixture(t *testing.T, entries []testfix.IndexEntry) *Index {
	t.Helper()

	fs := memfs.New()
	require.NoError(t, testfix.WriteIndex(fs, entries))

	f, err := fs.Open("index")
	require.NoError(t, err)
	defer f.Close()

	idx := &Index{}
	require.NoError(t, NewDecoder(f).Decode(idx))
	return idx
}

func TestDecode(t *testing.T) {
	h1 := plumbing.NewHash("1111111111111111111111111111111111111111")
	h2 := plumbing.NewHash("2222222222222222222222222222222222222222")

	idx := decodeFixture(t, []testfix.IndexEntry{
		{Name: "README.md", Hash: h1, Size: 12},
		{Name: "src/main.go", Hash: h2, Size: 34},
	})

	assert.Equal(t, uint32(2), idx.Version)
	require.Len(t, idx.Entries, 2)

	assert.Equal(t, "README.md", idx.Entries[0].Name)
	assert.Equal(t, h1, idx.Entries[0].Hash)
	assert.Equal(t, uint32(12), idx.Entries[0].Size)
	assert.Equal(t, filemode.Regular, idx.Entries[0].Mode)
	assert.Equal(t, Merged, idx.Entries[0].Stage)
	assert.True(t, idx.Entries[0].IsPlain())

	assert.Equal(t, "src/main.go", idx.Entries[1].Name)
	assert.Equal(t, h2, idx.Entries[1].Hash)
}

func TestDecodeStageAndValidFlags(t *testing.T) {
	h := plumbing.NewHash("3333333333333333333333333333333333333333")

	name := "conflict.txt"
	idx := decodeFixture(t, []testfix.IndexEntry{
		{Name: name, Hash: h, Flags: uint16(len(name)) | 0x2000}, // stage 2
	})

	require.Len(t, idx.Entries, 1)
	assert.Equal(t, OurMode, idx.Entries[0].Stage)
	assert.False(t, idx.Entries[0].Valid)
	assert.False(t, idx.Entries[0].IsPlain())
}

func TestDecodeValidBit(t *testing.T) {
	h := plumbing.NewHash("4444444444444444444444444444444444444444")

	name := "assumed.txt"
	idx := decodeFixture(t, []testfix.IndexEntry{
		{Name: name, Hash: h, Flags: uint16(len(name)) | 0x8000},
	})

	require.Len(t, idx.Entries, 1)
	assert.True(t, idx.Entries[0].Valid)
	assert.False(t, idx.Entries[0].IsPlain())
}

func TestDecodeMalformedSignature(t *testing.T) {
	idx := &Index{}
	err := NewDecoder(bytes.NewReader([]byte("JUNKJUNKJUNK"))).Decode(idx)
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DIRC")
	buf.Write([]byte{0, 0, 0, 9})
	buf.Write([]byte{0, 0, 0, 0})

	idx := &Index{}
	err := NewDecoder(&buf).Decode(idx)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEntryLookup(t *testing.T) {
	h := plumbing.NewHash("5555555555555555555555555555555555555555")

	idx := decodeFixture(t, []testfix.IndexEntry{
		{Name: "a.txt", Hash: h},
	})

	e, err := idx.Entry("a.txt")
	require.NoError(t, err)
	assert.Equal(t, h, e.Hash)

	_, err = idx.Entry("missing.txt")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
