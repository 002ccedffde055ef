package idxfile

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/testfix"
	"github.com/repolens/repolens/plumbing"
)

func buildFixtureIdx(t *testing.T) (*Idxfile, []*testfix.PackObject, int64) {
	t.Helper()

	fs := memfs.New()
	objects := []*testfix.PackObject{
		{Type: plumbing.BlobObject, Content: []byte("first blob\n")},
		{Type: plumbing.BlobObject, Content: []byte("second blob, a bit longer\n")},
		{Type: plumbing.CommitObject, Content: []byte("tree 0000000000000000000000000000000000000000\n\nmsg\n")},
	}

	packPath, idxPath, err := testfix.WritePack(fs, "fixture", objects)
	require.NoError(t, err)

	fi, err := fs.Stat(packPath)
	require.NoError(t, err)

	f, err := fs.Open(idxPath)
	require.NoError(t, err)
	defer f.Close()

	idx := &Idxfile{}
	require.NoError(t, NewDecoder(f).Decode(idx))

	return idx, objects, fi.Size()
}

func TestDecode(t *testing.T) {
	idx, objects, _ := buildFixtureIdx(t)

	assert.Equal(t, uint32(VersionSupported), idx.Version)
	assert.Equal(t, uint32(len(objects)), idx.ObjectCount)
	assert.Equal(t, idx.ObjectCount, idx.Fanout[255])
	assert.Len(t, idx.Entries, len(objects))
}

func TestDecodeRoundTripOffsets(t *testing.T) {
	idx, objects, packSize := buildFixtureIdx(t)

	for _, o := range objects {
		e, ok := idx.Entry(o.Hash)
		require.True(t, ok, "hash %s missing from idx", o.Hash)
		assert.Equal(t, uint64(o.Offset), e.Offset)
		assert.Less(t, int64(e.Offset), packSize)
	}
}

func TestDecodeHashesAscending(t *testing.T) {
	idx, _, _ := buildFixtureIdx(t)

	for i := 1; i < len(idx.Entries); i++ {
		assert.True(t, idx.Entries[i-1].Hash.Compare(idx.Entries[i].Hash[:]) < 0)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	idx := &Idxfile{}
	err := NewDecoder(bytes.NewReader([]byte("not an idx file at all"))).Decode(idx)
	assert.ErrorIs(t, err, ErrMalformedIdxFile)
}

func TestDecodeTruncated(t *testing.T) {
	fs := memfs.New()
	_, idxPath, err := testfix.WritePack(fs, "trunc", []*testfix.PackObject{
		{Type: plumbing.BlobObject, Content: []byte("data")},
	})
	require.NoError(t, err)

	f, err := fs.Open(idxPath)
	require.NoError(t, err)
	full := make([]byte, 100)
	_, err = f.Read(full)
	require.NoError(t, err)
	f.Close()

	idx := &Idxfile{}
	err = NewDecoder(bytes.NewReader(full)).Decode(idx)
	assert.ErrorIs(t, err, ErrMalformedIdxFile)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write([]byte{255, 't', 'O', 'c'})
	buf.Write([]byte{0, 0, 0, 3})

	idx := &Idxfile{}
	err := NewDecoder(buf).Decode(idx)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestContains(t *testing.T) {
	idx, objects, _ := buildFixtureIdx(t)

	assert.True(t, idx.Contains(objects[0].Hash))
	assert.False(t, idx.Contains(plumbing.NewHash("0102030405060708090a0b0c0d0e0f1011121314")))
}
