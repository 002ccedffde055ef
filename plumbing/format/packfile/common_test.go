package packfile

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/testfix"
	"github.com/repolens/repolens/plumbing"
)

func TestValidateHeader(t *testing.T) {
	fs := memfs.New()
	packPath, _, err := testfix.WritePack(fs, "header", []*testfix.PackObject{
		{Type: plumbing.BlobObject, Content: []byte("a")},
		{Type: plumbing.BlobObject, Content: []byte("b")},
	})
	require.NoError(t, err)

	f, err := fs.Open(packPath)
	require.NoError(t, err)
	defer f.Close()

	count, err := ValidateHeader(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
}

func TestValidateHeaderBadSignature(t *testing.T) {
	_, err := ValidateHeader(bytes.NewReader([]byte("JUNK\x00\x00\x00\x02\x00\x00\x00\x01")))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateHeaderBadVersion(t *testing.T) {
	_, err := ValidateHeader(bytes.NewReader([]byte("PACK\x00\x00\x00\x09\x00\x00\x00\x01")))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadVariableLengthSize(t *testing.T) {
	// First byte carries 4 bits, continuations 7 bits each.
	for _, tc := range []struct {
		first byte
		rest  []byte
		want  int64
	}{
		{0x05, nil, 5},
		{0x8f, []byte{0x01}, 15 + (1 << 4)},
		{0x8f, []byte{0x80, 0x01}, 15 + (1 << 11)},
	} {
		got, err := readVariableLengthSize(tc.first, bytes.NewReader(tc.rest))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
