package objfile

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/testfix"
	"github.com/repolens/repolens/plumbing"
)

func openLoose(t *testing.T, typ plumbing.ObjectType, content []byte) *Reader {
	t.Helper()

	fs := memfs.New()
	h, err := testfix.WriteLooseObject(fs, typ, content)
	require.NoError(t, err)

	hex := h.String()
	f, err := fs.Open(fs.Join("objects", hex[:2], hex[2:]))
	require.NoError(t, err)

	r, err := NewReader(f)
	require.NoError(t, err)
	return r
}

func TestReaderBlob(t *testing.T) {
	r := openLoose(t, plumbing.BlobObject, []byte("some file content\n"))
	defer r.Close()

	assert.Equal(t, plumbing.BlobObject, r.Type())
	assert.Equal(t, int64(18), r.Size())

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "some file content\n", string(b))
}

func TestReaderCommit(t *testing.T) {
	body := "tree 5462bf28fdc4681762057cac7704730b1c590b38\n" +
		"author A U Thor <author@example.com> 1700000000 +0000\n" +
		"committer A U Thor <author@example.com> 1700000000 +0000\n" +
		"\ninitial\n"

	r := openLoose(t, plumbing.CommitObject, []byte(body))
	defer r.Close()

	assert.Equal(t, plumbing.CommitObject, r.Type())

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("tree 5462bf28fdc4681762057cac7704730b1c590b38\n")))
}

func TestReaderEmptyBlob(t *testing.T) {
	r := openLoose(t, plumbing.BlobObject, nil)
	defer r.Close()

	assert.Equal(t, int64(0), r.Size())

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestReaderMalformedHeader(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte("garbage without a separator"))
	require.NoError(t, zw.Close())

	_, err := NewReader(io.NopCloser(&buf))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestReaderUnknownType(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte("wibble 4\x00abcd"))
	require.NoError(t, zw.Close())

	_, err := NewReader(io.NopCloser(&buf))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestReaderNotZlib(t *testing.T) {
	_, err := NewReader(io.NopCloser(bytes.NewReader([]byte("plain bytes"))))
	assert.Error(t, err)
}
