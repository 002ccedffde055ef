package packfile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/testfix"
	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/cache"
	"github.com/repolens/repolens/plumbing/format/objfile"
)

// fixture packs a base blob, an ofs-delta on top of it, and a second
// ofs-delta on top of the first, giving a two-link delta chain.
func deltaChainFixture(t *testing.T) (billy.Filesystem, string, []*testfix.PackObject, []string) {
	t.Helper()

	base := []byte("the quick brown fox jumps over the lazy dog\n")
	patched := append([]byte("prefix: "), base...)
	patchedAgain := append(patched, []byte("suffix\n")...)

	delta1 := testfix.BuildDelta(len(base), len(patched), []testfix.DeltaOp{
		{Insert: []byte("prefix: ")},
		{CopyOffset: 0, CopySize: len(base)},
	})
	delta2 := testfix.BuildDelta(len(patched), len(patchedAgain), []testfix.DeltaOp{
		{CopyOffset: 0, CopySize: len(patched)},
		{Insert: []byte("suffix\n")},
	})

	objects := []*testfix.PackObject{
		{Type: plumbing.BlobObject, Content: base},
		{Type: plumbing.OFSDeltaObject, Content: delta1, BaseIndex: 0},
		{Type: plumbing.OFSDeltaObject, Content: delta2, BaseIndex: 1},
	}

	fs := memfs.New()
	packPath, _, err := testfix.WritePack(fs, "chain", objects)
	require.NoError(t, err)

	return fs, packPath, objects, []string{
		string(base), string(patched), string(patchedAgain),
	}
}

func TestObjectAtFullObject(t *testing.T) {
	fs, packPath, objects, want := deltaChainFixture(t)

	r := NewReader(fs, nil, packPath, nil, nil)
	body, typ, err := r.ObjectAt(context.Background(), objects[0].Offset, false)
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, plumbing.BlobObject, typ)

	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, want[0], string(b))
}

func TestObjectAtOfsDeltaChain(t *testing.T) {
	fs, packPath, objects, want := deltaChainFixture(t)

	r := NewReader(fs, nil, packPath, nil, nil)
	for i, expected := range want {
		body, typ, err := r.ObjectAt(context.Background(), objects[i].Offset, false)
		require.NoError(t, err)

		// Delta entries resolve to the terminal base's type.
		assert.Equal(t, plumbing.BlobObject, typ)

		b, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, expected, string(b))
		require.NoError(t, body.Close())
	}
}

func TestObjectAtIdempotent(t *testing.T) {
	fs, packPath, objects, want := deltaChainFixture(t)

	r := NewReader(fs, nil, packPath, nil, nil)

	read := func() string {
		body, _, err := r.ObjectAt(context.Background(), objects[2].Offset, false)
		require.NoError(t, err)
		defer body.Close()

		b, err := io.ReadAll(body)
		require.NoError(t, err)
		return string(b)
	}

	first := read()
	second := read()
	assert.Equal(t, first, second)
	assert.Equal(t, want[2], first)
}

func TestObjectAtCacheTransparency(t *testing.T) {
	fs, packPath, objects, want := deltaChainFixture(t)

	streams := cache.NewStreamLRU()
	defer streams.Close()

	r := NewReader(fs, nil, packPath, nil, streams)

	read := func(allowCache bool) string {
		body, _, err := r.ObjectAt(context.Background(), objects[2].Offset, allowCache)
		require.NoError(t, err)
		defer body.Close()

		b, err := io.ReadAll(body)
		require.NoError(t, err)
		return string(b)
	}

	cold := read(true)
	hit := read(true)
	uncached := read(false)

	assert.Equal(t, want[2], cold)
	assert.Equal(t, cold, hit)
	assert.Equal(t, cold, uncached)
}

type looseResolver struct {
	fs billy.Filesystem
}

func (r *looseResolver) OpenObject(_ context.Context, h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, error) {
	hex := h.String()
	f, err := r.fs.Open(r.fs.Join("objects", hex[:2], hex[2:]))
	if err != nil {
		return nil, plumbing.InvalidObject, plumbing.ErrObjectNotFound
	}

	or, err := objfile.NewReader(f)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	return or, or.Type(), nil
}

func TestObjectAtRefDelta(t *testing.T) {
	fs := memfs.New()

	base := []byte("ref delta base content\n")
	baseHash, err := testfix.WriteLooseObject(fs, plumbing.BlobObject, base)
	require.NoError(t, err)

	patched := append([]byte("patched: "), base...)
	delta := testfix.BuildDelta(len(base), len(patched), []testfix.DeltaOp{
		{Insert: []byte("patched: ")},
		{CopyOffset: 0, CopySize: len(base)},
	})

	objects := []*testfix.PackObject{
		{Type: plumbing.REFDeltaObject, Content: delta, BaseHash: baseHash},
	}

	packPath, _, err := testfix.WritePack(fs, "refdelta", objects)
	require.NoError(t, err)

	r := NewReader(fs, nil, packPath, &looseResolver{fs}, nil)
	body, typ, err := r.ObjectAt(context.Background(), objects[0].Offset, false)
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, plumbing.BlobObject, typ)

	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, string(patched), string(b))
}

func TestObjectAtRefDeltaWithoutResolver(t *testing.T) {
	fs := memfs.New()

	delta := testfix.BuildDelta(1, 1, []testfix.DeltaOp{{Insert: []byte("x")}})
	objects := []*testfix.PackObject{
		{Type: plumbing.REFDeltaObject, Content: delta, BaseHash: plumbing.NewHash("0102030405060708090a0b0c0d0e0f1011121314")},
	}

	packPath, _, err := testfix.WritePack(fs, "orphan", objects)
	require.NoError(t, err)

	r := NewReader(fs, nil, packPath, nil, nil)
	_, _, err = r.ObjectAt(context.Background(), objects[0].Offset, false)
	assert.ErrorIs(t, err, plumbing.ErrObjectNotFound)
}

func TestObjectAtCancelledContext(t *testing.T) {
	fs, packPath, objects, _ := deltaChainFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(fs, nil, packPath, nil, nil)
	_, _, err := r.ObjectAt(ctx, objects[0].Offset, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObjectAtBadOffset(t *testing.T) {
	fs, packPath, _, _ := deltaChainFixture(t)

	r := NewReader(fs, nil, packPath, nil, nil)
	_, _, err := r.ObjectAt(context.Background(), 1<<40, false)
	assert.Error(t, err)
}

func TestReadNegativeOffsetRoundTrip(t *testing.T) {
	// Exercise the +1 bias against values around the 7-bit boundaries.
	for _, v := range []int64{1, 127, 128, 129, 16511, 16512, 1 << 20} {
		var buf []byte
		{
			var out [10]byte
			pos := len(out) - 1
			o := v
			out[pos] = byte(o & 0x7f)
			for o >>= 7; o > 0; o >>= 7 {
				o--
				pos--
				out[pos] = 0x80 | byte(o&0x7f)
			}
			buf = out[pos:]
		}

		got, err := readNegativeOffset(newByteReader(buf))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

type sliceByteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) io.ByteReader {
	return &sliceByteReader{b: b}
}

func (r *sliceByteReader) ReadByte() (byte, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}

	b := r.b[r.i]
	r.i++
	return b, nil
}

func TestStreamLRUTTLExpiry(t *testing.T) {
	fs, packPath, objects, want := deltaChainFixture(t)

	streams := cache.NewStreamLRUWithLimits(16, 50*time.Millisecond)
	defer streams.Close()

	r := NewReader(fs, nil, packPath, nil, streams)

	body, _, err := r.ObjectAt(context.Background(), objects[1].Offset, true)
	require.NoError(t, err)

	// The returned stream stays usable while eviction races it.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, streams.Len())

	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, want[1], string(b))
	require.NoError(t, body.Close())
}
