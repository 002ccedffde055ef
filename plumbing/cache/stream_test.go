package cache

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/streamio"
)

func newShared(t *testing.T, content string) *streamio.Shared {
	t.Helper()

	m, err := streamio.NewMemoReader(memfs.New(),
		io.NopCloser(strings.NewReader(content)), int64(len(content)))
	require.NoError(t, err)

	return streamio.NewShared(m)
}

func TestStreamLRUMiss(t *testing.T) {
	c := NewStreamLRU()
	defer c.Close()

	_, _, ok := c.Get("pack-a", 12)
	assert.False(t, ok)
}

func TestStreamLRUHit(t *testing.T) {
	c := NewStreamLRU()
	defer c.Close()

	s := newShared(t, "cached bytes")
	c.Add("pack-a", 12, plumbing.BlobObject, s)
	require.NoError(t, s.Close())

	clone, typ, ok := c.Get("pack-a", 12)
	require.True(t, ok)
	assert.Equal(t, plumbing.BlobObject, typ)

	b, err := io.ReadAll(clone)
	require.NoError(t, err)
	assert.Equal(t, "cached bytes", string(b))
	require.NoError(t, clone.Close())
}

func TestStreamLRUKeyedByPackAndOffset(t *testing.T) {
	c := NewStreamLRU()
	defer c.Close()

	s := newShared(t, "x")
	defer s.Close()
	c.Add("pack-a", 12, plumbing.BlobObject, s)

	_, _, ok := c.Get("pack-a", 13)
	assert.False(t, ok)
	_, _, ok = c.Get("pack-b", 12)
	assert.False(t, ok)
}

func TestStreamLRUTrimsToMaxEntries(t *testing.T) {
	c := NewStreamLRUWithLimits(4, time.Minute)
	defer c.Close()

	for i := 0; i < 10; i++ {
		s := newShared(t, "payload")
		c.Add("pack-a", int64(i), plumbing.BlobObject, s)
		s.Close()
	}

	assert.Equal(t, 4, c.Len())

	// Oldest entries went first.
	_, _, ok := c.Get("pack-a", 0)
	assert.False(t, ok)
	_, _, ok = c.Get("pack-a", 9)
	assert.True(t, ok)
}

func TestStreamLRUExpiry(t *testing.T) {
	c := NewStreamLRUWithLimits(16, 30*time.Millisecond)
	defer c.Close()

	s := newShared(t, "payload")
	c.Add("pack-a", 1, plumbing.BlobObject, s)
	s.Close()

	require.Equal(t, 1, c.Len())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, c.Len())
}

func TestStreamLRUHitExtendsTTL(t *testing.T) {
	c := NewStreamLRUWithLimits(16, 60*time.Millisecond)
	defer c.Close()

	s := newShared(t, "payload")
	c.Add("pack-a", 1, plumbing.BlobObject, s)
	s.Close()

	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		clone, _, ok := c.Get("pack-a", 1)
		require.True(t, ok, "entry expired despite hits")
		clone.Close()
	}
}

func TestStreamLRUCloneOutlivesEviction(t *testing.T) {
	c := NewStreamLRUWithLimits(16, time.Minute)

	s := newShared(t, "survivor")
	c.Add("pack-a", 1, plumbing.BlobObject, s)
	s.Close()

	clone, _, ok := c.Get("pack-a", 1)
	require.True(t, ok)

	c.Close()

	b, err := io.ReadAll(clone)
	require.NoError(t, err)
	assert.Equal(t, "survivor", string(b))
	require.NoError(t, clone.Close())
}

func TestStreamLRUClosedRejectsInserts(t *testing.T) {
	c := NewStreamLRU()
	c.Close()

	s := newShared(t, "late")
	defer s.Close()
	c.Add("pack-a", 1, plumbing.BlobObject, s)

	_, _, ok := c.Get("pack-a", 1)
	assert.False(t, ok)
}
