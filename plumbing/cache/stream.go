// Package cache implements the decoded object-stream cache used by the
// object store to amortise repeated delta resolution.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/streamio"
)

const (
	// DefaultMaxEntries is the default entry ceiling for a StreamLRU.
	DefaultMaxEntries = 16
	// DefaultTTL is the default time a cached stream stays alive
	// without being hit.
	DefaultTTL = 10 * time.Second
)

// Key identifies a cached stream by the pack file it was decoded from and
// the entry offset within it.
type Key struct {
	PackPath string
	Offset   int64
}

type holder struct {
	key     Key
	typ     plumbing.ObjectType
	stream  *streamio.Shared
	expires time.Time
	hits    int
}

// StreamLRU caches fully decoded, seekable object streams keyed by
// (pack path, offset). Hits refresh both recency and TTL and return a new
// clone of the shared stream, so a returned handle always keeps the
// underlying stream alive for the duration of the caller's use, even if
// eviction races it.
//
// Entries expire TTL after their last hit; a single timer is re-armed to
// the earliest expiry whenever membership changes. The cache additionally
// trims to MaxEntries, oldest first.
type StreamLRU struct {
	MaxEntries int
	TTL        time.Duration

	mu     sync.Mutex
	ll     *list.List // front is the most recently used
	items  map[Key]*list.Element
	timer  *time.Timer
	closed bool
}

// NewStreamLRU builds an empty cache with the default ceiling and TTL.
func NewStreamLRU() *StreamLRU {
	return NewStreamLRUWithLimits(DefaultMaxEntries, DefaultTTL)
}

// NewStreamLRUWithLimits builds an empty cache with the given entry
// ceiling and TTL.
func NewStreamLRUWithLimits(maxEntries int, ttl time.Duration) *StreamLRU {
	return &StreamLRU{
		MaxEntries: maxEntries,
		TTL:        ttl,
		ll:         list.New(),
		items:      make(map[Key]*list.Element),
	}
}

// Get returns a clone of the cached stream for the key, refreshing its
// recency and TTL. The second return is the cached object type.
func (c *StreamLRU) Get(packPath string, offset int64) (*streamio.Shared, plumbing.ObjectType, bool) {
	c.mu.Lock()

	el, ok := c.items[Key{packPath, offset}]
	if !ok || c.closed {
		c.mu.Unlock()
		return nil, plumbing.InvalidObject, false
	}

	h := el.Value.(*holder)
	h.hits++
	h.expires = time.Now().Add(c.TTL)
	c.ll.MoveToFront(el)
	clone := h.stream.Clone()
	typ := h.typ
	c.rearmLocked()

	c.mu.Unlock()
	return clone, typ, true
}

// Add inserts a decoded stream. The cache keeps its own clone; the caller
// retains ownership of s. If the key is already present its stream is
// replaced.
func (c *StreamLRU) Add(packPath string, offset int64, typ plumbing.ObjectType, s *streamio.Shared) {
	key := Key{packPath, offset}
	var stale []*streamio.Shared

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if el, ok := c.items[key]; ok {
		h := el.Value.(*holder)
		stale = append(stale, h.stream)
		h.stream = s.Clone()
		h.typ = typ
		h.expires = time.Now().Add(c.TTL)
		c.ll.MoveToFront(el)
	} else {
		h := &holder{
			key:     key,
			typ:     typ,
			stream:  s.Clone(),
			expires: time.Now().Add(c.TTL),
		}
		c.items[key] = c.ll.PushFront(h)
	}

	for c.ll.Len() > c.MaxEntries {
		stale = append(stale, c.removeLocked(c.ll.Back()))
	}

	c.rearmLocked()
	c.mu.Unlock()

	// Disposal may cascade into further stream disposals, keep it
	// outside the lock.
	for _, s := range stale {
		s.Close()
	}
}

// Len returns the current number of cached entries.
func (c *StreamLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear drops every cached entry, releasing the cached stream handles.
func (c *StreamLRU) Clear() {
	c.mu.Lock()
	stale := c.dropAllLocked()
	c.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
}

// Close clears the cache and prevents further inserts.
func (c *StreamLRU) Close() {
	c.mu.Lock()
	c.closed = true
	stale := c.dropAllLocked()
	c.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
}

func (c *StreamLRU) expire() {
	now := time.Now()
	var stale []*streamio.Shared

	c.mu.Lock()
	for el := c.ll.Back(); el != nil; {
		h := el.Value.(*holder)
		if h.expires.After(now) {
			break
		}

		prev := el.Prev()
		stale = append(stale, c.removeLocked(el))
		el = prev
	}
	c.rearmLocked()
	c.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
}

func (c *StreamLRU) removeLocked(el *list.Element) *streamio.Shared {
	h := el.Value.(*holder)
	c.ll.Remove(el)
	delete(c.items, h.key)
	return h.stream
}

func (c *StreamLRU) dropAllLocked() []*streamio.Shared {
	stale := make([]*streamio.Shared, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		h := el.Value.(*holder)
		stale = append(stale, h.stream)
	}

	c.ll.Init()
	c.items = make(map[Key]*list.Element)

	if c.timer != nil {
		c.timer.Stop()
	}

	return stale
}

// rearmLocked points the eviction timer at the earliest expiry. Expiry
// order matches recency order because every hit refreshes both.
func (c *StreamLRU) rearmLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}

	back := c.ll.Back()
	if back == nil || c.closed {
		return
	}

	d := time.Until(back.Value.(*holder).expires)
	if d < 0 {
		d = 0
	}

	if c.timer == nil {
		c.timer = time.AfterFunc(d, c.expire)
	} else {
		c.timer.Reset(d)
	}
}
