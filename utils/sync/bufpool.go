package sync

import "sync/atomic"

const (
	// poolBuckets is a prime bucket count, buffers are binned by
	// length modulo poolBuckets.
	poolBuckets = 13
	// bucketSlots caps how many buffers each bucket retains.
	bucketSlots = 32
)

// BufferPool holds reusable fixed-size byte buffers. Buffers are binned by
// their length, and each bin keeps up to bucketSlots buffers; releasing into
// a full bin discards the buffer. All operations are lock-free, a single
// compare-and-swap per slot.
//
// The pool is owned by a repository handle rather than being process-wide,
// so tests get isolated pools.
type BufferPool struct {
	buckets [poolBuckets][bucketSlots]atomic.Pointer[[]byte]
}

// NewBufferPool returns an empty BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Take returns a Buffer of exactly size bytes, reusing a pooled buffer of
// the same size when one is available. The contents are not zeroed.
func (p *BufferPool) Take(size int) *Buffer {
	bucket := &p.buckets[size%poolBuckets]
	for i := range bucket {
		v := bucket[i].Swap(nil)
		if v == nil {
			continue
		}

		if len(*v) == size {
			return &Buffer{pool: p, data: *v}
		}

		// Wrong size for this caller, offer it back. If the slot was
		// reused meanwhile the buffer is dropped.
		bucket[i].CompareAndSwap(nil, v)
	}

	return &Buffer{pool: p, data: make([]byte, size)}
}

func (p *BufferPool) put(data []byte) {
	if len(data) == 0 {
		return
	}

	bucket := &p.buckets[len(data)%poolBuckets]
	for i := range bucket {
		if bucket[i].CompareAndSwap(nil, &data) {
			return
		}
	}
}

// Buffer is a scoped lease of a pooled byte buffer. Release returns the
// bytes to the pool; Detach transfers ownership out of the lease so the
// bytes survive it.
type Buffer struct {
	pool *BufferPool
	data []byte
	done bool
}

// Bytes returns the leased buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Release returns the buffer to its pool. It is a no-op after Detach or a
// previous Release.
func (b *Buffer) Release() {
	if b.done || b.pool == nil {
		return
	}

	b.done = true
	b.pool.put(b.data)
	b.data = nil
}

// Detach removes the buffer from the lease without releasing it, so the
// returned bytes outlive the lease. Release becomes a no-op.
func (b *Buffer) Detach() []byte {
	b.done = true
	data := b.data
	b.data = nil
	return data
}
