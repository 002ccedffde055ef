package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPoolTakeAllocates(t *testing.T) {
	p := NewBufferPool()

	b := p.Take(128)
	assert.Len(t, b.Bytes(), 128)
	b.Release()
}

func TestBufferPoolReusesSameSize(t *testing.T) {
	p := NewBufferPool()

	b := p.Take(64)
	data := b.Bytes()
	data[0] = 0xAA
	b.Release()

	again := p.Take(64)
	defer again.Release()

	assert.Len(t, again.Bytes(), 64)
	// Same backing array comes back; contents are not zeroed.
	assert.Equal(t, byte(0xAA), again.Bytes()[0])
}

func TestBufferPoolDifferentSizesDontMix(t *testing.T) {
	p := NewBufferPool()

	b := p.Take(64)
	b.Release()

	other := p.Take(64 + 13) // same bucket, different length
	defer other.Release()

	assert.Len(t, other.Bytes(), 77)
}

func TestBufferPoolReleaseIdempotent(t *testing.T) {
	p := NewBufferPool()

	b := p.Take(32)
	b.Release()
	b.Release()

	assert.Nil(t, b.Bytes())
}

func TestBufferPoolDetach(t *testing.T) {
	p := NewBufferPool()

	b := p.Take(16)
	data := b.Detach()
	assert.Len(t, data, 16)

	// Release after Detach must not return the buffer to the pool.
	b.Release()
	data[0] = 0xFF

	next := p.Take(16)
	defer next.Release()
	assert.NotEqual(t, byte(0xFF), next.Bytes()[0])
}

func TestBufferPoolConcurrent(t *testing.T) {
	p := NewBufferPool()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				b := p.Take(256)
				b.Bytes()[j%256] = byte(j)
				b.Release()
			}
		}()
	}

	for i := 0; i < 8; i++ {
		<-done
	}
}
