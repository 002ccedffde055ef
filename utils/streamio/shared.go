package streamio

import (
	"errors"
	"io"
	"sync"
)

// ErrClosedStream is returned when reading from a closed shared handle.
var ErrClosedStream = errors.New("stream already closed")

type sharedGroup struct {
	mu   sync.Mutex
	src  SeekableReader
	refs int
}

// Shared is a reference-counted handle over a seekable stream. Each handle
// keeps its own virtual position; the underlying stream is seeked before
// every read, under the group's lock, so clones can read re-entrantly.
// The underlying stream is closed when the last handle is.
type Shared struct {
	group  *sharedGroup
	pos    int64
	closed bool
}

// NewShared wraps src into the first handle of a new shared group.
func NewShared(src SeekableReader) *Shared {
	return &Shared{group: &sharedGroup{src: src, refs: 1}}
}

// Clone returns a new handle over the same underlying stream, positioned
// at the start.
func (s *Shared) Clone() *Shared {
	s.group.mu.Lock()
	defer s.group.mu.Unlock()

	s.group.refs++
	return &Shared{group: s.group}
}

func (s *Shared) Read(b []byte) (int, error) {
	if s.closed {
		return 0, ErrClosedStream
	}

	s.group.mu.Lock()
	defer s.group.mu.Unlock()

	if _, err := s.group.src.Seek(s.pos, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := s.group.src.Read(b)
	s.pos += int64(n)
	return n, err
}

// Seek adjusts this handle's virtual position. Other handles are not
// affected.
func (s *Shared) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosedStream
	}

	s.group.mu.Lock()
	defer s.group.mu.Unlock()

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		end, err := s.group.src.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		offset += end
	}

	if offset < 0 {
		return 0, ErrNegativeOffset
	}

	s.pos = offset
	return offset, nil
}

// Close releases this handle. The underlying stream is closed when the
// last handle of the group is released.
func (s *Shared) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.group.mu.Lock()
	s.group.refs--
	last := s.group.refs == 0
	s.group.mu.Unlock()

	if last {
		return s.group.src.Close()
	}

	return nil
}
