package streamio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
)

// memoryThreshold is the expected stream size from which the memoized
// bytes spill to a temporary file instead of staying in memory.
const memoryThreshold = 1 << 20 // 1 MiB

// ErrNegativeOffset is returned when a seek resolves to a negative offset.
var ErrNegativeOffset = errors.New("seek to negative offset")

// MemoReader turns a forward-only stream into a seekable one by retaining
// every byte read so far. Streams whose expected size is below 1 MiB are
// kept in memory; larger ones are backed by a temporary file on fs.
//
// Seeks into the already-read range are served from the retained bytes;
// seeks past it pull the remainder from the source. This is what allows an
// arbitrarily nested delta base to be re-read.
type MemoReader struct {
	src     io.ReadCloser
	srcDone bool

	fs   billy.Filesystem
	file billy.File
	mem  []byte

	stored int64
	pos    int64
}

// NewMemoReader memoizes src, whose total size is expected to be size
// bytes. fs is only used when the stream spills to a temporary file.
func NewMemoReader(fs billy.Filesystem, src io.ReadCloser, size int64) (*MemoReader, error) {
	m := &MemoReader{src: src, fs: fs}

	if size >= memoryThreshold {
		f, err := fs.TempFile("", "repolens-memo-")
		if err != nil {
			return nil, err
		}
		m.file = f
	} else if size > 0 {
		m.mem = make([]byte, 0, size)
	}

	return m, nil
}

func (m *MemoReader) Read(b []byte) (int, error) {
	if m.pos > m.stored {
		if err := m.fill(m.pos); err != nil {
			return 0, err
		}
	}

	if m.pos < m.stored {
		return m.readStored(b)
	}

	if m.srcDone {
		return 0, io.EOF
	}

	n, err := m.src.Read(b)
	if n > 0 {
		if serr := m.store(b[:n]); serr != nil {
			return n, serr
		}
		m.pos += int64(n)
	}

	if err == io.EOF {
		m.finishSource()
		if n > 0 {
			return n, nil
		}
	}

	return n, err
}

// Seek implements io.Seeker. Seeking beyond the retained range is allowed;
// the gap is pulled from the source on the next Read.
func (m *MemoReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		if err := m.fill(1<<63 - 1); err != nil {
			return 0, err
		}
		abs = m.stored + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	if abs < 0 {
		return 0, ErrNegativeOffset
	}

	m.pos = abs
	return abs, nil
}

// Size pulls the source to EOF and returns the total stream length.
func (m *MemoReader) Size() (int64, error) {
	if err := m.fill(1<<63 - 1); err != nil {
		return 0, err
	}

	return m.stored, nil
}

func (m *MemoReader) Close() error {
	var errs []error
	if !m.srcDone {
		m.srcDone = true
		if err := m.src.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.file != nil {
		name := m.file.Name()
		if err := m.file.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.fs.Remove(name); err != nil {
			errs = append(errs, err)
		}
		m.file = nil
	}

	m.mem = nil
	return errors.Join(errs...)
}

func (m *MemoReader) readStored(b []byte) (int, error) {
	avail := m.stored - m.pos
	if int64(len(b)) > avail {
		b = b[:avail]
	}

	if m.file != nil {
		n, err := m.file.ReadAt(b, m.pos)
		m.pos += int64(n)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}

	n := copy(b, m.mem[m.pos:m.stored])
	m.pos += int64(n)
	return n, nil
}

// fill pulls from the source until the retained range reaches offset or
// the source is exhausted.
func (m *MemoReader) fill(offset int64) error {
	if m.srcDone || m.stored >= offset {
		return nil
	}

	var buf [8192]byte
	for m.stored < offset {
		n, err := m.src.Read(buf[:])
		if n > 0 {
			if serr := m.store(buf[:n]); serr != nil {
				return serr
			}
		}

		if err == io.EOF {
			m.finishSource()
			return nil
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *MemoReader) store(b []byte) error {
	if m.file != nil {
		if _, err := m.file.Seek(m.stored, io.SeekStart); err != nil {
			return err
		}
		if _, err := m.file.Write(b); err != nil {
			return err
		}
	} else {
		m.mem = append(m.mem, b...)
	}

	m.stored += int64(len(b))
	return nil
}

func (m *MemoReader) finishSource() {
	if m.srcDone {
		return
	}

	m.srcDone = true
	m.src.Close()
}
