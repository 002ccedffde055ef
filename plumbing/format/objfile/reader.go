// Package objfile implements a reader for loose git objects: a zlib
// frame holding "<type> <size>\0" followed by the object body.
package objfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/ioutil"
	"github.com/repolens/repolens/utils/streamio"
)

var (
	// ErrHeader is returned when the objfile header is malformed.
	ErrHeader = errors.New("invalid header")
	// ErrNegativeSize is returned when the objfile declares a negative
	// object size.
	ErrNegativeSize = errors.New("negative object size")
)

// headerPeekSize is how much of the inflated prefix is pulled while
// locating the header terminator. The tail beyond the NUL is stitched
// back ahead of the body.
const headerPeekSize = 96

// Reader reads a loose object, parsing its header eagerly and exposing
// the body as a stream of exactly the declared size.
type Reader struct {
	typ  plumbing.ObjectType
	size int64
	body io.ReadCloser
}

// NewReader decodes the loose object in src. Ownership of src transfers
// to the returned Reader; closing the Reader closes src.
func NewReader(src io.ReadCloser) (r *Reader, err error) {
	zr, err := streamio.Inflate(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("%w: %w", ErrHeader, err)
	}

	closer := ioutil.MultiCloser(zr, src)

	typ, size, tail, err := readHeader(zr)
	if err != nil {
		closer.Close()
		return nil, err
	}

	body := streamio.NewRangeReader(
		streamio.NewConcatReader(
			io.NopCloser(bytes.NewReader(tail)),
			ioutil.NewReadCloser(zr, nil),
		),
		size,
	)

	return &Reader{
		typ:  typ,
		size: size,
		body: ioutil.NewReadCloser(body, closer),
	}, nil
}

// Type returns the type of the object.
func (r *Reader) Type() plumbing.ObjectType {
	return r.typ
}

// Size returns the declared size of the object body in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) Read(b []byte) (int, error) {
	return r.body.Read(b)
}

// Close releases the inflate state and the underlying source.
func (r *Reader) Close() error {
	return r.body.Close()
}

// readHeader pulls the inflated prefix until the NUL header terminator,
// returning the parsed type and size plus any body bytes read past the
// terminator.
func readHeader(r io.Reader) (plumbing.ObjectType, int64, []byte, error) {
	buf := make([]byte, 0, headerPeekSize)
	chunk := make([]byte, 16)

	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if i := bytes.IndexByte(buf, 0); i >= 0 {
			typ, size, perr := parseHeader(buf[:i])
			if perr != nil {
				return 0, 0, nil, perr
			}
			return typ, size, buf[i+1:], nil
		}

		if err != nil || len(buf) > headerPeekSize {
			return 0, 0, nil, fmt.Errorf("%w: missing NUL terminator", ErrHeader)
		}
	}
}

func parseHeader(line []byte) (plumbing.ObjectType, int64, error) {
	sp := bytes.IndexByte(line, ' ')
	if sp < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrHeader, line)
	}

	typ, err := plumbing.ParseObjectType(string(line[:sp]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrHeader, line)
	}

	size, err := strconv.ParseInt(string(line[sp+1:]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrHeader, line)
	}

	if size < 0 {
		return 0, 0, ErrNegativeSize
	}

	return typ, size, nil
}
