// Package ioutil implements some I/O utility functions.
package ioutil

import (
	"errors"
	"io"
)

// CloserFunc adapts a plain func to the io.Closer interface.
type CloserFunc func() error

// Close implements io.Closer.
func (f CloserFunc) Close() error { return f() }

var _ io.Closer = CloserFunc(nil)

type multiCloser struct{ closers []io.Closer }

func (mc *multiCloser) Close() error {
	var errs []error

	for _, c := range mc.closers {
		if c == nil {
			continue
		}

		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// MultiCloser returns a closer that sequentially closes the given closers.
// The errors are merged via errors.Join.
func MultiCloser(closers ...io.Closer) io.Closer {
	return &multiCloser{closers: closers}
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r *readCloser) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// NewReadCloser creates an io.ReadCloser with the given io.Reader and
// io.Closer.
func NewReadCloser(r io.Reader, c io.Closer) io.ReadCloser {
	return &readCloser{Reader: r, closer: c}
}

// CheckClose calls Close on the given io.Closer. If the given *error points to
// nil, it will be assigned the error returned by Close. Otherwise, any error
// returned by Close will be ignored. CheckClose is usually called with defer.
func CheckClose(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
