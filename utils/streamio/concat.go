package streamio

import (
	"io"

	"github.com/repolens/repolens/utils/ioutil"
)

type concatReader struct {
	readers []io.ReadCloser
	idx     int
}

// NewConcatReader returns a reader producing the given streams one after
// another. Each stream is closed as soon as it returns EOF; Close closes
// whatever streams have not been fully read yet.
func NewConcatReader(readers ...io.ReadCloser) io.ReadCloser {
	return &concatReader{readers: readers}
}

func (c *concatReader) Read(b []byte) (int, error) {
	for c.idx < len(c.readers) {
		n, err := c.readers[c.idx].Read(b)
		if err == io.EOF {
			if cerr := c.readers[c.idx].Close(); cerr != nil {
				return n, cerr
			}
			c.readers[c.idx] = nil
			c.idx++

			if n > 0 {
				return n, nil
			}
			continue
		}

		return n, err
	}

	return 0, io.EOF
}

func (c *concatReader) Close() error {
	closers := make([]io.Closer, 0, len(c.readers))
	for ; c.idx < len(c.readers); c.idx++ {
		if c.readers[c.idx] != nil {
			closers = append(closers, c.readers[c.idx])
		}
	}

	return ioutil.MultiCloser(closers...).Close()
}
