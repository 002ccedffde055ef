package streamio

import "io"

type rangeReader struct {
	r         io.ReadCloser
	size      int64
	remaining int64
}

// NewRangeReader limits r to exactly size bytes. Reads past the range
// return EOF without consuming the parent further.
func NewRangeReader(r io.ReadCloser, size int64) io.ReadCloser {
	return &rangeReader{r: r, size: size, remaining: size}
}

func (r *rangeReader) Read(b []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}

	if int64(len(b)) > r.remaining {
		b = b[:r.remaining]
	}

	n, err := r.r.Read(b)
	r.remaining -= int64(n)

	if err == io.EOF && r.remaining > 0 {
		return n, io.ErrUnexpectedEOF
	}

	return n, err
}

func (r *rangeReader) Close() error {
	return r.r.Close()
}
