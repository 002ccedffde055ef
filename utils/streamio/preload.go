package streamio

import "io"

type preloadReader struct {
	prefix []byte
	pos    int
	r      io.Reader
}

// NewPreloadReader stitches an already-read prefix ahead of r, so bytes
// that were prefetched but not consumed are not lost to the next reader.
func NewPreloadReader(prefix []byte, r io.Reader) io.Reader {
	return &preloadReader{prefix: prefix, r: r}
}

func (p *preloadReader) Read(b []byte) (int, error) {
	if p.pos < len(p.prefix) {
		n := copy(b, p.prefix[p.pos:])
		p.pos += n
		return n, nil
	}

	return p.r.Read(b)
}
