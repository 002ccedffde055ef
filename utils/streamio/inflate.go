package streamio

import (
	"io"

	"github.com/repolens/repolens/utils/sync"
)

type inflateReader struct {
	z    *sync.ZLibReader
	done bool
}

// Inflate returns a lazily decompressing view over the zlib-compressed
// prefix of r. The inflate state is pooled and released on Close.
func Inflate(r io.Reader) (io.ReadCloser, error) {
	z, err := sync.GetZlibReader(r)
	if err != nil {
		return nil, err
	}

	return &inflateReader{z: z}, nil
}

func (r *inflateReader) Read(b []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}

	return r.z.Read(b)
}

func (r *inflateReader) Close() error {
	if r.done {
		return nil
	}
	r.done = true

	err := r.z.Close()
	sync.PutZlibReader(r.z)
	r.z = nil
	return err
}
