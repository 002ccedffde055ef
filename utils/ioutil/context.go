package ioutil

import (
	"context"
	"io"
)

type ctxReader struct {
	r   io.Reader
	ctx context.Context
}

// NewContextReader wraps a reader to make it respect the given Context.
// Cancellation is observed between reads: once the context is done, the
// next Read returns ctx.Err() without touching the underlying reader.
// In-flight reads are not interrupted, as the standard Go io interface
// offers no way to cancel them.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{r: r, ctx: ctx}
}

// NewContextReadCloser is like NewContextReader, preserving the Close of
// the wrapped ReadCloser.
func NewContextReadCloser(ctx context.Context, r io.ReadCloser) io.ReadCloser {
	return NewReadCloser(NewContextReader(ctx, r), r)
}

func (r *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}
