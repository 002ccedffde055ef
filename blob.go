package repolens

import (
	"context"
	"io"

	"github.com/repolens/repolens/plumbing"
)

// Blob is used to store arbitrary data - it is generally a file.
type Blob struct {
	// Hash of the blob.
	Hash plumbing.Hash

	r *Repository
}

// BlobObject returns the blob with the given hash. The content is read
// lazily through Reader.
func (r *Repository) BlobObject(ctx context.Context, h plumbing.Hash) (*Blob, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	body, typ, err := r.objects.OpenObject(ctx, h)
	if err != nil {
		return nil, err
	}
	body.Close()

	if typ != plumbing.BlobObject {
		return nil, plumbing.ErrObjectNotFound
	}

	return &Blob{Hash: h, r: r}, nil
}

// Reader returns a reader over the blob content. The caller must close
// it.
func (b *Blob) Reader(ctx context.Context) (io.ReadCloser, error) {
	body, _, err := b.r.objects.OpenObject(ctx, b.Hash)
	return body, err
}
