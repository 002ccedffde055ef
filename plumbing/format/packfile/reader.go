package packfile

import (
	"bufio"
	"context"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/cache"
	"github.com/repolens/repolens/utils/ioutil"
	"github.com/repolens/repolens/utils/streamio"
)

// BaseResolver locates the base object of a ref-delta entry, looking it
// up by hash across the whole object store (the base may live in another
// pack, or be loose).
type BaseResolver interface {
	OpenObject(ctx context.Context, h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, error)
}

// Reader reads individual objects out of a single pack file by offset,
// transparently resolving offset and reference deltas. Decoded streams
// are memoized through the shared stream cache when the caller allows it.
type Reader struct {
	fs       billy.Filesystem
	scratch  billy.Filesystem
	path     string
	resolver BaseResolver
	cache    *cache.StreamLRU
}

// NewReader builds a Reader for the pack file at path within fs.
// scratch is where memoized streams above the in-memory threshold spill;
// when nil an in-memory filesystem is used. resolver may be nil if the
// pack is known to contain no ref-deltas; streams is optional and
// enables (pack, offset) stream caching.
func NewReader(fs billy.Filesystem, scratch billy.Filesystem, path string, resolver BaseResolver, streams *cache.StreamLRU) *Reader {
	if scratch == nil {
		scratch = memfs.New()
	}

	return &Reader{
		fs:       fs,
		scratch:  scratch,
		path:     path,
		resolver: resolver,
		cache:    streams,
	}
}

// ObjectAt returns the decoded object stream and type for the entry at
// the given offset. With allowCache the decoded stream is served from and
// inserted into the stream cache; single-use reads should disable it.
// The caller owns the returned stream and must close it.
func (r *Reader) ObjectAt(ctx context.Context, offset int64, allowCache bool) (io.ReadCloser, plumbing.ObjectType, error) {
	if err := ctx.Err(); err != nil {
		return nil, plumbing.InvalidObject, err
	}

	s, typ, err := r.sharedAt(ctx, offset, allowCache)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	return ioutil.NewContextReadCloser(ctx, s), typ, nil
}

func (r *Reader) sharedAt(ctx context.Context, offset int64, allowCache bool) (*streamio.Shared, plumbing.ObjectType, error) {
	if allowCache && r.cache != nil {
		if s, typ, ok := r.cache.Get(r.path, offset); ok {
			return s, typ, nil
		}
	}

	s, typ, err := r.decodeAt(ctx, offset, allowCache)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	if allowCache && r.cache != nil {
		r.cache.Add(r.path, offset, typ, s)
	}

	return s, typ, nil
}

// decodeAt reads the entry header at offset and produces a seekable
// decoded stream plus the object's effective type.
func (r *Reader) decodeAt(ctx context.Context, offset int64, allowCache bool) (*streamio.Shared, plumbing.ObjectType, error) {
	f, err := r.fs.Open(r.path)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, plumbing.InvalidObject, err
	}

	br := bufio.NewReader(f)

	first, err := br.ReadByte()
	if err != nil {
		f.Close()
		return nil, plumbing.InvalidObject, ErrMalformedPackfile.AddDetails("entry header at %d", offset)
	}

	typ := plumbing.ObjectType((first & maskType) >> firstSizeBits)
	size, err := readVariableLengthSize(first, br)
	if err != nil {
		f.Close()
		return nil, plumbing.InvalidObject, err
	}

	switch typ {
	case plumbing.CommitObject, plumbing.TreeObject, plumbing.BlobObject, plumbing.TagObject:
		memo, err := r.inflateEntry(br, f, size)
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, err
		}

		return streamio.NewShared(memo), typ, nil

	case plumbing.OFSDeltaObject:
		rel, err := readNegativeOffset(br)
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, err
		}

		baseOffset := offset - rel
		if baseOffset < 0 || baseOffset >= offset {
			f.Close()
			return nil, plumbing.InvalidObject, ErrMalformedPackfile.AddDetails("bad delta base offset %d", baseOffset)
		}

		base, baseType, err := r.sharedAt(ctx, baseOffset, allowCache)
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, err
		}

		return r.patchEntry(br, f, base, baseType)

	case plumbing.REFDeltaObject:
		var baseHash plumbing.Hash
		if _, err := io.ReadFull(br, baseHash[:]); err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, ErrMalformedPackfile.AddDetails("ref-delta base hash")
		}

		if r.resolver == nil {
			f.Close()
			return nil, plumbing.InvalidObject, plumbing.ErrObjectNotFound
		}

		baseStream, baseType, err := r.resolver.OpenObject(ctx, baseHash)
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, err
		}

		base, err := asSeekable(r.scratch, baseStream)
		if err != nil {
			f.Close()
			return nil, plumbing.InvalidObject, err
		}

		return r.patchEntry(br, f, base, baseType)
	}

	f.Close()
	return nil, plumbing.InvalidObject, ErrMalformedPackfile.AddDetails("invalid object type %d", typ)
}

// inflateEntry wraps the compressed entry body into a lazily inflated,
// memoized stream of exactly size bytes.
func (r *Reader) inflateEntry(br *bufio.Reader, f billy.File, size int64) (*streamio.MemoReader, error) {
	zr, err := streamio.Inflate(br)
	if err != nil {
		return nil, ErrMalformedPackfile.AddDetails("zlib: %s", err)
	}

	body := streamio.NewRangeReader(
		ioutil.NewReadCloser(zr, ioutil.MultiCloser(zr, f)), size)

	return streamio.NewMemoReader(r.scratch, body, size)
}

// patchEntry inflates the delta payload and applies it to base. The
// resulting stream is memoized so it can serve as a base itself.
func (r *Reader) patchEntry(br *bufio.Reader, f billy.File, base streamio.SeekableReader, baseType plumbing.ObjectType) (*streamio.Shared, plumbing.ObjectType, error) {
	zr, err := streamio.Inflate(br)
	if err != nil {
		base.Close()
		f.Close()
		return nil, plumbing.InvalidObject, ErrMalformedPackfile.AddDetails("delta zlib: %s", err)
	}

	closer := ioutil.MultiCloser(base, zr, f)

	dr, err := newDeltaReader(base, bufio.NewReader(zr), closer)
	if err != nil {
		closer.Close()
		return nil, plumbing.InvalidObject, err
	}

	memo, err := streamio.NewMemoReader(r.scratch, dr, dr.Size())
	if err != nil {
		dr.Close()
		return nil, plumbing.InvalidObject, err
	}

	return streamio.NewShared(memo), baseType, nil
}

// readNegativeOffset decodes the backward distance of an ofs-delta. The
// encoding differs from the variable-length size: each continuation adds
// a +1 bias before shifting, removing redundant encodings.
func readNegativeOffset(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, ErrMalformedPackfile.AddDetails("ofs-delta offset")
	}

	v := int64(b & maskSize)
	for b&maskContinue != 0 {
		if v >= 1<<(63-sizeBits) {
			return 0, ErrMalformedPackfile.AddDetails("ofs-delta offset overflow")
		}

		if b, err = r.ReadByte(); err != nil {
			return 0, ErrMalformedPackfile.AddDetails("ofs-delta offset")
		}

		v = ((v + 1) << sizeBits) | int64(b&maskSize)
	}

	return v, nil
}

// asSeekable upgrades a stream to a seekable one, memoizing it when the
// source does not already support seeking.
func asSeekable(fs billy.Filesystem, rc io.ReadCloser) (streamio.SeekableReader, error) {
	if s, ok := rc.(streamio.SeekableReader); ok {
		return s, nil
	}

	return streamio.NewMemoReader(fs, rc, 0)
}
