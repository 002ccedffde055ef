// Package filesystem implements the object store read path on top of a
// git directory: loose objects first, then packfiles located through
// their indexes.
package filesystem

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/cache"
	"github.com/repolens/repolens/plumbing/format/idxfile"
	"github.com/repolens/repolens/plumbing/format/objfile"
	"github.com/repolens/repolens/plumbing/format/packfile"
	"github.com/repolens/repolens/storage/filesystem/dotgit"
	"github.com/repolens/repolens/utils/ioutil"
	syncutil "github.com/repolens/repolens/utils/sync"
)

// ErrStorageClosed is returned when the object storage is used after
// Close.
var ErrStorageClosed = errors.New("object storage already closed")

// maxParsedIndexes bounds how many parsed pack indexes are kept in
// memory; evicted ones are re-parsed on demand.
const maxParsedIndexes = 64

// ObjectStorage resolves object hashes into typed byte streams. Loose
// objects win over packed ones; pack lookups go through the lazily
// scanned and cached .idx files, and decoded pack streams are memoised
// in a TTL LRU keyed by (pack, offset).
type ObjectStorage struct {
	dir     *dotgit.DotGit
	scratch billy.Filesystem

	// mu guards packList and index. Parsing indexes can suspend on
	// file I/O, so the mutex is the cooperative FIFO kind.
	mu       syncutil.FIFOMutex
	packList []string
	scanned  bool
	index    *lru.Cache

	streams *cache.StreamLRU
	closed  atomic.Bool
}

// NewObjectStorage builds an ObjectStorage over the given git directory.
// scratch, when not nil, is where oversized memoized streams spill.
func NewObjectStorage(dir *dotgit.DotGit, scratch billy.Filesystem) *ObjectStorage {
	return &ObjectStorage{
		dir:     dir,
		scratch: scratch,
		index:   lru.New(maxParsedIndexes),
		streams: cache.NewStreamLRU(),
	}
}

// OpenObject resolves the hash into its decoded stream and type. The
// caller owns the stream and must close it. Returns
// plumbing.ErrObjectNotFound when the hash is in no loose file nor pack.
func (s *ObjectStorage) OpenObject(ctx context.Context, h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, error) {
	return s.OpenObjectExt(ctx, h, true)
}

// OpenObjectExt is OpenObject with explicit control over the decoded
// stream cache; single-use reads, like tree walks, should disable it.
func (s *ObjectStorage) OpenObjectExt(ctx context.Context, h plumbing.Hash, allowCache bool) (io.ReadCloser, plumbing.ObjectType, error) {
	if s.closed.Load() {
		return nil, plumbing.InvalidObject, ErrStorageClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, plumbing.InvalidObject, err
	}

	obj, typ, err := s.looseObject(ctx, h)
	if err == nil || !errors.Is(err, plumbing.ErrObjectNotFound) {
		return obj, typ, err
	}

	return s.packedObject(ctx, h, allowCache)
}

// Close flushes the pack-index cache and disposes the cached streams.
// The storage is unusable afterwards.
func (s *ObjectStorage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.streams.Close()

	if err := s.mu.Lock(context.Background()); err != nil {
		return err
	}
	s.index.Clear()
	s.packList = nil
	s.mu.Unlock()

	return nil
}

func (s *ObjectStorage) looseObject(ctx context.Context, h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, error) {
	f, err := s.dir.Object(h)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	r, err := objfile.NewReader(f)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	return ioutil.NewContextReadCloser(ctx, r), r.Type(), nil
}

func (s *ObjectStorage) packedObject(ctx context.Context, h plumbing.Hash, allowCache bool) (io.ReadCloser, plumbing.ObjectType, error) {
	idxPath, entry, err := s.findPackEntry(ctx, h)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}

	pr := packfile.NewReader(
		s.dir.Fs(), s.scratch, dotgit.ObjectPackPath(idxPath), s, s.streams)

	return pr.ObjectAt(ctx, int64(entry.Offset), allowCache)
}

// findPackEntry scans the pack indexes for the hash. The directory scan
// happens once per storage; individual indexes are parsed on demand and
// kept in an LRU.
func (s *ObjectStorage) findPackEntry(ctx context.Context, h plumbing.Hash) (string, *idxfile.Entry, error) {
	if err := s.mu.Lock(ctx); err != nil {
		return "", nil, err
	}
	defer s.mu.Unlock()

	if !s.scanned {
		packs, err := s.dir.ObjectPacks()
		if err != nil {
			return "", nil, err
		}

		s.packList = packs
		s.scanned = true

		if err := s.parseAll(ctx, packs); err != nil {
			return "", nil, err
		}
	}

	for _, idxPath := range s.packList {
		idx, err := s.parsedIndex(idxPath)
		if err != nil {
			return "", nil, err
		}

		if e, ok := idx.Entry(h); ok {
			return idxPath, e, nil
		}
	}

	return "", nil, plumbing.ErrObjectNotFound
}

// parseAll warms the index cache by decoding every discovered idx file
// concurrently.
func (s *ObjectStorage) parseAll(ctx context.Context, packs []string) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	parsed := make([]*idxfile.Idxfile, len(packs))
	for i, idxPath := range packs {
		i, idxPath := i, idxPath
		g.Go(func() error {
			idx, err := s.parseIndex(idxPath)
			if err != nil {
				return err
			}

			parsed[i] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, idxPath := range packs {
		s.index.Add(idxPath, parsed[i])
	}

	return nil
}

func (s *ObjectStorage) parsedIndex(idxPath string) (*idxfile.Idxfile, error) {
	if v, ok := s.index.Get(idxPath); ok {
		return v.(*idxfile.Idxfile), nil
	}

	idx, err := s.parseIndex(idxPath)
	if err != nil {
		return nil, err
	}

	s.index.Add(idxPath, idx)
	return idx, nil
}

func (s *ObjectStorage) parseIndex(idxPath string) (idx *idxfile.Idxfile, err error) {
	f, err := s.dir.Fs().Open(idxPath)
	if err != nil {
		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	idx = &idxfile.Idxfile{}
	if err := idxfile.NewDecoder(f).Decode(idx); err != nil {
		return nil, err
	}

	return idx, nil
}
