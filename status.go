package repolens

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/format/gitignore"
	"github.com/repolens/repolens/plumbing/format/index"
	"github.com/repolens/repolens/utils/ioutil"
)

// StatusCode tells how a path differs between HEAD, the index and the
// working tree.
type StatusCode int

const (
	// Added means the path is new relative to the compared snapshot.
	Added StatusCode = iota
	// Modified means the path content differs.
	Modified
	// Deleted means the path disappeared.
	Deleted
	// Untracked means the path is in the working tree only.
	Untracked
)

func (c StatusCode) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "untracked"
	}
}

// StatusEntry is one file of the working-directory status. A zero hash
// means the file has no content on that side.
type StatusEntry struct {
	// Path relative to the working tree root, slash-separated.
	Path string
	// Code of the difference.
	Code StatusCode
	// IndexHash is the blob hash recorded in the index.
	IndexHash plumbing.Hash
	// WorktreeHash is the blob hash of the on-disk content.
	WorktreeHash plumbing.Hash
}

// Status is the working-directory status: changes staged in the index,
// changes in the working tree not yet staged, and untracked files. A
// tracked path appears at most once in each sequence, and in both Staged
// and Unstaged when it has staged changes and further unstaged ones; all
// three sequences are ordered by path.
type Status struct {
	Staged    []StatusEntry
	Unstaged  []StatusEntry
	Untracked []StatusEntry
}

// IsClean reports whether no difference was found.
func (s *Status) IsClean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// Status compares HEAD, the staging index and the on-disk working tree.
// The override filter, when not nil, is applied on top of the
// hierarchical .gitignore chain at every directory level.
func (r *Repository) Status(ctx context.Context, override gitignore.Filter) (*Status, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	if r.worktreeFs == nil {
		return nil, ErrIsBareRepository
	}

	idx, err := r.readIndex()
	if err != nil {
		return nil, err
	}

	head, err := r.headSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{}
	processed := make(map[string]bool)

	entries := plainEntries(idx)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		processed[e.Name] = true
		if err := r.statusOfEntry(st, e, head); err != nil {
			return nil, err
		}
	}

	if err := r.untrackedFiles(ctx, "", nil, override, processed, st); err != nil {
		return nil, err
	}

	sortEntries(st.Staged)
	sortEntries(st.Unstaged)
	sortEntries(st.Untracked)

	return st, nil
}

// statusOfEntry classifies one tracked path by comparing the index hash,
// the HEAD snapshot and the on-disk content.
func (r *Repository) statusOfEntry(st *Status, e *index.Entry, head map[string]plumbing.Hash) error {
	indexHash := e.Hash
	headHash, inHead := head[e.Name]

	workHash, exists, err := r.worktreeFileHash(e.Name)
	if err != nil {
		return err
	}

	staged := func() {
		code := Modified
		if !inHead {
			code = Added
		}

		st.Staged = append(st.Staged, StatusEntry{
			Path:         e.Name,
			Code:         code,
			IndexHash:    indexHash,
			WorktreeHash: workHash,
		})
	}

	switch {
	case exists && workHash == indexHash:
		if inHead && headHash == indexHash {
			return nil // clean
		}

		staged()

	case exists: // modified on disk
		if inHead && headHash == indexHash {
			st.Unstaged = append(st.Unstaged, StatusEntry{
				Path:         e.Name,
				Code:         Modified,
				IndexHash:    indexHash,
				WorktreeHash: workHash,
			})
			return nil
		}

		staged()
		st.Unstaged = append(st.Unstaged, StatusEntry{
			Path:         e.Name,
			Code:         Modified,
			IndexHash:    indexHash,
			WorktreeHash: workHash,
		})

	default: // missing on disk
		if inHead && headHash == indexHash {
			st.Unstaged = append(st.Unstaged, StatusEntry{
				Path:      e.Name,
				Code:      Deleted,
				IndexHash: indexHash,
			})
			return nil
		}

		staged()
		st.Unstaged = append(st.Unstaged, StatusEntry{
			Path:      e.Name,
			Code:      Deleted,
			IndexHash: indexHash,
		})
	}

	return nil
}

// untrackedFiles walks the working tree, composing the hierarchical
// gitignore chain on descent. At each level the decision filter is the
// inherited chain plus this directory's .gitignore plus the caller
// override; children inherit the chain without the override.
func (r *Repository) untrackedFiles(ctx context.Context, dir string, inherited, override gitignore.Filter, processed map[string]bool, st *Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := r.worktreeFs.ReadDir(dotOrDir(dir))
	if err != nil {
		// Unreadable directories are skipped, matching how git scans
		// the working tree.
		return nil
	}

	dirFilter, err := gitignore.LoadDirFilter(r.worktreeFs, dotOrDir(dir))
	if err != nil {
		return err
	}

	candidate := gitignore.CombineFilters(inherited, rebaseFilter(dirFilter, dir))
	exactly := gitignore.CombineFilters(candidate, override)

	for _, fi := range files {
		name := fi.Name()
		if name == dotGitName {
			continue
		}

		path := name
		if dir != "" {
			path = dir + "/" + name
		}

		if exactly(gitignore.Neutral, path) == gitignore.Exclude {
			continue
		}

		if fi.IsDir() {
			if err := r.untrackedFiles(ctx, path, candidate, override, processed, st); err != nil {
				return err
			}
			continue
		}

		if processed[path] {
			continue
		}

		workHash, exists, err := r.worktreeFileHash(path)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		st.Untracked = append(st.Untracked, StatusEntry{
			Path:         path,
			Code:         Untracked,
			WorktreeHash: workHash,
		})
	}

	return nil
}

// readIndex decodes the staging index; a repository without one yields
// an empty index.
func (r *Repository) readIndex() (_ *index.Index, err error) {
	f, err := r.dir.Index()
	if err != nil {
		if os.IsNotExist(err) {
			return &index.Index{}, nil
		}

		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	idx := &index.Index{}
	if err := index.NewDecoder(f).Decode(idx); err != nil {
		return nil, err
	}

	return idx, nil
}

// headSnapshot flattens the HEAD tree into path to hash pairs. An unborn
// HEAD yields an empty snapshot.
func (r *Repository) headSnapshot(ctx context.Context) (map[string]plumbing.Hash, error) {
	snapshot := make(map[string]plumbing.Hash)

	head, err := r.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return snapshot, nil
		}

		return nil, err
	}

	commit, err := r.CommitObject(ctx, head.Hash())
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree(ctx)
	if err != nil {
		return nil, err
	}

	if err := tree.snapshot(ctx, "", snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// worktreeFileHash computes the git blob hash of the on-disk file, or
// reports the file as missing. Directories standing where a tracked file
// used to be count as missing.
func (r *Repository) worktreeFileHash(path string) (plumbing.Hash, bool, error) {
	fi, err := r.worktreeFs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return plumbing.ZeroHash, false, nil
		}

		return plumbing.ZeroHash, false, err
	}

	if fi.IsDir() {
		return plumbing.ZeroHash, false, nil
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := r.worktreeFs.Readlink(path)
		if err != nil {
			return plumbing.ZeroHash, false, err
		}

		return plumbing.ComputeHash(plumbing.BlobObject, []byte(target)), true, nil
	}

	f, err := r.worktreeFs.Open(path)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	defer f.Close()

	h := plumbing.NewHasher(plumbing.BlobObject, fi.Size())

	buf := r.pool.Take(32 * 1024)
	defer buf.Release()

	if _, err := io.CopyBuffer(h, f, buf.Bytes()); err != nil {
		return plumbing.ZeroHash, false, err
	}

	return h.Sum(), true, nil
}

// plainEntries filters the index down to fully merged entries with the
// Valid bit clear, sorted by path.
func plainEntries(idx *index.Index) []*index.Entry {
	entries := make([]*index.Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		if e.IsPlain() {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// rebaseFilter shifts a directory-local filter so it can be evaluated
// against root-relative paths.
func rebaseFilter(f gitignore.Filter, dir string) gitignore.Filter {
	if f == nil || dir == "" {
		return f
	}

	prefix := dir + "/"
	return func(prior gitignore.Decision, path string) gitignore.Decision {
		if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
			return prior
		}

		return f(prior, path[len(prefix):])
	}
}

func dotOrDir(dir string) string {
	if dir == "" {
		return "."
	}

	return dir
}

func sortEntries(entries []StatusEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
