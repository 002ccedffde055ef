// Package repolens is a read-only traversal library for locally stored
// git repositories. It exposes the raw object store (hashes to typed
// byte streams, across loose objects and packfiles) and a lazily
// expanded structured view: commits, trees, branches, tags, stashes,
// reflog entries, worktrees and working-directory status. The library
// never mutates the repository and performs no network I/O.
package repolens

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/storage/filesystem"
	"github.com/repolens/repolens/storage/filesystem/dotgit"
	syncutil "github.com/repolens/repolens/utils/sync"
)

var (
	// ErrRepositoryNotExists is returned when the path is not a git
	// repository.
	ErrRepositoryNotExists = errors.New("repository does not exist")
	// ErrRepositoryClosed is returned when the repository handle is
	// used after Close.
	ErrRepositoryClosed = errors.New("repository already closed")
	// ErrIsBareRepository is returned by operations that need a working
	// tree on a bare repository.
	ErrIsBareRepository = errors.New("worktree not available in a bare repository")
)

// Repository is a handle over a local git repository. It owns the
// pack-index and object-stream caches, which are flushed on Close.
type Repository struct {
	gitdirFs   billy.Filesystem
	worktreeFs billy.Filesystem

	dir     *dotgit.DotGit
	objects *filesystem.ObjectStorage
	pool    *syncutil.BufferPool

	config *Config
	closed bool
}

// PlainOpen opens a repository from the given path. The git directory is
// the path itself when its base name is ".git" or when the path is a bare
// repository directory (opened without a working tree), otherwise
// path/.git. Worktree .git files ("gitdir: ...") are followed.
func PlainOpen(path string) (*Repository, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var gitdir, worktree string
	switch {
	case filepath.Base(path) == dotGitName:
		gitdir = path
		worktree = filepath.Dir(path)
	case isBareGitDir(path):
		gitdir = path
	default:
		gitdir = filepath.Join(path, dotGitName)
		worktree = path
	}

	gitdir, err = followDotGitFile(gitdir)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(gitdir)
	if err != nil || !fi.IsDir() {
		return nil, ErrRepositoryNotExists
	}

	var worktreeFs billy.Filesystem
	if worktree != "" {
		worktreeFs = osfs.New(worktree)
	}

	return Open(osfs.New(gitdir), worktreeFs)
}

// Open opens a repository over the given filesystems: gitdirFs rooted at
// the git directory and worktreeFs rooted at the working tree.
// worktreeFs may be nil for bare repositories.
func Open(gitdirFs, worktreeFs billy.Filesystem) (*Repository, error) {
	if _, err := gitdirFs.Stat(plumbing.HEAD.String()); err != nil {
		return nil, ErrRepositoryNotExists
	}

	dir := dotgit.New(gitdirFs)
	scratch := osfs.New(os.TempDir())

	return &Repository{
		gitdirFs:   gitdirFs,
		worktreeFs: worktreeFs,
		dir:        dir,
		objects:    filesystem.NewObjectStorage(dir, scratch),
		pool:       syncutil.NewBufferPool(),
	}, nil
}

// Close flushes the repository caches. Accessors return
// ErrRepositoryClosed afterwards.
func (r *Repository) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true
	return r.objects.Close()
}

// Objects exposes the raw object storage, the primitive view over the
// repository.
func (r *Repository) Objects() *filesystem.ObjectStorage {
	return r.objects
}

// OpenRawObject resolves a hash into its raw typed stream. The caller
// must close the stream. plumbing.ErrObjectNotFound is returned when the
// hash resolves nowhere.
func (r *Repository) OpenRawObject(ctx context.Context, h plumbing.Hash) (io.ReadCloser, plumbing.ObjectType, error) {
	if r.closed {
		return nil, plumbing.InvalidObject, ErrRepositoryClosed
	}

	return r.objects.OpenObject(ctx, h)
}

const dotGitName = ".git"

// followDotGitFile resolves a worktree ".git" file pointing at the real
// git directory, as written by `git worktree add` and submodules.
func followDotGitFile(gitdir string) (string, error) {
	fi, err := os.Stat(gitdir)
	if err != nil || fi.IsDir() {
		return gitdir, nil
	}

	b, err := os.ReadFile(gitdir)
	if err != nil {
		return "", err
	}

	line := string(b)
	if len(line) < len(gitdirPrefix) || line[:len(gitdirPrefix)] != gitdirPrefix {
		return gitdir, nil
	}

	target := trimSpaceRight(line[len(gitdirPrefix):])
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(gitdir), target)
	}

	return target, nil
}

const gitdirPrefix = "gitdir: "

// isBareGitDir recognises a bare repository directory: no .git below it,
// but a HEAD file and an objects directory of its own.
func isBareGitDir(path string) bool {
	if _, err := os.Stat(filepath.Join(path, dotGitName)); err == nil {
		return false
	}

	if fi, err := os.Stat(filepath.Join(path, "HEAD")); err != nil || fi.IsDir() {
		return false
	}

	fi, err := os.Stat(filepath.Join(path, "objects"))
	return err == nil && fi.IsDir()
}

func trimSpaceRight(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}

	return s
}
