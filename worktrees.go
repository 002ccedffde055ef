package repolens

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/repolens/repolens/plumbing"
)

// WorktreeState describes the condition of a worktree.
type WorktreeState int

const (
	// WorktreeNormal is a healthy worktree on a branch.
	WorktreeNormal WorktreeState = iota
	// WorktreeLocked has a lock marker preventing pruning.
	WorktreeLocked
	// WorktreeDetached has a detached HEAD.
	WorktreeDetached
	// WorktreePrunable points at a working directory that no longer
	// exists.
	WorktreePrunable
)

func (s WorktreeState) String() string {
	switch s {
	case WorktreeLocked:
		return "locked"
	case WorktreeDetached:
		return "detached"
	case WorktreePrunable:
		return "prunable"
	default:
		return "normal"
	}
}

// MainWorktreeName is the name token of the main worktree.
const MainWorktreeName = "(main)"

// WorktreeInfo describes one worktree attached to the repository.
type WorktreeInfo struct {
	// Name is the worktree name; the main worktree uses
	// MainWorktreeName.
	Name string
	// Path is the filesystem path of the working directory.
	Path string
	// State of the worktree.
	State WorktreeState
	// Branch is the short branch name, when HEAD is not detached.
	Branch string
	// IsMain marks the main worktree.
	IsMain bool
}

// Worktrees enumerates the main worktree and every linked worktree
// registered under the git directory.
func (r *Repository) Worktrees() ([]*WorktreeInfo, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	main := &WorktreeInfo{
		Name:   MainWorktreeName,
		Path:   filepath.Dir(r.gitdirFs.Root()),
		State:  WorktreeNormal,
		IsMain: true,
	}

	if head, err := r.dir.Head(); err == nil && head.Type() == plumbing.SymbolicReference {
		main.Branch = head.Target().Short()
	}

	worktrees := []*WorktreeInfo{main}

	names, err := r.dir.Worktrees()
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		wt, err := r.linkedWorktree(name)
		if err != nil {
			return nil, err
		}

		if wt != nil {
			worktrees = append(worktrees, wt)
		}
	}

	return worktrees, nil
}

func (r *Repository) linkedWorktree(name string) (*WorktreeInfo, error) {
	// gitdir points at the .git file inside the working directory.
	dotGitPath, err := r.readWorktreeFile(name, "gitdir")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	wt := &WorktreeInfo{
		Name:  name,
		Path:  filepath.Dir(dotGitPath),
		State: WorktreeNormal,
	}

	head, headErr := r.readWorktreeFile(name, "HEAD")

	switch {
	case r.worktreeLocked(name):
		wt.State = WorktreeLocked
	case headErr == nil && !strings.HasPrefix(head, "ref: "):
		wt.State = WorktreeDetached
	case !fileExists(dotGitPath):
		wt.State = WorktreePrunable
	}

	if headErr == nil && strings.HasPrefix(head, "ref: ") {
		target := plumbing.ReferenceName(strings.TrimSpace(head[len("ref: "):]))
		if target.IsBranch() {
			wt.Branch = target.Short()
		}
	}

	return wt, nil
}

func (r *Repository) worktreeLocked(name string) bool {
	f, err := r.dir.WorktreeFile(name, "locked")
	if err != nil {
		return false
	}

	f.Close()
	return true
}

func (r *Repository) readWorktreeFile(worktree, name string) (string, error) {
	f, err := r.dir.WorktreeFile(worktree, name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// fileExists probes a path recorded in worktree metadata. Such paths are
// absolute and live outside both repository roots, so they get their own
// billy view.
func fileExists(path string) bool {
	fs := osfs.New(filepath.Dir(path))
	_, err := fs.Stat(filepath.Base(path))
	return err == nil
}
