// Package index implements a decoder for the git staging index binary
// format (the .git/index file).
package index

import (
	"errors"
	"time"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/filemode"
)

var (
	// ErrUnsupportedVersion is returned by Decode when the index file
	// version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrEntryNotFound is returned by Index.Entry when the entry is not
	// found.
	ErrEntryNotFound = errors.New("entry not found")
)

// Stage during merge.
type Stage int

const (
	// Merged is the default stage, fully merged.
	Merged Stage = 0
	// AncestorMode is the base revision.
	AncestorMode Stage = 1
	// OurMode is the first tree revision, ours.
	OurMode Stage = 2
	// TheirMode is the second tree revision, theirs.
	TheirMode Stage = 3
)

// Index contains the information about which objects are currently checked
// out in the worktree, having information about the working files.
type Index struct {
	// Version is index version.
	Version uint32
	// Entries collection of entries represented by this Index. The order
	// of this collection is not guaranteed.
	Entries []*Entry
}

// Entry represents a single file (or stage of a file) in the cache. An entry
// represents exactly one stage of a file. If a file path is unmerged then
// multiple Entry instances may appear for the same path name.
type Entry struct {
	// Hash is the SHA1 of the represented file.
	Hash plumbing.Hash
	// Name is the exact slash-delimited path to the file.
	Name string
	// CreatedAt time when the tracked path was created.
	CreatedAt time.Time
	// ModifiedAt time when the tracked path was changed.
	ModifiedAt time.Time
	// Dev and Inode of the tracked path.
	Dev, Inode uint32
	// Mode of the path.
	Mode filemode.FileMode
	// UID and GID, userid and group id of the owner.
	UID, GID uint32
	// Size is the length in bytes for regular files.
	Size uint32
	// Stage on a merge is defines what stage it is.
	Stage Stage
	// SkipWorktree used in sparse checkouts.
	SkipWorktree bool
	// IntentToAdd record only the fact that the path will be added later.
	IntentToAdd bool
	// Valid flag, the "assume unchanged" bit.
	Valid bool
}

// IsPlain reports whether the entry is fully merged (stage 0) and has the
// Valid bit clear, which is what the working-directory engine requires of
// entries it compares. Other flag bits are not considered.
func (e *Entry) IsPlain() bool {
	return e.Stage == 0 && !e.Valid
}

// Entry returns the entry that match the given path, if any.
func (i *Index) Entry(path string) (*Entry, error) {
	for _, e := range i.Entries {
		if e.Name == path {
			return e, nil
		}
	}

	return nil, ErrEntryNotFound
}
