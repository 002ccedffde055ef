package repolens

import (
	"errors"

	"github.com/repolens/repolens/plumbing"
)

// stashReference is where git keeps the stash stack.
const stashReference plumbing.ReferenceName = "refs/stash"

// Stash is one entry of the stash stack. Index 0 is the most recent.
type Stash struct {
	// Index is the position in the stack, as in stash@{N}.
	Index int
	// Hash is the stash commit.
	Hash plumbing.Hash
	// Message is the message recorded when stashing.
	Message string
}

// Stashes returns the stash stack, most recent first. A repository
// without stashes yields an empty slice.
func (r *Repository) Stashes() ([]*Stash, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	entries, err := r.Reflog(stashReference)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}

		return nil, err
	}

	stashes := make([]*Stash, len(entries))
	for i, e := range entries {
		stashes[i] = &Stash{
			Index:   i,
			Hash:    e.New,
			Message: e.Message,
		}
	}

	return stashes, nil
}
