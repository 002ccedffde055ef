package repolens

import (
	"errors"
	"fmt"

	"github.com/repolens/repolens/plumbing"
)

// maxResolveDepth bounds symbolic reference chains.
const maxResolveDepth = 10

// Head returns the reference HEAD points at, fully resolved to a hash
// reference. On a detached HEAD the returned reference is HEAD itself.
func (r *Repository) Head() (*plumbing.Reference, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	return r.resolveReference(plumbing.HEAD, 0)
}

// Reference returns the reference with the given name. With resolved,
// symbolic chains are followed until a hash reference.
func (r *Repository) Reference(name plumbing.ReferenceName, resolved bool) (*plumbing.Reference, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	if resolved {
		return r.resolveReference(name, 0)
	}

	if name == plumbing.HEAD {
		return r.dir.Head()
	}

	return r.dir.Ref(name)
}

// References returns every loose and packed reference of the repository.
func (r *Repository) References() ([]*plumbing.Reference, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	return r.dir.Refs()
}

// Branches returns the local branch references.
func (r *Repository) Branches() ([]*plumbing.Reference, error) {
	return r.filteredReferences(plumbing.ReferenceName.IsBranch)
}

// Tags returns the tag references, both lightweight and annotated.
func (r *Repository) Tags() ([]*plumbing.Reference, error) {
	return r.filteredReferences(plumbing.ReferenceName.IsTag)
}

// RemoteBranches returns the remote-tracking branch references.
func (r *Repository) RemoteBranches() ([]*plumbing.Reference, error) {
	return r.filteredReferences(plumbing.ReferenceName.IsRemote)
}

// FetchHead returns the hash recorded by the last fetch.
func (r *Repository) FetchHead() (plumbing.Hash, error) {
	if r.closed {
		return plumbing.ZeroHash, ErrRepositoryClosed
	}

	return r.dir.FetchHead()
}

func (r *Repository) filteredReferences(keep func(plumbing.ReferenceName) bool) ([]*plumbing.Reference, error) {
	all, err := r.References()
	if err != nil {
		return nil, err
	}

	var refs []*plumbing.Reference
	for _, ref := range all {
		if keep(ref.Name()) {
			refs = append(refs, ref)
		}
	}

	return refs, nil
}

func (r *Repository) resolveReference(name plumbing.ReferenceName, depth int) (*plumbing.Reference, error) {
	if depth >= maxResolveDepth {
		return nil, fmt.Errorf("reference chain for %s too deep", name)
	}

	var ref *plumbing.Reference
	var err error
	if name == plumbing.HEAD {
		ref, err = r.dir.Head()
	} else {
		ref, err = r.dir.Ref(name)
	}

	if err != nil {
		return nil, err
	}

	if ref.Type() != plumbing.SymbolicReference {
		return ref, nil
	}

	resolved, err := r.resolveReference(ref.Target(), depth+1)
	if err != nil {
		// A symbolic HEAD pointing at an unborn branch has no hash yet.
		if name == plumbing.HEAD && errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, plumbing.ErrReferenceNotFound
		}

		return nil, err
	}

	return resolved, nil
}
