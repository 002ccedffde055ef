package plumbing

import (
	"errors"
	"strings"
)

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	symrefPrefix    = "ref: "
)

// HEAD is the name of the HEAD reference.
const HEAD ReferenceName = "HEAD"

// ErrReferenceNotFound is returned when a reference is not found.
var ErrReferenceNotFound = errors.New("reference not found")

// ReferenceType reference type's.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

// ReferenceName reference name's.
type ReferenceName string

func (r ReferenceName) String() string {
	return string(r)
}

// Short returns the short name of a ReferenceName, stripping the well known
// refs/... prefixes.
func (r ReferenceName) Short() string {
	s := string(r)
	for _, p := range []string{refHeadPrefix, refTagPrefix, refRemotePrefix, refPrefix} {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}
	return s
}

// IsBranch checks if a reference is a branch.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(r), refHeadPrefix)
}

// IsTag checks if a reference is a tag.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(r), refTagPrefix)
}

// IsRemote checks if a reference is a remote-tracking branch.
func (r ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(r), refRemotePrefix)
}

// NewBranchReferenceName returns a reference name for the given branch.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewTagReferenceName returns a reference name for the given tag.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// Reference is a representation of a git reference.
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewReferenceFromStrings creates a reference from name and a target which
// can be a hash or a symbolic "ref: ..." line, as stored by git.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)

	if strings.HasPrefix(target, symrefPrefix) {
		target := ReferenceName(strings.TrimSpace(target[len(symrefPrefix):]))
		return NewSymbolicReference(n, target)
	}

	return NewHashReference(n, NewHash(strings.TrimSpace(target)))
}

// NewSymbolicReference creates a new SymbolicReference reference.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{
		t:      SymbolicReference,
		n:      n,
		target: target,
	}
}

// NewHashReference creates a new HashReference reference.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{
		t: HashReference,
		n: n,
		h: h,
	}
}

// Type returns the type of a reference.
func (r *Reference) Type() ReferenceType {
	return r.t
}

// Name returns the name of a reference.
func (r *Reference) Name() ReferenceName {
	return r.n
}

// Hash returns the hash of a hash reference.
func (r *Reference) Hash() Hash {
	return r.h
}

// Target returns the target of a symbolic reference.
func (r *Reference) Target() ReferenceName {
	return r.target
}

func (r *Reference) String() string {
	if r.t == SymbolicReference {
		return symrefPrefix + r.target.String()
	}
	return r.h.String() + " " + r.n.String()
}
