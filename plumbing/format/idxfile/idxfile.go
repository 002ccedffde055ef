// Package idxfile implements a decoder for the version 2 pack index
// format, answering hash to pack offset queries.
package idxfile

import (
	"github.com/repolens/repolens/plumbing"
)

const (
	// VersionSupported is the only idx version supported.
	VersionSupported = 2
)

var idxHeader = []byte{255, 't', 'O', 'c'}

// An Idxfile represents an idx file in memory.
type Idxfile struct {
	Version          uint32
	Fanout           [256]uint32
	ObjectCount      uint32
	Entries          []Entry
	PackfileChecksum plumbing.Hash
	IdxChecksum      plumbing.Hash

	byHash map[plumbing.Hash]*Entry
}

// An Entry represents data about an object in the packfile: its hash,
// offset and CRC32 checksum.
type Entry struct {
	Hash   plumbing.Hash
	CRC32  uint32
	Offset uint64
}

// Entry returns the entry for the given hash, if present.
func (idx *Idxfile) Entry(h plumbing.Hash) (*Entry, bool) {
	e, ok := idx.byHash[h]
	return e, ok
}

// Contains reports whether the idx file indexes the given hash.
func (idx *Idxfile) Contains(h plumbing.Hash) bool {
	_, ok := idx.byHash[h]
	return ok
}

func (idx *Idxfile) buildIndex() {
	idx.byHash = make(map[plumbing.Hash]*Entry, len(idx.Entries))
	for i := range idx.Entries {
		idx.byHash[idx.Entries[i].Hash] = &idx.Entries[i]
	}
}
