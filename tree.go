package repolens

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/plumbing/filemode"
	"github.com/repolens/repolens/utils/ioutil"
)

// TreeEntry represents a file or subtree in a tree.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is basically like a directory - it references a bunch of other
// trees and/or blobs (i.e. files and sub-directories).
type Tree struct {
	// Hash of the tree object.
	Hash plumbing.Hash
	// Entries in directory order.
	Entries []TreeEntry

	r *Repository
}

// TreeObject reads the tree with the given hash. Tree streams are
// single-use, so the object-stream cache is bypassed.
func (r *Repository) TreeObject(ctx context.Context, h plumbing.Hash) (_ *Tree, err error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	body, typ, err := r.objects.OpenObjectExt(ctx, h, false)
	if err != nil {
		return nil, err
	}
	defer ioutil.CheckClose(body, &err)

	if typ != plumbing.TreeObject {
		return nil, plumbing.ErrObjectNotFound
	}

	t := &Tree{Hash: h, r: r}
	if err := t.decode(body); err != nil {
		return nil, err
	}

	return t, nil
}

// Entry returns the named direct child entry.
func (t *Tree) Entry(name string) (*TreeEntry, bool) {
	for i := range t.Entries {
		if t.Entries[i].Name == name {
			return &t.Entries[i], true
		}
	}

	return nil, false
}

// Subtree reads the named direct child tree.
func (t *Tree) Subtree(ctx context.Context, name string) (*Tree, error) {
	e, ok := t.Entry(name)
	if !ok || e.Mode != filemode.Dir {
		return nil, plumbing.ErrObjectNotFound
	}

	return t.r.TreeObject(ctx, e.Hash)
}

// decode parses the binary tree format: "<mode> <name>\0" followed by the
// 20-byte child hash, repeated.
func (t *Tree) decode(r io.Reader) error {
	br := bufio.NewReader(r)

	for {
		modeStr, err := br.ReadString(' ')
		if err == io.EOF {
			if len(modeStr) > 0 {
				return fmt.Errorf("malformed tree: trailing bytes %q", modeStr)
			}
			return nil
		}
		if err != nil {
			return err
		}

		mode, err := filemode.New(modeStr[:len(modeStr)-1])
		if err != nil {
			return fmt.Errorf("malformed tree entry mode: %w", err)
		}

		name, err := br.ReadString(0)
		if err != nil {
			return fmt.Errorf("malformed tree entry name: %w", err)
		}

		var h plumbing.Hash
		if _, err := io.ReadFull(br, h[:]); err != nil {
			return fmt.Errorf("malformed tree entry hash: %w", err)
		}

		t.Entries = append(t.Entries, TreeEntry{
			Name: name[:len(name)-1],
			Mode: mode,
			Hash: h,
		})
	}
}

// snapshot flattens the tree into path to blob-hash pairs, recursing
// into subtrees. Submodule (gitlink) entries are recorded with their
// pinned hash and not descended into.
func (t *Tree) snapshot(ctx context.Context, prefix string, out map[string]plumbing.Hash) error {
	for _, e := range t.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}

		switch {
		case e.Mode == filemode.Dir:
			sub, err := t.r.TreeObject(ctx, e.Hash)
			if err != nil {
				return err
			}

			if err := sub.snapshot(ctx, path, out); err != nil {
				return err
			}
		default:
			out[path] = e.Hash
		}
	}

	return nil
}
