// Package dotgit exposes the on-disk layout of a git directory: loose
// objects, packs, refs, the staging index and worktree metadata. All
// access is read-only.
package dotgit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/ioutil"
)

const (
	packedRefsPath = "packed-refs"
	configPath     = "config"
	indexPath      = "index"
	fetchHeadPath  = "FETCH_HEAD"
	objectsPath    = "objects"
	packPath       = "pack"
	refsPath       = "refs"
	logsPath       = "logs"
	worktreesPath  = "worktrees"

	packPrefix = "pack-"
	packExt    = ".pack"
	idxExt     = ".idx"
)

// The DotGit type represents a local git repository on disk. This
// type is not zero-value-safe, use the New function to initialize it.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit value ready to be used. The filesystem fs must
// be rooted at the git directory.
func New(fs billy.Filesystem) *DotGit {
	return &DotGit{fs: fs}
}

// Fs returns the underlying filesystem of the DotGit folder.
func (d *DotGit) Fs() billy.Filesystem {
	return d.fs
}

// ObjectPacks returns the list of availables packfiles, by idx path.
func (d *DotGit) ObjectPacks() ([]string, error) {
	packDir := d.fs.Join(objectsPath, packPath)
	files, err := d.fs.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var packs []string
	for _, f := range files {
		n := f.Name()
		if strings.HasPrefix(n, packPrefix) && strings.HasSuffix(n, idxExt) {
			packs = append(packs, d.fs.Join(packDir, n))
		}
	}

	return packs, nil
}

// ObjectPackPath translates an idx path into its companion pack path.
func ObjectPackPath(idxPath string) string {
	return strings.TrimSuffix(idxPath, idxExt) + packExt
}

// ObjectPath returns the path of the loose object file for the given
// hash.
func (d *DotGit) ObjectPath(h plumbing.Hash) string {
	hex := h.String()
	return d.fs.Join(objectsPath, hex[0:2], hex[2:])
}

// Object returns a fs.File pointing the loose object file, if exists.
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.ObjectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.ErrObjectNotFound
		}

		return nil, err
	}

	return f, nil
}

// Index opens the staging index file.
func (d *DotGit) Index() (billy.File, error) {
	return d.fs.Open(indexPath)
}

// Config opens the repository configuration file.
func (d *DotGit) Config() (billy.File, error) {
	return d.fs.Open(configPath)
}

// Head returns the HEAD reference as stored, symbolic or detached; a
// symbolic HEAD is not resolved.
func (d *DotGit) Head() (*plumbing.Reference, error) {
	return d.readReferenceFile(".", plumbing.HEAD.String())
}

// Ref returns the reference for a given reference name, looking first at
// the loose reference file and falling back to packed-refs.
func (d *DotGit) Ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.readReferenceFile(".", name.String())
	if err == nil {
		return ref, nil
	}

	return d.packedRef(name)
}

// Refs scans the loose references under refs/ and the packed-refs file.
// Loose references win over their packed counterparts.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	seen := make(map[plumbing.ReferenceName]bool)

	var refs []*plumbing.Reference
	if err := d.walkReferencesTree(&refs, refsPath, seen); err != nil {
		return nil, err
	}

	if err := d.packedRefs(&refs, seen); err != nil {
		return nil, err
	}

	return refs, nil
}

// FetchHead returns the hash recorded by the last fetch, from the first
// line of FETCH_HEAD.
func (d *DotGit) FetchHead() (plumbing.Hash, error) {
	f, err := d.fs.Open(fetchHeadPath)
	if err != nil {
		if os.IsNotExist(err) {
			return plumbing.ZeroHash, plumbing.ErrReferenceNotFound
		}

		return plumbing.ZeroHash, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return plumbing.ZeroHash, err
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return plumbing.ZeroHash, plumbing.ErrReferenceNotFound
	}

	h, err := plumbing.FromHex(fields[0])
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("malformed FETCH_HEAD: %w", err)
	}

	return h, nil
}

// Reflog opens the reference log file for the given reference name. It
// returns plumbing.ErrReferenceNotFound when the reference was never logged.
func (d *DotGit) Reflog(name plumbing.ReferenceName) (billy.File, error) {
	f, err := d.fs.Open(d.fs.Join(logsPath, name.String()))
	if err != nil && os.IsNotExist(err) {
		return nil, plumbing.ErrReferenceNotFound
	}

	return f, err
}

// Worktrees lists the metadata directories of the linked worktrees.
func (d *DotGit) Worktrees() ([]string, error) {
	files, err := d.fs.ReadDir(worktreesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var names []string
	for _, f := range files {
		if f.IsDir() {
			names = append(names, f.Name())
		}
	}

	return names, nil
}

// WorktreeFile opens a metadata file of a linked worktree, such as its
// gitdir, HEAD or locked marker.
func (d *DotGit) WorktreeFile(worktree, name string) (billy.File, error) {
	return d.fs.Open(d.fs.Join(worktreesPath, worktree, name))
}

func (d *DotGit) walkReferencesTree(refs *[]*plumbing.Reference, relPath string, seen map[plumbing.ReferenceName]bool) error {
	files, err := d.fs.ReadDir(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, f := range files {
		newRelPath := d.fs.Join(relPath, f.Name())
		if f.IsDir() {
			if err = d.walkReferencesTree(refs, newRelPath, seen); err != nil {
				return err
			}

			continue
		}

		ref, err := d.readReferenceFile(".", newRelPath)
		if err != nil {
			continue
		}

		*refs = append(*refs, ref)
		seen[ref.Name()] = true
	}

	return nil
}

func (d *DotGit) readReferenceFile(path, name string) (ref *plumbing.Reference, err error) {
	p := d.fs.Join(path, d.fs.Join(strings.Split(name, "/")...))
	f, err := d.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.ErrReferenceNotFound
		}

		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, plumbing.ErrReferenceNotFound
	}

	return plumbing.NewReferenceFromStrings(name, line), nil
}

func (d *DotGit) packedRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	var refs []*plumbing.Reference
	if err := d.packedRefs(&refs, nil); err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name() == name {
			return ref, nil
		}
	}

	return nil, plumbing.ErrReferenceNotFound
}

func (d *DotGit) packedRefs(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) (err error) {
	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}
	defer ioutil.CheckClose(f, &err)

	s := bufio.NewScanner(f)
	for s.Scan() {
		ref, err := d.processLine(s.Text())
		if err != nil {
			return err
		}

		if ref == nil || (seen != nil && seen[ref.Name()]) {
			continue
		}

		*refs = append(*refs, ref)
	}

	return s.Err()
}

// processLine parses one packed-refs line. Comment and peeled "^" lines
// yield a nil reference.
func (d *DotGit) processLine(line string) (*plumbing.Reference, error) {
	if len(line) == 0 {
		return nil, nil
	}

	switch line[0] {
	case '#', '^':
		return nil, nil
	default:
		ws := strings.Split(line, " ") // hash then ref name
		if len(ws) != 2 {
			return nil, fmt.Errorf("malformed packed-refs line: %q", line)
		}

		return plumbing.NewReferenceFromStrings(ws[1], ws[0]), nil
	}
}
