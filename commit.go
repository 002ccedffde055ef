package repolens

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/ioutil"
)

// Signature is the combination of who and when of a commit or tag.
type Signature struct {
	// Name represents a person name. It is an arbitrary string.
	Name string
	// Email is an email, but it cannot be assumed to be well-formed.
	Email string
	// When is the timestamp of the signature.
	When time.Time
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Commit points to a single tree, marking it as what the project looked
// like at a certain point in time. It contains meta-information about
// that point in time, such as a timestamp, the author of the changes
// since the last commit, a pointer to the previous commit(s), etc.
type Commit struct {
	// Hash of the commit object.
	Hash plumbing.Hash
	// Author is the original author of the commit.
	Author Signature
	// Committer is the one performing the commit, might be different from
	// Author.
	Committer Signature
	// Message is the commit message, contains arbitrary text.
	Message string
	// TreeHash is the hash of the root tree of the commit.
	TreeHash plumbing.Hash
	// ParentHashes are the hashes of the parent commits of the commit.
	ParentHashes []plumbing.Hash

	r *Repository
}

// CommitObject reads the commit with the given hash.
func (r *Repository) CommitObject(ctx context.Context, h plumbing.Hash) (_ *Commit, err error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	body, typ, err := r.objects.OpenObject(ctx, h)
	if err != nil {
		return nil, err
	}
	defer ioutil.CheckClose(body, &err)

	if typ != plumbing.CommitObject {
		return nil, plumbing.ErrObjectNotFound
	}

	c := &Commit{Hash: h, r: r}
	if err := c.decode(body); err != nil {
		return nil, err
	}

	return c, nil
}

// Tree returns the root tree of the commit.
func (c *Commit) Tree(ctx context.Context) (*Tree, error) {
	return c.r.TreeObject(ctx, c.TreeHash)
}

// NumParents returns the number of parents in a commit.
func (c *Commit) NumParents() int {
	return len(c.ParentHashes)
}

// Parent returns the ith parent commit.
func (c *Commit) Parent(ctx context.Context, i int) (*Commit, error) {
	if i < 0 || i >= len(c.ParentHashes) {
		return nil, plumbing.ErrObjectNotFound
	}

	return c.r.CommitObject(ctx, c.ParentHashes[i])
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return c.Message[:i]
	}

	return c.Message
}

func (c *Commit) decode(r io.Reader) error {
	br := bufio.NewReader(r)

	var message bool
	var msg strings.Builder
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}

		if message {
			msg.Write(line)
		} else {
			trimmed := bytes.TrimRight(line, "\n")
			if len(trimmed) == 0 {
				message = true
			} else if err := c.decodeHeaderLine(trimmed); err != nil {
				return err
			}
		}

		if err == io.EOF {
			break
		}
	}

	c.Message = msg.String()
	return nil
}

func (c *Commit) decodeHeaderLine(line []byte) error {
	// Continuation lines belong to multi-line headers such as gpgsig,
	// which the structured view does not surface.
	if line[0] == ' ' {
		return nil
	}

	split := bytes.SplitN(line, []byte{' '}, 2)
	if len(split) != 2 {
		return fmt.Errorf("malformed commit header: %q", line)
	}

	var err error
	data := split[1]
	switch string(split[0]) {
	case "tree":
		c.TreeHash, err = plumbing.FromHex(string(data))
	case "parent":
		var parent plumbing.Hash
		parent, err = plumbing.FromHex(string(data))
		if err == nil {
			c.ParentHashes = append(c.ParentHashes, parent)
		}
	case "author":
		c.Author = parseSignature(data)
	case "committer":
		c.Committer = parseSignature(data)
	}

	return err
}

// parseSignature decodes "Name <email> timestamp tzoffset".
func parseSignature(b []byte) Signature {
	var s Signature

	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open < 0 || close < open {
		s.Name = string(bytes.TrimSpace(b))
		return s
	}

	s.Name = string(bytes.TrimSpace(b[:open]))
	s.Email = string(b[open+1 : close])

	rest := strings.Fields(string(b[close+1:]))
	if len(rest) == 0 {
		return s
	}

	ts, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return s
	}

	loc := time.UTC
	if len(rest) > 1 {
		if zone, zerr := parseTimezone(rest[1]); zerr == nil {
			loc = zone
		}
	}

	s.When = time.Unix(ts, 0).In(loc)
	return s
}

func parseTimezone(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("malformed timezone %q", tz)
	}

	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, err
	}

	mins, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, err
	}

	offset := (hours*60 + mins) * 60
	if tz[0] == '-' {
		offset = -offset
	}

	return time.FixedZone(tz, offset), nil
}

// CommitIter walks the commit graph from a starting point, emitting each
// reachable commit once, ordered by committer time, newest first.
type CommitIter struct {
	ctx  context.Context
	r    *Repository
	heap *binaryheap.Heap
	seen map[plumbing.Hash]bool
}

// Log returns an iterator over the ancestry of the commit from, ordered
// by committer time. When from is the zero hash, HEAD is used.
func (r *Repository) Log(ctx context.Context, from plumbing.Hash) (*CommitIter, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	if from.IsZero() {
		head, err := r.Head()
		if err != nil {
			return nil, err
		}

		from = head.Hash()
	}

	heap := binaryheap.NewWith(func(a, b interface{}) int {
		if a.(*Commit).Committer.When.Before(b.(*Commit).Committer.When) {
			return 1
		}
		return -1
	})

	it := &CommitIter{
		ctx:  ctx,
		r:    r,
		heap: heap,
		seen: make(map[plumbing.Hash]bool),
	}

	if err := it.push(from); err != nil {
		return nil, err
	}

	return it, nil
}

// Next returns the next commit, or io.EOF after the last one.
func (it *CommitIter) Next() (*Commit, error) {
	v, ok := it.heap.Pop()
	if !ok {
		return nil, io.EOF
	}

	c := v.(*Commit)
	for _, parent := range c.ParentHashes {
		if err := it.push(parent); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ForEach calls cb on every remaining commit, stopping on error.
func (it *CommitIter) ForEach(cb func(*Commit) error) error {
	for {
		c, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(c); err != nil {
			return err
		}
	}
}

func (it *CommitIter) push(h plumbing.Hash) error {
	if it.seen[h] {
		return nil
	}
	it.seen[h] = true

	c, err := it.r.CommitObject(it.ctx, h)
	if err != nil {
		return err
	}

	it.heap.Push(c)
	return nil
}
