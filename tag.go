package repolens

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/ioutil"
)

// Tag represents an annotated tag object. It points to a single git
// object of any type and carries the tagger and a message.
type Tag struct {
	// Hash of the tag object.
	Hash plumbing.Hash
	// Name of the tag.
	Name string
	// TargetType is the object type of the target.
	TargetType plumbing.ObjectType
	// Target is the hash of the tagged object.
	Target plumbing.Hash
	// Tagger is the one who created the tag.
	Tagger Signature
	// Message is the tag annotation.
	Message string

	r *Repository
}

// TagObject reads the annotated tag with the given hash.
func (r *Repository) TagObject(ctx context.Context, h plumbing.Hash) (_ *Tag, err error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	body, typ, err := r.objects.OpenObject(ctx, h)
	if err != nil {
		return nil, err
	}
	defer ioutil.CheckClose(body, &err)

	if typ != plumbing.TagObject {
		return nil, plumbing.ErrObjectNotFound
	}

	t := &Tag{Hash: h, r: r}
	if err := t.decode(body); err != nil {
		return nil, err
	}

	return t, nil
}

// Commit returns the tagged commit, peeling nested tags.
func (t *Tag) Commit(ctx context.Context) (*Commit, error) {
	switch t.TargetType {
	case plumbing.CommitObject:
		return t.r.CommitObject(ctx, t.Target)
	case plumbing.TagObject:
		nested, err := t.r.TagObject(ctx, t.Target)
		if err != nil {
			return nil, err
		}

		return nested.Commit(ctx)
	}

	return nil, plumbing.ErrObjectNotFound
}

func (t *Tag) decode(r io.Reader) error {
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
			} else if err := t.decodeHeaderLine(trimmed); err != nil {
				return err
			}
		}

		if err == io.EOF {
			break
		}
	}

	t.Message = msg.String()
	return nil
}

func (t *Tag) decodeHeaderLine(line []byte) error {
	split := bytes.SplitN(line, []byte{' '}, 2)
	if len(split) != 2 {
		return fmt.Errorf("malformed tag header: %q", line)
	}

	var err error
	data := string(split[1])
	switch string(split[0]) {
	case "object":
		t.Target, err = plumbing.FromHex(data)
	case "type":
		t.TargetType, err = plumbing.ParseObjectType(data)
	case "tag":
		t.Name = data
	case "tagger":
		t.Tagger = parseSignature(split[1])
	}

	return err
}
