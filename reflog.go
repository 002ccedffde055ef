package repolens

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/ioutil"
)

// ReflogEntry is one recorded movement of a reference.
type ReflogEntry struct {
	// Old is the hash the reference moved away from.
	Old plumbing.Hash
	// New is the hash the reference moved to.
	New plumbing.Hash
	// Committer is who moved the reference, and when.
	Committer Signature
	// Message describes the movement.
	Message string
}

// Reflog returns the log entries of the given reference, newest first.
// A reference that was never logged yields plumbing.ErrReferenceNotFound.
func (r *Repository) Reflog(name plumbing.ReferenceName) (_ []*ReflogEntry, err error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	f, err := r.dir.Reflog(name)
	if err != nil {
		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	var entries []*ReflogEntry
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		e, err := parseReflogLine(line)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	// On disk the log grows downwards; expose newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// parseReflogLine decodes "old new committer ts tz\tmessage".
func parseReflogLine(line string) (*ReflogEntry, error) {
	head, message, _ := strings.Cut(line, "\t")

	fields := strings.SplitN(head, " ", 3)
	if len(fields) < 3 {
		return nil, fmt.Errorf("malformed reflog line: %q", line)
	}

	old, err := plumbing.FromHex(fields[0])
	if err != nil {
		return nil, fmt.Errorf("malformed reflog line: %w", err)
	}

	new, err := plumbing.FromHex(fields[1])
	if err != nil {
		return nil, fmt.Errorf("malformed reflog line: %w", err)
	}

	return &ReflogEntry{
		Old:       old,
		New:       new,
		Committer: parseSignature([]byte(fields[2])),
		Message:   message,
	}, nil
}
