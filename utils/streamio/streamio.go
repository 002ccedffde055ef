// Package streamio implements the composable read-only byte streams the
// object store is built from: preloaded prefixes, concatenation, length
// ranges, seekable memoization and shared re-entrant views.
package streamio

import "io"

// SeekableReader is a read-only byte stream that additionally supports
// seeking. The delta decoder requires its base stream to satisfy this
// capability.
type SeekableReader interface {
	io.Reader
	io.Seeker
	io.Closer
}
