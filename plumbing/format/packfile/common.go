// Package packfile implements the reader side of git pack files: entry
// headers, zlib-compressed bodies and the two delta encodings, resolved
// recursively into plain object streams.
package packfile

import (
	"bytes"
	"io"

	"github.com/repolens/repolens/utils/binary"
)

var (
	// ErrMalformedPackfile is returned when the packfile format is
	// incorrect.
	ErrMalformedPackfile = NewError("malformed pack file")
	// ErrBadSignature is returned when the pack file header signature
	// is incorrect.
	ErrBadSignature = NewError("malformed pack file signature")
	// ErrUnsupportedVersion is returned when the packfile version is
	// different from VersionSupported.
	ErrUnsupportedVersion = NewError("unsupported packfile version")
)

const (
	// VersionSupported is the packfile version supported by this reader.
	VersionSupported uint32 = 2

	// headerLength is the length of the fixed pack header: signature,
	// version and object count.
	headerLength = 12

	maskContinue  = byte(0x80)
	maskFirstSize = byte(0x0f)
	maskSize      = byte(0x7f)
	maskType      = byte(0x70)
	firstSizeBits = uint(4)
	sizeBits      = uint(7)
)

var signature = []byte{'P', 'A', 'C', 'K'}

// ValidateHeader reads and checks the 12-byte pack header, returning the
// number of objects declared by the pack.
func ValidateHeader(r io.Reader) (uint32, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, ErrBadSignature.AddDetails("%s", err)
	}

	if !bytes.Equal(head[:], signature) {
		return 0, ErrBadSignature
	}

	version, err := binary.ReadUint32(r)
	if err != nil {
		return 0, ErrMalformedPackfile.AddDetails("cannot read version")
	}

	if version != VersionSupported {
		return 0, ErrUnsupportedVersion.AddDetails("%d", version)
	}

	count, err := binary.ReadUint32(r)
	if err != nil {
		return 0, ErrMalformedPackfile.AddDetails("cannot read number of objects")
	}

	return count, nil
}

// readVariableLengthSize decodes the uncompressed object size encoded in
// an entry header: the low nibble of the first byte contributes 4 bits,
// each continuation byte another 7.
func readVariableLengthSize(first byte, r io.ByteReader) (int64, error) {
	size := int64(first & maskFirstSize)

	shift := firstSizeBits
	b := first
	var err error
	for b&maskContinue != 0 {
		if shift > 63 {
			return 0, ErrMalformedPackfile.AddDetails("variable size overflow")
		}

		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}

		size += int64(b&maskSize) << shift
		shift += sizeBits
	}

	if size < 0 {
		return 0, ErrMalformedPackfile.AddDetails("negative object size")
	}

	return size, nil
}
