package idxfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/repolens/repolens/utils/binary"
)

var (
	// ErrUnsupportedVersion is returned by Decode when the idx file
	// version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrMalformedIdxFile is returned by Decode when the idx file is
	// corrupted or truncated.
	ErrMalformedIdxFile = errors.New("malformed idx file")
)

const (
	fanoutSize    = 256
	largeOffsetBit = uint32(1) << 31
)

// A Decoder reads and decodes idx files from an input stream.
type Decoder struct {
	*bufio.Reader
}

// NewDecoder builds a new idx stream decoder, that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{bufio.NewReader(r)}
}

// Decode reads the whole idx object from its input and stores it in the
// value pointed to by idx.
func (d *Decoder) Decode(idx *Idxfile) error {
	if err := validateHeader(d); err != nil {
		return err
	}

	flow := []func(*Idxfile, io.Reader) error{
		readVersion,
		readFanout,
		readObjectNames,
		readCRC32,
		readOffsets,
		readChecksums,
	}

	for _, f := range flow {
		if err := f(idx, d); err != nil {
			return err
		}
	}

	idx.buildIndex()
	return nil
}

func validateHeader(r io.Reader) error {
	var h = make([]byte, 4)
	if _, err := io.ReadFull(r, h); err != nil {
		return fmt.Errorf("%w: header: %w", ErrMalformedIdxFile, err)
	}

	if !bytes.Equal(h, idxHeader) {
		return fmt.Errorf("%w: bad magic", ErrMalformedIdxFile)
	}

	return nil
}

func readVersion(idx *Idxfile, r io.Reader) error {
	v, err := binary.ReadUint32(r)
	if err != nil {
		return fmt.Errorf("%w: version: %w", ErrMalformedIdxFile, err)
	}

	if v != VersionSupported {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	idx.Version = v
	return nil
}

func readFanout(idx *Idxfile, r io.Reader) error {
	var prev uint32
	for i := 0; i < fanoutSize; i++ {
		n, err := binary.ReadUint32(r)
		if err != nil {
			return fmt.Errorf("%w: fanout: %w", ErrMalformedIdxFile, err)
		}

		if n < prev {
			return fmt.Errorf("%w: fanout not monotonic", ErrMalformedIdxFile)
		}

		idx.Fanout[i] = n
		prev = n
	}

	idx.ObjectCount = idx.Fanout[fanoutSize-1]
	return nil
}

func readObjectNames(idx *Idxfile, r io.Reader) error {
	idx.Entries = make([]Entry, idx.ObjectCount)
	for i := range idx.Entries {
		if _, err := io.ReadFull(r, idx.Entries[i].Hash[:]); err != nil {
			return fmt.Errorf("%w: object names: %w", ErrMalformedIdxFile, err)
		}
	}

	return nil
}

func readCRC32(idx *Idxfile, r io.Reader) error {
	for i := range idx.Entries {
		c, err := binary.ReadUint32(r)
		if err != nil {
			return fmt.Errorf("%w: crc32 table: %w", ErrMalformedIdxFile, err)
		}

		idx.Entries[i].CRC32 = c
	}

	return nil
}

func readOffsets(idx *Idxfile, r io.Reader) error {
	large := make([]int, 0)
	for i := range idx.Entries {
		o, err := binary.ReadUint32(r)
		if err != nil {
			return fmt.Errorf("%w: offsets: %w", ErrMalformedIdxFile, err)
		}

		if o&largeOffsetBit != 0 {
			idx.Entries[i].Offset = uint64(o &^ largeOffsetBit)
			large = append(large, i)
			continue
		}

		idx.Entries[i].Offset = uint64(o)
	}

	if len(large) == 0 {
		return nil
	}

	// The 31-bit value left in Offset is the position within the
	// 64-bit offset table.
	table := make([]uint64, 0, len(large))
	max := uint64(0)
	for _, i := range large {
		if idx.Entries[i].Offset > max {
			max = idx.Entries[i].Offset
		}
	}

	for j := uint64(0); j <= max; j++ {
		o, err := binary.ReadUint64(r)
		if err != nil {
			return fmt.Errorf("%w: large offsets: %w", ErrMalformedIdxFile, err)
		}

		table = append(table, o)
	}

	for _, i := range large {
		idx.Entries[i].Offset = table[idx.Entries[i].Offset]
	}

	return nil
}

func readChecksums(idx *Idxfile, r io.Reader) error {
	if _, err := io.ReadFull(r, idx.PackfileChecksum[:]); err != nil {
		return fmt.Errorf("%w: pack checksum: %w", ErrMalformedIdxFile, err)
	}

	if _, err := io.ReadFull(r, idx.IdxChecksum[:]); err != nil {
		return fmt.Errorf("%w: idx checksum: %w", ErrMalformedIdxFile, err)
	}

	return nil
}
