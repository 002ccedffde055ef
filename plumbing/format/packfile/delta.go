package packfile

import (
	"errors"
	"io"

	"github.com/repolens/repolens/utils/streamio"
)

// See https://github.com/git/git/blob/master/Documentation/gitformat-pack.txt
// for details about the delta format.

// Delta errors.
var (
	ErrInvalidDelta = errors.New("invalid delta")
	ErrDeltaCmd     = errors.New("wrong delta command")
)

const (
	// maxCopySize is the value a copy opcode with a zero size field
	// stands for, per the pack format spec.
	maxCopySize = 0x10000
)

type deltaOp struct {
	mask  byte
	shift uint
}

var copyOffsets = []deltaOp{
	{mask: 0x01, shift: 0},
	{mask: 0x02, shift: 8},
	{mask: 0x04, shift: 16},
	{mask: 0x08, shift: 24},
}

var copySizes = []deltaOp{
	{mask: 0x10, shift: 0},
	{mask: 0x20, shift: 8},
	{mask: 0x40, shift: 16},
}

const (
	opNone = iota
	opCopy
	opInsert
)

// deltaReader lazily applies a delta stream to a seekable base, producing
// the patched object bytes. The total output length equals the result
// size declared by the delta header.
type deltaReader struct {
	base  streamio.SeekableReader
	delta io.ByteReader

	closer io.Closer

	baseSize   int64
	resultSize int64
	produced   int64

	op          int
	opRemaining int64
}

// newDeltaReader consumes the two size headers of the delta stream and
// returns a reader over the patched result. Closing it closes closer,
// which should release both the base and the delta stream.
func newDeltaReader(base streamio.SeekableReader, delta io.ByteReader, closer io.Closer) (*deltaReader, error) {
	baseSize, err := decodeLEB128(delta)
	if err != nil {
		return nil, ErrInvalidDelta
	}

	resultSize, err := decodeLEB128(delta)
	if err != nil {
		return nil, ErrInvalidDelta
	}

	return &deltaReader{
		base:       base,
		delta:      delta,
		closer:     closer,
		baseSize:   baseSize,
		resultSize: resultSize,
	}, nil
}

// Size returns the declared size of the patched result.
func (d *deltaReader) Size() int64 {
	return d.resultSize
}

func (d *deltaReader) Read(p []byte) (int, error) {
	if d.produced >= d.resultSize {
		return 0, io.EOF
	}

	if d.op == opNone {
		if err := d.nextOp(); err != nil {
			return 0, err
		}
	}

	if int64(len(p)) > d.opRemaining {
		p = p[:d.opRemaining]
	}

	var n int
	var err error
	switch d.op {
	case opCopy:
		n, err = d.base.Read(p)
	case opInsert:
		n, err = readFromByteReader(d.delta, p)
	}

	d.opRemaining -= int64(n)
	d.produced += int64(n)
	if d.opRemaining == 0 {
		d.op = opNone
	}

	if err == io.EOF {
		err = ErrInvalidDelta
	}

	return n, err
}

func (d *deltaReader) Close() error {
	if d.closer == nil {
		return nil
	}

	err := d.closer.Close()
	d.closer = nil
	return err
}

func (d *deltaReader) nextOp() error {
	cmd, err := d.delta.ReadByte()
	if err != nil {
		return ErrInvalidDelta
	}

	switch {
	case cmd&maskContinue != 0: // copy from base
		offset, err := decodeCopyField(d.delta, cmd, copyOffsets)
		if err != nil {
			return err
		}

		size, err := decodeCopyField(d.delta, cmd, copySizes)
		if err != nil {
			return err
		}
		if size == 0 {
			size = maxCopySize
		}

		if offset+size < offset || offset+size > d.baseSize {
			return ErrInvalidDelta
		}
		if d.produced+size > d.resultSize {
			return ErrInvalidDelta
		}

		if _, err := d.base.Seek(offset, io.SeekStart); err != nil {
			return err
		}

		d.op = opCopy
		d.opRemaining = size

	case cmd != 0: // insert from delta
		size := int64(cmd & maskSize)
		if d.produced+size > d.resultSize {
			return ErrInvalidDelta
		}

		d.op = opInsert
		d.opRemaining = size

	default:
		// cmd == 0 is reserved.
		return ErrDeltaCmd
	}

	return nil
}

// decodeCopyField assembles the little-endian partial field of a copy
// opcode, pulling one byte per present bit.
func decodeCopyField(r io.ByteReader, cmd byte, ops []deltaOp) (int64, error) {
	var v int64
	for _, op := range ops {
		if cmd&op.mask == 0 {
			continue
		}

		b, err := r.ReadByte()
		if err != nil {
			return 0, ErrInvalidDelta
		}

		v |= int64(b) << op.shift
	}

	return v, nil
}

// decodeLEB128 decodes a little-endian base-128 size, as used by the two
// delta header sizes.
func decodeLEB128(r io.ByteReader) (int64, error) {
	var v int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		if shift > 63 {
			return 0, ErrInvalidDelta
		}

		v |= int64(b&maskSize) << shift
		if b&maskContinue == 0 {
			return v, nil
		}

		shift += sizeBits
	}
}

func readFromByteReader(r io.ByteReader, p []byte) (int, error) {
	if br, ok := r.(io.Reader); ok {
		return br.Read(p)
	}

	for i := range p {
		b, err := r.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = b
	}

	return len(p), nil
}
