// Package testfix synthesises git repository artefacts for tests: loose
// objects, pack and idx files, staging indexes and refs, laid out on a
// billy filesystem without shelling out to git.
package testfix

import (
	"bytes"
	"hash/crc32"
	"sort"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zlib"
	"github.com/pjbgf/sha1cd"

	"github.com/repolens/repolens/plumbing"
	"github.com/repolens/repolens/utils/binary"
)

// WriteLooseObject stores content as a loose object of the given type
// under objects/xx/..., returning its hash.
func WriteLooseObject(fs billy.Filesystem, typ plumbing.ObjectType, content []byte) (plumbing.Hash, error) {
	h := plumbing.ComputeHash(typ, content)

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(typ.Bytes())
	zw.Write([]byte(" "))
	zw.Write([]byte(strconv.Itoa(len(content))))
	zw.Write([]byte{0})
	zw.Write(content)
	if err := zw.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	hex := h.String()
	path := fs.Join("objects", hex[:2], hex[2:])
	if err := util.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return plumbing.ZeroHash, err
	}

	return h, nil
}

// PackObject is one entry fed to WritePack.
type PackObject struct {
	// Type of the entry; for deltas this is the delta type.
	Type plumbing.ObjectType
	// Content of a full object, or the raw delta payload for deltas.
	Content []byte
	// BaseIndex is the index of the base entry for ofs-deltas.
	BaseIndex int
	// BaseHash is the base hash for ref-deltas.
	BaseHash plumbing.Hash

	// Hash of the resolved object, filled by WritePack for full
	// entries; delta entries keep the zero hash unless set by the
	// caller.
	Hash plumbing.Hash
	// Offset within the pack, filled by WritePack.
	Offset int64
}

// WritePack writes objects into a pack/idx pair named
// objects/pack/pack-<name>.{pack,idx}. Entries are written in slice
// order; delta entries must come after their base. Objects with a zero
// hash after resolution are left out of the idx.
func WritePack(fs billy.Filesystem, name string, objects []*PackObject) (packPath, idxPath string, err error) {
	var pack bytes.Buffer

	pack.WriteString("PACK")
	writeUint32(&pack, 2)
	writeUint32(&pack, uint32(len(objects)))

	crcs := make([]uint32, len(objects))
	for i, o := range objects {
		o.Offset = int64(pack.Len())

		var entry bytes.Buffer
		writeEntryHeader(&entry, o.Type, len(o.Content))

		switch o.Type {
		case plumbing.OFSDeltaObject:
			writeNegOffset(&entry, o.Offset-objects[o.BaseIndex].Offset)
		case plumbing.REFDeltaObject:
			entry.Write(o.BaseHash[:])
		default:
			if o.Hash.IsZero() {
				o.Hash = plumbing.ComputeHash(o.Type, o.Content)
			}
		}

		zw := zlib.NewWriter(&entry)
		zw.Write(o.Content)
		if err := zw.Close(); err != nil {
			return "", "", err
		}

		crcs[i] = crc32.ChecksumIEEE(entry.Bytes())
		pack.Write(entry.Bytes())
	}

	sum, _ := sha1cd.Sum(pack.Bytes())
	pack.Write(sum[:])

	packPath = fs.Join("objects", "pack", "pack-"+name+".pack")
	idxPath = fs.Join("objects", "pack", "pack-"+name+".idx")

	if err := util.WriteFile(fs, packPath, pack.Bytes(), 0o644); err != nil {
		return "", "", err
	}

	idx := buildIdx(objects, crcs, sum)
	if err := util.WriteFile(fs, idxPath, idx, 0o644); err != nil {
		return "", "", err
	}

	return packPath, idxPath, nil
}

func buildIdx(objects []*PackObject, crcs []uint32, packSum [20]byte) []byte {
	type row struct {
		hash   plumbing.Hash
		crc    uint32
		offset int64
	}

	var rows []row
	for i, o := range objects {
		if o.Hash.IsZero() {
			continue
		}

		rows = append(rows, row{hash: o.Hash, crc: crcs[i], offset: o.Offset})
	}

	sort.Slice(rows, func(i, j int) bool {
		return bytes.Compare(rows[i].hash[:], rows[j].hash[:]) < 0
	})

	var buf bytes.Buffer
	buf.Write([]byte{255, 't', 'O', 'c'})
	writeUint32(&buf, 2)

	var fanout [256]uint32
	for _, r := range rows {
		fanout[r.hash[0]]++
	}
	var running uint32
	for i := 0; i < 256; i++ {
		running += fanout[i]
		writeUint32(&buf, running)
	}

	for _, r := range rows {
		buf.Write(r.hash[:])
	}

	for _, r := range rows {
		writeUint32(&buf, r.crc)
	}

	for _, r := range rows {
		writeUint32(&buf, uint32(r.offset))
	}

	buf.Write(packSum[:])

	idxSum, _ := sha1cd.Sum(buf.Bytes())
	buf.Write(idxSum[:])

	return buf.Bytes()
}

// DeltaOp is one operation of a synthetic delta payload.
type DeltaOp struct {
	// Insert bytes, when not nil.
	Insert []byte
	// CopyOffset and CopySize copy from the base otherwise.
	CopyOffset, CopySize int
}

// BuildDelta serialises the delta header and operations against a base
// of the given size producing a result of resultSize bytes.
func BuildDelta(baseSize, resultSize int, ops []DeltaOp) []byte {
	var buf bytes.Buffer
	writeLEB128(&buf, baseSize)
	writeLEB128(&buf, resultSize)

	for _, op := range ops {
		if op.Insert != nil {
			buf.WriteByte(byte(len(op.Insert)))
			buf.Write(op.Insert)
			continue
		}

		cmd := byte(0x80)
		var tail []byte
		for i, shift := range []uint{0, 8, 16, 24} {
			if b := byte(op.CopyOffset >> shift); b != 0 {
				cmd |= 1 << i
				tail = append(tail, b)
			}
		}
		for i, shift := range []uint{0, 8, 16} {
			if b := byte(op.CopySize >> shift); b != 0 {
				cmd |= 0x10 << i
				tail = append(tail, b)
			}
		}

		buf.WriteByte(cmd)
		buf.Write(tail)
	}

	return buf.Bytes()
}

// IndexEntry is one staging-index row fed to WriteIndex.
type IndexEntry struct {
	Name  string
	Hash  plumbing.Hash
	Mode  uint32
	Size  uint32
	Flags uint16
}

// WriteIndex writes a version 2 staging index holding the entries, which
// must be sorted by name.
func WriteIndex(fs billy.Filesystem, entries []IndexEntry) error {
	var buf bytes.Buffer
	buf.WriteString("DIRC")
	writeUint32(&buf, 2)
	writeUint32(&buf, uint32(len(entries)))

	for _, e := range entries {
		start := buf.Len()

		mode := e.Mode
		if mode == 0 {
			mode = 0o100644
		}

		binary.Write(&buf,
			uint32(0), uint32(0), // ctime
			uint32(0), uint32(0), // mtime
			uint32(0), uint32(0), // dev, ino
			mode,
			uint32(0), uint32(0), // uid, gid
			e.Size,
		)
		buf.Write(e.Hash[:])

		flags := e.Flags
		if flags == 0 && len(e.Name) < 0xfff {
			flags = uint16(len(e.Name))
		}
		binary.Write(&buf, flags)

		buf.WriteString(e.Name)

		pad := 8 - (buf.Len()-start)%8
		buf.Write(make([]byte, pad))
	}

	sum, _ := sha1cd.Sum(buf.Bytes())
	buf.Write(sum[:])

	return util.WriteFile(fs, "index", buf.Bytes(), 0o644)
}

// WriteRef writes a loose reference file with the given content line.
func WriteRef(fs billy.Filesystem, name, content string) error {
	return util.WriteFile(fs, name, []byte(content+"\n"), 0o644)
}

func writeEntryHeader(buf *bytes.Buffer, typ plumbing.ObjectType, size int) {
	b := byte(typ)<<4 | byte(size&0x0f)
	size >>= 4
	for size > 0 {
		buf.WriteByte(b | 0x80)
		b = byte(size & 0x7f)
		size >>= 7
	}

	buf.WriteByte(b)
}

// writeNegOffset encodes the backward distance of an ofs-delta, the
// inverse of the +1-biased decoder.
func writeNegOffset(buf *bytes.Buffer, offset int64) {
	var out [10]byte
	pos := len(out) - 1
	out[pos] = byte(offset & 0x7f)
	for offset >>= 7; offset > 0; offset >>= 7 {
		offset--
		pos--
		out[pos] = 0x80 | byte(offset&0x7f)
	}

	buf.Write(out[pos:])
}

func writeLEB128(buf *bytes.Buffer, v int) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf.WriteByte(b | 0x80)
		} else {
			buf.WriteByte(b)
			return
		}
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	binary.WriteUint32(buf, v)
}
