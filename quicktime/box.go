// Package quicktime parses the subset of the QuickTime box (atom) structure
// needed to decode an HEVC-with-Alpha movie: the top-level file layout and the
// sample-table boxes inside moov/trak/mdia/minf/stbl. Boxes are borrowed views
// into the caller's buffer; nothing is copied.
package quicktime

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var be = binary.BigEndian

// ErrMalformedContainer indicates a structural violation of the box tree:
// a declared box size that is too small or runs past the end of the buffer,
// a truncated table payload, or a mandatory box that is missing.
var ErrMalformedContainer = errors.New("quicktime: malformed container")

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

func newBoxType(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

// Box types tracked by the index.
var (
	TypeFtyp = newBoxType("ftyp")
	TypeMdat = newBoxType("mdat")
	TypeMdhd = newBoxType("mdhd")
	TypeStsd = newBoxType("stsd")
	TypeStts = newBoxType("stts")
	TypeStss = newBoxType("stss")
	TypeStsc = newBoxType("stsc")
	TypeStsz = newBoxType("stsz")
	TypeStco = newBoxType("stco")
)

// Container box types the walk recurses into. Their children start 8 bytes
// past the box header.
var (
	typeMoov = newBoxType("moov")
	typeTrak = newBoxType("trak")
	typeMdia = newBoxType("mdia")
	typeMinf = newBoxType("minf")
	typeStbl = newBoxType("stbl")
)

// Box is one box in the container: a borrowed view of the full box bytes
// (header included) plus its absolute offset in the stream.
type Box struct {
	Type   BoxType
	Offset uint32
	Data   []byte // size-prefixed box bytes, header included
}

// Payload returns the box bytes after the 8-byte header.
func (b *Box) Payload() []byte {
	return b.Data[8:]
}

// Index ids for the tracked box types.
const (
	idFtyp = iota
	idMdat
	idMdhd
	idStsd
	idStts
	idStss
	idStsc
	idStsz
	idStco
	numIDs
)

var trackedTypes = map[BoxType]int{
	TypeFtyp: idFtyp,
	TypeMdat: idMdat,
	TypeMdhd: idMdhd,
	TypeStsd: idStsd,
	TypeStts: idStts,
	TypeStss: idStss,
	TypeStsc: idStsc,
	TypeStsz: idStsz,
	TypeStco: idStco,
}

// Index maps each tracked box type to its first occurrence in a depth-first
// walk of the stream. Built once by ParseIndex; immutable afterwards.
type Index struct {
	boxes [numIDs]*Box
}

// ParseIndex walks the box tree of data and records the first occurrence of
// every tracked box type, recursing only into the known container types. It
// fails with ErrMalformedContainer if any declared box size would read past
// the end of the buffer or if a mandatory box (ftyp, mdat, stsd, stsc, stsz,
// stco) is absent.
func ParseIndex(data []byte) (*Index, error) {
	if len(data) > 0xffffffff {
		return nil, fmt.Errorf("%w: stream exceeds 4 GiB", ErrMalformedContainer)
	}
	idx := &Index{}
	if err := idx.walk(data, 0, uint32(len(data))); err != nil {
		return nil, err
	}
	for _, id := range []int{idFtyp, idMdat, idStsd, idStsc, idStsz, idStco} {
		if idx.boxes[id] == nil {
			return nil, fmt.Errorf("%w: missing mandatory box", ErrMalformedContainer)
		}
	}
	return idx, nil
}

// walk enumerates the sibling boxes in data[offset:end], recursing into
// container boxes. First occurrence wins for every tracked type.
func (idx *Index) walk(data []byte, offset, end uint32) error {
	for offset < end {
		if end-offset < 8 {
			return fmt.Errorf("%w: truncated box header at %#x", ErrMalformedContainer, offset)
		}
		size := be.Uint32(data[offset:])
		if size < 8 || size > end-offset {
			return fmt.Errorf("%w: box size %d at %#x", ErrMalformedContainer, size, offset)
		}
		var typ BoxType
		copy(typ[:], data[offset+4:])

		switch typ {
		case typeMoov, typeTrak, typeMdia, typeMinf, typeStbl:
			if err := idx.walk(data, offset+8, offset+size); err != nil {
				return err
			}
		default:
			if id, ok := trackedTypes[typ]; ok && idx.boxes[id] == nil {
				idx.boxes[id] = &Box{
					Type:   typ,
					Offset: offset,
					Data:   data[offset : offset+size],
				}
			}
		}
		offset += size
	}
	return nil
}

// HasSampleDurations reports whether the boxes needed to compute per-sample
// durations (stts and mdhd) were both found.
func (idx *Index) HasSampleDurations() bool {
	return idx.boxes[idStts] != nil && idx.boxes[idMdhd] != nil
}

// FileType returns the ftyp box.
func (idx *Index) FileType() *Box { return idx.boxes[idFtyp] }

// MediaData returns the mdat box.
func (idx *Index) MediaData() *Box { return idx.boxes[idMdat] }

// SyncSamples returns the stss box, or nil if the stream has none.
func (idx *Index) SyncSamples() *Box { return idx.boxes[idStss] }

var brandQuickTime = newBoxType("qt  ")

// ValidFileType reports whether the ftyp box declares a QuickTime movie:
// the major brand must be "qt  " and must reappear in the compatible-brand
// list (bytes 16.. of the box, in 4-byte steps).
func (idx *Index) ValidFileType() bool {
	ftyp := idx.boxes[idFtyp]
	data := ftyp.Data
	if len(data) < 16 {
		return false
	}
	var major BoxType
	copy(major[:], data[8:])
	if major != brandQuickTime {
		return false
	}
	for i := 16; i+4 <= len(data); i += 4 {
		var brand BoxType
		copy(brand[:], data[i:])
		if brand == major {
			return true
		}
	}
	return false
}
