package quicktime

import "fmt"

// The sample-table boxes share a layout: an 8-byte box header, a 4-byte
// version/flags word, and a big-endian entry table. Each view below validates
// its payload length once at construction so the accessors can index freely.

// SampleToChunk is a view of an stsc box: run-length entries assigning a
// sample count to every chunk from a given first chunk onwards.
type SampleToChunk struct {
	entries []byte
	count   uint32
}

// SampleToChunk returns the stsc table view.
func (idx *Index) SampleToChunk() (*SampleToChunk, error) {
	p, count, err := tablePayload(idx.boxes[idStsc], 12)
	if err != nil {
		return nil, err
	}
	return &SampleToChunk{entries: p, count: count}, nil
}

// Count returns the number of run-length entries.
func (t *SampleToChunk) Count() uint32 { return t.count }

// Entry returns the 1-based first chunk and the per-chunk sample count of
// entry i.
func (t *SampleToChunk) Entry(i uint32) (firstChunk, samplesPerChunk uint32) {
	e := t.entries[i*12:]
	return be.Uint32(e), be.Uint32(e[4:])
}

// ChunkOffsets is a view of an stco box: the absolute byte offset of every
// chunk in the stream.
type ChunkOffsets struct {
	entries []byte
	count   uint32
}

// ChunkOffsets returns the stco table view.
func (idx *Index) ChunkOffsets() (*ChunkOffsets, error) {
	p, count, err := tablePayload(idx.boxes[idStco], 4)
	if err != nil {
		return nil, err
	}
	return &ChunkOffsets{entries: p, count: count}, nil
}

// Count returns the number of chunks.
func (t *ChunkOffsets) Count() uint32 { return t.count }

// Offset returns the byte offset of chunk i (0-based).
func (t *ChunkOffsets) Offset(i uint32) uint32 {
	return be.Uint32(t.entries[i*4:])
}

// SampleSizes is a view of an stsz box: either one fixed size for all
// samples or one explicit size per sample.
type SampleSizes struct {
	entries []byte
	fixed   uint32
	count   uint32
}

// SampleSizes returns the stsz table view.
func (idx *Index) SampleSizes() (*SampleSizes, error) {
	box := idx.boxes[idStsz]
	p := box.Payload()
	if len(p) < 12 {
		return nil, fmt.Errorf("%w: short stsz box", ErrMalformedContainer)
	}
	fixed := be.Uint32(p[4:])
	count := be.Uint32(p[8:])
	entries := p[12:]
	if fixed == 0 && uint64(count)*4 > uint64(len(entries)) {
		return nil, fmt.Errorf("%w: stsz declares %d entries", ErrMalformedContainer, count)
	}
	return &SampleSizes{entries: entries, fixed: fixed, count: count}, nil
}

// FixedSize returns the common sample size, or 0 for variable-size streams.
func (t *SampleSizes) FixedSize() uint32 { return t.fixed }

// Count returns the declared sample count.
func (t *SampleSizes) Count() uint32 { return t.count }

// Size returns the size of sample i (0-based, decode order).
func (t *SampleSizes) Size(i uint32) uint32 {
	if t.fixed != 0 {
		return t.fixed
	}
	return be.Uint32(t.entries[i*4:])
}

// TimeToSample is a view of an stts box: run-length entries assigning one
// duration to a run of consecutive samples.
type TimeToSample struct {
	entries []byte
	count   uint32
}

// TimeToSample returns the stts table view, or nil if the stream has none.
func (idx *Index) TimeToSample() (*TimeToSample, error) {
	if idx.boxes[idStts] == nil {
		return nil, nil
	}
	p, count, err := tablePayload(idx.boxes[idStts], 8)
	if err != nil {
		return nil, err
	}
	return &TimeToSample{entries: p, count: count}, nil
}

// Count returns the number of run-length entries.
func (t *TimeToSample) Count() uint32 { return t.count }

// Entry returns the sample count and per-sample duration of entry i.
func (t *TimeToSample) Entry(i uint32) (sampleCount, duration uint32) {
	e := t.entries[i*8:]
	return be.Uint32(e), be.Uint32(e[4:])
}

// TimeScale returns the mdhd time scale (time units per second), or 0 if the
// stream has no mdhd box.
func (idx *Index) TimeScale() uint32 {
	box := idx.boxes[idMdhd]
	if box == nil {
		return 0
	}
	p := box.Payload()
	// version/flags, creation time, modification time, then the time scale.
	if len(p) < 16 || p[0] != 0 {
		return 0
	}
	return be.Uint32(p[12:])
}

// tablePayload validates a full-box table payload and returns the entry bytes
// and the declared entry count.
func tablePayload(box *Box, entrySize uint32) ([]byte, uint32, error) {
	p := box.Payload()
	if len(p) < 8 {
		return nil, 0, fmt.Errorf("%w: short %s box", ErrMalformedContainer, box.Type)
	}
	count := be.Uint32(p[4:])
	entries := p[8:]
	if uint64(count)*uint64(entrySize) > uint64(len(entries)) {
		return nil, 0, fmt.Errorf("%w: %s declares %d entries", ErrMalformedContainer, box.Type, count)
	}
	return entries, count, nil
}

// formatHVC1 identifies an HEVC video sample description.
var formatHVC1 = newBoxType("hvc1")

// extensionHVCC identifies the HEVC decoder configuration extension.
var extensionHVCC = newBoxType("hvcC")

// VideoDescription holds the fields of an hvc1 video sample description
// needed to configure a decoder, plus the raw hvcC extension payload.
type VideoDescription struct {
	Width  int
	Height int
	HVCC   []byte // hvcC extension payload (after its 8-byte header)
}

// The fixed part of a QuickTime video sample description: 4-byte size,
// 4-byte format, 6 reserved bytes, a 2-byte data-reference index, and 70
// bytes of video-specific fields. Extensions follow.
const videoDescriptionSize = 86

// FindHEVCDescription scans the stsd sample descriptions for the first hvc1
// entry carrying an hvcC extension and returns its decoder-facing fields.
// Apple encoders sometimes pad the extension area with 4 trailing bytes, so
// the extension scan stops as soon as fewer than 8 bytes remain.
func (idx *Index) FindHEVCDescription() (*VideoDescription, error) {
	p := idx.boxes[idStsd].Payload()
	if len(p) < 8 {
		return nil, fmt.Errorf("%w: short stsd box", ErrMalformedContainer)
	}
	count := be.Uint32(p[4:])
	descs := p[8:]

	for ; count > 0; count-- {
		if len(descs) < 8 {
			return nil, fmt.Errorf("%w: truncated sample description", ErrMalformedContainer)
		}
		size := be.Uint32(descs)
		if size < 8 || uint64(size) > uint64(len(descs)) {
			return nil, fmt.Errorf("%w: sample description size %d", ErrMalformedContainer, size)
		}
		var format BoxType
		copy(format[:], descs[4:])
		if format == formatHVC1 && size >= videoDescriptionSize {
			desc := descs[:size]
			vd := &VideoDescription{
				Width:  int(be.Uint16(desc[32:])),
				Height: int(be.Uint16(desc[34:])),
			}
			ext := desc[videoDescriptionSize:]
			for len(ext) >= 8 {
				extSize := be.Uint32(ext)
				if extSize < 8 || uint64(extSize) > uint64(len(ext)) {
					return nil, fmt.Errorf("%w: extension size %d", ErrMalformedContainer, extSize)
				}
				var extType BoxType
				copy(extType[:], ext[4:])
				if extType == extensionHVCC {
					vd.HVCC = ext[8:extSize]
					return vd, nil
				}
				ext = ext[extSize:]
			}
		}
		descs = descs[size:]
	}
	return nil, fmt.Errorf("%w: no hvc1 description with an hvcC extension", ErrMalformedContainer)
}
