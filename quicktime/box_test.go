package quicktime

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// u32 packs values big-endian, the way every box field is stored.
func u32(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func u16(vs ...uint16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// makeBox assembles a size-prefixed box from payload parts.
func makeBox(typ string, parts ...[]byte) []byte {
	var body []byte
	for _, p := range parts {
		body = append(body, p...)
	}
	out := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	copy(out[4:], typ)
	copy(out[8:], body)
	return out
}

// makeFullBox prepends a zero version/flags word.
func makeFullBox(typ string, parts ...[]byte) []byte {
	parts = append([][]byte{make([]byte, 4)}, parts...)
	return makeBox(typ, parts...)
}

// movieParts returns the boxes of a small valid movie keyed by type, so tests
// can drop or duplicate individual boxes.
func movieParts() map[string][]byte {
	return map[string][]byte{
		"ftyp": makeBox("ftyp", []byte("qt  "), u32(0x20050300), []byte("qt  ")),
		"mdat": makeBox("mdat", []byte{0xDE, 0xAD, 0xBE, 0xEF}),
		"mdhd": makeFullBox("mdhd", u32(0, 0, 600, 1200), u16(0, 0)),
		"stsd": makeFullBox("stsd", u32(0)),
		"stts": makeFullBox("stts", u32(1, 2, 100)),
		"stsc": makeFullBox("stsc", u32(1, 1, 1, 1)),
		"stsz": makeFullBox("stsz", u32(16, 2)),
		"stco": makeFullBox("stco", u32(1, 0x30)),
	}
}

// assembleMovie lays the parts out as ftyp, mdat, then the moov hierarchy.
func assembleMovie(parts map[string][]byte) []byte {
	var stbl []byte
	for _, typ := range []string{"stsd", "stts", "stss", "stsc", "stsz", "stco"} {
		stbl = append(stbl, parts[typ]...)
	}
	minf := makeBox("minf", makeBox("stbl", stbl))
	var mdia []byte
	mdia = append(mdia, parts["mdhd"]...)
	mdia = append(mdia, minf...)
	moov := makeBox("moov", makeBox("trak", makeBox("mdia", mdia)))

	var data []byte
	data = append(data, parts["ftyp"]...)
	data = append(data, parts["mdat"]...)
	data = append(data, moov...)
	return data
}

func TestParseIndex(t *testing.T) {
	t.Parallel()
	idx, err := ParseIndex(assembleMovie(movieParts()))
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}
	if got := idx.FileType().Type; got != TypeFtyp {
		t.Errorf("FileType().Type = %s, want ftyp", got)
	}
	if got := idx.MediaData().Payload(); !bytes.Equal(got, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("MediaData().Payload() = % x", got)
	}
	if idx.SyncSamples() != nil {
		t.Error("SyncSamples() != nil for a movie without stss")
	}
	if !idx.HasSampleDurations() {
		t.Error("HasSampleDurations() = false, want true")
	}
	if got := idx.TimeScale(); got != 600 {
		t.Errorf("TimeScale() = %d, want 600", got)
	}
	if !idx.ValidFileType() {
		t.Error("ValidFileType() = false, want true")
	}
}

func TestParseIndexFirstOccurrenceWins(t *testing.T) {
	t.Parallel()
	// A second trak carries a conflicting stsz; the first one must win.
	parts := movieParts()
	second := makeBox("trak", makeBox("mdia", makeBox("minf", makeBox("stbl",
		makeFullBox("stsz", u32(99, 7))))))

	var data []byte
	data = append(data, parts["ftyp"]...)
	data = append(data, parts["mdat"]...)
	var stbl []byte
	for _, typ := range []string{"stsd", "stts", "stsc", "stsz", "stco"} {
		stbl = append(stbl, parts[typ]...)
	}
	first := makeBox("trak", makeBox("mdia", append(parts["mdhd"],
		makeBox("minf", makeBox("stbl", stbl))...)))
	data = append(data, makeBox("moov", first, second)...)

	idx, err := ParseIndex(data)
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}
	sizes, err := idx.SampleSizes()
	if err != nil {
		t.Fatalf("SampleSizes() error = %v", err)
	}
	if sizes.FixedSize() != 16 || sizes.Count() != 2 {
		t.Fatalf("SampleSizes() = fixed %d count %d, want the first trak's 16/2",
			sizes.FixedSize(), sizes.Count())
	}
}

func TestParseIndexMissingMandatory(t *testing.T) {
	t.Parallel()
	for _, missing := range []string{"ftyp", "mdat", "stsd", "stsc", "stsz", "stco"} {
		missing := missing
		t.Run(missing, func(t *testing.T) {
			t.Parallel()
			parts := movieParts()
			delete(parts, missing)
			if _, err := ParseIndex(assembleMovie(parts)); !errors.Is(err, ErrMalformedContainer) {
				t.Fatalf("ParseIndex() without %s: error = %v, want ErrMalformedContainer", missing, err)
			}
		})
	}
}

func TestParseIndexOptionalBoxes(t *testing.T) {
	t.Parallel()
	// stts and mdhd are optional; without them durations are unavailable.
	parts := movieParts()
	delete(parts, "stts")
	delete(parts, "mdhd")
	idx, err := ParseIndex(assembleMovie(parts))
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}
	if idx.HasSampleDurations() {
		t.Error("HasSampleDurations() = true without stts and mdhd")
	}
	if got := idx.TimeScale(); got != 0 {
		t.Errorf("TimeScale() = %d, want 0", got)
	}
}

func TestParseIndexMalformed(t *testing.T) {
	t.Parallel()
	good := assembleMovie(movieParts())

	truncated := good[:len(good)-3]

	undersized := append([]byte{}, good...)
	binary.BigEndian.PutUint32(undersized, 4) // ftyp size below the header size

	overrun := append([]byte{}, good...)
	binary.BigEndian.PutUint32(overrun, uint32(len(good))+8)

	shortHeader := append(append([]byte{}, good...), 0, 0, 0, 9)

	for _, tt := range []struct {
		name string
		data []byte
	}{
		{"truncated box", truncated},
		{"size below header size", undersized},
		{"size past end of buffer", overrun},
		{"trailing partial header", shortHeader},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseIndex(tt.data); !errors.Is(err, ErrMalformedContainer) {
				t.Fatalf("ParseIndex() error = %v, want ErrMalformedContainer", err)
			}
		})
	}
}

func TestValidFileType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ftyp []byte
		want bool
	}{
		{"qt brand repeated", makeBox("ftyp", []byte("qt  "), u32(0), []byte("qt  ")), true},
		{"qt brand after another", makeBox("ftyp", []byte("qt  "), u32(0), []byte("isomqt  ")), true},
		{"major brand not qt", makeBox("ftyp", []byte("mp42"), u32(0), []byte("mp42")), false},
		{"qt not in compatible list", makeBox("ftyp", []byte("qt  "), u32(0), []byte("isom")), false},
		{"no compatible brands", makeBox("ftyp", []byte("qt  "), u32(0)), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			parts := movieParts()
			parts["ftyp"] = tt.ftyp
			idx, err := ParseIndex(assembleMovie(parts))
			if err != nil {
				t.Fatalf("ParseIndex() error = %v", err)
			}
			if got := idx.ValidFileType(); got != tt.want {
				t.Fatalf("ValidFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func FuzzParseIndex(f *testing.F) {
	f.Add(assembleMovie(movieParts()))
	f.Add([]byte{})
	f.Add(make([]byte, 7))
	f.Add(makeBox("moov", makeBox("trak", nil)))
	f.Fuzz(func(t *testing.T, data []byte) {
		idx, err := ParseIndex(data)
		if err != nil {
			return
		}
		// Whatever parses must be safe to query.
		_ = idx.ValidFileType()
		_ = idx.HasSampleDurations()
		_ = idx.TimeScale()
		_, _ = idx.SampleToChunk()
		_, _ = idx.ChunkOffsets()
		_, _ = idx.SampleSizes()
		_, _ = idx.TimeToSample()
		_, _ = idx.FindHEVCDescription()
	})
}
