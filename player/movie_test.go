package player

import (
	"encoding/binary"
	mathbits "math/bits"
)

// Test fixtures build a complete synthetic HEVC-with-Alpha movie: real box
// structure, a real hvcC record, and one slice NAL per sample carrying the
// requested picture order count.

type bitWriter struct {
	data   []byte
	bitPos int
}

func (w *bitWriter) putBit(v bool) {
	if w.bitPos/8 >= len(w.data) {
		w.data = append(w.data, 0)
	}
	if v {
		w.data[w.bitPos/8] |= 1 << uint(7-w.bitPos%8)
	}
	w.bitPos++
}

func (w *bitWriter) putUint(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		w.putBit((v>>uint(i))&1 == 1)
	}
}

func (w *bitWriter) putUE(v uint32) {
	k := mathbits.Len32(v+1) - 1
	for i := 0; i < k; i++ {
		w.putBit(false)
	}
	w.putUint(k+1, v+1)
}

func (w *bitWriter) alignByte() {
	for w.bitPos%8 != 0 {
		w.putBit(false)
	}
}

func (w *bitWriter) bytes() []byte { return w.data }

func escapeRBSP(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp))
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

func testPTL() []byte {
	return []byte{0x01, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x78}
}

// testVPS returns a two-layer VPS whose extension marks layer 1 as the
// auxiliary alpha layer. withAlpha false drops the extension.
func testVPS(withAlpha bool) []byte {
	nal := []byte{0x40, 0x01}
	hdr := &bitWriter{}
	hdr.putUint(4, 0)
	hdr.putUint(2, 3)
	hdr.putUint(6, 1) // vps_max_layers_minus1
	hdr.putUint(3, 0)
	hdr.putBit(true)
	nal = append(nal, hdr.bytes()...)
	nal = append(nal, 0xFF, 0xFF)
	nal = append(nal, testPTL()...)

	w := &bitWriter{}
	w.putBit(false) // sub_layer_ordering_info
	w.putUE(0)
	w.putUE(0)
	w.putUE(0)
	w.putUint(6, 1) // vps_max_layer_id
	w.putUE(0)      // vps_num_layer_sets_minus1
	w.putBit(false) // timing_info
	w.putBit(withAlpha)
	if withAlpha {
		w.alignByte()
		w.putUint(8, 0)      // extension level
		w.putBit(false)      // splitting flag
		w.putUint(16, 1<<12) // scalability mask: AuxId only
		w.putUint(3, 0)      // dimension_id_len_minus1
		w.putBit(true)       // nuh_layer_id_present
		w.putUint(6, 1)      // layer 1 id
		w.putUint(1, 1)      // dimension id: alpha
	}
	w.putBit(true)
	return append(nal, w.bytes()...)
}

func testSPS(width, height uint32) []byte {
	nal := []byte{0x42, 0x01, 0x01}
	nal = append(nal, testPTL()...)
	w := &bitWriter{}
	w.putUE(0) // sps id
	w.putUE(1) // chroma_format_idc
	w.putUE(width)
	w.putUE(height)
	w.putBit(false) // conformance window
	w.putUE(0)      // bit_depth_luma_minus8
	w.putUE(0)      // bit_depth_chroma_minus8
	w.putUE(0)      // log2_max_pic_order_cnt_lsb_minus4
	w.putBit(true)
	return append(nal, w.bytes()...)
}

func testPPS() []byte {
	nal := []byte{0x44, 0x01}
	w := &bitWriter{}
	w.putUE(0)      // pps id
	w.putUE(0)      // sps id
	w.putBit(false) // dependent_slice_segments_enabled
	w.putBit(false) // output_flag_present
	w.putUint(3, 0)
	w.putBit(true)
	return append(nal, w.bytes()...)
}

func testAlphaSEI() []byte {
	// use_idc 1 (premultiplied), 8-bit, transparent 0, opaque 255
	return []byte{0x4E, 0x01, 165, 4, 0x10, 0x00, 0x7F, 0x80}
}

func testHVCC(withAlpha bool) []byte {
	record := make([]byte, 22)
	record[0] = 1
	record[21] = 0x3 // 4-byte NAL lengths
	arrays := []struct {
		typ byte
		nal []byte
	}{
		{32, testVPS(withAlpha)},
		{33, testSPS(640, 360)},
		{34, testPPS()},
		{39, testAlphaSEI()},
	}
	record = append(record, byte(len(arrays)))
	for _, a := range arrays {
		esc := escapeRBSP(a.nal)
		record = append(record, a.typ, 0, 1, byte(len(esc)>>8), byte(len(esc)))
		record = append(record, esc...)
	}
	return record
}

// testSample builds one length-prefixed sample. The first picture (poc 0) is
// an IDR, everything else a trailing picture with a 4-bit coded poc.
func testSample(poc uint32) []byte {
	nalType := byte(1) // TRAIL_R
	if poc == 0 {
		nalType = 19 // IDR_W_RADL
	}
	w := &bitWriter{}
	w.putBit(true) // first_slice_segment_in_pic
	if nalType == 19 {
		w.putBit(false) // no_output_of_prior_pics
	}
	w.putUE(0) // pps id
	w.putUE(0) // slice_type
	if nalType != 19 {
		w.putUint(4, poc)
	}
	w.putBit(true)
	// pad so samples have distinguishable sizes
	for i := uint32(0); i < poc; i++ {
		w.putUint(8, 0xEE)
	}

	body := append([]byte{nalType << 1, 0x01}, w.bytes()...)
	sample := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(sample, uint32(len(body)))
	return append(sample, body...)
}

func u32be(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint32(out[4*i:], v)
	}
	return out
}

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

func makeFullBox(typ string, parts ...[]byte) []byte {
	parts = append([][]byte{make([]byte, 4)}, parts...)
	return makeBox(typ, parts...)
}

// movieParts builds the boxes of a movie whose decode-order samples carry the
// given picture order counts, split across two chunks when there are enough
// samples. Tests may swap out individual parts before assembly.
func movieParts(pocs []uint32) map[string][]byte {
	samples := make([][]byte, len(pocs))
	sizes := make([]uint32, len(pocs))
	for i, poc := range pocs {
		samples[i] = testSample(poc)
		sizes[i] = uint32(len(samples[i]))
	}

	ftyp := makeBox("ftyp", []byte("qt  "), u32be(0), []byte("qt  "))
	mdatStart := uint32(len(ftyp)) + 8 // payload offset of mdat

	// Two chunks when possible: the first holds two samples, and pad bytes
	// between the chunks keep their offsets from being contiguous.
	firstChunkSamples := uint32(len(pocs))
	if len(pocs) > 2 {
		firstChunkSamples = 2
	}
	var mdat []byte
	var stsc, stco []byte
	if firstChunkSamples < uint32(len(pocs)) {
		for _, s := range samples[:firstChunkSamples] {
			mdat = append(mdat, s...)
		}
		mdat = append(mdat, 0xCC, 0xCC, 0xCC, 0xCC) // inter-chunk gap
		chunk2Offset := mdatStart + uint32(len(mdat))
		for _, s := range samples[firstChunkSamples:] {
			mdat = append(mdat, s...)
		}
		stsc = makeFullBox("stsc", u32be(2,
			1, firstChunkSamples, 1,
			2, uint32(len(pocs))-firstChunkSamples, 1))
		stco = makeFullBox("stco", u32be(2, mdatStart, chunk2Offset))
	} else {
		for _, s := range samples {
			mdat = append(mdat, s...)
		}
		stsc = makeFullBox("stsc", u32be(1, 1, firstChunkSamples, 1))
		stco = makeFullBox("stco", u32be(1, mdatStart))
	}

	stszPayload := u32be(0, uint32(len(pocs)))
	stszPayload = append(stszPayload, u32be(sizes...)...)

	desc := make([]byte, 86)
	copy(desc[4:], "hvc1")
	binary.BigEndian.PutUint16(desc[32:], 640)
	binary.BigEndian.PutUint16(desc[34:], 360)
	desc = append(desc, makeBox("hvcC", testHVCC(true))...)
	binary.BigEndian.PutUint32(desc, uint32(len(desc)))

	return map[string][]byte{
		"ftyp": ftyp,
		"mdat": makeBox("mdat", mdat),
		"mdhd": makeFullBox("mdhd", u32be(0, 0, 600, uint32(len(pocs))*100), []byte{0, 0, 0, 0}),
		"stsd": makeFullBox("stsd", u32be(1), desc),
		"stts": makeFullBox("stts", u32be(1, uint32(len(pocs)), 100)),
		"stsc": stsc,
		"stsz": makeFullBox("stsz", stszPayload),
		"stco": stco,
	}
}

func assembleMovie(parts map[string][]byte) []byte {
	var stbl []byte
	for _, typ := range []string{"stsd", "stts", "stsc", "stsz", "stco"} {
		stbl = append(stbl, parts[typ]...)
	}
	var mdia []byte
	mdia = append(mdia, parts["mdhd"]...)
	mdia = append(mdia, makeBox("minf", makeBox("stbl", stbl))...)
	moov := makeBox("moov", makeBox("trak", makeBox("mdia", mdia)))

	var data []byte
	data = append(data, parts["ftyp"]...)
	data = append(data, parts["mdat"]...)
	data = append(data, moov...)
	return data
}

func buildMovie(pocs []uint32) []byte {
	return assembleMovie(movieParts(pocs))
}
