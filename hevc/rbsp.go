package hevc

// maxRBSPSize bounds parameter-set NAL payloads. No VPS, SPS, PPS, or prefix
// SEI produced for these streams exceeds it.
const maxRBSPSize = 256

const lowByteBits = 0x0101010101010101

// ExtractRBSP removes emulation-prevention bytes from a raw NAL unit payload:
// the trailing 0x03 of every 0x00 0x00 0x03 sequence is dropped. The scan is
// word-parallel: for each 8-byte word it builds a mask of bytes that are ≤
// 0x03 and preceded by two zero bytes, copies the whole word through when the
// mask is clear, and removes flagged bytes one at a time otherwise. Payloads
// larger than 256 bytes fail with ErrPayloadTooLarge.
func ExtractRBSP(nal []byte) ([]byte, error) {
	if len(nal) > maxRBSPSize {
		return nil, ErrPayloadTooLarge
	}
	rbsp := make([]byte, 0, len(nal))

	// lastEq00 carries the zero-byte mask of the previous word so sequences
	// straddling a word boundary are still caught.
	var lastEq00 uint64
	for off := 0; off < len(nal); off += 8 {
		k := len(nal) - off
		if k > 8 {
			k = 8
		}
		var w uint64
		for i := k - 1; i >= 0; i-- {
			w = w<<8 | uint64(nal[off+i])
		}

		// Fold each byte's bits into its bit 0: eq00 marks bytes equal to
		// 0x00, le03 marks bytes ≤ 0x03 (bit 0 and bit 1 excluded from the
		// fold). Only bit 0 of every byte is meaningful afterwards.
		eq00 := w | w>>1
		le03 := eq00 &^ lowByteBits
		eq00 |= eq00 >> 2
		le03 |= le03 >> 2
		eq00 |= eq00 >> 4
		le03 |= le03 >> 4
		eq00 = ^eq00
		le03 = ^le03

		// A byte is stripped when it is ≤ 0x03 and the two preceding bytes
		// are both zero.
		strip := (eq00<<16 | lastEq00>>48) & (eq00<<8 | lastEq00>>56) & le03 & lowByteBits
		if k < 8 {
			strip &= 1<<(8*uint(k)) - 1
		}
		lastEq00 = eq00

		if strip == 0 {
			rbsp = append(rbsp, nal[off:off+k]...)
			continue
		}
		for i := 0; i < k; i++ {
			if strip>>(8*uint(i))&1 == 0 {
				rbsp = append(rbsp, nal[off+i])
			}
		}
	}
	return rbsp, nil
}
