package hevc

// hvcC record layout: 22 fixed bytes, a numOfArrays byte, then per-type NAL
// arrays. Each array is a type byte, a 16-bit NAL count, and length-prefixed
// NAL units.
const (
	hvccHeaderSize     = 22
	hvccLengthSizeByte = 21
)

// StreamConfig holds the decoded parameter sets of one HEVC-with-Alpha
// stream, extracted from its hvcC decoder configuration record. Parameter
// sets are keyed by id; alpha streams carry one base and one alpha-layer
// SPS/PPS pair.
type StreamConfig struct {
	VPS   *VideoParameterSet
	SPS   [maxParamSetID]*SequenceParameterSet
	PPS   [maxParamSetID]*PictureParameterSet
	Alpha *AlphaChannelInfo
}

// Base returns the base-layer sequence parameter set, or nil if the record
// carried none.
func (c *StreamConfig) Base() *SequenceParameterSet {
	return c.SPS[0]
}

// Premultiplied reports whether the stream's color samples are premultiplied
// by alpha.
func (c *StreamConfig) Premultiplied() bool {
	return c.Alpha != nil && c.Alpha.Premultiplied()
}

// DecodeConfigurationRecord decodes an hvcC decoder configuration record
// payload into a StreamConfig. Every VPS, SPS, PPS, and prefix SEI NAL unit
// in the record is unescaped and decoded; other NAL types are skipped. The
// record must use 4-byte NAL length prefixes, and its VPS must declare an
// auxiliary alpha layer or the decode fails with ErrNoAlphaLayer.
func DecodeConfigurationRecord(record []byte) (*StreamConfig, error) {
	if len(record) < hvccHeaderSize+1 {
		return nil, ErrUnexpectedEndOfData
	}
	if record[hvccLengthSizeByte]&0x3 != 3 {
		return nil, ErrUnsupported
	}

	cfg := &StreamConfig{}
	numArrays := int(record[hvccHeaderSize])
	p := record[hvccHeaderSize+1:]
	for i := 0; i < numArrays; i++ {
		if len(p) < 3 {
			return nil, ErrUnexpectedEndOfData
		}
		nalType := p[0] & 0x3F
		numNALs := int(be.Uint16(p[1:]))
		p = p[3:]
		for j := 0; j < numNALs; j++ {
			if len(p) < 2 {
				return nil, ErrUnexpectedEndOfData
			}
			size := int(be.Uint16(p))
			p = p[2:]
			if size > len(p) {
				return nil, ErrUnexpectedEndOfData
			}
			if err := cfg.decodeNAL(nalType, p[:size]); err != nil {
				return nil, err
			}
			p = p[size:]
		}
	}

	if cfg.VPS == nil || !cfg.VPS.HasAlpha {
		return nil, ErrNoAlphaLayer
	}
	return cfg, nil
}

// decodeNAL unescapes one configuration NAL unit and dispatches it by type.
func (c *StreamConfig) decodeNAL(nalType byte, nal []byte) error {
	switch nalType {
	case NALVPS, NALSPS, NALPPS, NALSEIPrefix:
	default:
		return nil
	}
	rbsp, err := ExtractRBSP(nal)
	if err != nil {
		return err
	}
	switch nalType {
	case NALVPS:
		c.VPS, err = DecodeVPS(rbsp)
	case NALSPS:
		var sps *SequenceParameterSet
		if sps, err = DecodeSPS(rbsp); err == nil {
			c.SPS[sps.ID] = sps
		}
	case NALPPS:
		var pps *PictureParameterSet
		if pps, err = DecodePPS(rbsp); err == nil {
			c.PPS[pps.ID] = pps
		}
	case NALSEIPrefix:
		var info *AlphaChannelInfo
		if info, err = DecodeSEI(rbsp); err == nil && info != nil {
			c.Alpha = info
		}
	}
	return err
}
