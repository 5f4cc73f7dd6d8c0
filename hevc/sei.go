package hevc

// seiAlphaChannelInfo is the payload type of the alpha channel information
// SEI message (ITU-T H.265 Annex D).
const seiAlphaChannelInfo = 165

// AlphaChannelInfo holds the alpha channel information SEI payload. It
// describes how the auxiliary layer's samples map to alpha values and whether
// the base layer is premultiplied.
type AlphaChannelInfo struct {
	Cancel           bool
	UseIDC           uint32
	TransparentValue uint32
	OpaqueValue      uint32
	IncrementFlag    bool
	ClipFlag         bool
}

// Premultiplied reports whether the base layer's color samples are
// premultiplied by alpha (alpha_channel_use_idc of 1).
func (a *AlphaChannelInfo) Premultiplied() bool {
	return a.UseIDC == 1
}

// DecodeSEI scans a prefix SEI NAL unit (unescaped, 2-byte NAL header
// included) for an alpha channel information message. It returns nil if the
// NAL carries no such message. Extended payload type or size encodings
// (0xFF continuation bytes) are rejected with ErrUnsupported.
func DecodeSEI(rbsp []byte) (*AlphaChannelInfo, error) {
	if len(rbsp) < 2 {
		return nil, ErrUnexpectedEndOfData
	}
	p := rbsp[2:]
	for len(p) >= 2 {
		payloadType := p[0]
		payloadSize := p[1]
		if payloadType == 0xFF || payloadSize == 0xFF {
			return nil, ErrUnsupported
		}
		p = p[2:]
		if int(payloadSize) > len(p) {
			return nil, ErrUnexpectedEndOfData
		}
		if payloadType == seiAlphaChannelInfo {
			return decodeAlphaChannelInfo(p[:payloadSize])
		}
		p = p[payloadSize:]
	}
	return nil, nil
}

// decodeAlphaChannelInfo decodes the alpha channel information payload:
// cancel(1), use_idc(3), bit_depth_minus8(3), transparent(bit_depth+1),
// opaque(bit_depth+1), increment(1), clip(1). Only 8-bit alpha is supported.
func decodeAlphaChannelInfo(payload []byte) (*AlphaChannelInfo, error) {
	r := NewReader(payload)
	info := &AlphaChannelInfo{}
	var err error
	if info.Cancel, err = r.Flag(); err != nil {
		return nil, err
	}
	if info.UseIDC, err = r.Bits(3); err != nil {
		return nil, err
	}
	bitDepthMinus8, err := r.Bits(3)
	if err != nil {
		return nil, err
	}
	if bitDepthMinus8 != 0 {
		return nil, ErrUnsupported
	}
	if info.TransparentValue, err = r.Bits(9); err != nil {
		return nil, err
	}
	if info.OpaqueValue, err = r.Bits(9); err != nil {
		return nil, err
	}
	if info.IncrementFlag, err = r.Flag(); err != nil {
		return nil, err
	}
	if info.ClipFlag, err = r.Flag(); err != nil {
		return nil, err
	}
	return info, nil
}
