package hevc

import (
	"encoding/binary"
	"math/bits"
)

var be = binary.BigEndian

// ProfileTierLevel holds the fixed 12-byte profile_tier_level header common
// to the VPS and SPS.
type ProfileTierLevel struct {
	ProfileSpace uint8
	Tier         uint8
	ProfileIDC   uint8
	CompatFlags  uint32
	LevelIDC     uint8
}

const profileTierLevelSize = 12

// parseProfileTierLevel decodes the 12-byte general profile_tier_level. A
// zero general_profile_idc is resolved through the compatibility flags, where
// bit 31 corresponds to profile 0.
func parseProfileTierLevel(data []byte) (ProfileTierLevel, error) {
	var ptl ProfileTierLevel
	if len(data) < profileTierLevelSize {
		return ptl, ErrUnexpectedEndOfData
	}
	ptl.ProfileSpace = data[0] >> 6
	ptl.Tier = data[0] >> 5 & 1
	ptl.ProfileIDC = data[0] & 0x1F
	ptl.CompatFlags = be.Uint32(data[1:])
	if ptl.ProfileIDC == 0 {
		ptl.ProfileIDC = uint8(bits.LeadingZeros32(ptl.CompatFlags))
	}
	ptl.LevelIDC = data[11]
	return ptl, nil
}

// Scalability dimensions in the VPS extension are keyed by their bit position
// in the 16-bit scalability mask, where bit 15 is scalability_mask_flag[0].
// The AuxId dimension is flag 3, so bit 12; an auxiliary picture carrying
// alpha has dimension id 1.
const (
	auxBitPosition = 12
	auxAlpha       = 1
)

// VideoParameterSet holds the decoded fields of a VPS NAL unit.
type VideoParameterSet struct {
	ID        uint8
	MaxLayers int
	PTL       ProfileTierLevel

	// HasAlpha reports whether the VPS extension declares layer 1 as an
	// auxiliary alpha layer. A VPS without an extension leaves it false.
	HasAlpha bool
}

// DecodeVPS decodes a video parameter set from an unescaped NAL unit
// (2-byte NAL header included). Streams with temporal sub-layers, per-layer
// ordering info, HRD parameters, or a splitting flag are rejected with
// ErrUnsupported. A VPS extension that does not declare an auxiliary alpha
// layer fails with ErrNoAlphaLayer.
func DecodeVPS(rbsp []byte) (*VideoParameterSet, error) {
	if len(rbsp) < 6+profileTierLevelSize {
		return nil, ErrUnexpectedEndOfData
	}

	// vps_video_parameter_set_id(4), base/layer flags(2),
	// vps_max_layers_minus1(6), vps_max_sub_layers_minus1(3), nesting(1).
	hdr := be.Uint16(rbsp[2:])
	vps := &VideoParameterSet{
		ID:        uint8(hdr >> 12),
		MaxLayers: int(hdr>>4&0x3F) + 1,
	}
	if hdr>>1&0x7 != 0 {
		return nil, ErrUnsupported
	}
	ptl, err := parseProfileTierLevel(rbsp[6:])
	if err != nil {
		return nil, err
	}
	vps.PTL = ptl

	r := NewReader(rbsp[18:])
	subLayerOrdering, err := r.Flag()
	if err != nil {
		return nil, err
	}
	if subLayerOrdering {
		return nil, ErrUnsupported
	}
	// vps_max_dec_pic_buffering_minus1, vps_max_num_reorder_pics,
	// vps_max_latency_increase_plus1 for the single sub-layer.
	for i := 0; i < 3; i++ {
		if err := r.SkipUE(); err != nil {
			return nil, err
		}
	}
	maxLayerID, err := r.Bits(6)
	if err != nil {
		return nil, err
	}
	numLayerSetsMinus1, err := r.UE()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(uint(numLayerSetsMinus1) * uint(maxLayerID)); err != nil {
		return nil, err
	}

	timingInfo, err := r.Flag()
	if err != nil {
		return nil, err
	}
	if timingInfo {
		if err := r.Skip(64); err != nil { // num_units_in_tick, time_scale
			return nil, err
		}
		pocProportional, err := r.Flag()
		if err != nil {
			return nil, err
		}
		if pocProportional {
			if err := r.SkipUE(); err != nil {
				return nil, err
			}
		}
		numHRD, err := r.UE()
		if err != nil {
			return nil, err
		}
		if numHRD != 0 {
			return nil, ErrUnsupported
		}
	}

	hasExtension, err := r.Flag()
	if err != nil {
		return nil, err
	}
	if !hasExtension {
		return vps, nil
	}
	if err := decodeVPSExtension(r, vps); err != nil {
		return nil, err
	}
	return vps, nil
}

// decodeVPSExtension decodes the layer-description part of the VPS extension
// and verifies layer 1 is an auxiliary alpha layer.
func decodeVPSExtension(r *Reader, vps *VideoParameterSet) error {
	r.AlignToByte()
	if err := r.Skip(8); err != nil { // vps_extension profile level
		return err
	}
	splitting, err := r.Flag()
	if err != nil {
		return err
	}
	if splitting {
		return ErrUnsupported
	}

	mask, err := r.Bits(16)
	if err != nil {
		return err
	}
	var dimLen [16]uint
	for m := mask; m != 0; m &= m - 1 {
		j := uint(bits.TrailingZeros32(m))
		v, err := r.Bits(3)
		if err != nil {
			return err
		}
		dimLen[j] = uint(v) + 1
	}
	nuhLayerIDPresent, err := r.Flag()
	if err != nil {
		return err
	}

	var layer1ID uint32
	var layer1Dim [16]uint32
	for i := 1; i < vps.MaxLayers; i++ {
		layerID := uint32(i)
		if nuhLayerIDPresent {
			layerID, err = r.Bits(6)
			if err != nil {
				return err
			}
		}
		var dim [16]uint32
		for m := mask; m != 0; m &= m - 1 {
			j := uint(bits.TrailingZeros32(m))
			dim[j], err = r.Bits(dimLen[j])
			if err != nil {
				return err
			}
		}
		if i == 1 {
			layer1ID = layerID
			layer1Dim = dim
		}
	}

	if vps.MaxLayers < 2 || layer1ID > 1 ||
		mask>>auxBitPosition&1 == 0 || layer1Dim[auxBitPosition] != auxAlpha {
		return ErrNoAlphaLayer
	}
	vps.HasAlpha = true
	return nil
}

// maxParamSetID bounds parameter-set ids. Alpha streams carry exactly one
// base SPS/PPS pair and one for the alpha layer.
const maxParamSetID = 2

// SequenceParameterSet holds the decoded fields of an SPS NAL unit.
type SequenceParameterSet struct {
	ID                  uint32
	ChromaFormatIDC     uint32
	SeparateColourPlane bool
	Width               uint32
	Height              uint32
	BitDepthLuma        uint32
	BitDepthChroma      uint32

	// Log2MaxPicOrderCntLSB is the bit width of the pic_order_cnt_lsb
	// slice-header field.
	Log2MaxPicOrderCntLSB uint

	PTL ProfileTierLevel
}

// DecodeSPS decodes a sequence parameter set from an unescaped NAL unit
// (2-byte NAL header included). Streams with temporal sub-layers are rejected
// with ErrUnsupported.
func DecodeSPS(rbsp []byte) (*SequenceParameterSet, error) {
	if len(rbsp) < 3+profileTierLevelSize {
		return nil, ErrUnexpectedEndOfData
	}
	// sps_video_parameter_set_id(4), sps_max_sub_layers_minus1(3), nesting(1).
	if rbsp[2]>>1&0x7 != 0 {
		return nil, ErrUnsupported
	}
	ptl, err := parseProfileTierLevel(rbsp[3:])
	if err != nil {
		return nil, err
	}

	sps := &SequenceParameterSet{PTL: ptl}
	r := NewReader(rbsp[3+profileTierLevelSize:])
	if sps.ID, err = r.UE(); err != nil {
		return nil, err
	}
	if sps.ID >= maxParamSetID {
		return nil, ErrFieldOutOfRange
	}
	if sps.ChromaFormatIDC, err = r.UE(); err != nil {
		return nil, err
	}
	if sps.ChromaFormatIDC == 3 {
		if sps.SeparateColourPlane, err = r.Flag(); err != nil {
			return nil, err
		}
		if sps.SeparateColourPlane {
			sps.ChromaFormatIDC = 0
		}
	}
	if sps.Width, err = r.UE(); err != nil {
		return nil, err
	}
	if sps.Height, err = r.UE(); err != nil {
		return nil, err
	}
	conformanceWindow, err := r.Flag()
	if err != nil {
		return nil, err
	}
	if conformanceWindow {
		for i := 0; i < 4; i++ { // left, right, top, bottom offsets
			if err := r.SkipUE(); err != nil {
				return nil, err
			}
		}
	}
	v, err := r.UE()
	if err != nil {
		return nil, err
	}
	sps.BitDepthLuma = v + 8
	if v, err = r.UE(); err != nil {
		return nil, err
	}
	sps.BitDepthChroma = v + 8
	if v, err = r.UE(); err != nil {
		return nil, err
	}
	sps.Log2MaxPicOrderCntLSB = uint(v) + 4
	if sps.Log2MaxPicOrderCntLSB > 16 {
		return nil, ErrFieldOutOfRange
	}
	return sps, nil
}

// PictureParameterSet holds the slice-header-relevant fields of a PPS NAL
// unit.
type PictureParameterSet struct {
	ID    uint32
	SPSID uint32

	// OutputFlagPresent adds one pic_output_flag bit to every slice header.
	OutputFlagPresent bool

	// NumExtraSliceHeaderBits is the count of reserved bits preceding the
	// slice type in every slice header.
	NumExtraSliceHeaderBits uint
}

// DecodePPS decodes a picture parameter set from an unescaped NAL unit
// (2-byte NAL header included). Dependent slice segments are rejected with
// ErrUnsupported.
func DecodePPS(rbsp []byte) (*PictureParameterSet, error) {
	if len(rbsp) < 3 {
		return nil, ErrUnexpectedEndOfData
	}
	pps := &PictureParameterSet{}
	r := NewReader(rbsp[2:])
	var err error
	if pps.ID, err = r.UE(); err != nil {
		return nil, err
	}
	if pps.ID >= maxParamSetID {
		return nil, ErrFieldOutOfRange
	}
	if pps.SPSID, err = r.UE(); err != nil {
		return nil, err
	}
	if pps.SPSID >= maxParamSetID {
		return nil, ErrFieldOutOfRange
	}
	dependentSlices, err := r.Flag()
	if err != nil {
		return nil, err
	}
	if dependentSlices {
		return nil, ErrUnsupported
	}
	if pps.OutputFlagPresent, err = r.Flag(); err != nil {
		return nil, err
	}
	extra, err := r.Bits(3)
	if err != nil {
		return nil, err
	}
	pps.NumExtraSliceHeaderBits = uint(extra)
	return pps, nil
}
