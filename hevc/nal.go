// Package hevc decodes the subset of the H.265 bitstream needed to play an
// HEVC-with-Alpha movie: the hvcC configuration record, parameter sets, the
// alpha-channel SEI message, and the slice-header prefix carrying the picture
// order count.
package hevc

// H.265 NAL unit type constants as defined in ITU-T H.265 Table 7-1.
const (
	NALTrailN    = 0
	NALTrailR    = 1
	NALBlaWLP    = 16
	NALBlaWRadl  = 17
	NALBlaNLP    = 18
	NALIDRWRadl  = 19
	NALIDRNLP    = 20
	NALCraNut    = 21
	NALIrapVCL23 = 23
	NALVPS       = 32
	NALSPS       = 33
	NALPPS       = 34
	NALAUD       = 35
	NALSEIPrefix = 39
)

// NALType extracts the NAL unit type from the first byte of an HEVC 2-byte
// NAL header: forbidden(1) | type(6) | layerID_high(1).
func NALType(firstByte byte) byte {
	return (firstByte >> 1) & 0x3F
}

// IsIDR returns true if the NAL type is an Instantaneous Decoding Refresh
// picture (IDR_W_RADL or IDR_N_LP).
func IsIDR(nalType byte) bool {
	return nalType-NALIDRWRadl <= NALIDRNLP-NALIDRWRadl
}

// IsBLA returns true if the NAL type is a Broken Link Access picture.
func IsBLA(nalType byte) bool {
	return nalType-NALBlaWLP <= NALBlaWRadl-NALBlaWLP
}

// IsIRAP returns true if the NAL type is an Intra Random Access Point
// picture (BLA, IDR, CRA, or the reserved IRAP range).
func IsIRAP(nalType byte) bool {
	return nalType-NALBlaWLP <= NALIrapVCL23-NALBlaWLP
}
