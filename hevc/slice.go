package hevc

// SliceHeaderPOC reads the picture order count LSB from the first slice of a
// length-prefixed sample: a 4-byte big-endian NAL length, the 2-byte NAL
// header, then the slice header bits. IDR pictures have no coded POC and
// return 0. Slices that are not the first segment of their picture are
// rejected with ErrUnsupported.
//
// Slice samples are read raw: the slice-header prefix never spans enough
// zero bytes to contain an emulation-prevention sequence, so no unescaping
// pass is needed.
func (c *StreamConfig) SliceHeaderPOC(sample []byte) (uint32, error) {
	if len(sample) < 6 {
		return 0, ErrUnexpectedEndOfData
	}
	length := be.Uint32(sample)
	if uint64(length)+4 > uint64(len(sample)) || length < 2 {
		return 0, ErrUnexpectedEndOfData
	}
	nalType := NALType(sample[4])

	r := NewReader(sample[6 : 4+length])
	firstSlice, err := r.Flag()
	if err != nil {
		return 0, err
	}
	if !firstSlice {
		return 0, ErrUnsupported
	}
	if IsIRAP(nalType) {
		if err := r.Skip(1); err != nil { // no_output_of_prior_pics_flag
			return 0, err
		}
	}
	ppsID, err := r.UE()
	if err != nil {
		return 0, err
	}
	if ppsID >= maxParamSetID {
		return 0, ErrFieldOutOfRange
	}
	pps := c.PPS[ppsID]
	if pps == nil {
		return 0, ErrFieldOutOfRange
	}
	sps := c.SPS[pps.SPSID]
	if sps == nil {
		return 0, ErrFieldOutOfRange
	}

	if err := r.Skip(pps.NumExtraSliceHeaderBits); err != nil {
		return 0, err
	}
	if err := r.SkipUE(); err != nil { // slice_type
		return 0, err
	}
	if pps.OutputFlagPresent {
		if err := r.Skip(1); err != nil { // pic_output_flag
			return 0, err
		}
	}
	if sps.SeparateColourPlane {
		if err := r.Skip(2); err != nil { // colour_plane_id
			return 0, err
		}
	}
	if IsIDR(nalType) {
		return 0, nil
	}
	return r.Bits(sps.Log2MaxPicOrderCntLSB)
}
