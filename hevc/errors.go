package hevc

import "errors"

// Sentinel errors for bitstream parsing. These enable callers to
// programmatically distinguish failure modes using errors.Is.
var (
	// ErrUnexpectedEndOfData indicates a read past the end of a NAL payload
	// or parameter set.
	ErrUnexpectedEndOfData = errors.New("hevc: unexpected end of data")

	// ErrFieldOutOfRange indicates a decoded value that exceeds a modeled
	// table bound (parameter-set ids, Exp-Golomb codes longer than 31 bits).
	ErrFieldOutOfRange = errors.New("hevc: field out of range")

	// ErrPayloadTooLarge indicates a parameter-set NAL unit larger than the
	// 256-byte RBSP bound.
	ErrPayloadTooLarge = errors.New("hevc: NAL payload too large")

	// ErrNoAlphaLayer indicates a stream whose VPS extension does not declare
	// an auxiliary alpha layer.
	ErrNoAlphaLayer = errors.New("hevc: stream has no alpha layer")

	// ErrUnsupported indicates a recognized-but-unimplemented bitstream
	// construct: multiple temporal sub-layers, HRD parameters, dependent
	// slice segments, extended SEI type/size encodings. These are deliberate
	// scope boundaries; decoding must fail loudly rather than guess.
	ErrUnsupported = errors.New("hevc: unsupported bitstream feature")
)
