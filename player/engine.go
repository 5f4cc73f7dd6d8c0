// Package player turns a parsed HEVC-with-Alpha QuickTime movie into a
// pull-driven frame source: it builds the decode-order sample table, feeds
// samples to a decode engine, reorders completed pictures by picture order
// count, and hands them out in presentation order.
package player

// Config carries the stream parameters a decode engine needs to open a
// session.
type Config struct {
	Width  int
	Height int

	// Record is the raw hvcC decoder configuration record payload.
	Record []byte

	// Premultiplied reports whether color samples are premultiplied by
	// alpha, per the stream's alpha channel SEI.
	Premultiplied bool
}

// Image is an owned handle to one decoded picture. The receiver of an Image
// must call Release exactly once when done with it.
type Image interface {
	Release()
}

// EngineSession is one open decode session. Submit hands over a
// length-prefixed sample for asynchronous decode; done is invoked exactly
// once, on any goroutine, with either a decoded image or an error. Destroy
// tears the session down; callbacks for in-flight samples may still arrive
// afterwards and must be tolerated.
type EngineSession interface {
	Submit(sample []byte, done func(Image, error)) error
	Destroy()
}

// Engine creates decode sessions. Implementations wrap a hardware or
// software HEVC decoder capable of layered alpha output.
type Engine interface {
	Create(cfg Config) (EngineSession, error)
}
