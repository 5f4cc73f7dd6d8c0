package hevc

// Reader reads bits MSB-first from a byte slice through a 64-bit cache.
// Unlike a per-bit cursor, the cache keeps short fixed-width reads and
// Exp-Golomb scans cheap; every refill is bounds-checked so a truncated
// payload surfaces as ErrUnexpectedEndOfData instead of an out-of-range read.
type Reader struct {
	data  []byte
	pos   int    // next byte to load into the cache
	cache uint64 // unread bits live below the n-th bit
	n     uint   // number of valid bits in the cache
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// refill loads bytes until the cache holds at least need valid bits.
// need must be ≤ 57 so one more byte always fits.
func (r *Reader) refill(need uint) error {
	for r.n < need {
		if r.pos >= len(r.data) {
			return ErrUnexpectedEndOfData
		}
		r.cache = r.cache<<8 | uint64(r.data[r.pos])
		r.pos++
		r.n += 8
	}
	return nil
}

// Bit reads one bit.
func (r *Reader) Bit() (uint32, error) {
	return r.readBits(1)
}

// Flag reads one bit as a bool.
func (r *Reader) Flag() (bool, error) {
	b, err := r.readBits(1)
	return b == 1, err
}

// Bits reads n bits, n ≤ 16.
func (r *Reader) Bits(n uint) (uint32, error) {
	if n > 16 {
		return 0, ErrFieldOutOfRange
	}
	return r.readBits(n)
}

// BitsLong reads n bits, n ≤ 32.
func (r *Reader) BitsLong(n uint) (uint32, error) {
	if n > 32 {
		return 0, ErrFieldOutOfRange
	}
	return r.readBits(n)
}

func (r *Reader) readBits(n uint) (uint32, error) {
	if err := r.refill(n); err != nil {
		return 0, err
	}
	r.n -= n
	return uint32(r.cache>>r.n) & (1<<n - 1), nil
}

// UE reads an unsigned Exp-Golomb code in the range 0..65534. An Exp-Golomb
// code is k leading zero bits, a one bit, and k suffix bits; the value is
// (1<<k) - 1 + suffix. Codes longer than 31 bits (k > 15) exceed the 16-bit
// code budget and fail with ErrFieldOutOfRange.
func (r *Reader) UE() (uint32, error) {
	var k uint
	for {
		b, err := r.readBits(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		if k++; k > 15 {
			return 0, ErrFieldOutOfRange
		}
	}
	if k == 0 {
		return 0, nil
	}
	suffix, err := r.readBits(k)
	if err != nil {
		return 0, err
	}
	return 1<<k - 1 + suffix, nil
}

// SkipUE skips one unsigned Exp-Golomb code.
func (r *Reader) SkipUE() error {
	_, err := r.UE()
	return err
}

// Skip discards n bits.
func (r *Reader) Skip(n uint) error {
	for n > 32 {
		if _, err := r.readBits(32); err != nil {
			return err
		}
		n -= 32
	}
	_, err := r.readBits(n)
	return err
}

// AlignToByte discards bits up to the next byte boundary.
func (r *Reader) AlignToByte() {
	r.n -= r.n % 8
}
