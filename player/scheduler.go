package player

import "fmt"

// Frame is one decoded picture in presentation order. The caller must call
// Image.Release when done displaying it.
type Frame struct {
	Image             Image
	PictureOrderCount uint32
	Duration          uint32 // media time units; 0 when the stream has no stts
}

// NextFrame returns the next picture in presentation order. It never blocks
// on a decode: if the target picture has not completed yet it keeps the
// decode pipeline fed (submitting samples in decode order, at most one
// outstanding request per picture) and returns ErrNotReady; the caller
// retries on its next display tick. After the last picture it either rewinds
// (looping) or returns ErrFinished.
func (p *Player) NextFrame() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.needReset.Swap(false) {
		if err := p.rebuildSessionLocked(); err != nil {
			return nil, err
		}
	}
	if p.frameCount == len(p.samples) {
		if !p.loop {
			return nil, ErrFinished
		}
		p.rewindLocked()
	}

	target := uint32(p.nextSlot)
	if img, ok := p.cache.take(target); ok {
		return p.presentLocked(target, img), nil
	}
	if err := p.fillLocked(target); err != nil {
		return nil, err
	}
	if img, ok := p.cache.take(target); ok {
		return p.presentLocked(target, img), nil
	}
	return nil, ErrNotReady
}

// fillLocked advances the decode cursor, submitting samples whose slots are
// empty, until the target picture has been requested. The walk is bounded by
// the sample count so a full pipeline cannot spin.
func (p *Player) fillLocked(target uint32) error {
	for steps := 0; steps < len(p.samples) && p.cache.stateOf(target) == slotEmpty; steps++ {
		s := p.samples[p.nextDecode]
		p.nextDecode = (p.nextDecode + 1) % len(p.samples)

		poc := s.PictureOrderCount
		if p.cache.stateOf(poc) != slotEmpty {
			continue
		}
		session := p.cache.markPending(poc)
		err := p.session.Submit(p.data[s.Offset:s.Offset+s.Size], func(img Image, err error) {
			p.decoded(poc, img, err, session)
		})
		if err != nil {
			p.cache.fail(poc, session)
			p.needReset.Store(true)
			return fmt.Errorf("submit picture %d: %w", poc, err)
		}
	}
	return nil
}

// decoded is the engine completion callback. It runs on an arbitrary
// goroutine and touches only the cache and the reset flag, never the
// scheduler state.
func (p *Player) decoded(poc uint32, img Image, err error, session uint64) {
	if err != nil {
		p.log.Warn("decode failed", "poc", poc, "error", err)
		if img != nil {
			img.Release()
		}
		p.cache.fail(poc, session)
		p.needReset.Store(true)
		return
	}
	p.cache.complete(poc, img, session)
}

func (p *Player) presentLocked(poc uint32, img Image) *Frame {
	p.frameCount++
	p.nextSlot = (p.nextSlot + 1) % len(p.pocIndex)
	f := &Frame{Image: img, PictureOrderCount: poc}
	if i := p.pocIndex[poc]; i >= 0 {
		f.Duration = p.samples[i].Duration
	}
	return f
}

// rebuildSessionLocked recovers from a decode failure by tearing the engine
// session down and starting a fresh one. The cache is cleared so completions
// from the old session are dropped; pictures are re-requested on subsequent
// pulls.
func (p *Player) rebuildSessionLocked() error {
	p.log.Warn("rebuilding decode session")
	p.session.Destroy()
	p.cache.clear()
	session, err := p.engine.Create(p.engineCfg)
	if err != nil {
		p.needReset.Store(true)
		return err
	}
	p.session = session
	return nil
}
