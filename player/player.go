package player

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zsiec/opal/hevc"
	"github.com/zsiec/opal/quicktime"
)

// Player owns one open movie: the parsed stream configuration, the
// decode-order sample table, a decode session, and the reorder cache. Frames
// are pulled with NextFrame; the caller drives pacing.
type Player struct {
	log    *slog.Logger
	engine Engine
	data   []byte

	cfg       *hevc.StreamConfig
	engineCfg Config
	samples   []Sample
	maxPOC    uint32
	pocIndex  []int32 // picture order count -> decode index, -1 for gaps
	timeScale uint32
	duration  uint64 // media time units

	cache     *reorderCache
	needReset atomic.Bool

	mu         sync.Mutex
	session    EngineSession
	nextDecode int // decode-order cursor, cyclic
	nextSlot   int // picture-order cursor, cyclic
	frameCount int // frames presented this pass
	loop       bool
	closed     bool
}

// Open parses a complete QuickTime stream, builds the sample table, and
// creates a decode session on engine. A nil logger falls back to
// slog.Default().
func Open(data []byte, engine Engine, log *slog.Logger) (*Player, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "player")

	idx, err := quicktime.ParseIndex(data)
	if err != nil {
		return nil, err
	}
	if !idx.ValidFileType() {
		return nil, fmt.Errorf("%w: not a QuickTime movie", quicktime.ErrMalformedContainer)
	}
	desc, err := idx.FindHEVCDescription()
	if err != nil {
		return nil, err
	}
	cfg, err := hevc.DecodeConfigurationRecord(desc.HVCC)
	if err != nil {
		return nil, err
	}
	table, err := buildSampleTable(idx, cfg, data)
	if err != nil {
		return nil, err
	}

	p := &Player{
		log:    log,
		engine: engine,
		data:   data,
		cfg:    cfg,
		engineCfg: Config{
			Width:         desc.Width,
			Height:        desc.Height,
			Record:        desc.HVCC,
			Premultiplied: cfg.Premultiplied(),
		},
		samples:   table.samples,
		maxPOC:    table.maxPOC,
		timeScale: idx.TimeScale(),
		duration:  table.totalDuration,
		cache:     newReorderCache(int(table.maxPOC) + 1),
	}
	p.pocIndex = make([]int32, table.maxPOC+1)
	for i := range p.pocIndex {
		p.pocIndex[i] = -1
	}
	for i := range p.samples {
		p.pocIndex[p.samples[i].PictureOrderCount] = int32(i)
	}

	p.session, err = engine.Create(p.engineCfg)
	if err != nil {
		return nil, err
	}
	log.Info("stream opened",
		"samples", len(p.samples),
		"width", desc.Width, "height", desc.Height,
		"max_poc", p.maxPOC,
		"premultiplied", p.engineCfg.Premultiplied)
	return p, nil
}

// NumSamples returns the number of video samples.
func (p *Player) NumSamples() int { return len(p.samples) }

// MaxPictureOrderCount returns the largest picture order count in the stream.
func (p *Player) MaxPictureOrderCount() uint32 { return p.maxPOC }

// PictureOrderCount returns the picture order count of the decode-order
// sample i.
func (p *Player) PictureOrderCount(i int) uint32 {
	return p.samples[i].PictureOrderCount
}

// Premultiplied reports whether color samples are premultiplied by alpha.
func (p *Player) Premultiplied() bool { return p.engineCfg.Premultiplied }

// Width returns the coded picture width in pixels.
func (p *Player) Width() int { return p.engineCfg.Width }

// Height returns the coded picture height in pixels.
func (p *Player) Height() int { return p.engineCfg.Height }

// TimeScale returns the stream's media time units per second, or 0 when the
// stream carries no media header.
func (p *Player) TimeScale() uint32 { return p.timeScale }

// Duration returns the total presentation duration in seconds, or 0 when the
// stream carries no timing tables.
func (p *Player) Duration() float64 {
	if p.timeScale == 0 {
		return 0
	}
	return float64(p.duration) / float64(p.timeScale)
}

// FrameAt maps a presentation time in seconds to the picture order count of
// the frame displayed at that time, by accumulating per-frame durations in
// presentation order. Times past the end clamp to the last picture.
func (p *Player) FrameAt(seconds float64) uint32 {
	if p.timeScale == 0 || seconds <= 0 {
		return 0
	}
	target := uint64(seconds * float64(p.timeScale))
	var acc uint64
	for poc, i := range p.pocIndex {
		if i < 0 {
			continue
		}
		acc += uint64(p.samples[i].Duration)
		if acc > target {
			return uint32(poc)
		}
	}
	return p.maxPOC
}

// SetLoop selects whether playback restarts from the first picture after the
// last one is presented.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

// Rewind restarts playback from the first picture. In-flight decodes are
// invalidated and ready frames released.
func (p *Player) Rewind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rewindLocked()
}

func (p *Player) rewindLocked() {
	p.nextDecode = 0
	p.nextSlot = 0
	p.frameCount = 0
	p.cache.clear()
}

// Close destroys the decode session and releases all cached frames. The
// player cannot be reused afterwards.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.session.Destroy()
	p.cache.clear()
}
