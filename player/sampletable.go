package player

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/opal/hevc"
	"github.com/zsiec/opal/quicktime"
)

// Sample describes one video sample in decode order: where its bytes live in
// the stream, how long it is presented, and which picture it produces.
type Sample struct {
	Offset            uint32
	Size              uint32
	Duration          uint32 // media time units; 0 when the stream has no stts
	PictureOrderCount uint32
}

// sampleTable is the decode-order sample table plus the aggregates the
// scheduler needs.
type sampleTable struct {
	samples       []Sample
	maxPOC        uint32
	totalDuration uint64
}

// buildSampleTable derives the flat sample table from the stsc/stsz/stco
// run-length encoding, reads every sample's picture order count from its
// slice header, and fills per-sample durations from stts when present.
// Inconsistencies between the tables fail with
// quicktime.ErrMalformedContainer.
func buildSampleTable(idx *quicktime.Index, cfg *hevc.StreamConfig, data []byte) (*sampleTable, error) {
	sizes, err := idx.SampleSizes()
	if err != nil {
		return nil, err
	}
	stsc, err := idx.SampleToChunk()
	if err != nil {
		return nil, err
	}
	stco, err := idx.ChunkOffsets()
	if err != nil {
		return nil, err
	}

	perChunk, err := samplesPerChunk(stsc, stco.Count())
	if err != nil {
		return nil, err
	}
	if sizes.FixedSize() == 0 {
		var total uint64
		for _, n := range perChunk {
			total += uint64(n)
		}
		if total != uint64(sizes.Count()) {
			return nil, fmt.Errorf("%w: chunk layout yields %d samples, stsz declares %d",
				quicktime.ErrMalformedContainer, total, sizes.Count())
		}
	}

	samples, err := layoutSamples(sizes, stco, perChunk, uint32(len(data)))
	if err != nil {
		return nil, err
	}

	t := &sampleTable{samples: samples}
	if err := t.readPictureOrderCounts(cfg, data); err != nil {
		return nil, err
	}
	if idx.HasSampleDurations() {
		if err := t.readDurations(idx); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// samplesPerChunk expands the stsc run-length entries into a per-chunk sample
// count. Entries assign their count from their first chunk up to the next
// entry's first chunk, so the walk runs from the last entry backwards.
func samplesPerChunk(stsc *quicktime.SampleToChunk, chunkCount uint32) ([]uint32, error) {
	perChunk := make([]uint32, chunkCount)
	next := chunkCount // 1-based exclusive upper bound of the current run
	for i := stsc.Count(); i > 0; i-- {
		first, count := stsc.Entry(i - 1)
		if first == 0 || first > next {
			return nil, fmt.Errorf("%w: stsc first chunk %d out of order", quicktime.ErrMalformedContainer, first)
		}
		for c := first; c <= next; c++ {
			perChunk[c-1] = count
		}
		next = first - 1
	}
	if next != 0 {
		return nil, fmt.Errorf("%w: stsc leaves %d chunks unassigned", quicktime.ErrMalformedContainer, next)
	}
	return perChunk, nil
}

// layoutSamples assigns every sample its size and absolute offset, walking
// chunks in order and accumulating offsets within each chunk.
func layoutSamples(sizes *quicktime.SampleSizes, stco *quicktime.ChunkOffsets, perChunk []uint32, streamSize uint32) ([]Sample, error) {
	count := sizes.Count()
	samples := make([]Sample, count)
	var s uint32
	for c := range perChunk {
		offset := stco.Offset(uint32(c))
		for n := perChunk[c]; n > 0 && s < count; n-- {
			size := sizes.Size(s)
			if size > streamSize || offset > streamSize-size {
				return nil, fmt.Errorf("%w: sample %d at %#x overruns the stream",
					quicktime.ErrMalformedContainer, s, offset)
			}
			samples[s] = Sample{Offset: offset, Size: size}
			offset += size
			s++
		}
	}
	if s != count {
		return nil, fmt.Errorf("%w: chunk layout yields %d samples, stsz declares %d",
			quicktime.ErrMalformedContainer, s, count)
	}
	return samples, nil
}

// readPictureOrderCounts decodes every sample's slice-header POC. The samples
// are independent, so the pass fans out across CPUs.
func (t *sampleTable) readPictureOrderCounts(cfg *hevc.StreamConfig, data []byte) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range t.samples {
		i := i
		g.Go(func() error {
			s := &t.samples[i]
			poc, err := cfg.SliceHeaderPOC(data[s.Offset : s.Offset+s.Size])
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			s.PictureOrderCount = poc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range t.samples {
		if poc := t.samples[i].PictureOrderCount; poc > t.maxPOC {
			t.maxPOC = poc
		}
	}
	return nil
}

// readDurations expands the stts run-length entries onto the decode-order
// samples. A run that extends past the sample count is malformed; samples
// past the last run keep duration 0.
func (t *sampleTable) readDurations(idx *quicktime.Index) error {
	stts, err := idx.TimeToSample()
	if err != nil {
		return err
	}
	var s uint64
	for i := uint32(0); i < stts.Count(); i++ {
		count, duration := stts.Entry(i)
		if s+uint64(count) > uint64(len(t.samples)) {
			return fmt.Errorf("%w: stts covers %d samples, table has %d",
				quicktime.ErrMalformedContainer, s+uint64(count), len(t.samples))
		}
		for n := count; n > 0; n-- {
			t.samples[s].Duration = duration
			t.totalDuration += uint64(duration)
			s++
		}
	}
	return nil
}
