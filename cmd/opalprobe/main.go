package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/zsiec/opal/hevc"
	"github.com/zsiec/opal/player"
	"github.com/zsiec/opal/quicktime"
)

var version = "dev"

func main() {
	samples := flag.Int("samples", 16, "number of sample-table rows to print (0 for all)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: opalprobe [flags] <file.mov>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("opalprobe", version)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := probe(flag.Arg(0), *samples); err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func probe(path string, sampleRows int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	idx, err := quicktime.ParseIndex(data)
	if err != nil {
		return err
	}
	fmt.Printf("file: %s (%d bytes)\n", path, len(data))
	fmt.Printf("quicktime brand valid: %v\n", idx.ValidFileType())

	desc, err := idx.FindHEVCDescription()
	if err != nil {
		return err
	}
	fmt.Printf("video: hvc1 %dx%d, hvcC %d bytes\n", desc.Width, desc.Height, len(desc.HVCC))

	cfg, err := hevc.DecodeConfigurationRecord(desc.HVCC)
	if err != nil {
		return err
	}
	describeConfig(os.Stdout, cfg)

	p, err := player.Open(data, nopEngine{}, slog.Default())
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("samples: %d, max poc %d, timescale %d, duration %.3fs\n",
		p.NumSamples(), p.MaxPictureOrderCount(), p.TimeScale(), p.Duration())

	n := p.NumSamples()
	if sampleRows > 0 && sampleRows < n {
		n = sampleRows
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(w, "sample\tpoc")
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%d\t%d\n", i, p.PictureOrderCount(i))
	}
	if n < p.NumSamples() {
		fmt.Fprintf(w, "…\t(%d more)\n", p.NumSamples()-n)
	}
	return w.Flush()
}

// describeConfig prints the parameter-set summary of a configuration record.
// A record may carry an alpha VPS without a base SPS; that prints a note
// instead of dereferencing a missing parameter set.
func describeConfig(w io.Writer, cfg *hevc.StreamConfig) {
	if sps := cfg.Base(); sps != nil {
		fmt.Fprintf(w, "profile: idc=%d tier=%d level=%d\n", sps.PTL.ProfileIDC, sps.PTL.Tier, sps.PTL.LevelIDC)
		fmt.Fprintf(w, "coded: %dx%d, chroma=%d, bit depth %d/%d\n",
			sps.Width, sps.Height, sps.ChromaFormatIDC, sps.BitDepthLuma, sps.BitDepthChroma)
	} else {
		fmt.Fprintln(w, "no base SPS in configuration record")
	}
	if cfg.Alpha != nil {
		fmt.Fprintf(w, "alpha: use_idc=%d premultiplied=%v transparent=%d opaque=%d\n",
			cfg.Alpha.UseIDC, cfg.Premultiplied(),
			cfg.Alpha.TransparentValue, cfg.Alpha.OpaqueValue)
	} else {
		fmt.Fprintln(w, "alpha: layer present, no alpha channel SEI")
	}
}

// nopEngine satisfies player.Engine without decoding; opalprobe only needs
// the parsing and sample-table side of Open.
type nopEngine struct{}

func (nopEngine) Create(player.Config) (player.EngineSession, error) {
	return nopSession{}, nil
}

type nopSession struct{}

func (nopSession) Submit([]byte, func(player.Image, error)) error { return nil }
func (nopSession) Destroy()                                       {}
