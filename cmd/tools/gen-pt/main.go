// Command gen-pt generates random-walk .pt trajectory files for trying the
// viewer. A .zst or .gz suffix on the output compresses it.
package main

import (
	"flag"
	"log"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/trajectory"
)

func main() {
	output := flag.String("o", "sample.pt", "output path")
	frames := flag.Int("n", 100, "number of frames")
	tracks := flag.Int("tracks", 20, "number of walkers")
	dt := flag.Float64("dt", 0.1, "seconds between frames")
	gap := flag.Float64("gap", 0.05, "chance a walker skips a frame")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *frames <= 0 || *tracks <= 0 || *dt <= 0 {
		log.Fatalf("-n, -tracks and -dt must be positive")
	}

	gen := trajectory.NewSyntheticGenerator(*seed)
	gen.FrameCount = *frames
	gen.TrackCount = *tracks
	gen.TimeStep = *dt
	gen.GapProbability = *gap

	samples := gen.Generate()
	if err := trajectory.Save(fsutil.OSFileSystem{}, *output, samples); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d samples, %d frames, %d tracks)", *output, len(samples), *frames, *tracks)
}
