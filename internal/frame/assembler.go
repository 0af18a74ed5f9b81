// Package frame turns dataset frames into renderables: positions plus
// per-point colors and sizes ready for a renderer.
package frame

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/banshee-data/ptview/internal/trajectory"
	"github.com/banshee-data/ptview/internal/visual"
	"gonum.org/v1/gonum/spatial/r3"
)

// Trail point sizes: the track's first sample is drawn large.
const (
	TrailHeadSize = 10.0
	TrailSize     = 1.0
)

// Renderable is one layer of drawable points. All slices share one length.
// Renderables handed out by a Cache are shared and must not be modified.
type Renderable struct {
	FrameIndex int // -1 for a whole-track trail
	Time       float64
	Positions  []r3.Vec
	Colors     []visual.RGBA
	Sizes      []float64
	TrackIDs   []int
}

// Len returns the number of points.
func (r *Renderable) Len() int { return len(r.Positions) }

// ColorPolicy selects how a layer is colored.
type ColorPolicy int

const (
	// PolicyColorMode colors by the layer's ColorMode, per track.
	PolicyColorMode ColorPolicy = iota
	// PolicyTimeGap colors by each sample's gap to its track predecessor.
	PolicyTimeGap
)

func (p ColorPolicy) String() string {
	if p == PolicyTimeGap {
		return "time_gap"
	}
	return "color_mode"
}

// ParsePolicy reads "color_mode" or "time_gap".
func ParsePolicy(s string) (ColorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color_mode":
		return PolicyColorMode, nil
	case "time_gap":
		return PolicyTimeGap, nil
	}
	return PolicyColorMode, fmt.Errorf("color policy %q: want color_mode or time_gap", s)
}

// Layer configures how one dataset is drawn.
type Layer struct {
	Policy ColorPolicy
	Mode   visual.ColorMode
	Gap    visual.GapOptions
	Sizes  visual.SizeRange

	// FixedSize, when positive, replaces radius-derived sizes.
	FixedSize float64
}

// DefaultLayer colors randomly per track with the default size range.
func DefaultLayer() Layer {
	return Layer{
		Policy: PolicyColorMode,
		Mode:   visual.RandomPerTrack(1),
		Gap:    visual.DefaultGapOptions(),
		Sizes:  visual.DefaultSizeRange(),
	}
}

// Assembler builds renderables for one layer. The random palette is drawn
// once per track index and kept, so a track's color never changes.
// An Assembler is not safe for concurrent use; wrap it in a Cache.
type Assembler struct {
	layer   Layer
	rng     *rand.Rand
	palette []visual.RGBA
}

// NewAssembler creates an assembler. rng seeds the per-track palette; nil
// uses seed 0.
func NewAssembler(layer Layer, rng *rand.Rand) *Assembler {
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &Assembler{layer: layer, rng: rng}
}

// Layer returns the assembler's configuration.
func (a *Assembler) Layer() Layer { return a.layer }

// Palette returns the colors of the first n track indices.
func (a *Assembler) Palette(n int) []visual.RGBA {
	a.growPalette(n)
	out := make([]visual.RGBA, n)
	copy(out, a.palette)
	return out
}

func (a *Assembler) growPalette(n int) {
	if n <= len(a.palette) {
		return
	}
	a.palette = append(a.palette, a.layer.Mode.Palette(n-len(a.palette), a.rng)...)
}

// Build assembles frame frameIndex of ds. It returns an error wrapping
// trajectory.ErrFrameOutOfRange outside [0, ds.FrameCount()).
func (a *Assembler) Build(ds *trajectory.Dataset, frameIndex int) (*Renderable, error) {
	samples, err := ds.SelectFrameIndex(frameIndex)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	links, err := ds.FrameLinks(frameIndex)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	t, _ := ds.TimeAt(frameIndex)

	r := &Renderable{
		FrameIndex: frameIndex,
		Time:       t,
		Positions:  make([]r3.Vec, len(samples)),
		TrackIDs:   make([]int, len(samples)),
	}
	radii := make([]float64, len(samples))
	for i, s := range samples {
		r.Positions[i] = s.Position
		r.TrackIDs[i] = s.TrackID
		radii[i] = s.Radius
	}
	r.Sizes = a.sizes(radii)

	switch a.layer.Policy {
	case PolicyTimeGap:
		classes := make([]visual.GapClass, len(samples))
		positions := make([]float64, len(samples))
		for i, l := range links {
			classes[i] = visual.ClassifyGap(l.First(), t-l.PrevTime, a.layer.Gap.Threshold)
			positions[i] = visual.Position(l.Ordinal, l.TrackLen)
		}
		r.Colors = visual.ColorByClass(classes, positions, a.layer.Gap)
	default:
		a.growPalette(ds.TrackCount())
		r.Colors = make([]visual.RGBA, len(samples))
		for i, l := range links {
			r.Colors[i] = a.palette[l.TrackIndex]
		}
	}
	return r, nil
}

func (a *Assembler) sizes(radii []float64) []float64 {
	if a.layer.FixedSize > 0 {
		out := make([]float64, len(radii))
		for i := range out {
			out[i] = a.layer.FixedSize
		}
		return out
	}
	return visual.NormalizeSize(radii, a.layer.Sizes)
}

// BuildTrack assembles every sample of one track as a trail colored by
// time gap. It returns an error wrapping trajectory.ErrTrackNotFound.
func (a *Assembler) BuildTrack(ds *trajectory.Dataset, trackID int) (*Renderable, error) {
	track, err := ds.SelectTrack(trackID)
	if err != nil {
		return nil, fmt.Errorf("build trail: %w", err)
	}

	r := &Renderable{
		FrameIndex: -1,
		Time:       track[len(track)-1].Time,
		Positions:  make([]r3.Vec, len(track)),
		Sizes:      make([]float64, len(track)),
		TrackIDs:   make([]int, len(track)),
	}
	times := make([]float64, len(track))
	for i, s := range track {
		r.Positions[i] = s.Position
		r.TrackIDs[i] = s.TrackID
		r.Sizes[i] = TrailSize
		times[i] = s.Time
	}
	r.Sizes[0] = TrailHeadSize
	r.Colors = visual.ColorByTimeGap(times, a.layer.Gap)
	return r, nil
}

// Points builds a static layer such as the active-site overlay.
func Points(points []r3.Vec, c visual.RGBA, size float64) *Renderable {
	r := &Renderable{
		FrameIndex: -1,
		Positions:  make([]r3.Vec, len(points)),
		Colors:     make([]visual.RGBA, len(points)),
		Sizes:      make([]float64, len(points)),
		TrackIDs:   make([]int, len(points)),
	}
	copy(r.Positions, points)
	for i := range points {
		r.Colors[i] = c
		r.Sizes[i] = size
		r.TrackIDs[i] = -1
	}
	return r
}
