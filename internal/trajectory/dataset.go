package trajectory

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Dataset is an immutable collection of samples indexed by time and track.
type Dataset struct {
	name    string
	samples []Sample // sorted by (Time, TrackID), stable

	timeline   []float64 // distinct times, strictly increasing
	frameStart []int     // frame i is samples[frameStart[i]:frameStart[i+1]]

	trackIDs   []int       // ascending
	trackIndex map[int]int // track id -> position in trackIDs
	tracks     [][]int     // per track, sample indices in time order
	links      []Link      // per sample
}

// Link places a sample within its track.
type Link struct {
	TrackIndex int     // position of the sample's track id in TrackIDs()
	Ordinal    int     // index of the sample within its track
	TrackLen   int     // number of samples in the track
	PrevTime   float64 // time of the previous sample in the track, NaN for the first
}

// First reports whether the sample opens its track.
func (l Link) First() bool {
	return l.Ordinal == 0
}

// NewDataset indexes samples into a Dataset. The input slice is copied.
// It returns ErrEmptyDataset when samples is empty.
func NewDataset(name string, samples []Sample) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDataset)
	}

	d := &Dataset{
		name:       name,
		samples:    make([]Sample, len(samples)),
		trackIndex: make(map[int]int),
	}
	copy(d.samples, samples)
	sort.SliceStable(d.samples, func(i, j int) bool {
		a, b := d.samples[i], d.samples[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.TrackID < b.TrackID
	})

	// Frame index: one span per distinct time.
	for i, s := range d.samples {
		if i == 0 || s.Time != d.samples[i-1].Time {
			d.timeline = append(d.timeline, s.Time)
			d.frameStart = append(d.frameStart, i)
		}
	}
	d.frameStart = append(d.frameStart, len(d.samples))

	// Track index.
	seen := make(map[int]bool)
	for _, s := range d.samples {
		if !seen[s.TrackID] {
			seen[s.TrackID] = true
			d.trackIDs = append(d.trackIDs, s.TrackID)
		}
	}
	sort.Ints(d.trackIDs)
	for i, id := range d.trackIDs {
		d.trackIndex[id] = i
	}
	d.tracks = make([][]int, len(d.trackIDs))
	for i, s := range d.samples {
		ti := d.trackIndex[s.TrackID]
		d.tracks[ti] = append(d.tracks[ti], i)
	}

	d.links = make([]Link, len(d.samples))
	for ti, idx := range d.tracks {
		for ord, si := range idx {
			prev := math.NaN()
			if ord > 0 {
				prev = d.samples[idx[ord-1]].Time
			}
			d.links[si] = Link{TrackIndex: ti, Ordinal: ord, TrackLen: len(idx), PrevTime: prev}
		}
	}

	return d, nil
}

// Name returns the source the dataset was loaded from.
func (d *Dataset) Name() string { return d.name }

// Len returns the total number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// FrameCount returns the number of distinct time values.
func (d *Dataset) FrameCount() int { return len(d.timeline) }

// Timeline returns the distinct time values in ascending order.
func (d *Dataset) Timeline() []float64 {
	out := make([]float64, len(d.timeline))
	copy(out, d.timeline)
	return out
}

// TimeAt returns the time of frame i.
func (d *Dataset) TimeAt(i int) (float64, error) {
	if i < 0 || i >= len(d.timeline) {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, i, len(d.timeline))
	}
	return d.timeline[i], nil
}

// TrackIDs returns the distinct track ids in ascending order.
func (d *Dataset) TrackIDs() []int {
	out := make([]int, len(d.trackIDs))
	copy(out, d.trackIDs)
	return out
}

// TrackCount returns the number of distinct tracks.
func (d *Dataset) TrackCount() int { return len(d.trackIDs) }

// TrackIndex returns the position of id in TrackIDs().
func (d *Dataset) TrackIndex(id int) (int, bool) {
	i, ok := d.trackIndex[id]
	return i, ok
}

// Samples returns a copy of every sample in dataset order.
func (d *Dataset) Samples() []Sample {
	out := make([]Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// SelectFrame returns the samples whose time equals t, ordered by track id.
// It returns an empty slice when t is not on the timeline.
func (d *Dataset) SelectFrame(t float64) []Sample {
	i := sort.SearchFloat64s(d.timeline, t)
	if i >= len(d.timeline) || d.timeline[i] != t {
		return []Sample{}
	}
	return d.frame(i)
}

// SelectFrameIndex returns the samples of frame i.
func (d *Dataset) SelectFrameIndex(i int) ([]Sample, error) {
	if i < 0 || i >= len(d.timeline) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, i, len(d.timeline))
	}
	return d.frame(i), nil
}

// FrameLinks returns the track links of frame i, parallel to SelectFrameIndex(i).
func (d *Dataset) FrameLinks(i int) ([]Link, error) {
	if i < 0 || i >= len(d.timeline) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, i, len(d.timeline))
	}
	lo, hi := d.frameStart[i], d.frameStart[i+1]
	out := make([]Link, hi-lo)
	copy(out, d.links[lo:hi])
	return out, nil
}

func (d *Dataset) frame(i int) []Sample {
	lo, hi := d.frameStart[i], d.frameStart[i+1]
	out := make([]Sample, hi-lo)
	copy(out, d.samples[lo:hi])
	return out
}

// SelectTrack returns the samples of track id ordered by time.
func (d *Dataset) SelectTrack(id int) ([]Sample, error) {
	ti, ok := d.trackIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d in %s", ErrTrackNotFound, id, d.name)
	}
	idx := d.tracks[ti]
	out := make([]Sample, len(idx))
	for i, si := range idx {
		out[i] = d.samples[si]
	}
	return out, nil
}

// Stats summarises a dataset.
type Stats struct {
	SampleCount  int
	FrameCount   int
	TrackCount   int
	MaxFrameSize int
	RadiusMin    float64
	RadiusMax    float64
	RadiusMean   float64
	BoundsMin    r3.Vec
	BoundsMax    r3.Vec
	StartTime    float64
	EndTime      float64
}

// Stats computes summary statistics over all samples.
func (d *Dataset) Stats() Stats {
	radii := make([]float64, len(d.samples))
	lo := d.samples[0].Position
	hi := lo
	for i, s := range d.samples {
		radii[i] = s.Radius
		lo = r3.Vec{X: math.Min(lo.X, s.Position.X), Y: math.Min(lo.Y, s.Position.Y), Z: math.Min(lo.Z, s.Position.Z)}
		hi = r3.Vec{X: math.Max(hi.X, s.Position.X), Y: math.Max(hi.Y, s.Position.Y), Z: math.Max(hi.Z, s.Position.Z)}
	}

	maxFrame := 0
	for i := range d.timeline {
		if n := d.frameStart[i+1] - d.frameStart[i]; n > maxFrame {
			maxFrame = n
		}
	}

	return Stats{
		SampleCount:  len(d.samples),
		FrameCount:   len(d.timeline),
		TrackCount:   len(d.trackIDs),
		MaxFrameSize: maxFrame,
		RadiusMin:    floats.Min(radii),
		RadiusMax:    floats.Max(radii),
		RadiusMean:   stat.Mean(radii, nil),
		BoundsMin:    lo,
		BoundsMax:    hi,
		StartTime:    d.timeline[0],
		EndTime:      d.timeline[len(d.timeline)-1],
	}
}
