package visual

// GapClass labels a sample by the time elapsed since its predecessor.
type GapClass int

const (
	// Rest marks a sample that follows its predecessor closely.
	Rest GapClass = iota
	// Jump marks the first sample or one after a gap above the threshold.
	Jump
)

func (g GapClass) String() string {
	if g == Jump {
		return "jump"
	}
	return "rest"
}

// DefaultGapThreshold is the gap, in time units, above which a sample is a Jump.
const DefaultGapThreshold = 0.5

// ClassifyTimeGaps labels each time by the gap to the previous one. The
// first element is always a Jump. times is expected in ascending order.
func ClassifyTimeGaps(times []float64, threshold float64) []GapClass {
	out := make([]GapClass, len(times))
	for i := range times {
		var gap float64
		if i > 0 {
			gap = times[i] - times[i-1]
		}
		out[i] = ClassifyGap(i == 0, gap, threshold)
	}
	return out
}

// ClassifyGap labels a single sample. first reports whether it opens its
// track; gap is ignored in that case.
func ClassifyGap(first bool, gap, threshold float64) GapClass {
	if first || gap > threshold {
		return Jump
	}
	return Rest
}

// Gradient varies some channels of a base color along a sequence.
type Gradient struct {
	Channels []int   // indices into RGBA, e.g. Green and Blue
	From     float64 // value at position 0
	To       float64 // value at position 1
}

// ClassColor is the color assigned to a GapClass. A nil Gradient keeps
// Base constant.
type ClassColor struct {
	Base     RGBA
	Gradient *Gradient
}

// At returns the color at normalized position u in [0,1].
func (cc ClassColor) At(u float64) RGBA {
	c := cc.Base
	if cc.Gradient == nil {
		return c
	}
	v := cc.Gradient.From + (cc.Gradient.To-cc.Gradient.From)*u
	for _, ch := range cc.Gradient.Channels {
		if ch >= 0 && ch < len(c) {
			c[ch] = v
		}
	}
	return c
}

// GapOptions configures time-gap coloring.
type GapOptions struct {
	Threshold float64
	Rest      ClassColor
	Jump      ClassColor
}

// DefaultGapOptions reproduces the trail viewer: resting samples fade
// from pale red to red along the trail, jumps are opaque blue.
func DefaultGapOptions() GapOptions {
	return GapOptions{
		Threshold: DefaultGapThreshold,
		Rest: ClassColor{
			Base:     RGBA{1, 0.7, 0.7, 0.5},
			Gradient: &Gradient{Channels: []int{Green, Blue}, From: 0.7, To: 0},
		},
		Jump: ClassColor{Base: RGBA{0, 0, 1, 1}},
	}
}

// Color returns the class color at position u.
func (o GapOptions) Color(class GapClass, u float64) RGBA {
	if class == Jump {
		return o.Jump.At(u)
	}
	return o.Rest.At(u)
}

// Position normalizes index i of n to [0,1]; a single element sits at 0.
func Position(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// ColorByTimeGap classifies times and colors each element by its class,
// with gradient position i/(n-1).
func ColorByTimeGap(times []float64, opts GapOptions) []RGBA {
	classes := ClassifyTimeGaps(times, opts.Threshold)
	positions := make([]float64, len(times))
	for i := range positions {
		positions[i] = Position(i, len(times))
	}
	return ColorByClass(classes, positions, opts)
}

// ColorByClass colors precomputed classes at the given gradient positions.
// classes and positions must have equal length.
func ColorByClass(classes []GapClass, positions []float64, opts GapOptions) []RGBA {
	out := make([]RGBA, len(classes))
	for i, c := range classes {
		out[i] = opts.Color(c, positions[i])
	}
	return out
}
