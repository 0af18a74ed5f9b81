package visual

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// ModeKind selects how a ColorMode assigns colors.
type ModeKind int

const (
	// ModeFixed paints every element with one color.
	ModeFixed ModeKind = iota
	// ModeRandomPerTrack gives each track its own random color.
	ModeRandomPerTrack
)

// Random palette channels are drawn from [paletteLow, paletteHigh].
const (
	paletteLow  = 0.1
	paletteHigh = 0.5
)

// ColorMode is either Fixed or RandomPerTrack. Construct it with those
// functions or ParseColorMode.
type ColorMode struct {
	Kind  ModeKind
	Fixed RGBA    // used by ModeFixed
	Alpha float64 // used by ModeRandomPerTrack
}

// Fixed returns a mode painting every element c.
func Fixed(c RGBA) ColorMode {
	return ColorMode{Kind: ModeFixed, Fixed: c}
}

// RandomPerTrack returns a mode giving each track a random dark color with
// the given alpha.
func RandomPerTrack(alpha float64) ColorMode {
	return ColorMode{Kind: ModeRandomPerTrack, Alpha: alpha}
}

// Palette returns one color per track index. For RandomPerTrack the RGB
// channels are uniform in [0.1, 0.5]; rng fixes the sequence so a palette
// is stable for the lifetime of a session. A nil rng uses seed 0.
func (m ColorMode) Palette(trackCount int, rng *rand.Rand) []RGBA {
	out := make([]RGBA, trackCount)
	if m.Kind == ModeFixed {
		for i := range out {
			out[i] = m.Fixed
		}
		return out
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	for i := range out {
		var c RGBA
		for ch := Red; ch <= Blue; ch++ {
			c[ch] = paletteLow + rng.Float64()*(paletteHigh-paletteLow)
		}
		c[Alpha] = m.Alpha
		out[i] = c
	}
	return out
}

func (m ColorMode) String() string {
	if m.Kind == ModeRandomPerTrack {
		return "random:" + strconv.FormatFloat(m.Alpha, 'g', -1, 64)
	}
	return "fixed:" + m.Fixed.String()
}

// ParseColorMode reads "fixed:r,g,b[,a]", "random:alpha" or "random"
// (alpha 1).
func ParseColorMode(s string) (ColorMode, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	switch strings.ToLower(kind) {
	case "fixed":
		c, err := ParseRGBA(arg)
		if err != nil {
			return ColorMode{}, fmt.Errorf("color mode %q: %w", s, err)
		}
		return Fixed(c), nil
	case "random":
		if arg == "" {
			return RandomPerTrack(1), nil
		}
		a, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil || math.IsNaN(a) || a < 0 || a > 1 {
			return ColorMode{}, fmt.Errorf("color mode %q: alpha must be a number in [0,1]", s)
		}
		return RandomPerTrack(a), nil
	}
	return ColorMode{}, fmt.Errorf("color mode %q: want fixed:r,g,b,a or random:alpha", s)
}
