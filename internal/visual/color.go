// Package visual maps sample attributes to drawable ones: radii to point
// sizes, time gaps to trail colors and track identity to palette colors.
// All functions are pure.
package visual

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// RGBA is a color with four channels in [0,1].
type RGBA [4]float64

// Channel indices into RGBA.
const (
	Red = iota
	Green
	Blue
	Alpha
)

// Common colors.
var (
	White = RGBA{1, 1, 1, 1}
	Black = RGBA{0, 0, 0, 1}
)

// Color converts to a non-premultiplied 8-bit color, clamping each channel.
func (c RGBA) Color() color.NRGBA {
	return color.NRGBA{R: to8(c[Red]), G: to8(c[Green]), B: to8(c[Blue]), A: to8(c[Alpha])}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Lerp interpolates linearly between c and d; u=0 yields c, u=1 yields d.
func (c RGBA) Lerp(d RGBA, u float64) RGBA {
	var out RGBA
	for i := range c {
		out[i] = c[i] + (d[i]-c[i])*u
	}
	return out
}

// WithAlpha returns c with its alpha channel replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c[Alpha] = a
	return c
}

func (c RGBA) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseRGBA reads "r,g,b,a" (or "r,g,b", alpha 1). Channels must lie in [0,1].
func ParseRGBA(s string) (RGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return RGBA{}, fmt.Errorf("color %q: want 3 or 4 comma-separated channels", s)
	}
	c := RGBA{0, 0, 0, 1}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RGBA{}, fmt.Errorf("color %q: channel %d: %w", s, i, err)
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return RGBA{}, fmt.Errorf("color %q: channel %d out of range [0,1]", s, i)
		}
		c[i] = v
	}
	return c, nil
}
