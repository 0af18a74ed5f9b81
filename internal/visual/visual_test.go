package visual

import (
	"image/color"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		radii []float64
		want  []float64
	}{
		{"degenerate", []float64{3, 3, 3}, []float64{8, 8, 8}},
		{"two values", []float64{1, 5}, []float64{2, 12}},
		{"midpoint", []float64{0, 1, 2}, []float64{2, 7, 12}},
		{"single", []float64{0.25}, []float64{5.25}},
		{"empty", []float64{}, []float64{}},
		{"nil", nil, []float64{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeSize(tt.radii, DefaultSizeRange())
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("NormalizeSize(%v) mismatch (-want +got):\n%s", tt.radii, diff)
			}
		})
	}
}

func TestNormalizeSize_WithinRange(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	radii := make([]float64, 200)
	for i := range radii {
		radii[i] = rng.Float64() * 40
	}
	sr := SizeRange{Min: 1, Max: 3, DegenerateOffset: 0}
	for _, s := range NormalizeSize(radii, sr) {
		require.GreaterOrEqual(t, s, 1.0-1e-12)
		require.LessOrEqual(t, s, 3.0+1e-12)
	}
}

func TestClassifyTimeGaps(t *testing.T) {
	t.Parallel()

	got := ClassifyTimeGaps([]float64{0, 0.2, 0.9, 1.0}, 0.5)
	assert.Equal(t, []GapClass{Jump, Rest, Jump, Rest}, got)

	assert.Empty(t, ClassifyTimeGaps(nil, 0.5))
	assert.Equal(t, []GapClass{Jump}, ClassifyTimeGaps([]float64{3}, 0.5))

	// Equal to the threshold is still a rest.
	assert.Equal(t, []GapClass{Jump, Rest}, ClassifyTimeGaps([]float64{0, 0.5}, 0.5))
}

func TestColorByTimeGap_Defaults(t *testing.T) {
	t.Parallel()

	colors := ColorByTimeGap([]float64{0, 0.2, 0.9, 1.0}, DefaultGapOptions())
	require.Len(t, colors, 4)

	blue := RGBA{0, 0, 1, 1}
	assert.Equal(t, blue, colors[0])
	assert.Equal(t, blue, colors[2])

	// Rest at position 1/3: green and blue fade from 0.7 towards 0.
	g := 0.7 - 0.7/3
	assert.InDelta(t, 1.0, colors[1][Red], 1e-12)
	assert.InDelta(t, g, colors[1][Green], 1e-12)
	assert.InDelta(t, g, colors[1][Blue], 1e-12)
	assert.InDelta(t, 0.5, colors[1][Alpha], 1e-12)

	// Last rest sits at position 1.
	assert.Equal(t, RGBA{1, 0, 0, 0.5}, colors[3])
}

func TestColorByTimeGap_SingleElement(t *testing.T) {
	t.Parallel()

	opts := DefaultGapOptions()
	opts.Jump = ClassColor{Base: RGBA{0, 0, 0, 1}, Gradient: &Gradient{Channels: []int{Red}, From: 0.3, To: 0.9}}
	colors := ColorByTimeGap([]float64{5}, opts)
	assert.Equal(t, []RGBA{{0.3, 0, 0, 1}}, colors)
}

func TestColorByClass(t *testing.T) {
	t.Parallel()

	opts := DefaultGapOptions()
	got := ColorByClass([]GapClass{Rest, Jump}, []float64{0, 0.5}, opts)
	assert.Equal(t, []RGBA{{1, 0.7, 0.7, 0.5}, {0, 0, 1, 1}}, got)
}

func TestPosition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Position(0, 1))
	assert.Equal(t, 0.0, Position(0, 0))
	assert.Equal(t, 0.5, Position(1, 3))
	assert.Equal(t, 1.0, Position(2, 3))
}

func TestColorMode_Palette(t *testing.T) {
	t.Parallel()

	fixed := Fixed(RGBA{0.2, 0.8, 0.2, 0.7})
	for _, c := range fixed.Palette(3, nil) {
		assert.Equal(t, RGBA{0.2, 0.8, 0.2, 0.7}, c)
	}

	random := RandomPerTrack(0.4)
	a := random.Palette(50, rand.New(rand.NewSource(9)))
	b := random.Palette(50, rand.New(rand.NewSource(9)))
	assert.Equal(t, a, b, "palette must be deterministic for a seed")
	for _, c := range a {
		for ch := Red; ch <= Blue; ch++ {
			assert.GreaterOrEqual(t, c[ch], 0.1)
			assert.LessOrEqual(t, c[ch], 0.5)
		}
		assert.Equal(t, 0.4, c[Alpha])
	}

	assert.Empty(t, random.Palette(0, nil))
}

func TestParseColorMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{in: "random:1.0", want: RandomPerTrack(1)},
		{in: "random", want: RandomPerTrack(1)},
		{in: "RANDOM:0.25", want: RandomPerTrack(0.25)},
		{in: "fixed:0.2,0.8,0.2,0.7", want: Fixed(RGBA{0.2, 0.8, 0.2, 0.7})},
		{in: "fixed:0.2,0.2,0.2", want: Fixed(RGBA{0.2, 0.2, 0.2, 1})},
		{in: "fixed:1,2,3", wantErr: true},
		{in: "fixed:", wantErr: true},
		{in: "random:-1", wantErr: true},
		{in: "random:NaN", wantErr: true},
		{in: "random:+Inf", wantErr: true},
		{in: "fixed:NaN,0,0", wantErr: true},
		{in: "fixed:0,0,0,nan", wantErr: true},
		{in: "rainbow", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseColorMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	m, err := ParseColorMode(Fixed(RGBA{0.1, 0.2, 0.3, 0.4}).String())
	require.NoError(t, err)
	assert.Equal(t, RGBA{0.1, 0.2, 0.3, 0.4}, m.Fixed)
}

func TestRGBA_Color(t *testing.T) {
	t.Parallel()

	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 128, A: 255}, RGBA{1.5, -1, 0.5, 1}.Color())
	assert.Equal(t, RGBA{0.5, 0.5, 0.5, 1}, Black.Lerp(White, 0.5))
	assert.Equal(t, RGBA{1, 1, 1, 0.25}, White.WithAlpha(0.25))
}
