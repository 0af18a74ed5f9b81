package frame

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/trajectory"
	"github.com/banshee-data/ptview/internal/visual"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func at(tid int, t, x, r float64) trajectory.Sample {
	return trajectory.Sample{TrackID: tid, Time: t, Position: r3.Vec{X: x}, Radius: r}
}

// Track 2 rests at t=0.2, track 1 jumps from 0.0 to 1.0.
func gapDataset(t *testing.T) *trajectory.Dataset {
	t.Helper()
	ds, err := trajectory.NewDataset("gaps", []trajectory.Sample{
		at(1, 0.0, 0, 1),
		at(2, 0.0, 1, 3),
		at(2, 0.2, 2, 3),
		at(1, 1.0, 3, 1),
		at(2, 1.0, 4, 5),
	})
	require.NoError(t, err)
	return ds
}

func TestAssembler_BuildColorMode(t *testing.T) {
	t.Parallel()

	ds := gapDataset(t)
	layer := DefaultLayer()
	layer.Mode = visual.Fixed(visual.RGBA{0.2, 0.8, 0.2, 0.7})
	asm := NewAssembler(layer, nil)

	r, err := asm.Build(ds, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, r.FrameIndex)
	assert.Equal(t, 0.0, r.Time)
	assert.Equal(t, []int{1, 2}, r.TrackIDs)
	assert.Equal(t, []r3.Vec{{X: 0}, {X: 1}}, r.Positions)
	assert.Equal(t, []float64{2, 12}, r.Sizes)
	for _, c := range r.Colors {
		assert.Equal(t, visual.RGBA{0.2, 0.8, 0.2, 0.7}, c)
	}

	// Single sample: degenerate sizing.
	r, err = asm.Build(ds, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, r.Sizes)
}

func TestAssembler_RandomPaletteStablePerTrack(t *testing.T) {
	t.Parallel()

	ds := gapDataset(t)
	asm := NewAssembler(DefaultLayer(), rand.New(rand.NewSource(3)))

	first, err := asm.Build(ds, 0)
	require.NoError(t, err)
	last, err := asm.Build(ds, 2)
	require.NoError(t, err)

	// Both frames contain tracks 1 and 2 in order.
	assert.Equal(t, first.Colors, last.Colors)
	assert.NotEqual(t, first.Colors[0], first.Colors[1])

	mid, err := asm.Build(ds, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Colors[1], mid.Colors[0], "track 2 keeps its color")
	assert.Equal(t, asm.Palette(2), first.Colors)
}

func TestAssembler_BuildTimeGap(t *testing.T) {
	t.Parallel()

	ds := gapDataset(t)
	layer := DefaultLayer()
	layer.Policy = PolicyTimeGap
	asm := NewAssembler(layer, nil)
	blue := visual.RGBA{0, 0, 1, 1}

	r, err := asm.Build(ds, 0)
	require.NoError(t, err)
	assert.Equal(t, []visual.RGBA{blue, blue}, r.Colors, "first samples are jumps")

	r, err = asm.Build(ds, 1)
	require.NoError(t, err)
	// Track 2 ordinal 1 of 3: rest at position 0.5.
	assert.Equal(t, []visual.RGBA{{1, 0.35, 0.35, 0.5}}, r.Colors)

	r, err = asm.Build(ds, 2)
	require.NoError(t, err)
	// Track 1 gap 1.0 jumps; track 2 gap 0.8 jumps too.
	assert.Equal(t, []visual.RGBA{blue, blue}, r.Colors)
}

func TestAssembler_FixedSize(t *testing.T) {
	t.Parallel()

	layer := DefaultLayer()
	layer.FixedSize = 4
	r, err := NewAssembler(layer, nil).Build(gapDataset(t), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4}, r.Sizes)
}

func TestAssembler_OutOfRange(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(DefaultLayer(), nil)
	for _, i := range []int{-1, 3} {
		_, err := asm.Build(gapDataset(t), i)
		assert.ErrorIs(t, err, trajectory.ErrFrameOutOfRange)
	}
}

func TestAssembler_BuildTrack(t *testing.T) {
	t.Parallel()

	ds := gapDataset(t)
	asm := NewAssembler(DefaultLayer(), nil)

	r, err := asm.BuildTrack(ds, 2)
	require.NoError(t, err)
	assert.Equal(t, -1, r.FrameIndex)
	assert.Equal(t, []float64{TrailHeadSize, TrailSize, TrailSize}, r.Sizes)
	assert.Equal(t, []r3.Vec{{X: 1}, {X: 2}, {X: 4}}, r.Positions)
	want := visual.ColorByTimeGap([]float64{0, 0.2, 1.0}, visual.DefaultGapOptions())
	assert.Equal(t, want, r.Colors)

	_, err = asm.BuildTrack(ds, 99)
	assert.ErrorIs(t, err, trajectory.ErrTrackNotFound)
}

func TestPoints(t *testing.T) {
	t.Parallel()

	r := Points([]r3.Vec{{X: 1}, {Y: 2}}, visual.RGBA{0, 0.5, 0, 0.8}, 5)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []float64{5, 5}, r.Sizes)
	assert.Equal(t, visual.RGBA{0, 0.5, 0, 0.8}, r.Colors[1])
}

func TestCache_MatchesDirect(t *testing.T) {
	t.Parallel()

	gen := trajectory.NewSyntheticGenerator(21)
	gen.FrameCount = 30
	gen.GapProbability = 0.25
	ds, err := gen.Dataset("synthetic")
	require.NoError(t, err)

	for _, policy := range []ColorPolicy{PolicyColorMode, PolicyTimeGap} {
		layer := DefaultLayer()
		layer.Policy = policy
		direct := NewDirect(NewAssembler(layer, rand.New(rand.NewSource(8))), ds)
		cache := NewCache(NewAssembler(layer, rand.New(rand.NewSource(8))), ds)

		// Visit frames in an order that differs from the direct path.
		for pass := 0; pass < 2; pass++ {
			for i := ds.FrameCount() - 1; i >= 0; i-- {
				_, err := cache.Frame(i)
				require.NoError(t, err)
			}
		}
		for i := 0; i < ds.FrameCount(); i++ {
			want, err := direct.Frame(i)
			require.NoError(t, err)
			got, err := cache.Frame(i)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%s frame %d: cached differs (-direct +cached):\n%s", policy, i, diff)
			}
		}

		hits, misses := cache.Stats()
		assert.Equal(t, ds.FrameCount(), misses)
		assert.Equal(t, 2*ds.FrameCount(), hits)
		assert.Equal(t, ds.FrameCount(), cache.Len())
	}
}

func TestCache_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	ds, err := trajectory.NewSyntheticGenerator(2).Dataset("synthetic")
	require.NoError(t, err)
	cache := NewCache(NewAssembler(DefaultLayer(), nil), ds)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < ds.FrameCount(); i++ {
				if _, err := cache.Frame((i + g) % ds.FrameCount()); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, ds.FrameCount(), cache.Len())

	_, err = cache.Frame(ds.FrameCount())
	assert.ErrorIs(t, err, trajectory.ErrFrameOutOfRange)
}

// Two datasets of equal timeline length replayed through one controller.
func TestEndToEnd_TwoDatasets(t *testing.T) {
	t.Parallel()

	genA := trajectory.NewSyntheticGenerator(1)
	genA.FrameCount = 12
	genB := trajectory.NewSyntheticGenerator(2)
	genB.FrameCount = 12
	genB.TrackCount = 5
	a, err := genA.Dataset("a")
	require.NoError(t, err)
	b, err := genB.Dataset("b")
	require.NoError(t, err)
	require.Equal(t, a.FrameCount(), b.FrameCount())

	primary := NewCache(NewAssembler(DefaultLayer(), rand.New(rand.NewSource(1))), a)
	secondLayer := DefaultLayer()
	secondLayer.Mode = visual.Fixed(visual.RGBA{0.2, 0.8, 0.2, 0.7})
	secondary := NewCache(NewAssembler(secondLayer, nil), b)

	ctrl, err := playback.NewController(a.FrameCount())
	require.NoError(t, err)

	timeline := a.Timeline()
	for tick := 0; tick < 2*a.FrameCount(); tick++ {
		i := ctrl.FrameIndex()
		ra, err := primary.Frame(i)
		require.NoError(t, err)
		rb, err := secondary.Frame(i)
		require.NoError(t, err)

		assert.Equal(t, timeline[i], ra.Time)
		assert.Equal(t, len(a.SelectFrame(timeline[i])), ra.Len())
		assert.Len(t, ra.Colors, ra.Len())
		assert.Len(t, ra.Sizes, ra.Len())
		for _, c := range rb.Colors {
			require.Equal(t, visual.RGBA{0.2, 0.8, 0.2, 0.7}, c)
		}
		ctrl.Tick()
	}
	assert.Equal(t, 0, ctrl.FrameIndex())
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for _, p := range []ColorPolicy{PolicyColorMode, PolicyTimeGap} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePolicy(" Time_Gap ")
	require.NoError(t, err)
	assert.Equal(t, PolicyTimeGap, got)

	_, err = ParsePolicy("rainbow")
	assert.Error(t, err)
}
