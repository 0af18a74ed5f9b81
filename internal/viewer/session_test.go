package viewer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/ptview/internal/config"
	"github.com/banshee-data/ptview/internal/db"
	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/timeutil"
	"github.com/banshee-data/ptview/internal/trajectory"
	"github.com/banshee-data/ptview/internal/visual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	monitoring.SetLogger(nil)
}

// fakeCatalog records calls in memory.
type fakeCatalog struct {
	mu      sync.Mutex
	started int
	ended   map[string]int
	exports []string // kind:path
	failing bool
}

func (c *fakeCatalog) StartSession(primary, secondary string, frameCount, trackCount int, frameRate float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return "", errors.New("catalog down")
	}
	c.started++
	return "session-1", nil
}

func (c *fakeCatalog) EndSession(id string, framesShown int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended == nil {
		c.ended = map[string]int{}
	}
	c.ended[id] = framesShown
	return nil
}

func (c *fakeCatalog) RecordExport(sessionID, kind, path string, frameIndex int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exports = append(c.exports, kind+":"+path)
	return "export", nil
}

type fixture struct {
	fs    *fsutil.MemoryFileSystem
	clock *timeutil.MockClock
	cfg   *config.ViewerConfig
}

// newFixture writes two small datasets: walk_a.pt with 6 frames and 4
// tracks, walk_b.pt with 4 frames and 2 tracks.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()

	gen := trajectory.NewSyntheticGenerator(1)
	gen.TrackCount, gen.FrameCount = 4, 6
	require.NoError(t, trajectory.Save(mfs, "walk_a.pt", gen.Generate()))

	gen = trajectory.NewSyntheticGenerator(2)
	gen.TrackCount, gen.FrameCount = 2, 4
	require.NoError(t, trajectory.Save(mfs, "walk_b.pt.zst", gen.Generate()))

	w, h := 48, 48
	ffmpeg := "no-such-ffmpeg-binary"
	cfg := config.EmptyViewerConfig()
	cfg.WindowWidth = &w
	cfg.WindowHeight = &h
	cfg.FFmpegPath = &ffmpeg

	return &fixture{
		fs:    mfs,
		clock: timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		cfg:   cfg,
	}
}

func (f *fixture) session(t *testing.T, catalog Catalog) *Session {
	t.Helper()
	s := NewSession(Options{
		PrimaryPath:   "walk_a.pt",
		SecondaryPath: "walk_b.pt.zst",
		Config:        f.cfg,
		FS:            f.fs,
		Clock:         f.clock,
		Catalog:       catalog,
	})
	require.NoError(t, s.Initialize())
	return s
}

func TestSession_NotInitialized(t *testing.T) {
	s := NewSession(Options{})

	_, _, err := s.Step()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Screenshot()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.Start(), ErrNotInitialized)
	assert.ErrorIs(t, s.Run(context.Background(), nil, 1), ErrNotInitialized)
}

func TestSession_InitializeLoadErrors(t *testing.T) {
	f := newFixture(t)
	f.fs.WriteFile("bad.pt", []byte("0 1 2 oops 0.1 0 1 0\n"))
	f.fs.WriteFile("empty.pt", []byte("# nothing\n"))

	tests := []struct {
		name      string
		secondary string
		check     func(t *testing.T, err error)
	}{
		{"missing", "nope.pt", func(t *testing.T, err error) { assert.ErrorIs(t, err, trajectory.ErrFileNotFound) }},
		{"empty", "empty.pt", func(t *testing.T, err error) { assert.ErrorIs(t, err, trajectory.ErrEmptyDataset) }},
		{"malformed", "bad.pt", func(t *testing.T, err error) {
			var pe *trajectory.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "z", pe.Field)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(Options{PrimaryPath: "walk_a.pt", SecondaryPath: tt.secondary, FS: f.fs, Config: f.cfg})
			tt.check(t, s.Initialize())
		})
	}
}

func TestSession_InvalidConfig(t *testing.T) {
	f := newFixture(t)
	rate := -1.0
	f.cfg.FrameRate = &rate

	s := NewSession(Options{PrimaryPath: "walk_a.pt", SecondaryPath: "walk_b.pt.zst", FS: f.fs, Config: f.cfg})
	assert.Error(t, s.Initialize())
}

func TestSession_StepAdvancesAndWraps(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, nil)

	primary, secondary := s.Datasets()
	require.Equal(t, 6, primary.FrameCount())
	require.Equal(t, 4, secondary.FrameCount())
	assert.Equal(t, 6, s.Controller().State().FrameCount)

	for i := 1; i <= 6; i++ {
		layers, quit, err := s.Step()
		require.NoError(t, err)
		require.False(t, quit)
		require.Len(t, layers, 2, "no overlay or trail configured")

		idx := i % 6
		assert.Equal(t, idx, s.Controller().FrameIndex())
		assert.Equal(t, idx, layers[0].FrameIndex)
		assert.Equal(t, idx%4, layers[1].FrameIndex, "secondary wraps on its own count")

		want, err := primary.SelectFrameIndex(idx)
		require.NoError(t, err)
		assert.Equal(t, len(want), layers[0].Len())
	}
	assert.Equal(t, 6, s.Ticks())
}

func TestSession_Actions(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, nil)

	_, _, err := s.Step()
	require.NoError(t, err)
	require.Equal(t, 1, s.Controller().FrameIndex())

	// Pause holds the frame across ticks.
	_, _, err = s.Step(playback.ActionTogglePause)
	require.NoError(t, err)
	_, _, err = s.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Controller().FrameIndex())
	assert.False(t, s.Controller().Playing())

	// Reset rewinds and restores the camera, keeping the pause.
	s.Camera().Rotate(45, 20)
	s.Camera().ZoomBy(2)
	_, _, err = s.Step(playback.ActionReset)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Controller().FrameIndex())
	assert.False(t, s.Controller().Playing())
	assert.Equal(t, 0.0, s.Camera().Theta)
	assert.Equal(t, s.cfg.GetCameraZoom(), s.Camera().Zoom)

	_, _, err = s.Step(playback.ActionStepBack)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Controller().FrameIndex())

	layers, quit, err := s.Step(playback.ActionQuit)
	require.NoError(t, err)
	assert.True(t, quit)
	assert.Nil(t, layers)
}

func TestSession_ScreenshotAction(t *testing.T) {
	f := newFixture(t)
	cat := &fakeCatalog{}
	s := f.session(t, cat)
	require.NoError(t, s.Start())
	assert.Equal(t, "session-1", s.SessionID())

	_, _, err := s.Step()
	require.NoError(t, err)
	_, _, err = s.Step()
	require.NoError(t, err)

	// The screenshot shows the frame on screen before this tick advances.
	_, _, err = s.Step(playback.ActionScreenshot)
	require.NoError(t, err)
	assert.True(t, f.fs.Exists("walk_a_2.png"))
	assert.Equal(t, []string{"screenshot:walk_a_2.png"}, cat.exports)

	require.NoError(t, s.Close())
	assert.Equal(t, 3, cat.ended["session-1"])
}

func TestSession_CatalogFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, &fakeCatalog{failing: true})

	require.NoError(t, s.Start())
	assert.Empty(t, s.SessionID())
	_, err := s.Screenshot()
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSession_OverlayAndTrail(t *testing.T) {
	f := newFixture(t)
	f.fs.WriteFile("active_site.pt", []byte("0 0 0\n1 1 1\n2 2 2\n"))

	track := 1
	s := NewSession(Options{
		PrimaryPath: "walk_a.pt", SecondaryPath: "walk_b.pt.zst",
		Config: f.cfg, FS: f.fs, Clock: f.clock, TrailTrack: &track,
	})
	require.NoError(t, s.Initialize())

	layers, err := s.Layers(0)
	require.NoError(t, err)
	require.Len(t, layers, 4)

	trail := layers[2]
	primary, _ := s.Datasets()
	samples, err := primary.SelectTrack(1)
	require.NoError(t, err)
	assert.Equal(t, len(samples), trail.Len())
	assert.Equal(t, -1, trail.FrameIndex)

	overlay := layers[3]
	assert.Equal(t, 3, overlay.Len())
	assert.Equal(t, f.cfg.GetOverlayColor(), overlay.Colors[0])
}

func TestSession_UnknownTrailTrackIsSkipped(t *testing.T) {
	f := newFixture(t)
	track := 99
	s := NewSession(Options{
		PrimaryPath: "walk_a.pt", SecondaryPath: "walk_b.pt.zst",
		Config: f.cfg, FS: f.fs, TrailTrack: &track,
	})
	require.NoError(t, s.Initialize())

	layers, err := s.Layers(0)
	require.NoError(t, err)
	assert.Len(t, layers, 2)
}

func TestSession_MalformedOverlayIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.fs.WriteFile("active_site.pt", []byte("0 0\n"))
	s := f.session(t, nil)

	layers, err := s.Layers(0)
	require.NoError(t, err)
	assert.Len(t, layers, 2)
}

func TestSession_CachedMatchesUncached(t *testing.T) {
	f := newFixture(t)
	cached := f.session(t, nil)

	off := false
	f.cfg.CacheFrames = &off
	direct := f.session(t, nil)

	for i := 0; i < 6; i++ {
		a, err := cached.Layers(i)
		require.NoError(t, err)
		b, err := direct.Layers(i)
		require.NoError(t, err)
		assert.Equal(t, b, a, "frame %d", i)
	}
}

func TestSession_RecordMovie(t *testing.T) {
	f := newFixture(t)
	cat := &fakeCatalog{}
	s := f.session(t, cat)
	require.NoError(t, s.Start())

	_, _, err := s.Step()
	require.NoError(t, err)

	path, frames, err := s.RecordMovie(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "walk_a.gif", path)
	assert.Equal(t, 6, frames)
	assert.True(t, f.fs.Exists(path))
	assert.Equal(t, 1, s.Controller().FrameIndex(), "recording leaves playback alone")
	assert.Equal(t, []string{"movie:walk_a.gif"}, cat.exports)
}

func TestSession_RecordMovieCancelled(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.RecordMovie(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_WriteReport(t *testing.T) {
	f := newFixture(t)
	cat := &fakeCatalog{}
	s := f.session(t, cat)
	require.NoError(t, s.Start())

	path, err := s.WriteReport()
	require.NoError(t, err)
	assert.Equal(t, "walk_a_report.html", path)

	data, err := f.fs.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "walk_b.pt.zst"))
	assert.Equal(t, []string{"report:" + path}, cat.exports)
}

func TestSession_WithSQLiteCatalog(t *testing.T) {
	f := newFixture(t)
	catalog, err := db.Open(t.TempDir()+"/catalog.db", f.clock)
	require.NoError(t, err)
	defer catalog.Close()

	s := f.session(t, catalog)
	require.NoError(t, s.Start())
	_, err = s.Screenshot()
	require.NoError(t, err)
	_, _, err = s.Step()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	sessions, err := catalog.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 6, sessions[0].FrameCount)
	assert.Equal(t, 1, sessions[0].FramesShown)
	require.NotNil(t, sessions[0].EndedAt)

	exports, err := catalog.Exports(sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, db.KindScreenshot, exports[0].Kind)
	assert.Equal(t, "walk_a_0.png", exports[0].Path)
}

func TestSession_TimeGapPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(t, nil)
	layers, err := s.Layers(0)
	require.NoError(t, err)
	fixed := visual.RGBA{0.2, 0.8, 0.2, 0.7}
	for _, c := range layers[1].Colors {
		assert.Equal(t, fixed, c)
	}

	policy := "time_gap"
	f.cfg.SecondaryPolicy = &policy
	s = f.session(t, nil)

	// Every sample of the first frame starts its track.
	layers, err = s.Layers(0)
	require.NoError(t, err)
	require.NotEmpty(t, layers[1].Colors)
	for _, c := range layers[1].Colors {
		assert.Equal(t, visual.RGBA{0, 0, 1, 1}, c)
	}

	layers, err = s.Layers(1)
	require.NoError(t, err)
	for _, c := range layers[1].Colors {
		assert.NotEqual(t, fixed, c)
		assert.Contains(t, []float64{0.5, 1}, c[visual.Alpha])
	}
}
