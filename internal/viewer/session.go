// Package viewer runs a replay session: it loads the primary and secondary
// datasets, advances playback once per tick, turns input actions into
// controller, camera and export calls, and records movies and reports.
//
// A Session performs no I/O until Initialize. The interactive window lives
// in the window subpackage; Run drives the same Step loop headlessly.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync/atomic"

	"github.com/banshee-data/ptview/internal/config"
	"github.com/banshee-data/ptview/internal/db"
	"github.com/banshee-data/ptview/internal/export"
	"github.com/banshee-data/ptview/internal/frame"
	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/render"
	"github.com/banshee-data/ptview/internal/report"
	"github.com/banshee-data/ptview/internal/timeutil"
	"github.com/banshee-data/ptview/internal/trajectory"
	"github.com/banshee-data/ptview/internal/visual"
)

var (
	// ErrNotInitialized is returned by operations that need loaded datasets.
	ErrNotInitialized = errors.New("viewer session not initialized")
)

// Catalog records sessions and their exports. *db.DB implements it.
type Catalog interface {
	StartSession(primary, secondary string, frameCount, trackCount int, frameRate float64) (string, error)
	EndSession(id string, framesShown int) error
	RecordExport(sessionID, kind, path string, frameIndex int) (string, error)
}

// Options configures a Session. Zero values select the OS file system, the
// wall clock, the default configuration and no catalog.
type Options struct {
	PrimaryPath   string
	SecondaryPath string

	Config  *config.ViewerConfig
	FS      fsutil.FileSystem
	Clock   timeutil.Clock
	Catalog Catalog

	// TrailTrack, when set, draws that track of the primary dataset as a
	// static trail.
	TrailTrack *int
}

// Session is one viewer run over two datasets.
type Session struct {
	opts Options
	cfg  *config.ViewerConfig

	primary   *trajectory.Dataset
	secondary *trajectory.Dataset
	sources   [2]frame.Source
	trail     *frame.Renderable
	overlay   *frame.Renderable

	controller *playback.Controller
	keymap     playback.Keymap
	camera     *render.Camera
	renderer   *render.Renderer
	exporter   *export.Exporter

	sessionID   string
	ticks       atomic.Int64
	initialized bool
}

// NewSession prepares a session. Nothing is loaded until Initialize.
func NewSession(opts Options) *Session {
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyViewerConfig()
	}
	return &Session{opts: opts, cfg: cfg}
}

// Initialize loads both datasets and the optional overlay, then builds the
// assemblers, playback controller, camera, renderer and exporter. Load
// errors are returned unchanged so callers can match them with errors.Is.
func (s *Session) Initialize() error {
	if s.initialized {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid viewer config: %w", err)
	}

	var err error
	if s.primary, err = trajectory.Load(s.opts.FS, s.opts.PrimaryPath); err != nil {
		return err
	}
	if s.secondary, err = trajectory.Load(s.opts.FS, s.opts.SecondaryPath); err != nil {
		return err
	}
	if s.primary.FrameCount() != s.secondary.FrameCount() {
		monitoring.Logf("[viewer] warning: %s has %d frames but %s has %d; %s wraps on its own",
			s.primary.Name(), s.primary.FrameCount(), s.secondary.Name(), s.secondary.FrameCount(), s.secondary.Name())
	}

	seed := s.cfg.GetColorSeed()
	s.sources[0] = s.newSource(s.layer(s.cfg.GetPrimaryPolicy(), s.cfg.GetPrimaryColor()), seed, s.primary)
	s.sources[1] = s.newSource(s.layer(s.cfg.GetSecondaryPolicy(), s.cfg.GetSecondaryColor()), seed+1, s.secondary)

	if s.opts.TrailTrack != nil {
		trailLayer := s.layer(frame.PolicyColorMode, visual.RandomPerTrack(1))
		trail, err := frame.NewAssembler(trailLayer, nil).BuildTrack(s.primary, *s.opts.TrailTrack)
		if err != nil {
			monitoring.Logf("[viewer] skipping trail: %v", err)
		} else {
			s.trail = trail
		}
	}

	points, ok, err := trajectory.LoadOverlay(s.opts.FS, s.cfg.GetOverlayPath())
	switch {
	case err != nil:
		monitoring.Logf("[viewer] skipping overlay: %v", err)
	case ok:
		s.overlay = frame.Points(points, s.cfg.GetOverlayColor(), s.cfg.GetOverlaySize())
	}

	if s.controller, err = playback.NewController(s.primary.FrameCount()); err != nil {
		return err
	}
	s.keymap = s.cfg.GetKeymap()
	s.camera = render.NewCamera(s.cfg.GetCameraZoom())
	w, h := s.cfg.GetWindowSize()
	s.renderer = render.NewRenderer(w, h, s.cfg.GetBackground())
	s.exporter = &export.Exporter{
		FS:         s.opts.FS,
		Base:       trajectory.BaseName(s.opts.PrimaryPath),
		FrameRate:  s.cfg.GetFrameRate(),
		FFmpegPath: s.cfg.GetFFmpegPath(),
	}

	s.initialized = true
	monitoring.Logf("[viewer] initialized: %s (%d frames, %d tracks), %s (%d frames, %d tracks)",
		s.primary.Name(), s.primary.FrameCount(), s.primary.TrackCount(),
		s.secondary.Name(), s.secondary.FrameCount(), s.secondary.TrackCount())
	return nil
}

func (s *Session) layer(policy frame.ColorPolicy, mode visual.ColorMode) frame.Layer {
	return frame.Layer{
		Policy: policy,
		Mode:   mode,
		Gap:    s.cfg.GetGapOptions(),
		Sizes:  s.cfg.GetSizeRange(),
	}
}

func (s *Session) newSource(layer frame.Layer, seed int64, ds *trajectory.Dataset) frame.Source {
	monitoring.Logf("[viewer] %s colored by %s", ds.Name(), layer.Policy)
	asm := frame.NewAssembler(layer, rand.New(rand.NewSource(seed)))
	if s.cfg.GetCacheFrames() {
		return frame.NewCache(asm, ds)
	}
	return frame.NewDirect(asm, ds)
}

// Start opens a catalog entry for the session when a catalog is set.
// Catalog failures are logged and the session continues without one.
func (s *Session) Start() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.opts.Catalog == nil || s.sessionID != "" {
		return nil
	}
	id, err := s.opts.Catalog.StartSession(s.opts.PrimaryPath, s.opts.SecondaryPath,
		s.primary.FrameCount(), s.primary.TrackCount(), s.cfg.GetFrameRate())
	if err != nil {
		monitoring.Logf("[viewer] catalog unavailable: %v", err)
		s.opts.Catalog = nil
		return nil
	}
	s.sessionID = id
	monitoring.Logf("[viewer] session %s started", id)
	return nil
}

// Close ends the catalog entry, if any.
func (s *Session) Close() error {
	if s.opts.Catalog == nil || s.sessionID == "" {
		return nil
	}
	err := s.opts.Catalog.EndSession(s.sessionID, s.Ticks())
	monitoring.Logf("[viewer] session %s ended after %d ticks", s.sessionID, s.Ticks())
	s.sessionID = ""
	return err
}

// SessionID returns the catalog id, empty without a catalog.
func (s *Session) SessionID() string { return s.sessionID }

// Controller returns the playback controller.
func (s *Session) Controller() *playback.Controller { return s.controller }

// Camera returns the view camera.
func (s *Session) Camera() *render.Camera { return s.camera }

// Keymap returns the active key bindings.
func (s *Session) Keymap() playback.Keymap { return s.keymap }

// Size returns the output image size in pixels.
func (s *Session) Size() (width, height int) {
	return s.cfg.GetWindowSize()
}

// FrameRate returns the tick rate in Hz.
func (s *Session) FrameRate() float64 { return s.cfg.GetFrameRate() }

// Ticks returns the number of ticks stepped so far. It may be read while
// Run is stepping the session from another goroutine.
func (s *Session) Ticks() int { return int(s.ticks.Load()) }

// Datasets returns the primary and secondary datasets.
func (s *Session) Datasets() (primary, secondary *trajectory.Dataset) {
	return s.primary, s.secondary
}

// Step runs one tick: it applies pending actions in order, advances
// playback, and assembles the layers for the new frame. quit reports that a
// quit action was seen; no tick happens then.
func (s *Session) Step(actions ...playback.Action) (layers []*frame.Renderable, quit bool, err error) {
	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	for _, a := range actions {
		if s.HandleAction(a) {
			return nil, true, nil
		}
	}
	s.controller.Tick()
	s.ticks.Add(1)
	layers, err = s.Layers(s.controller.FrameIndex())
	return layers, false, err
}

// HandleAction applies one action and reports whether it asks to quit.
// Screenshot failures are logged, never returned.
func (s *Session) HandleAction(a playback.Action) (quit bool) {
	switch a {
	case playback.ActionQuit:
		return true
	case playback.ActionScreenshot:
		if _, err := s.Screenshot(); err != nil {
			monitoring.Logf("[viewer] screenshot failed: %v", err)
		}
	case playback.ActionReset:
		s.controller.Apply(a)
		s.camera.Reset()
	default:
		s.controller.Apply(a)
	}
	return false
}

// Layers assembles every layer for frame i of the primary dataset. The
// secondary dataset shows frame i modulo its own frame count.
func (s *Session) Layers(i int) ([]*frame.Renderable, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	first, err := s.sources[0].Frame(i)
	if err != nil {
		return nil, err
	}
	second, err := s.sources[1].Frame(i % s.sources[1].FrameCount())
	if err != nil {
		return nil, err
	}
	layers := []*frame.Renderable{first, second}
	if s.trail != nil {
		layers = append(layers, s.trail)
	}
	if s.overlay != nil {
		layers = append(layers, s.overlay)
	}
	return layers, nil
}

// Render rasterizes layers through the session camera.
func (s *Session) Render(layers []*frame.Renderable) (image.Image, error) {
	return s.renderer.Render(s.camera, layers...)
}

// RenderFrame assembles and rasterizes frame i.
func (s *Session) RenderFrame(i int) (image.Image, error) {
	layers, err := s.Layers(i)
	if err != nil {
		return nil, err
	}
	return s.Render(layers)
}

// Screenshot saves the current frame as "<basename>_<frameIndex>.png".
func (s *Session) Screenshot() (string, error) {
	if !s.initialized {
		return "", ErrNotInitialized
	}
	idx := s.controller.FrameIndex()
	img, err := s.RenderFrame(idx)
	if err != nil {
		return "", err
	}
	path, err := s.exporter.Screenshot(img, idx)
	if err != nil {
		return "", err
	}
	s.recordExport(db.KindScreenshot, path, idx)
	return path, nil
}

// RecordMovie renders one full loop of the primary dataset, frames 0
// through frameCount-1, into a movie and returns its path. Playback state
// is left untouched.
func (s *Session) RecordMovie(ctx context.Context) (path string, frames int, err error) {
	if !s.initialized {
		return "", 0, ErrNotInitialized
	}
	w, h := s.Size()
	enc, err := s.exporter.StartMovie(ctx, w, h)
	if err != nil {
		return "", 0, err
	}

	n := s.controller.State().FrameCount
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return "", enc.Frames(), err
		}
		img, err := s.RenderFrame(i)
		if err != nil {
			enc.Close()
			return "", enc.Frames(), err
		}
		if err := enc.AddFrame(img); err != nil {
			enc.Close()
			return "", enc.Frames(), fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", enc.Frames(), err
	}

	monitoring.Logf("[viewer] recorded %s: %d frames, %v", enc.Path(), enc.Frames(), s.controller.Duration(s.FrameRate()))
	s.recordExport(db.KindMovie, enc.Path(), 0)
	return enc.Path(), enc.Frames(), nil
}

// WriteReport writes the HTML report for both datasets to
// "<basename>_report.html" and returns its path.
func (s *Session) WriteReport() (string, error) {
	if !s.initialized {
		return "", ErrNotInitialized
	}
	path := report.Name(trajectory.BaseName(s.opts.PrimaryPath))
	if err := report.Write(s.opts.FS, path, s.primary, s.secondary); err != nil {
		return "", err
	}
	s.recordExport(db.KindReport, path, 0)
	return path, nil
}

func (s *Session) recordExport(kind, path string, frameIndex int) {
	if s.opts.Catalog == nil || s.sessionID == "" {
		return
	}
	if _, err := s.opts.Catalog.RecordExport(s.sessionID, kind, path, frameIndex); err != nil {
		monitoring.Logf("[viewer] failed to record %s export: %v", kind, err)
	}
}
