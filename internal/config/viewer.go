package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/ptview/internal/frame"
	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/visual"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical viewer defaults file.
const DefaultConfigPath = "config/viewer.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults returned by the Get* accessors when a field is unset.
const (
	DefaultFrameRate        = 30.0
	DefaultWindowWidth      = 800
	DefaultWindowHeight     = 800
	DefaultCameraZoom       = 30.0
	DefaultPrimaryColor     = "random:1.0"
	DefaultSecondaryColor   = "fixed:0.2,0.8,0.2,0.7"
	DefaultPolicy           = "color_mode"
	DefaultOverlayColor     = "0,0.5,0,0.8"
	DefaultOverlaySize      = 5.0
	DefaultBackground       = "1,1,1,1"
	DefaultFFmpegPath       = "ffmpeg"
	DefaultColorSeed  int64 = 1
)

// ViewerConfig holds every viewer setting. Fields are pointers so a partial
// file leaves the rest at their defaults; read values through the Get*
// methods.
type ViewerConfig struct {
	// Playback and window
	FrameRate    *float64 `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	WindowWidth  *int     `json:"window_width,omitempty" yaml:"window_width,omitempty"`
	WindowHeight *int     `json:"window_height,omitempty" yaml:"window_height,omitempty"`
	CameraZoom   *float64 `json:"camera_zoom,omitempty" yaml:"camera_zoom,omitempty"`
	Background   *string  `json:"background,omitempty" yaml:"background,omitempty"` // "r,g,b,a"

	// Point sizes
	SizeMin          *float64 `json:"size_min,omitempty" yaml:"size_min,omitempty"`
	SizeMax          *float64 `json:"size_max,omitempty" yaml:"size_max,omitempty"`
	DegenerateOffset *float64 `json:"degenerate_offset,omitempty" yaml:"degenerate_offset,omitempty"`

	// Colors
	GapThreshold   *float64 `json:"gap_threshold,omitempty" yaml:"gap_threshold,omitempty"`
	PrimaryColor   *string  `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`     // "random:alpha" or "fixed:r,g,b,a"
	SecondaryColor *string  `json:"secondary_color,omitempty" yaml:"secondary_color,omitempty"` // same syntax
	ColorSeed      *int64   `json:"color_seed,omitempty" yaml:"color_seed,omitempty"`

	// "color_mode" or "time_gap"
	PrimaryPolicy   *string `json:"primary_policy,omitempty" yaml:"primary_policy,omitempty"`
	SecondaryPolicy *string `json:"secondary_policy,omitempty" yaml:"secondary_policy,omitempty"`

	// Overlay
	OverlayPath  *string  `json:"overlay_path,omitempty" yaml:"overlay_path,omitempty"`
	OverlayColor *string  `json:"overlay_color,omitempty" yaml:"overlay_color,omitempty"`
	OverlaySize  *float64 `json:"overlay_size,omitempty" yaml:"overlay_size,omitempty"`

	// Runtime
	CacheFrames *bool             `json:"cache_frames,omitempty" yaml:"cache_frames,omitempty"`
	Keymap      map[string]string `json:"keymap,omitempty" yaml:"keymap,omitempty"` // key name -> action name
	FFmpegPath  *string           `json:"ffmpeg_path,omitempty" yaml:"ffmpeg_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyViewerConfig returns a ViewerConfig with all fields unset.
func EmptyViewerConfig() *ViewerConfig {
	return &ViewerConfig{}
}

// DefaultViewerConfig returns a config with every field set to its default.
func DefaultViewerConfig() *ViewerConfig {
	sr := visual.DefaultSizeRange()
	return &ViewerConfig{
		FrameRate:        ptrFloat64(DefaultFrameRate),
		WindowWidth:      ptrInt(DefaultWindowWidth),
		WindowHeight:     ptrInt(DefaultWindowHeight),
		CameraZoom:       ptrFloat64(DefaultCameraZoom),
		Background:       ptrString(DefaultBackground),
		SizeMin:          ptrFloat64(sr.Min),
		SizeMax:          ptrFloat64(sr.Max),
		DegenerateOffset: ptrFloat64(sr.DegenerateOffset),
		GapThreshold:     ptrFloat64(visual.DefaultGapThreshold),
		PrimaryColor:     ptrString(DefaultPrimaryColor),
		SecondaryColor:   ptrString(DefaultSecondaryColor),
		ColorSeed:        ptrInt64(DefaultColorSeed),
		PrimaryPolicy:    ptrString(DefaultPolicy),
		SecondaryPolicy:  ptrString(DefaultPolicy),
		OverlayPath:      ptrString("active_site.pt"),
		OverlayColor:     ptrString(DefaultOverlayColor),
		OverlaySize:      ptrFloat64(DefaultOverlaySize),
		CacheFrames:      ptrBool(true),
		FFmpegPath:       ptrString(DefaultFFmpegPath),
	}
}

// LoadViewerConfig loads a ViewerConfig from a .json, .yaml or .yml file
// under 1MB. Omitted fields keep their defaults, so partial configs are safe.
func LoadViewerConfig(path string) (*ViewerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyViewerConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *ViewerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/gen-pt/
	}
	for _, path := range candidates {
		if cfg, err := LoadViewerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every set field.
func (c *ViewerConfig) Validate() error {
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.WindowWidth != nil && *c.WindowWidth <= 0 {
		return fmt.Errorf("window_width must be positive, got %d", *c.WindowWidth)
	}
	if c.WindowHeight != nil && *c.WindowHeight <= 0 {
		return fmt.Errorf("window_height must be positive, got %d", *c.WindowHeight)
	}
	if c.CameraZoom != nil && *c.CameraZoom <= 0 {
		return fmt.Errorf("camera_zoom must be positive, got %f", *c.CameraZoom)
	}
	if c.SizeMin != nil && *c.SizeMin < 0 {
		return fmt.Errorf("size_min must be non-negative, got %f", *c.SizeMin)
	}
	if sr := c.GetSizeRange(); sr.Max < sr.Min {
		return fmt.Errorf("size_max (%f) must not be below size_min (%f)", sr.Max, sr.Min)
	}
	if c.GapThreshold != nil && *c.GapThreshold < 0 {
		return fmt.Errorf("gap_threshold must be non-negative, got %f", *c.GapThreshold)
	}
	if c.OverlaySize != nil && *c.OverlaySize <= 0 {
		return fmt.Errorf("overlay_size must be positive, got %f", *c.OverlaySize)
	}
	for name, v := range map[string]*string{"primary_color": c.PrimaryColor, "secondary_color": c.SecondaryColor} {
		if v == nil {
			continue
		}
		if _, err := visual.ParseColorMode(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for name, v := range map[string]*string{"primary_policy": c.PrimaryPolicy, "secondary_policy": c.SecondaryPolicy} {
		if v == nil {
			continue
		}
		if _, err := frame.ParsePolicy(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for name, v := range map[string]*string{"background": c.Background, "overlay_color": c.OverlayColor} {
		if v == nil {
			continue
		}
		if _, err := visual.ParseRGBA(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if _, err := playback.DefaultKeymap().WithOverrides(c.Keymap); err != nil {
		return fmt.Errorf("invalid keymap: %w", err)
	}
	return nil
}

// GetFrameRate returns frames per second for playback and movie export.
func (c *ViewerConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return DefaultFrameRate
	}
	return *c.FrameRate
}

// GetWindowSize returns the window (and screenshot) size in pixels.
func (c *ViewerConfig) GetWindowSize() (width, height int) {
	width, height = DefaultWindowWidth, DefaultWindowHeight
	if c.WindowWidth != nil {
		width = *c.WindowWidth
	}
	if c.WindowHeight != nil {
		height = *c.WindowHeight
	}
	return width, height
}

// GetCameraZoom returns the camera distance restored by a reset.
func (c *ViewerConfig) GetCameraZoom() float64 {
	if c.CameraZoom == nil {
		return DefaultCameraZoom
	}
	return *c.CameraZoom
}

// GetBackground returns the clear color.
func (c *ViewerConfig) GetBackground() visual.RGBA {
	return parseRGBAOr(c.Background, visual.White)
}

// GetSizeRange returns the radius-to-size mapping.
func (c *ViewerConfig) GetSizeRange() visual.SizeRange {
	sr := visual.DefaultSizeRange()
	if c.SizeMin != nil {
		sr.Min = *c.SizeMin
	}
	if c.SizeMax != nil {
		sr.Max = *c.SizeMax
	}
	if c.DegenerateOffset != nil {
		sr.DegenerateOffset = *c.DegenerateOffset
	}
	return sr
}

// GetGapOptions returns time-gap coloring with the configured threshold.
func (c *ViewerConfig) GetGapOptions() visual.GapOptions {
	opts := visual.DefaultGapOptions()
	if c.GapThreshold != nil {
		opts.Threshold = *c.GapThreshold
	}
	return opts
}

// GetPrimaryColor returns the first dataset's color mode.
func (c *ViewerConfig) GetPrimaryColor() visual.ColorMode {
	return parseModeOr(c.PrimaryColor, DefaultPrimaryColor)
}

// GetSecondaryColor returns the second dataset's color mode.
func (c *ViewerConfig) GetSecondaryColor() visual.ColorMode {
	return parseModeOr(c.SecondaryColor, DefaultSecondaryColor)
}

// GetPrimaryPolicy returns how the first dataset is colored.
func (c *ViewerConfig) GetPrimaryPolicy() frame.ColorPolicy {
	return parsePolicyOr(c.PrimaryPolicy)
}

// GetSecondaryPolicy returns how the second dataset is colored.
func (c *ViewerConfig) GetSecondaryPolicy() frame.ColorPolicy {
	return parsePolicyOr(c.SecondaryPolicy)
}

// GetColorSeed returns the seed of the per-track palette.
func (c *ViewerConfig) GetColorSeed() int64 {
	if c.ColorSeed == nil {
		return DefaultColorSeed
	}
	return *c.ColorSeed
}

// GetOverlayPath returns the overlay file location.
func (c *ViewerConfig) GetOverlayPath() string {
	if c.OverlayPath == nil || *c.OverlayPath == "" {
		return "active_site.pt"
	}
	return *c.OverlayPath
}

// GetOverlayColor returns the overlay point color.
func (c *ViewerConfig) GetOverlayColor() visual.RGBA {
	return parseRGBAOr(c.OverlayColor, visual.RGBA{0, 0.5, 0, 0.8})
}

// GetOverlaySize returns the overlay point size.
func (c *ViewerConfig) GetOverlaySize() float64 {
	if c.OverlaySize == nil {
		return DefaultOverlaySize
	}
	return *c.OverlaySize
}

// GetCacheFrames reports whether assembled frames are memoized.
func (c *ViewerConfig) GetCacheFrames() bool {
	if c.CacheFrames == nil {
		return true
	}
	return *c.CacheFrames
}

// GetKeymap returns the default keymap with configured overrides applied.
// Invalid overrides are rejected by Validate; here they fall back to the
// default keymap.
func (c *ViewerConfig) GetKeymap() playback.Keymap {
	km, err := playback.DefaultKeymap().WithOverrides(c.Keymap)
	if err != nil {
		return playback.DefaultKeymap()
	}
	return km
}

// GetFFmpegPath returns the ffmpeg binary used for movie export.
func (c *ViewerConfig) GetFFmpegPath() string {
	if c.FFmpegPath == nil || *c.FFmpegPath == "" {
		return DefaultFFmpegPath
	}
	return *c.FFmpegPath
}

func parseRGBAOr(s *string, fallback visual.RGBA) visual.RGBA {
	if s == nil {
		return fallback
	}
	c, err := visual.ParseRGBA(*s)
	if err != nil {
		return fallback
	}
	return c
}

func parseModeOr(s *string, fallback string) visual.ColorMode {
	if s != nil {
		if m, err := visual.ParseColorMode(*s); err == nil {
			return m
		}
	}
	m, _ := visual.ParseColorMode(fallback)
	return m
}

func parsePolicyOr(s *string) frame.ColorPolicy {
	if s == nil {
		return frame.PolicyColorMode
	}
	p, err := frame.ParsePolicy(*s)
	if err != nil {
		return frame.PolicyColorMode
	}
	return p
}
