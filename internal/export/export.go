// Package export writes what the viewer shows to disk: PNG screenshots of
// single frames and movies of a full playback loop.
package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
)

// Movie container suffixes.
const (
	ExtMP4 = ".mp4"
	ExtGIF = ".gif"
)

// ScreenshotName returns "<base>_<frameIndex>.png".
func ScreenshotName(base string, frameIndex int) string {
	return base + "_" + strconv.Itoa(frameIndex) + ".png"
}

// MovieName returns base with the container suffix ext.
func MovieName(base, ext string) string {
	return base + ext
}

// SavePNG encodes img to path on fsys, creating parent directories.
func SavePNG(fsys fsutil.FileSystem, path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Exporter names and writes the outputs of one viewer session.
type Exporter struct {
	FS         fsutil.FileSystem
	Base       string  // output path prefix, usually the first dataset's basename
	FrameRate  float64 // movie frames per second
	FFmpegPath string  // empty or unresolvable selects the GIF fallback
}

// Screenshot saves img as "<Base>_<frameIndex>.png" and returns the path.
func (e *Exporter) Screenshot(img image.Image, frameIndex int) (string, error) {
	path := ScreenshotName(e.Base, frameIndex)
	if err := SavePNG(e.FS, path, img); err != nil {
		return "", err
	}
	monitoring.Logf("[export] saved screenshot %s", path)
	return path, nil
}

// StartMovie opens a movie encoder for width by height frames. It prefers
// ffmpeg and an .mp4; without ffmpeg it writes an animated .gif instead.
func (e *Exporter) StartMovie(ctx context.Context, width, height int) (MovieEncoder, error) {
	if bin, ok := LookupFFmpeg(e.FFmpegPath); ok {
		path := MovieName(e.Base, ExtMP4)
		enc, err := NewFFmpegEncoder(ctx, bin, path, e.FrameRate, width, height)
		if err == nil {
			monitoring.Logf("[export] recording %s with %s", path, bin)
			return enc, nil
		}
		monitoring.Logf("[export] ffmpeg failed to start (%v), falling back to GIF", err)
	} else {
		monitoring.Logf("[export] ffmpeg not found, falling back to GIF")
	}

	path := MovieName(e.Base, ExtGIF)
	monitoring.Logf("[export] recording %s", path)
	return NewGIFEncoder(e.FS, path, e.FrameRate), nil
}
