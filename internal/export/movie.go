package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"math"
	"os/exec"
	"strconv"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
)

// ErrEncoderClosed is returned when a frame is added after Close.
var ErrEncoderClosed = errors.New("movie encoder closed")

// MovieEncoder accepts frames in display order.
type MovieEncoder interface {
	AddFrame(img image.Image) error
	// Close finishes the file. It is safe to call more than once.
	Close() error
	// Path is where the movie is written.
	Path() string
	// Frames is the number of frames added so far.
	Frames() int
}

// LookupFFmpeg resolves the ffmpeg binary. An empty name means "ffmpeg".
func LookupFFmpeg(name string) (string, bool) {
	if name == "" {
		name = "ffmpeg"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return bin, true
}

// FFmpegEncoder streams PNG frames to an ffmpeg process over stdin.
type FFmpegEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	path   string
	frames int
	closed bool
	err    error
}

// NewFFmpegEncoder starts ffmpeg writing an H.264 movie to path.
func NewFFmpegEncoder(ctx context.Context, bin, path string, frameRate float64, width, height int) (*FFmpegEncoder, error) {
	if frameRate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %f", frameRate)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe",
		"-framerate", strconv.FormatFloat(frameRate, 'g', -1, 64),
		"-c:v", "png",
		"-i", "-",
		"-s", fmt.Sprintf("%dx%d", width, height),
		// yuv420p needs even dimensions.
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		path,
	}
	e := &FFmpegEncoder{path: path}
	e.cmd = exec.CommandContext(ctx, bin, args...)
	e.cmd.Stderr = &e.stderr
	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	e.stdin = stdin
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return e, nil
}

// AddFrame encodes img as PNG into the pipe.
func (e *FFmpegEncoder) AddFrame(img image.Image) error {
	if e.closed {
		return ErrEncoderClosed
	}
	if e.err != nil {
		return e.err
	}
	if err := png.Encode(e.stdin, img); err != nil {
		e.err = fmt.Errorf("write frame %d to ffmpeg: %w", e.frames, err)
		return e.err
	}
	e.frames++
	return nil
}

// Close ends the stream and waits for ffmpeg to exit.
func (e *FFmpegEncoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil && e.err == nil {
		e.err = fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(e.stderr.Bytes()))
	}
	if e.err == nil {
		monitoring.Logf("[export] wrote %s (%d frames)", e.path, e.frames)
	}
	return e.err
}

// Path returns the output file.
func (e *FFmpegEncoder) Path() string { return e.path }

// Frames returns the number of frames written.
func (e *FFmpegEncoder) Frames() int { return e.frames }

// DefaultMaxGIFFrames bounds the frames a GIFEncoder holds in memory.
const DefaultMaxGIFFrames = 600

// GIFEncoder buffers paletted frames and writes an animated GIF on Close.
// When more than MaxFrames arrive it keeps every other frame and doubles
// the delay, so long recordings play at full length with fewer frames.
type GIFEncoder struct {
	MaxFrames int

	fs     fsutil.FileSystem
	path   string
	delay  int // hundredths of a second
	stride int // keep one frame in stride
	seen   int
	anim   gif.GIF
	closed bool
	err    error
}

// NewGIFEncoder returns an encoder writing to path on fsys.
func NewGIFEncoder(fsys fsutil.FileSystem, path string, frameRate float64) *GIFEncoder {
	delay := 3
	if frameRate > 0 {
		delay = int(math.Max(1, math.Round(100/frameRate)))
	}
	return &GIFEncoder{MaxFrames: DefaultMaxGIFFrames, fs: fsys, path: path, delay: delay, stride: 1}
}

// AddFrame quantizes img to the Plan9 palette.
func (e *GIFEncoder) AddFrame(img image.Image) error {
	if e.closed {
		return ErrEncoderClosed
	}
	keep := e.seen%e.stride == 0
	e.seen++
	if !keep {
		return nil
	}
	b := img.Bounds()
	pal := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(pal, b, img, b.Min)
	e.anim.Image = append(e.anim.Image, pal)
	e.anim.Delay = append(e.anim.Delay, e.delay*e.stride)
	if e.MaxFrames > 0 && len(e.anim.Image) > e.MaxFrames {
		e.thin()
	}
	return nil
}

// thin drops every other buffered frame.
func (e *GIFEncoder) thin() {
	n := 0
	for i := 0; i < len(e.anim.Image); i += 2 {
		e.anim.Image[n] = e.anim.Image[i]
		e.anim.Delay[n] = e.anim.Delay[i] * 2
		n++
	}
	clear(e.anim.Image[n:])
	e.anim.Image = e.anim.Image[:n]
	e.anim.Delay = e.anim.Delay[:n]
	e.stride *= 2
	monitoring.Logf("[export] %s: keeping one frame in %d", e.path, e.stride)
}

// Close encodes all frames.
func (e *GIFEncoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if len(e.anim.Image) == 0 {
		e.err = errors.New("no frames to write")
		return e.err
	}

	f, err := e.fs.Create(e.path)
	if err != nil {
		e.err = fmt.Errorf("failed to create %s: %w", e.path, err)
		return e.err
	}
	if err := gif.EncodeAll(f, &e.anim); err != nil {
		f.Close()
		e.err = fmt.Errorf("failed to encode %s: %w", e.path, err)
		return e.err
	}
	if err := f.Close(); err != nil {
		e.err = err
		return err
	}
	monitoring.Logf("[export] wrote %s (%d frames)", e.path, len(e.anim.Image))
	return nil
}

// Path returns the output file.
func (e *GIFEncoder) Path() string { return e.path }

// Frames returns the number of frames buffered, after thinning.
func (e *GIFEncoder) Frames() int { return len(e.anim.Image) }
