package trajectory

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Writer emits samples in the simulator's column order.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(s Sample) error {
	b := w.buf[:0]
	b = strconv.AppendFloat(b, s.Time, 'g', -1, 64)
	for _, v := range [...]float64{s.Position.X, s.Position.Y, s.Position.Z, s.Radius, s.Duration} {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, v, 'g', -1, 64)
	}
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(s.TrackID), 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(s.State), 10)
	b = append(b, '\n')
	w.buf = b
	_, err := w.w.Write(b)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Save writes samples to path, compressing by suffix (.zst, .gz).
func Save(fsys fsutil.FileSystem, path string, samples []Sample) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	var sink io.WriteCloser
	switch strings.ToLower(filepath.Ext(path)) {
	case SuffixZstd:
		sink, err = zstd.NewWriter(f)
	case SuffixGzip:
		sink = gzip.NewWriter(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create encoder for %s: %w", path, err)
	}

	var out io.Writer = f
	if sink != nil {
		out = sink
	}
	w := NewWriter(out)
	for _, s := range samples {
		if err := w.Write(s); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			f.Close()
			return fmt.Errorf("failed to finish %s: %w", path, err)
		}
	}
	return f.Close()
}
