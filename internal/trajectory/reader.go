package trajectory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/spatial/r3"
)

const maxLineBytes = 1 << 20

// Load reads and indexes a trajectory file.
//
// Errors: ErrFileNotFound when path does not exist, *ParseError for a
// malformed record, ErrEmptyDataset when no record parses.
func Load(fsys fsutil.FileSystem, path string) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open trajectory: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer closeFn()

	ds, err := LoadReader(r, path)
	if err != nil {
		return nil, err
	}

	st := ds.Stats()
	monitoring.Logf("[trajectory] loaded %s: iteration number=%d, track number=%d, samples=%d",
		path, st.FrameCount, st.TrackCount, st.SampleCount)
	return ds, nil
}

// LoadReader parses records from r. name is used in errors and as the
// dataset name.
func LoadReader(r io.Reader, name string) (*Dataset, error) {
	samples, err := ParseRecords(r, name)
	if err != nil {
		return nil, err
	}
	return NewDataset(name, samples)
}

// ParseRecords parses every record in r without indexing them.
func ParseRecords(r io.Reader, name string) ([]Sample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	cols, err := newColumnMap(DefaultColumns, name, 0)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	lineNo := 0
	first := true
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		leading := first
		first = false
		if strings.HasPrefix(line, "#") {
			// Only the first non-blank line can be a header.
			if !leading {
				continue
			}
			fields, ok, err := headerFields(line, name, lineNo)
			if err != nil {
				return nil, err
			}
			if ok {
				cols, err = newColumnMap(fields, name, lineNo)
				if err != nil {
					return nil, err
				}
			}
			continue
		}

		s, err := cols.parse(strings.Fields(line), name, lineNo)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return samples, nil
}

// headerFields recognises "# t x y z r ...". A comment naming no field is
// not a header; one naming any field must name only fields.
func headerFields(line, name string, lineNo int) ([]Field, bool, error) {
	tokens := strings.Fields(strings.TrimPrefix(line, "#"))
	fields := make([]Field, len(tokens))
	known := 0
	unknown := ""
	for i, tok := range tokens {
		f, ok := parseField(tok)
		if !ok {
			if unknown == "" {
				unknown = tok
			}
			continue
		}
		fields[i] = f
		known++
	}
	if known == 0 {
		return nil, false, nil
	}
	if unknown != "" {
		return nil, false, &ParseError{Path: name, Line: lineNo, Field: unknown, Reason: "unknown column in header"}
	}
	return fields, true, nil
}

// columnMap maps field names to column positions.
type columnMap map[Field]int

func newColumnMap(fields []Field, name string, lineNo int) (columnMap, error) {
	m := make(columnMap, len(fields))
	for i, f := range fields {
		if _, dup := m[f]; dup {
			return nil, &ParseError{Path: name, Line: lineNo, Field: string(f), Reason: "duplicate column in header"}
		}
		m[f] = i
	}
	for _, f := range RequiredFields {
		if _, ok := m[f]; !ok {
			return nil, &ParseError{Path: name, Line: lineNo, Field: string(f), Reason: "required column missing from header"}
		}
	}
	return m, nil
}

func (m columnMap) token(tokens []string, f Field) (string, bool) {
	i, ok := m[f]
	if !ok || i >= len(tokens) {
		return "", false
	}
	return tokens[i], true
}

func (m columnMap) number(tokens []string, f Field, name string, lineNo int) (float64, error) {
	tok, ok := m.token(tokens, f)
	if !ok {
		return 0, &ParseError{Path: name, Line: lineNo, Field: string(f), Reason: "missing"}
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &ParseError{Path: name, Line: lineNo, Field: string(f), Value: tok, Reason: "not numeric"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Path: name, Line: lineNo, Field: string(f), Value: tok, Reason: "not finite"}
	}
	return v, nil
}

func (m columnMap) integer(tokens []string, f Field, name string, lineNo int) (int, error) {
	tok, ok := m.token(tokens, f)
	if !ok {
		return 0, &ParseError{Path: name, Line: lineNo, Field: string(f), Reason: "missing"}
	}
	if v, err := strconv.Atoi(tok); err == nil {
		return v, nil
	}
	// The simulator streams doubles, so "7.0" is a valid id.
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, &ParseError{Path: name, Line: lineNo, Field: string(f), Value: tok, Reason: "not an integer"}
	}
	return int(v), nil
}

func (m columnMap) parse(tokens []string, name string, lineNo int) (Sample, error) {
	var (
		s   Sample
		err error
	)
	if s.Time, err = m.number(tokens, FieldTime, name, lineNo); err != nil {
		return s, err
	}
	if s.TrackID, err = m.integer(tokens, FieldTrackID, name, lineNo); err != nil {
		return s, err
	}
	var x, y, z float64
	if x, err = m.number(tokens, FieldX, name, lineNo); err != nil {
		return s, err
	}
	if y, err = m.number(tokens, FieldY, name, lineNo); err != nil {
		return s, err
	}
	if z, err = m.number(tokens, FieldZ, name, lineNo); err != nil {
		return s, err
	}
	s.Position = r3.Vec{X: x, Y: y, Z: z}
	if s.Radius, err = m.number(tokens, FieldRadius, name, lineNo); err != nil {
		return s, err
	}
	if s.Radius < 0 {
		tok, _ := m.token(tokens, FieldRadius)
		return s, &ParseError{Path: name, Line: lineNo, Field: string(FieldRadius), Value: tok, Reason: "negative radius"}
	}

	// Optional columns are only checked when present.
	if _, ok := m.token(tokens, FieldDuration); ok {
		if s.Duration, err = m.number(tokens, FieldDuration, name, lineNo); err != nil {
			return s, err
		}
	}
	if _, ok := m.token(tokens, FieldState); ok {
		if s.State, err = m.integer(tokens, FieldState, name, lineNo); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Compression suffixes understood by Load and Save.
const (
	SuffixZstd = ".zst"
	SuffixGzip = ".gz"
)

func decompress(r io.Reader, path string) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case SuffixZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, dec.Close, nil
	case SuffixGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	default:
		return r, func() {}, nil
	}
}

// BaseName strips any compression suffix and the file extension from path,
// keeping the directory. "runs/a.pt.zst" becomes "runs/a".
func BaseName(path string) string {
	base := path
	switch strings.ToLower(filepath.Ext(base)) {
	case SuffixZstd, SuffixGzip:
		base = base[:len(base)-len(filepath.Ext(base))]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
