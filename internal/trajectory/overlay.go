package trajectory

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultOverlayPath is where the simulator saves active-site positions.
const DefaultOverlayPath = "active_site.pt"

// LoadOverlay reads a static point overlay: three whitespace-separated reals
// per line. A missing file is not an error; ok is false and points is nil.
func LoadOverlay(fsys fsutil.FileSystem, path string) (points []r3.Vec, ok bool, err error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open overlay: %w", err)
	}
	defer f.Close()

	names := [3]Field{FieldX, FieldY, FieldZ}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		var v [3]float64
		for i, name := range names {
			if i >= len(tokens) {
				return nil, false, &ParseError{Path: path, Line: lineNo, Field: string(name), Reason: "missing"}
			}
			v[i], err = strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return nil, false, &ParseError{Path: path, Line: lineNo, Field: string(name), Value: tokens[i], Reason: "not numeric"}
			}
			if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				return nil, false, &ParseError{Path: path, Line: lineNo, Field: string(name), Value: tokens[i], Reason: "not finite"}
			}
		}
		points = append(points, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read overlay %s: %w", path, err)
	}

	monitoring.Logf("[trajectory] plot with %s: %d points", path, len(points))
	return points, true, nil
}
