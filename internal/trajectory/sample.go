package trajectory

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is one measurement of one particle.
type Sample struct {
	TrackID  int
	Time     float64
	Position r3.Vec
	Radius   float64 // >= 0

	// Optional simulator columns; zero when absent.
	Duration float64
	State    int
}

func (s Sample) String() string {
	return fmt.Sprintf("tid=%d t=%g (%g,%g,%g) r=%g", s.TrackID, s.Time, s.Position.X, s.Position.Y, s.Position.Z, s.Radius)
}

// Field names a column of the record schema.
type Field string

const (
	FieldTime     Field = "t"
	FieldTrackID  Field = "tid"
	FieldX        Field = "x"
	FieldY        Field = "y"
	FieldZ        Field = "z"
	FieldRadius   Field = "r"
	FieldDuration Field = "duration"
	FieldState    Field = "state"
)

// DefaultColumns is the column order written by the walker simulator.
var DefaultColumns = []Field{FieldTime, FieldX, FieldY, FieldZ, FieldRadius, FieldDuration, FieldTrackID, FieldState}

// RequiredFields must be present in every record.
var RequiredFields = []Field{FieldTime, FieldTrackID, FieldX, FieldY, FieldZ, FieldRadius}

func parseField(s string) (Field, bool) {
	switch f := Field(strings.ToLower(s)); f {
	case FieldTime, FieldTrackID, FieldX, FieldY, FieldZ, FieldRadius, FieldDuration, FieldState:
		return f, true
	}
	return "", false
}
