package trajectory

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned by Load when the trajectory file does not exist.
	ErrFileNotFound = errors.New("trajectory file not found")

	// ErrEmptyDataset is returned by Load when no record parses.
	ErrEmptyDataset = errors.New("trajectory dataset is empty")

	// ErrTrackNotFound is returned when a track id is not in the dataset.
	ErrTrackNotFound = errors.New("track not found")

	// ErrFrameOutOfRange signals a frame index outside [0, FrameCount).
	// Playback wraps its index, so seeing this is a caller contract violation.
	ErrFrameOutOfRange = errors.New("frame index out of range")
)

// ParseError reports a malformed record or header.
type ParseError struct {
	Path   string
	Line   int
	Field  string // offending field name, e.g. "tid"
	Value  string // raw token, empty when the field is missing
	Reason string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s:%d: field %q: %s", e.Path, e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s:%d: field %q value %q: %s", e.Path, e.Line, e.Field, e.Value, e.Reason)
}
