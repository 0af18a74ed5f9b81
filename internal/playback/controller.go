// Package playback holds the replay state machine: a frame cursor that
// advances one frame per tick while playing and wraps at the end.
package playback

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoFrames is returned by NewController for a frame count below one.
	ErrNoFrames = errors.New("playback needs at least one frame")

	// ErrSeekOutOfRange is returned by Seek for an index outside the timeline.
	ErrSeekOutOfRange = errors.New("seek index out of range")
)

// State is a snapshot of the controller.
type State struct {
	FrameIndex int
	FrameCount int
	Playing    bool
}

// Controller advances a frame index over [0, frameCount). It is not safe
// for concurrent use; the tick driver owns it.
type Controller struct {
	frameCount int
	frameIndex int
	playing    bool
}

// NewController starts playing at frame 0.
func NewController(frameCount int) (*Controller, error) {
	if frameCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoFrames, frameCount)
	}
	return &Controller{frameCount: frameCount, playing: true}, nil
}

// Tick advances one frame while playing, wrapping to 0 after the last.
func (c *Controller) Tick() {
	if !c.playing {
		return
	}
	c.frameIndex = (c.frameIndex + 1) % c.frameCount
}

// TogglePlayPause flips between playing and paused.
func (c *Controller) TogglePlayPause() {
	c.playing = !c.playing
}

// Reset returns to frame 0 without changing the play state.
func (c *Controller) Reset() {
	c.frameIndex = 0
}

// Seek jumps to frame i.
func (c *Controller) Seek(i int) error {
	if i < 0 || i >= c.frameCount {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrSeekOutOfRange, i, c.frameCount)
	}
	c.frameIndex = i
	return nil
}

// FrameIndex returns the current frame.
func (c *Controller) FrameIndex() int { return c.frameIndex }

// Playing reports whether Tick advances.
func (c *Controller) Playing() bool { return c.playing }

// State returns a snapshot.
func (c *Controller) State() State {
	return State{FrameIndex: c.frameIndex, FrameCount: c.frameCount, Playing: c.playing}
}

// Duration is the length of one loop at frameRate frames per second.
// It is zero for a non-positive rate.
func (c *Controller) Duration(frameRate float64) time.Duration {
	if frameRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.frameCount) / frameRate * float64(time.Second))
}
