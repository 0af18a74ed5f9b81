package viewer

import (
	"context"

	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/timeutil"
)

// Run drives the session without a window. Each tick of a clock ticker at
// the configured frame rate steps the session with the actions received
// since the previous tick. It returns nil after a quit action or after
// maxTicks ticks (maxTicks <= 0 means unlimited), and ctx.Err() when ctx
// is cancelled. A nil actions channel is never read.
func (s *Session) Run(ctx context.Context, actions <-chan playback.Action, maxTicks int) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	interval := timeutil.FrameInterval(s.FrameRate())
	ticker := s.opts.Clock.NewTicker(interval)
	defer ticker.Stop()

	monitoring.Logf("[viewer] headless playback at %.1f fps (%v per frame)", s.FrameRate(), interval)

	var pending []playback.Action
	ran := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}
			pending = append(pending, a)
		case <-ticker.C():
			_, quit, err := s.Step(pending...)
			pending = pending[:0]
			if err != nil {
				return err
			}
			if quit {
				monitoring.Logf("[viewer] quit at frame %d", s.controller.FrameIndex())
				return nil
			}
			ran++
			if maxTicks > 0 && ran >= maxTicks {
				return nil
			}
		}
	}
}
