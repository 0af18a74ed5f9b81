// Package window shows a viewer session in an ebiten window. Update is the
// tick driver: it collects key presses as actions, lets the mouse move the
// camera, and steps the session once per tick.
package window

import (
	"errors"
	"math"

	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/playback"
	"github.com/banshee-data/ptview/internal/viewer"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Mouse sensitivity.
const (
	degreesPerPixel = 0.4
	zoomStep        = 1.1 // distance factor per wheel notch
)

// keys maps ebiten keys onto the viewer's key names. Actions from keys
// pressed in the same tick are applied in this order.
var keys = []struct {
	ebiten ebiten.Key
	key    playback.Key
}{
	{ebiten.KeySpace, playback.KeySpace},
	{ebiten.KeyEnter, playback.KeyEnter},
	{ebiten.KeyEscape, playback.KeyEscape},
	{ebiten.KeyS, playback.KeyS},
	{ebiten.KeyR, playback.KeyR},
	{ebiten.KeyP, playback.KeyP},
	{ebiten.KeyQ, playback.KeyQ},
	{ebiten.KeyArrowLeft, playback.KeyLeft},
	{ebiten.KeyArrowRight, playback.KeyRight},
}

// Game adapts a Session to ebiten.Game.
type Game struct {
	session *viewer.Session
	keymap  playback.Keymap

	dragging     bool
	lastX, lastY int

	frame *ebiten.Image
}

// NewGame wraps an initialized session.
func NewGame(s *viewer.Session) *Game {
	return &Game{session: s, keymap: s.Keymap()}
}

// Run opens the window and blocks until it is closed or a quit action
// arrives.
func Run(s *viewer.Session, title string) error {
	w, h := s.Size()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(tps(s.FrameRate()))

	monitoring.Logf("[window] opening %dx%d window at %d tps", w, h, ebiten.TPS())
	err := ebiten.RunGame(NewGame(s))
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update runs one tick.
func (g *Game) Update() error {
	actions := pressedActions(g.keymap, inpututil.IsKeyJustPressed)
	g.handleMouse()

	layers, quit, err := g.session.Step(actions...)
	if err != nil {
		return err
	}
	if quit {
		return ebiten.Termination
	}

	img, err := g.session.Render(layers)
	if err != nil {
		return err
	}
	if g.frame != nil {
		g.frame.Deallocate()
	}
	g.frame = ebiten.NewImageFromImage(img)
	return nil
}

func pressedActions(km playback.Keymap, justPressed func(ebiten.Key) bool) []playback.Action {
	var actions []playback.Action
	for _, k := range keys {
		if !justPressed(k.ebiten) {
			continue
		}
		if a, ok := km.Lookup(k.key); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// tps rounds a frame rate to ticks per second. Ebiten stops updating at
// zero, so slow rates run at one tick per second.
func tps(frameRate float64) int {
	return max(1, int(math.Round(frameRate)))
}

func (g *Game) handleMouse() {
	cam := g.session.Camera()

	if _, wheelY := ebiten.Wheel(); wheelY != 0 {
		cam.ZoomBy(wheelFactor(wheelY))
	}

	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if g.dragging {
			cam.Rotate(dragDegrees(x-g.lastX), dragDegrees(y-g.lastY))
		}
		g.dragging = true
	} else {
		g.dragging = false
	}
	g.lastX, g.lastY = x, y
}

// wheelFactor converts wheel notches to a zoom factor; scrolling up moves
// closer.
func wheelFactor(notches float64) float64 {
	return math.Pow(zoomStep, -notches)
}

func dragDegrees(pixels int) float64 {
	return float64(pixels) * degreesPerPixel
}

// Draw copies the last rendered frame to the screen.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		return
	}
	screen.DrawImage(g.frame, nil)
}

// Layout keeps the logical screen at the session's render size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.session.Size()
}
