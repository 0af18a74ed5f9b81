package playback

import (
	"fmt"
	"sort"
	"strings"
)

// Key names a keyboard key independently of any windowing toolkit.
type Key int

const (
	KeyUnknown Key = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyS
	KeyR
	KeyP
	KeyQ
	KeyLeft
	KeyRight
)

var keyNames = map[Key]string{
	KeySpace:  "space",
	KeyEnter:  "enter",
	KeyEscape: "escape",
	KeyS:      "s",
	KeyR:      "r",
	KeyP:      "p",
	KeyQ:      "q",
	KeyLeft:   "left",
	KeyRight:  "right",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKey reads a key name, case-insensitively. "return" is an alias for
// enter and "esc" for escape.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "return":
		return KeyEnter, nil
	case "esc":
		return KeyEscape, nil
	}
	for k, n := range keyNames {
		if n == name {
			return k, nil
		}
	}
	return KeyUnknown, fmt.Errorf("unknown key %q", s)
}

// Action is something the viewer does in response to input.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionReset
	ActionScreenshot
	ActionStepForward
	ActionStepBack
	ActionQuit
)

var actionNames = map[Action]string{
	ActionTogglePause: "toggle_pause",
	ActionReset:       "reset",
	ActionScreenshot:  "screenshot",
	ActionStepForward: "step_forward",
	ActionStepBack:    "step_back",
	ActionQuit:        "quit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "none"
}

// ParseAction reads an action name such as "toggle_pause".
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// Keymap binds keys to actions.
type Keymap map[Key]Action

// DefaultKeymap binds SPACE, ENTER and S as the original viewer did, plus
// arrow keys for single steps and escape to quit.
func DefaultKeymap() Keymap {
	return Keymap{
		KeySpace:  ActionTogglePause,
		KeyEnter:  ActionReset,
		KeyS:      ActionScreenshot,
		KeyRight:  ActionStepForward,
		KeyLeft:   ActionStepBack,
		KeyEscape: ActionQuit,
	}
}

// Lookup returns the action bound to k.
func (m Keymap) Lookup(k Key) (Action, bool) {
	a, ok := m[k]
	if !ok || a == ActionNone {
		return ActionNone, false
	}
	return a, true
}

// Keys returns the bound keys in a stable order.
func (m Keymap) Keys() []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WithOverrides returns a copy of m with bindings from overrides, which maps
// key names to action names. Binding a key to "none" removes it.
func (m Keymap) WithOverrides(overrides map[string]string) (Keymap, error) {
	out := make(Keymap, len(m)+len(overrides))
	for k, a := range m {
		out[k] = a
	}
	for keyName, actionName := range overrides {
		k, err := ParseKey(keyName)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(strings.TrimSpace(actionName), "none") {
			delete(out, k)
			continue
		}
		a, err := ParseAction(actionName)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", keyName, err)
		}
		out[k] = a
	}
	return out, nil
}

// Apply performs the controller side of an action. Screenshot and quit are
// left to the caller; Apply reports false for them.
func (c *Controller) Apply(a Action) bool {
	switch a {
	case ActionTogglePause:
		c.TogglePlayPause()
	case ActionReset:
		c.Reset()
	case ActionStepForward:
		c.frameIndex = (c.frameIndex + 1) % c.frameCount
	case ActionStepBack:
		c.frameIndex = (c.frameIndex - 1 + c.frameCount) % c.frameCount
	default:
		return false
	}
	return true
}
