// Package keymode implements the keyboard shortcut mode: an open palm held
// steady arms it, the first finger-count pose fires its shortcut and leaves
// the mode in the same frame.
package keymode

import "time"

// State of the keyboard mode controller.
type State int

const (
	// Inactive: gestures drive the pointer as usual.
	Inactive State = iota
	// Activating: an open palm is held and the entry timer is running.
	Activating
	// Active: the next non-palm finger pattern fires a shortcut.
	Active
)

func (s State) String() string {
	switch s {
	case Activating:
		return "activating"
	case Active:
		return "active"
	default:
		return "inactive"
	}
}

// Shortcut is a keyboard action fired from keyboard mode.
type Shortcut int

const (
	ShortcutNone Shortcut = iota
	ShortcutEscape
	ShortcutEnter
	ShortcutCopy
	ShortcutPaste
	ShortcutAppSwitch
)

func (s Shortcut) String() string {
	switch s {
	case ShortcutEscape:
		return "escape"
	case ShortcutEnter:
		return "enter"
	case ShortcutCopy:
		return "copy"
	case ShortcutPaste:
		return "paste"
	case ShortcutAppSwitch:
		return "app_switch"
	default:
		return "none"
	}
}

// Config tunes the entry hold time.
type Config struct {
	// HoldTime is how long the open palm must be held to enter the mode.
	HoldTime time.Duration
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{HoldTime: time.Second}
}

// Feedback reports keyboard mode progress for UI surfaces. Remaining is the
// hold time left while Activating; Executed carries the shortcut dispatched
// on exit, if any.
type Feedback struct {
	State     State
	Remaining time.Duration
	Executed  Shortcut
}

// Controller runs the keyboard mode state machine. It is owned by the
// processing goroutine. OnFeedback, when set, is called with entry progress
// every frame while Activating and with the dispatched shortcut on exit.
type Controller struct {
	cfg Config
	now func() time.Time

	OnFeedback func(Feedback)

	state     State
	holdSince time.Time
}

// New creates a Controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg, now: time.Now}
}

// State returns the current mode state.
func (c *Controller) State() State {
	return c.state
}

// Reset forces the controller back to Inactive, as after a tracking loss.
func (c *Controller) Reset() {
	if c.state != Inactive {
		c.state = Inactive
		c.emit(Feedback{State: Inactive})
	}
	c.holdSince = time.Time{}
}

func (c *Controller) emit(f Feedback) {
	if c.OnFeedback != nil {
		c.OnFeedback(f)
	}
}

// poseShortcut maps a finger pattern to its shortcut. Patterns use the
// non-thumb count with the thumb curled; the thumb alone is app switch.
func poseShortcut(extended [5]bool) Shortcut {
	thumb := extended[0]
	count := 0
	for _, ext := range extended[1:] {
		if ext {
			count++
		}
	}

	if thumb && count == 0 {
		return ShortcutAppSwitch
	}
	if thumb {
		return ShortcutNone
	}
	switch count {
	case 1:
		return ShortcutEscape
	case 2:
		return ShortcutEnter
	case 3:
		return ShortcutCopy
	case 4:
		return ShortcutPaste
	}
	return ShortcutNone
}

// Update advances the state machine by one frame. extended is the per-digit
// extension state in the order thumb, index, middle, ring, pinky. While
// Active, the first frame whose fingers are not all extended classifies the
// pattern, returns its shortcut if one matched, and leaves the mode in the
// same call either way.
func (c *Controller) Update(extended [5]bool) (Shortcut, bool) {
	allFive := true
	for _, ext := range extended {
		allFive = allFive && ext
	}

	switch c.state {
	case Inactive:
		if allFive {
			c.state = Activating
			c.holdSince = c.now()
			c.emit(Feedback{State: Activating, Remaining: c.cfg.HoldTime})
		}
		return ShortcutNone, false

	case Activating:
		if !allFive {
			c.state = Inactive
			c.emit(Feedback{State: Inactive})
			return ShortcutNone, false
		}
		held := c.now().Sub(c.holdSince)
		if held < c.cfg.HoldTime {
			c.emit(Feedback{State: Activating, Remaining: c.cfg.HoldTime - held})
			return ShortcutNone, false
		}
		c.state = Active
		c.emit(Feedback{State: Active})
		return ShortcutNone, false
	}

	// Active. The open palm is the rest position.
	if allFive {
		return ShortcutNone, false
	}
	sc := poseShortcut(extended)
	c.state = Inactive
	c.emit(Feedback{State: Inactive, Executed: sc})
	return sc, sc != ShortcutNone
}
