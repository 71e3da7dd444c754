// Package control injects pointer and keyboard events into the OS and maps
// camera-space hand positions to screen pixels.
package control

import (
	"runtime"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/mudra/internal/keymode"
)

// failsafeMargin is how close to the top-left corner, in pixels, the pointer
// must be for the panic abort to trip.
const failsafeMargin = 2

// ErrFailsafe is returned when the pointer sits in the failsafe corner.
var ErrFailsafe = errFailsafe{}

type errFailsafe struct{}

func (errFailsafe) Error() string { return "pointer in failsafe corner, injection aborted" }

// Injector is the OS event surface. The production implementation wraps
// robotgo; tests substitute a recorder.
type Injector interface {
	MoveTo(x, y int)
	Click(button string, double bool)
	Toggle(button string, down bool)
	Scroll(dx, dy int)
	KeyTap(key string, modifiers ...string)
	KeyToggle(key string, down bool)
	ScreenSize() (int, int)
	MousePos() (int, int)
}

type robotgoInjector struct{}

// NewInjector returns the robotgo-backed Injector.
func NewInjector() Injector {
	return robotgoInjector{}
}

func (robotgoInjector) MoveTo(x, y int) { robotgo.MoveMouse(x, y) }

func (robotgoInjector) Click(button string, double bool) {
	robotgo.Click(button, double)
}

func (robotgoInjector) Toggle(button string, down bool) {
	direction := "up"
	if down {
		direction = "down"
	}
	robotgo.Toggle(button, direction)
}

func (robotgoInjector) Scroll(dx, dy int) { robotgo.Scroll(dx, dy) }

func (robotgoInjector) KeyTap(key string, modifiers ...string) {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	robotgo.KeyTap(key, args...)
}

func (robotgoInjector) KeyToggle(key string, down bool) {
	direction := "up"
	if down {
		direction = "down"
	}
	robotgo.KeyToggle(key, direction)
}

func (robotgoInjector) ScreenSize() (int, int) { return robotgo.GetScreenSize() }

func (robotgoInjector) MousePos() (int, int) { return robotgo.GetMousePos() }

// PrimaryModifier returns the platform's primary shortcut modifier.
func PrimaryModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// ShortcutKeys translates a keyboard-mode shortcut into a robotgo key tap.
func ShortcutKeys(sc keymode.Shortcut, goos string) (key string, modifiers []string, ok bool) {
	mod := PrimaryModifier(goos)
	switch sc {
	case keymode.ShortcutEscape:
		return "escape", nil, true
	case keymode.ShortcutEnter:
		return "enter", nil, true
	case keymode.ShortcutCopy:
		return "c", []string{mod}, true
	case keymode.ShortcutPaste:
		return "v", []string{mod}, true
	case keymode.ShortcutAppSwitch:
		if goos == "darwin" {
			return "tab", []string{"cmd"}, true
		}
		return "tab", []string{"alt"}, true
	}
	return "", nil, false
}

// InFailsafeCorner reports whether the pointer position trips the abort.
func InFailsafeCorner(x, y int) bool {
	return x <= failsafeMargin && y <= failsafeMargin
}

// Automator wraps an Injector with the failsafe check and drag state. It is
// owned by the processing goroutine.
type Automator struct {
	inj      Injector
	goos     string
	dragging bool
}

// NewAutomator creates an Automator over the given Injector.
func NewAutomator(inj Injector) *Automator {
	return &Automator{inj: inj, goos: runtime.GOOS}
}

// guard returns ErrFailsafe when the user has parked the pointer in the
// top-left corner to cut the system off.
func (a *Automator) guard() error {
	x, y := a.inj.MousePos()
	if InFailsafeCorner(x, y) {
		return ErrFailsafe
	}
	return nil
}

// Dragging reports whether a drag is held down.
func (a *Automator) Dragging() bool { return a.dragging }

// MoveTo moves the pointer to the given screen pixel.
func (a *Automator) MoveTo(x, y int) error {
	if err := a.guard(); err != nil {
		return err
	}
	a.inj.MoveTo(x, y)
	return nil
}

// Click presses and releases a mouse button.
func (a *Automator) Click(button string, double bool) error {
	if err := a.guard(); err != nil {
		return err
	}
	a.inj.Click(button, double)
	return nil
}

// Scroll scrolls vertically by the given amount. Positive scrolls up.
func (a *Automator) Scroll(amount int) error {
	if amount == 0 {
		return nil
	}
	if err := a.guard(); err != nil {
		return err
	}
	a.inj.Scroll(0, amount)
	return nil
}

// DragTo holds the left button down and moves the pointer, starting the
// drag on the first call.
func (a *Automator) DragTo(x, y int) error {
	if err := a.guard(); err != nil {
		// Never leave a button stuck down across an abort.
		a.EndDrag()
		return err
	}
	if !a.dragging {
		a.inj.Toggle("left", true)
		a.dragging = true
	}
	a.inj.MoveTo(x, y)
	return nil
}

// EndDrag releases the drag if one is held. Safe to call unconditionally.
func (a *Automator) EndDrag() {
	if a.dragging {
		a.inj.Toggle("left", false)
		a.dragging = false
	}
}

// DragBy holds the left button down and moves the pointer by a relative
// offset, for window dragging.
func (a *Automator) DragBy(dx, dy int) error {
	x, y := a.inj.MousePos()
	if InFailsafeCorner(x, y) {
		a.EndDrag()
		return ErrFailsafe
	}
	if !a.dragging {
		a.inj.Toggle("left", true)
		a.dragging = true
	}
	a.inj.MoveTo(x+dx, y+dy)
	return nil
}

// Zoom scrolls while holding the platform modifier, which most applications
// treat as zoom or resize. Positive zooms in.
func (a *Automator) Zoom(amount int) error {
	if amount == 0 {
		return nil
	}
	if err := a.guard(); err != nil {
		return err
	}
	mod := PrimaryModifier(a.goos)
	a.inj.KeyToggle(mod, true)
	a.inj.Scroll(0, amount)
	a.inj.KeyToggle(mod, false)
	return nil
}

// MinimizeWindow minimizes the focused window.
func (a *Automator) MinimizeWindow() error {
	if err := a.guard(); err != nil {
		return err
	}
	if a.goos == "darwin" {
		a.inj.KeyTap("m", "cmd")
	} else {
		a.inj.KeyTap("down", "cmd")
	}
	return nil
}

// MaximizeWindow maximizes the focused window.
func (a *Automator) MaximizeWindow() error {
	if err := a.guard(); err != nil {
		return err
	}
	if a.goos == "darwin" {
		a.inj.KeyTap("f", "cmd", "ctrl")
	} else {
		a.inj.KeyTap("up", "cmd")
	}
	return nil
}

// SendShortcut fires a keyboard-mode shortcut.
func (a *Automator) SendShortcut(sc keymode.Shortcut) error {
	key, mods, ok := ShortcutKeys(sc, a.goos)
	if !ok {
		return nil
	}
	if err := a.guard(); err != nil {
		return err
	}
	a.inj.KeyTap(key, mods...)
	return nil
}

// ScreenSize returns the primary display resolution.
func (a *Automator) ScreenSize() (int, int) { return a.inj.ScreenSize() }
