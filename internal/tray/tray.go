// Package tray provides the system tray interface for the Mudra gesture
// control system.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onQuit        func()
	enabled       bool
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastCommand *systray.MenuItem
	menuMode        *systray.MenuItem
}

// New creates a new Tray instance with control enabled by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when gesture control is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback called when recalibration is requested.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit tears down the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetEnabled sets the toggle state shown in the menu, without firing the
// toggle callback. Used to seed the restored state at startup.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	item := t.menuToggle
	t.mu.Unlock()
	if item != nil {
		item.SetTitle(toggleTitle(enabled))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// SetLastCommand updates the "Last:" menu entry.
func (t *Tray) SetLastCommand(name string) {
	t.mu.RLock()
	item := t.menuLastCommand
	t.mu.RUnlock()
	if item != nil {
		item.SetTitle(fmt.Sprintf("Last: %s", name))
	}
}

// SetKeyboardMode updates the keyboard mode menu entry.
func (t *Tray) SetKeyboardMode(mode string) {
	t.mu.RLock()
	item := t.menuMode
	t.mu.RUnlock()
	if item != nil {
		item.SetTitle(fmt.Sprintf("Keyboard mode: %s", mode))
	}
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Gesture Control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture control")
	systray.AddSeparator()

	t.menuLastCommand = systray.AddMenuItem("Last: none", "Last dispatched command")
	t.menuLastCommand.Disable()
	t.menuMode = systray.AddMenuItem("Keyboard mode: inactive", "Keyboard mode state")
	t.menuMode.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRecalibrate := systray.AddMenuItem("Recalibrate...", "Run the calibration procedure")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.handleRecalibrate()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleRecalibrate handles the recalibrate menu item click.
func (t *Tray) handleRecalibrate() {
	t.mu.RLock()
	callback := t.onRecalibrate
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}
