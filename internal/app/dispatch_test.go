package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/keymode"
	"github.com/ayusman/mudra/internal/smoothing"
	"github.com/ayusman/mudra/internal/store"
)

// recordingInjector captures injected events for assertions.
type recordingInjector struct {
	events []string
	x, y   int
}

func (r *recordingInjector) MoveTo(x, y int) {
	r.x, r.y = x, y
	r.events = append(r.events, "move")
}

func (r *recordingInjector) Click(button string, double bool) {
	if double {
		r.events = append(r.events, "doubleclick:"+button)
	} else {
		r.events = append(r.events, "click:"+button)
	}
}

func (r *recordingInjector) Toggle(button string, down bool) {
	if down {
		r.events = append(r.events, "down:"+button)
	} else {
		r.events = append(r.events, "up:"+button)
	}
}

func (r *recordingInjector) Scroll(dx, dy int) {
	r.events = append(r.events, "scroll")
}

func (r *recordingInjector) KeyTap(key string, modifiers ...string) {
	r.events = append(r.events, "tap:"+key)
}

func (r *recordingInjector) KeyToggle(key string, down bool) {
	r.events = append(r.events, "keytoggle:"+key)
}

func (r *recordingInjector) ScreenSize() (int, int) { return 1920, 1080 }

func (r *recordingInjector) MousePos() (int, int) { return r.x, r.y }

func newTestApp(t *testing.T) (*App, *recordingInjector) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	inj := &recordingInjector{x: 500, y: 500}
	settings := config.Default()

	cal := calibration.New(1920, 1080, settings.Pointer.DeadZone)
	cursor, err := control.NewCursor(cal, smoothing.DefaultParams(), 1920, 1080, 1)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}

	a := &App{
		cfg:        Config{Settings: settings, Store: st},
		classifier: gesture.NewClassifier(gesture.DefaultThresholds()),
		debouncer:  gesture.NewDebouncer(gesture.DefaultDebounceConfig()),
		keys:       keymode.New(keymode.DefaultConfig()),
		automator:  control.NewAutomator(inj),
		cursor:     cursor,
		calibrator: cal,
		enabled:    true,
	}
	return a, inj
}

func dispatchOne(a *App, typ gesture.Type, payload gesture.Payload) {
	var dx, dy float64
	a.dispatch(&gesture.Command{Type: typ, At: time.Now(), Payload: payload}, 0.9, &dx, &dy)
}

func TestDispatch_MoveUpdatesPointer(t *testing.T) {
	a, inj := newTestApp(t)

	dispatchOne(a, gesture.Move, gesture.PointPayload{X: 0.5, Y: 0.5})
	if len(inj.events) != 1 || inj.events[0] != "move" {
		t.Fatalf("events = %v, want [move]", inj.events)
	}
	if inj.x != 960 || inj.y != 540 {
		t.Errorf("pointer = (%d, %d), want screen center", inj.x, inj.y)
	}
}

func TestDispatch_ClicksAreRecorded(t *testing.T) {
	a, inj := newTestApp(t)

	dispatchOne(a, gesture.LeftClick, nil)
	dispatchOne(a, gesture.RightClick, nil)
	dispatchOne(a, gesture.DoubleClick, nil)

	want := []string{"click:left", "click:right", "doubleclick:left"}
	if len(inj.events) != len(want) {
		t.Fatalf("events = %v, want %v", inj.events, want)
	}
	for i := range want {
		if inj.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, inj.events[i], want[i])
		}
	}

	entries, err := a.cfg.Store.Commands().Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("command log has %d entries, want 3", len(entries))
	}
}

func TestDispatch_DragHoldsButton(t *testing.T) {
	a, inj := newTestApp(t)

	dispatchOne(a, gesture.Drag, gesture.PointPayload{X: 0.5, Y: 0.5})
	dispatchOne(a, gesture.Drag, gesture.PointPayload{X: 0.6, Y: 0.5})
	if !a.automator.Dragging() {
		t.Fatal("drag not held across drag commands")
	}

	// A move gesture ends the drag before relocating the pointer.
	dispatchOne(a, gesture.Move, gesture.PointPayload{X: 0.5, Y: 0.5})
	if a.automator.Dragging() {
		t.Error("drag still held after a move command")
	}

	downs, ups := 0, 0
	for _, e := range inj.events {
		switch e {
		case "down:left":
			downs++
		case "up:left":
			ups++
		}
	}
	if downs != 1 || ups != 1 {
		t.Errorf("button transitions = %d down, %d up, want 1 and 1", downs, ups)
	}
}

func TestDispatch_WindowMoveIsIncremental(t *testing.T) {
	a, inj := newTestApp(t)

	var dx, dy float64
	a.dispatch(&gesture.Command{
		Type:    gesture.WindowMove,
		At:      time.Now(),
		Payload: gesture.WindowMovePayload{DeltaX: 0.1, DeltaY: 0},
	}, 0.9, &dx, &dy)

	// 0.1 of a 1920-wide screen.
	if inj.x != 500+192 {
		t.Errorf("pointer x = %d, want 692", inj.x)
	}

	// The same cumulative displacement again injects no further movement.
	before := len(inj.events)
	a.dispatch(&gesture.Command{
		Type:    gesture.WindowMove,
		At:      time.Now(),
		Payload: gesture.WindowMovePayload{DeltaX: 0.1, DeltaY: 0},
	}, 0.9, &dx, &dy)
	if len(inj.events) != before {
		t.Errorf("repeated displacement injected %v", inj.events[before:])
	}
}

func TestDispatch_ScrollZeroDeltaInjectsNothing(t *testing.T) {
	a, inj := newTestApp(t)

	dispatchOne(a, gesture.Scroll, gesture.ScrollPayload{Delta: 0})
	if len(inj.events) != 0 {
		t.Errorf("zero scroll injected %v", inj.events)
	}

	dispatchOne(a, gesture.Scroll, gesture.ScrollPayload{Delta: 5})
	if len(inj.events) != 1 || inj.events[0] != "scroll" {
		t.Errorf("events = %v, want [scroll]", inj.events)
	}
}
