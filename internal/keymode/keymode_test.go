package keymode

import (
	"testing"
	"time"
)

var (
	openPalm  = [5]bool{true, true, true, true, true}
	fist      = [5]bool{}
	oneFinger = [5]bool{false, true, false, false, false}
	twoFinger = [5]bool{false, true, true, false, false}
	thumbOnly = [5]bool{true, false, false, false, false}
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestController(clock *fakeClock) *Controller {
	c := New(DefaultConfig())
	c.now = clock.now
	return c
}

// enter drives the controller into Active state.
func enter(t *testing.T, c *Controller, clock *fakeClock) {
	t.Helper()
	c.Update(openPalm)
	clock.advance(1100 * time.Millisecond)
	c.Update(openPalm)
	if c.State() != Active {
		t.Fatalf("state after hold = %v, want active", c.State())
	}
}

func TestController_EntryRequiresHold(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)

	c.Update(openPalm)
	if c.State() != Activating {
		t.Fatalf("state after open palm = %v, want activating", c.State())
	}

	clock.advance(500 * time.Millisecond)
	c.Update(openPalm)
	if c.State() == Active {
		t.Fatal("mode activated before the hold time elapsed")
	}

	clock.advance(600 * time.Millisecond)
	c.Update(openPalm)
	if c.State() != Active {
		t.Errorf("state after full hold = %v, want active", c.State())
	}
}

func TestController_BrokenHoldResets(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)

	c.Update(openPalm)
	clock.advance(800 * time.Millisecond)
	c.Update(oneFinger)
	if c.State() != Inactive {
		t.Fatalf("state after breaking hold = %v, want inactive", c.State())
	}

	// Reopening starts a fresh timer.
	c.Update(openPalm)
	clock.advance(300 * time.Millisecond)
	c.Update(openPalm)
	if c.State() == Active {
		t.Error("mode activated on a stale hold timer")
	}
}

func TestController_FirstPatternDispatchesAndExits(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	enter(t, c, clock)

	sc, ok := c.Update(oneFinger)
	if !ok {
		t.Fatal("first one-finger frame fired no shortcut")
	}
	if sc != ShortcutEscape {
		t.Errorf("shortcut = %v, want %v", sc, ShortcutEscape)
	}
	if c.State() != Inactive {
		t.Errorf("state after dispatch = %v, want inactive", c.State())
	}

	// The mode is gone; the same pattern fires nothing afterwards.
	if _, ok := c.Update(oneFinger); ok {
		t.Error("shortcut fired outside the mode")
	}
}

func TestController_ShortcutPatterns(t *testing.T) {
	tests := []struct {
		name     string
		extended [5]bool
		want     Shortcut
	}{
		{"one finger escapes", oneFinger, ShortcutEscape},
		{"two fingers enter", twoFinger, ShortcutEnter},
		{"three fingers copy", [5]bool{false, true, true, true, false}, ShortcutCopy},
		{"four fingers paste", [5]bool{false, true, true, true, true}, ShortcutPaste},
		{"thumb switches apps", thumbOnly, ShortcutAppSwitch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			c := newTestController(clock)
			enter(t, c, clock)

			fired, ok := c.Update(tt.extended)
			if !ok {
				t.Fatal("pattern fired no shortcut")
			}
			if fired != tt.want {
				t.Errorf("shortcut = %v, want %v", fired, tt.want)
			}
			if c.State() != Inactive {
				t.Errorf("state after dispatch = %v, want inactive", c.State())
			}
		})
	}
}

func TestController_OpenPalmRests(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	enter(t, c, clock)

	for i := 0; i < 5; i++ {
		if _, ok := c.Update(openPalm); ok {
			t.Fatal("open palm fired a shortcut")
		}
		if c.State() != Active {
			t.Fatalf("state during rest = %v, want active", c.State())
		}
	}
}

func TestController_UnmatchedPatternStillExits(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	enter(t, c, clock)

	// Thumb plus a finger maps to nothing; a fist maps to nothing either.
	for _, pattern := range [][5]bool{{true, true, false, false, false}, fist} {
		if _, ok := c.Update(pattern); ok {
			t.Error("unmatched pattern fired a shortcut")
		}
		if c.State() != Inactive {
			t.Errorf("state after unmatched pattern = %v, want inactive", c.State())
		}
		enter(t, c, clock)
	}
}

func TestController_FeedbackReportsProgress(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)

	var seen []Feedback
	c.OnFeedback = func(f Feedback) {
		seen = append(seen, f)
	}

	c.Update(openPalm)
	clock.advance(400 * time.Millisecond)
	c.Update(openPalm)
	clock.advance(700 * time.Millisecond)
	c.Update(openPalm)
	c.Update(oneFinger)

	want := []Feedback{
		{State: Activating, Remaining: time.Second},
		{State: Activating, Remaining: 600 * time.Millisecond},
		{State: Active},
		{State: Inactive, Executed: ShortcutEscape},
	}
	if len(seen) != len(want) {
		t.Fatalf("feedback = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("feedback %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
