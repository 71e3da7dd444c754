package gesture

import (
	"testing"
	"time"
)

func newTestDebouncer(clock *fakeClock) *Debouncer {
	d := NewDebouncer(DefaultDebounceConfig())
	d.now = clock.now
	return d
}

func candidate(t Type) *Candidate {
	return &Candidate{Type: t, Confidence: 0.9, At: time.Now()}
}

func TestDebouncer_RequiresStabilityWindow(t *testing.T) {
	d := newTestDebouncer(newFakeClock())

	if cmd := d.Process(candidate(Move)); cmd != nil {
		t.Fatalf("frame 1 emitted %v, want nil", cmd.Type)
	}
	if cmd := d.Process(candidate(Move)); cmd != nil {
		t.Fatalf("frame 2 emitted %v, want nil", cmd.Type)
	}
	cmd := d.Process(candidate(Move))
	if cmd == nil || cmd.Type != Move {
		t.Fatalf("frame 3 = %v, want MOVE", cmd)
	}
}

func TestDebouncer_FlickerNeverStabilizes(t *testing.T) {
	d := newTestDebouncer(newFakeClock())

	types := []Type{Move, Scroll, Move, Scroll, Move, Scroll}
	for i, typ := range types {
		if cmd := d.Process(candidate(typ)); cmd != nil {
			t.Fatalf("alternating frame %d emitted %v, want nil", i, cmd.Type)
		}
	}
}

func TestDebouncer_ContinuousCommandsReemit(t *testing.T) {
	d := newTestDebouncer(newFakeClock())

	d.Process(candidate(Move))
	d.Process(candidate(Move))
	for i := 0; i < 5; i++ {
		if cmd := d.Process(candidate(Move)); cmd == nil {
			t.Fatalf("stable MOVE frame %d emitted nil, want MOVE", i)
		}
	}
}

func TestDebouncer_HeldClickRepeatsAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	d := newTestDebouncer(clock)

	d.Process(candidate(LeftClick))
	d.Process(candidate(LeftClick))
	cmd := d.Process(candidate(LeftClick))
	if cmd == nil || cmd.Type != LeftClick {
		t.Fatalf("stable click = %v, want LEFT_CLICK", cmd)
	}

	// Holding the pinch inside the cooldown emits nothing.
	for i := 0; i < 5; i++ {
		clock.advance(50 * time.Millisecond)
		if cmd := d.Process(candidate(LeftClick)); cmd != nil {
			t.Fatalf("held click frame %d at %dms emitted %v, want nil",
				i, (i+1)*50, cmd.Type)
		}
	}

	// Once the cooldown elapses the held pose fires again.
	clock.advance(100 * time.Millisecond)
	cmd = d.Process(candidate(LeftClick))
	if cmd == nil || cmd.Type != LeftClick {
		t.Fatalf("held click past cooldown = %v, want LEFT_CLICK", cmd)
	}
}

func TestDebouncer_ClickCooldown(t *testing.T) {
	clock := newFakeClock()
	d := newTestDebouncer(clock)

	stabilize := func() *Command {
		var cmd *Command
		for i := 0; i < 3; i++ {
			cmd = d.Process(candidate(LeftClick))
		}
		return cmd
	}

	if cmd := stabilize(); cmd == nil {
		t.Fatal("first click streak emitted nothing")
	}

	// A new streak inside the cooldown is suppressed.
	d.Process(candidate(Idle))
	clock.advance(100 * time.Millisecond)
	if cmd := stabilize(); cmd != nil {
		t.Fatalf("click inside cooldown emitted %v, want nil", cmd.Type)
	}

	// And allowed once the cooldown has passed.
	d.Process(candidate(Idle))
	clock.advance(400 * time.Millisecond)
	if cmd := stabilize(); cmd == nil {
		t.Fatal("click after cooldown emitted nothing")
	}
}

func TestDebouncer_ScrollCooldown(t *testing.T) {
	clock := newFakeClock()
	d := newTestDebouncer(clock)

	d.Process(candidate(Scroll))
	d.Process(candidate(Scroll))
	if cmd := d.Process(candidate(Scroll)); cmd == nil {
		t.Fatal("stable scroll emitted nothing")
	}

	// Same streak, inside the scroll cooldown.
	clock.advance(10 * time.Millisecond)
	if cmd := d.Process(candidate(Scroll)); cmd != nil {
		t.Fatalf("scroll inside cooldown emitted %v, want nil", cmd.Type)
	}

	clock.advance(60 * time.Millisecond)
	if cmd := d.Process(candidate(Scroll)); cmd == nil {
		t.Fatal("scroll after cooldown emitted nothing")
	}
}

func TestDebouncer_NilClearsWindow(t *testing.T) {
	d := newTestDebouncer(newFakeClock())

	d.Process(candidate(Move))
	d.Process(candidate(Move))
	d.Process(nil)

	// The streak restarts from scratch after a tracking loss.
	if cmd := d.Process(candidate(Move)); cmd != nil {
		t.Fatalf("first frame after loss emitted %v, want nil", cmd.Type)
	}
	d.Process(candidate(Move))
	if cmd := d.Process(candidate(Move)); cmd == nil {
		t.Fatal("rebuilt streak emitted nothing")
	}
}

func TestDebouncer_InstantTypesBypassWindow(t *testing.T) {
	d := newTestDebouncer(newFakeClock())

	for _, typ := range []Type{Grab, WindowMinimize, WindowMaximize} {
		cmd := d.Process(candidate(typ))
		if cmd == nil || cmd.Type != typ {
			t.Errorf("instant %v = %v, want immediate emission", typ, cmd)
		}
	}
}
