package gesture

import "time"

// DebounceConfig controls the stability window and per-family cooldowns.
type DebounceConfig struct {
	// StabilityFrames is how many consecutive frames must agree before a
	// candidate becomes a command.
	StabilityFrames int
	// ClickCooldown is the minimum gap between click-family commands.
	ClickCooldown time.Duration
	// ScrollCooldown is the minimum gap between scroll commands.
	ScrollCooldown time.Duration
}

// DefaultDebounceConfig returns the stock debounce tuning.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		StabilityFrames: 3,
		ClickCooldown:   300 * time.Millisecond,
		ScrollCooldown:  50 * time.Millisecond,
	}
}

// Debouncer suppresses flicker between gesture classes and rate-limits
// one-shot commands. It is owned by the processing goroutine.
type Debouncer struct {
	cfg DebounceConfig
	now func() time.Time

	streakType Type
	streakLen  int
	lastClick  time.Time
	lastScroll time.Time
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(cfg DebounceConfig) *Debouncer {
	if cfg.StabilityFrames < 1 {
		cfg.StabilityFrames = 1
	}
	return &Debouncer{cfg: cfg, now: time.Now}
}

// Reset clears the stability window and cooldown clocks.
func (d *Debouncer) Reset() {
	d.streakType = Idle
	d.streakLen = 0
	d.lastClick = time.Time{}
	d.lastScroll = time.Time{}
}

// isInstant gestures are transition-detected by the classifier's own state
// machine and would never survive a multi-frame window; they pass through
// immediately.
func isInstant(t Type) bool {
	return t == Grab || t == WindowMinimize || t == WindowMaximize
}

func isClick(t Type) bool {
	return t == LeftClick || t == RightClick || t == DoubleClick
}

// Process feeds one candidate through the stability window. A nil candidate
// (no hand) clears the window. The returned command is nil when nothing
// should be dispatched this frame.
func (d *Debouncer) Process(c *Candidate) *Command {
	if c == nil {
		d.streakType = Idle
		d.streakLen = 0
		return nil
	}

	if isInstant(c.Type) {
		d.streakType = c.Type
		d.streakLen = 0
		return &Command{Type: c.Type, At: c.At, Payload: c.Payload}
	}

	if c.Type == d.streakType {
		d.streakLen++
	} else {
		d.streakType = c.Type
		d.streakLen = 1
	}
	if d.streakLen < d.cfg.StabilityFrames {
		return nil
	}

	now := d.now()
	switch {
	case isClick(c.Type):
		// Clicks are rate-limited by cooldown alone: a held click pose
		// re-fires each time the cooldown elapses.
		if !d.lastClick.IsZero() && now.Sub(d.lastClick) < d.cfg.ClickCooldown {
			return nil
		}
		d.lastClick = now

	case c.Type == Scroll:
		if !d.lastScroll.IsZero() && now.Sub(d.lastScroll) < d.cfg.ScrollCooldown {
			return nil
		}
		d.lastScroll = now
	}

	return &Command{Type: c.Type, At: c.At, Payload: c.Payload}
}
