package gesture

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Thresholds are the geometric tuning knobs. All distance thresholds are
// ratios of the hand size, so rules hold at any distance from the camera.
type Thresholds struct {
	// Finger is the extension margin: a finger counts as extended when its
	// tip rises above its middle joint by this much in image space. The
	// thumb extends sideways, so it is measured as the horizontal offset of
	// its tip from the IP joint.
	Finger float64
	// Pinch is the maximum tip-to-tip distance for a pinch.
	Pinch float64
	// Grab is the curl margin: a finger counts as fully curled when its tip
	// drops below its middle joint by this much.
	Grab float64
	// GrabDisplacement is the vertical palm travel, in normalized frame
	// units, that turns a held grab into a minimize or maximize.
	GrabDisplacement float64
	// KeyboardHold is how long an open palm must be held before keyboard
	// mode engages.
	KeyboardHold time.Duration
	// ScrollScale converts normalized fingertip travel into scroll units.
	ScrollScale float64
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Finger:           0.15,
		Pinch:            0.08,
		Grab:             0.12,
		GrabDisplacement: 0.15,
		KeyboardHold:     time.Second,
		ScrollScale:      100,
	}
}

// fingerJoints lists tip and PIP landmark indices for the four non-thumb
// fingers.
var fingerJoints = []struct{ tip, pip int }{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// hand caches the per-frame geometry derived from one skeleton.
type hand struct {
	skel     *detector.Skeleton
	size     float64
	extended [5]bool // thumb, index, middle, ring, pinky
	count    int
	fist     bool
}

// Classifier applies the gesture rules to successive observations. It keeps
// the small amount of state the rules need (hold timers, grab anchor,
// previous scroll position) and is owned by a single goroutine.
type Classifier struct {
	th  Thresholds
	now func() time.Time

	prevCount     int
	keyboardSince time.Time

	grabActive bool
	grabDone   bool
	anchorX    float64
	anchorY    float64

	scrollActive bool
	scrollPrevY  float64

	resizeActive   bool
	resizePrevDist float64
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th, now: time.Now}
}

// Reset clears all temporal state, as after a tracking loss.
func (c *Classifier) Reset() {
	c.prevCount = 0
	c.keyboardSince = time.Time{}
	c.grabActive = false
	c.grabDone = false
	c.scrollActive = false
	c.resizeActive = false
}

// Classify maps one observation to a gesture candidate. Nil means no hand
// was visible; temporal state is cleared so stale anchors cannot leak into
// the next appearance.
func (c *Classifier) Classify(obs detector.Observation) *Candidate {
	if obs.Count() == 0 {
		c.Reset()
		return nil
	}
	if obs.Count() >= 2 {
		if cand := c.classifyTwoHand(&obs.Hands[0], &obs.Hands[1]); cand != nil {
			return cand
		}
	}
	c.resizeActive = false
	return c.classifySingle(obs.Dominant(detector.HandednessRight))
}

func (c *Classifier) analyze(skel *detector.Skeleton) hand {
	h := hand{skel: skel, size: skel.HandSize()}
	if h.size <= 0 {
		return h
	}

	margin := c.th.Finger * h.size
	curl := c.th.Grab * h.size

	// Image Y grows downward: an extended finger has its tip above the PIP
	// joint. The thumb extends sideways instead.
	thumbTip := skel.Points[detector.ThumbTip]
	thumbIP := skel.Points[detector.ThumbIP]
	h.extended[0] = math.Abs(thumbTip.X-thumbIP.X) > margin

	h.fist = true
	for i, j := range fingerJoints {
		tipY := skel.Points[j.tip].Y
		pipY := skel.Points[j.pip].Y
		h.extended[i+1] = pipY-tipY > margin
		if tipY-pipY <= curl {
			h.fist = false
		}
	}

	for _, ext := range h.extended {
		if ext {
			h.count++
		}
	}
	if h.count > 0 {
		h.fist = false
	}
	return h
}

// pinched reports whether the two tips are within threshold of each other.
func (c *Classifier) pinched(h *hand, a, b int) bool {
	d := detector.Distance2D(h.skel.Points[a], h.skel.Points[b])
	return d < c.th.Pinch*h.size
}

func (c *Classifier) classifySingle(skel *detector.Skeleton) *Candidate {
	h := c.analyze(skel)
	now := c.now()
	if h.size <= 0 {
		return c.finish(&h, &Candidate{Type: Idle, Confidence: skel.Score, At: now, Payload: IdlePayload{}})
	}

	thumb, index, middle, ring, pinky := h.extended[0], h.extended[1], h.extended[2], h.extended[3], h.extended[4]

	// Open palm held long enough engages keyboard mode. While the hold is
	// still building the frame stays idle.
	if h.count == 5 {
		if c.keyboardSince.IsZero() {
			c.keyboardSince = now
		}
		held := now.Sub(c.keyboardSince)
		if held >= c.th.KeyboardHold {
			return c.finish(&h, &Candidate{Type: Keyboard, Confidence: skel.Score, At: now})
		}
		return c.finish(&h, &Candidate{
			Type:       Idle,
			Confidence: skel.Score,
			At:         now,
			Payload:    IdlePayload{Fingers: 5, HoldRemaining: c.th.KeyboardHold - held},
		})
	}
	c.keyboardSince = time.Time{}

	if h.fist {
		palm := h.skel.PalmCenter()
		if !c.grabActive && c.prevCount >= 4 {
			c.grabActive = true
			c.grabDone = false
			c.anchorX, c.anchorY = palm.X, palm.Y
			return c.finish(&h, &Candidate{
				Type:       Grab,
				Confidence: skel.Score,
				At:         now,
				Payload:    GrabPayload{AnchorX: palm.X, AnchorY: palm.Y},
			})
		}
		if c.grabActive && !c.grabDone {
			dy := palm.Y - c.anchorY
			if dy > c.th.GrabDisplacement {
				c.grabDone = true
				return c.finish(&h, &Candidate{Type: WindowMinimize, Confidence: skel.Score, At: now})
			}
			if dy < -c.th.GrabDisplacement {
				c.grabDone = true
				return c.finish(&h, &Candidate{Type: WindowMaximize, Confidence: skel.Score, At: now})
			}
			return c.finish(&h, &Candidate{
				Type:       WindowMove,
				Confidence: skel.Score,
				At:         now,
				Payload:    WindowMovePayload{DeltaX: palm.X - c.anchorX, DeltaY: palm.Y - c.anchorY},
			})
		}
		// A fist with no preceding open palm carries no intent.
		return c.finish(&h, &Candidate{Type: Idle, Confidence: skel.Score, At: now, Payload: IdlePayload{}})
	}
	c.grabActive = false

	switch {
	case index && !thumb && !middle && !ring && !pinky:
		tip := h.skel.Points[detector.IndexTip]
		return c.finish(&h, &Candidate{
			Type:       Move,
			Confidence: skel.Score,
			At:         now,
			Payload:    PointPayload{X: tip.X, Y: tip.Y},
		})

	case index && middle && ring && !pinky && c.pinched(&h, detector.IndexTip, detector.MiddleTip):
		return c.finish(&h, &Candidate{Type: RightClick, Confidence: skel.Score, At: now})

	case index && middle && !ring && !pinky && c.pinched(&h, detector.IndexTip, detector.MiddleTip):
		return c.finish(&h, &Candidate{Type: LeftClick, Confidence: skel.Score, At: now})

	// The double-click pinch needs no extended fingers: the touching thumb
	// and index tips alone carry the intent.
	case c.pinched(&h, detector.ThumbTip, detector.IndexTip):
		return c.finish(&h, &Candidate{Type: DoubleClick, Confidence: skel.Score, At: now})

	case index && middle && !ring && !pinky:
		midY := (h.skel.Points[detector.IndexTip].Y + h.skel.Points[detector.MiddleTip].Y) / 2
		var delta float64
		if c.scrollActive {
			delta = (c.scrollPrevY - midY) * c.th.ScrollScale
		}
		c.scrollPrevY = midY
		cand := &Candidate{Type: Scroll, Confidence: skel.Score, At: now, Payload: ScrollPayload{Delta: delta}}
		c.finish(&h, cand)
		c.scrollActive = true
		return cand

	case thumb && !index && !middle && !ring && !pinky:
		tip := h.skel.Points[detector.ThumbTip]
		return c.finish(&h, &Candidate{
			Type:       Drag,
			Confidence: skel.Score,
			At:         now,
			Payload:    PointPayload{X: tip.X, Y: tip.Y},
		})
	}

	return c.finish(&h, &Candidate{
		Type:       Idle,
		Confidence: skel.Score,
		At:         now,
		Payload:    IdlePayload{Fingers: h.count},
	})
}

// finish records the per-frame state the next classification depends on.
func (c *Classifier) finish(h *hand, cand *Candidate) *Candidate {
	c.prevCount = h.count
	if cand.Type != Scroll {
		c.scrollActive = false
	}
	return cand
}

// Extensions returns the per-digit extension state in the order thumb,
// index, middle, ring, pinky. Used to drive keyboard mode.
func (c *Classifier) Extensions(skel *detector.Skeleton) [5]bool {
	h := c.analyze(skel)
	return h.extended
}

// classifyTwoHand recognizes the two-hand resize: both hands pinching thumb
// to index. Returns nil when the rule does not apply so single-hand
// classification can proceed on the dominant hand.
func (c *Classifier) classifyTwoHand(a, b *detector.Skeleton) *Candidate {
	ha := hand{skel: a, size: a.HandSize()}
	hb := hand{skel: b, size: b.HandSize()}
	if ha.size <= 0 || hb.size <= 0 {
		return nil
	}
	if !c.pinched(&ha, detector.ThumbTip, detector.IndexTip) ||
		!c.pinched(&hb, detector.ThumbTip, detector.IndexTip) {
		c.resizeActive = false
		return nil
	}

	pa := a.PalmCenter()
	pb := b.PalmCenter()
	dist := math.Hypot(pa.X-pb.X, pa.Y-pb.Y)

	var delta float64
	if c.resizeActive {
		delta = dist - c.resizePrevDist
	}
	c.resizePrevDist = dist
	c.resizeActive = true

	conf := a.Score
	if b.Score < conf {
		conf = b.Score
	}
	return &Candidate{
		Type:       TwoHandResize,
		Confidence: conf,
		At:         c.now(),
		Payload:    ResizePayload{Distance: dist, Delta: delta},
	}
}
