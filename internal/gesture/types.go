// Package gesture turns hand skeletons into discrete control commands. The
// classifier applies geometric rules scaled by hand size, and the debouncer
// filters the per-frame stream down to stable commands.
package gesture

import "time"

// Type identifies a recognized gesture.
type Type int

const (
	Idle Type = iota
	Move
	LeftClick
	RightClick
	DoubleClick
	Scroll
	Drag
	Keyboard
	Grab
	WindowMove
	WindowMinimize
	WindowMaximize
	TwoHandResize
)

var typeNames = map[Type]string{
	Idle:           "IDLE",
	Move:           "MOVE",
	LeftClick:      "LEFT_CLICK",
	RightClick:     "RIGHT_CLICK",
	DoubleClick:    "DOUBLE_CLICK",
	Scroll:         "SCROLL",
	Drag:           "DRAG",
	Keyboard:       "KEYBOARD",
	Grab:           "GRAB",
	WindowMove:     "WINDOW_MOVE",
	WindowMinimize: "WINDOW_MINIMIZE",
	WindowMaximize: "WINDOW_MAXIMIZE",
	TwoHandResize:  "TWO_HAND_RESIZE",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Payload carries per-gesture data. Each gesture type has at most one
// payload type; consumers switch on the concrete type.
type Payload interface {
	isPayload()
}

// PointPayload carries a camera-space position. Used by MOVE (index tip)
// and DRAG (thumb tip).
type PointPayload struct {
	X float64
	Y float64
}

// ScrollPayload carries a signed scroll amount. Positive scrolls up.
type ScrollPayload struct {
	Delta float64
}

// GrabPayload carries the palm anchor captured when the grab started.
type GrabPayload struct {
	AnchorX float64
	AnchorY float64
}

// WindowMovePayload carries the palm displacement from the grab anchor.
type WindowMovePayload struct {
	DeltaX float64
	DeltaY float64
}

// ResizePayload carries the distance between the two palm centers and its
// change since the previous frame. Positive delta means the hands moved
// apart.
type ResizePayload struct {
	Distance float64
	Delta    float64
}

// IdlePayload carries the extended finger count for UI feedback. While an
// open palm is building toward keyboard mode, HoldRemaining reports the hold
// time left.
type IdlePayload struct {
	Fingers       int
	HoldRemaining time.Duration
}

func (PointPayload) isPayload()      {}
func (ScrollPayload) isPayload()     {}
func (GrabPayload) isPayload()       {}
func (WindowMovePayload) isPayload() {}
func (ResizePayload) isPayload()     {}
func (IdlePayload) isPayload()       {}

// Candidate is a single-frame classification, before debouncing.
type Candidate struct {
	Type       Type
	Confidence float64
	At         time.Time
	Payload    Payload
}

// Command is a debounced gesture ready for dispatch.
type Command struct {
	Type    Type
	At      time.Time
	Payload Payload
}
