// Package detector provides hand skeleton types and detection interfaces.
package detector

import (
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels as reported by the landmark model. The camera feed is
// mirrored before detection, so "Right" is the user's right hand.
const (
	HandednessLeft  = "Left"
	HandednessRight = "Right"
)

// Point3D is a landmark position: x, y normalized to the frame, z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point2D is a position in the camera plane.
type Point2D struct {
	X float64
	Y float64
}

// Skeleton is one detected hand: exactly 21 landmarks plus a handedness tag.
type Skeleton struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"`
	Score      float64               `json:"score"`
}

// NewSkeleton builds a Skeleton from a landmark slice, rejecting any layout
// that is not the fixed 21-point anatomy.
func NewSkeleton(points []Point3D, handedness string, score float64) (Skeleton, error) {
	if len(points) != NumLandmarks {
		return Skeleton{}, fmt.Errorf("expected %d landmarks, got %d", NumLandmarks, len(points))
	}
	s := Skeleton{Handedness: handedness, Score: score}
	copy(s.Points[:], points)
	return s, nil
}

// HandSize is the wrist to middle-finger-MCP distance, the scale unit for all
// geometric thresholds.
func (s *Skeleton) HandSize() float64 {
	return Distance2D(s.Points[Wrist], s.Points[MiddleMCP])
}

// PalmCenter is the mean of the wrist and the four MCP joints.
func (s *Skeleton) PalmCenter() Point2D {
	idx := [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	var cx, cy float64
	for _, i := range idx {
		cx += s.Points[i].X
		cy += s.Points[i].Y
	}
	n := float64(len(idx))
	return Point2D{X: cx / n, Y: cy / n}
}

// Distance2D is the Euclidean distance between two landmarks in the camera plane.
func Distance2D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Observation is everything detected in one frame: zero, one, or two hands.
type Observation struct {
	Hands []Skeleton
}

// Count returns the number of detected hands.
func (o *Observation) Count() int {
	return len(o.Hands)
}

// Hand returns the skeleton with the given handedness, or nil.
func (o *Observation) Hand(handedness string) *Skeleton {
	for i := range o.Hands {
		if o.Hands[i].Handedness == handedness {
			return &o.Hands[i]
		}
	}
	return nil
}

// First returns the first detected hand, or nil when the frame is empty.
func (o *Observation) First() *Skeleton {
	if len(o.Hands) == 0 {
		return nil
	}
	return &o.Hands[0]
}

// Dominant returns the hand matching the preferred handedness, falling back
// to whichever hand was detected first.
func (o *Observation) Dominant(preferred string) *Skeleton {
	if h := o.Hand(preferred); h != nil {
		return h
	}
	return o.First()
}
