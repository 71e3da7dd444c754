package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	obs Observation
	err error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObservation sets the observation that will be returned by Detect.
func (m *MockDetector) SetObservation(obs Observation) {
	m.obs = obs
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured observation or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Observation, error) {
	if m.err != nil {
		return Observation{}, m.err
	}
	return m.obs, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset skeleton poses for tests. Geometry is built around a hand size of
// 0.2 (wrist at y=0.8, middle MCP at y=0.6), so with the default thresholds
// an extended finger clears the extension test by a wide margin and pinched
// tips sit well inside the pinch distance.

type fingerShape int

const (
	curled fingerShape = iota
	extended
)

// finger MCP landmark index and x column per non-thumb finger.
var fingerLayout = []struct {
	mcp int
	x   float64
}{
	{IndexMCP, 0.56},
	{MiddleMCP, 0.50},
	{RingMCP, 0.44},
	{PinkyMCP, 0.38},
}

// pose assembles a right-hand skeleton from per-finger shapes in the order
// thumb, index, middle, ring, pinky.
func pose(thumb, index, middle, ring, pinky fingerShape) Skeleton {
	s := Skeleton{Handedness: HandednessRight, Score: 0.95}
	s.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	s.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.74}
	if thumb == extended {
		s.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70}
		s.Points[ThumbIP] = Point3D{X: 0.66, Y: 0.66}
		s.Points[ThumbTip] = Point3D{X: 0.74, Y: 0.62}
	} else {
		s.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.70}
		s.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.66}
		s.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.64}
	}

	shapes := [...]fingerShape{index, middle, ring, pinky}
	for i, f := range fingerLayout {
		s.Points[f.mcp] = Point3D{X: f.x, Y: 0.60}
		s.Points[f.mcp+1] = Point3D{X: f.x, Y: 0.50}
		if shapes[i] == extended {
			s.Points[f.mcp+2] = Point3D{X: f.x, Y: 0.40}
			s.Points[f.mcp+3] = Point3D{X: f.x, Y: 0.30}
		} else {
			s.Points[f.mcp+2] = Point3D{X: f.x, Y: 0.53}
			s.Points[f.mcp+3] = Point3D{X: f.x, Y: 0.55}
		}
	}
	return s
}

// OpenPalmPose has all five fingers extended.
func OpenPalmPose() Skeleton {
	return pose(extended, extended, extended, extended, extended)
}

// IndexPointPose has only the index finger extended.
func IndexPointPose() Skeleton {
	return pose(curled, extended, curled, curled, curled)
}

// ClickPinchPose has index and middle extended with their tips pinched.
func ClickPinchPose() Skeleton {
	s := pose(curled, extended, extended, curled, curled)
	s.Points[IndexTip] = Point3D{X: 0.528, Y: 0.30}
	s.Points[MiddleTip] = Point3D{X: 0.532, Y: 0.30}
	return s
}

// ScrollSpreadPose has index and middle extended and spread apart.
func ScrollSpreadPose() Skeleton {
	return pose(curled, extended, extended, curled, curled)
}

// RightClickPose has index, middle, and ring extended with index and middle
// tips pinched.
func RightClickPose() Skeleton {
	s := pose(curled, extended, extended, extended, curled)
	s.Points[IndexTip] = Point3D{X: 0.528, Y: 0.30}
	s.Points[MiddleTip] = Point3D{X: 0.532, Y: 0.30}
	return s
}

// ThumbIndexPinchPose has the thumb tip touching the index tip.
func ThumbIndexPinchPose() Skeleton {
	s := pose(extended, extended, curled, curled, curled)
	s.Points[ThumbTip] = Point3D{X: 0.562, Y: 0.302}
	s.Points[IndexTip] = Point3D{X: 0.56, Y: 0.30}
	return s
}

// ThumbOnlyPose has only the thumb extended.
func ThumbOnlyPose() Skeleton {
	return pose(extended, curled, curled, curled, curled)
}

// FistPose has no fingers extended.
func FistPose() Skeleton {
	return pose(curled, curled, curled, curled, curled)
}

// FistPoseAt returns a fist whose palm is shifted by (dx, dy) from the
// canonical position, for window-drag sequences.
func FistPoseAt(dx, dy float64) Skeleton {
	s := FistPose()
	for i := range s.Points {
		s.Points[i].X += dx
		s.Points[i].Y += dy
	}
	return s
}

// FingersPose builds a pose with the first n non-thumb fingers extended
// (index first), thumb curled. Used for keyboard-mode shortcut patterns.
func FingersPose(n int) Skeleton {
	shapes := [4]fingerShape{curled, curled, curled, curled}
	for i := 0; i < n && i < 4; i++ {
		shapes[i] = extended
	}
	return pose(curled, shapes[0], shapes[1], shapes[2], shapes[3])
}
