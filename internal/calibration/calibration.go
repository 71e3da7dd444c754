// Package calibration maps camera-space finger positions to screen-space
// coordinates via a 5-point capture procedure and a perspective transform.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Corner targets are inset from the true corners so they stay comfortably
// inside the camera's field of view.
const cornerInset = 0.1

// DefaultDriftTolerance is the relative hand-size change that invalidates a
// calibration (the user moved significantly closer to or farther from the
// camera).
const DefaultDriftTolerance = 0.3

// Point is one calibration target: where it sits on screen, and the
// camera-space position captured for it.
type Point struct {
	Name     string
	ScreenX  float64
	ScreenY  float64
	CameraX  float64
	CameraY  float64
	Captured bool
}

// Capture records the camera-space position for this target.
func (p *Point) Capture(cameraX, cameraY float64) {
	p.CameraX = cameraX
	p.CameraY = cameraY
	p.Captured = true
}

func (p *Point) clear() {
	p.CameraX = 0
	p.CameraY = 0
	p.Captured = false
}

func defaultPoints() []Point {
	return []Point{
		{Name: "Top Left", ScreenX: cornerInset, ScreenY: cornerInset},
		{Name: "Top Right", ScreenX: 1 - cornerInset, ScreenY: cornerInset},
		{Name: "Bottom Right", ScreenX: 1 - cornerInset, ScreenY: 1 - cornerInset},
		{Name: "Bottom Left", ScreenX: cornerInset, ScreenY: 1 - cornerInset},
		{Name: "Center", ScreenX: 0.5, ScreenY: 0.5},
	}
}

// Calibrator runs the capture procedure and applies the resulting mapping.
// It is owned by the processing goroutine and needs no synchronization.
type Calibrator struct {
	screenWidth  int
	screenHeight int
	deadZone     float64

	points    []Point
	cursor    int
	complete  bool
	transform *[9]float64 // row-major homography, nil until solved
	handSize  float64     // baseline at calibration time, 0 if unknown
	handSum   float64
	handCount int
}

// New creates a Calibrator for the given screen resolution. deadZone is the
// inset fraction used by the linear fallback mapping before a calibration
// exists; it is clamped to [0, 0.45].
func New(screenWidth, screenHeight int, deadZone float64) *Calibrator {
	return &Calibrator{
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		deadZone:     math.Max(0, math.Min(0.45, deadZone)),
		points:       defaultPoints(),
	}
}

// Start resets all captured state and begins a fresh capture pass through
// the five targets.
func (c *Calibrator) Start() {
	for i := range c.points {
		c.points[i].clear()
	}
	c.cursor = 0
	c.complete = false
	c.transform = nil
	c.handSize = 0
	c.handSum = 0
	c.handCount = 0
}

// CurrentTarget returns the target awaiting capture, or nil when the pass is
// finished.
func (c *Calibrator) CurrentTarget() *Point {
	if c.cursor < 0 || c.cursor >= len(c.points) {
		return nil
	}
	return &c.points[c.cursor]
}

// CapturePoint records the camera-space position for the current target and
// advances. handSize may be 0 when unknown; nonzero samples are averaged
// into the drift baseline. After the fifth point the perspective transform
// is solved and the calibration becomes complete.
func (c *Calibrator) CapturePoint(cameraX, cameraY, handSize float64) bool {
	target := c.CurrentTarget()
	if target == nil {
		return false
	}

	target.Capture(cameraX, cameraY)
	if handSize > 0 {
		c.handSum += handSize
		c.handCount++
	}
	c.cursor++

	if c.cursor >= len(c.points) {
		if c.handCount > 0 {
			c.handSize = c.handSum / float64(c.handCount)
		}
		if err := c.solveTransform(); err != nil {
			// Degenerate corner geometry: stay on the fallback mapping.
			c.transform = nil
		}
		c.complete = true
	}
	return true
}

// CaptureAveraged captures the mean of the given camera-space samples for
// the current target.
func (c *Calibrator) CaptureAveraged(xs, ys []float64, handSize float64) bool {
	if len(xs) == 0 || len(xs) != len(ys) {
		return false
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	n := float64(len(xs))
	return c.CapturePoint(sx/n, sy/n, handSize)
}

// Complete reports whether all five points have been captured.
func (c *Calibrator) Complete() bool {
	return c.complete
}

// Progress returns the fraction of targets captured, in [0, 1].
func (c *Calibrator) Progress() float64 {
	if len(c.points) == 0 {
		return 0
	}
	return float64(c.cursor) / float64(len(c.points))
}

// HandSize returns the baseline hand size recorded at calibration time,
// or 0 when none was recorded.
func (c *Calibrator) HandSize() float64 {
	return c.handSize
}

// ScreenSize returns the screen resolution the calibration was made for.
func (c *Calibrator) ScreenSize() (int, int) {
	return c.screenWidth, c.screenHeight
}

// Points returns a copy of the five calibration points.
func (c *Calibrator) Points() []Point {
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// MapPoint maps a camera-space position to normalized screen coordinates.
// With a solved transform it applies the perspective mapping; otherwise it
// falls back to the linear dead-zone remap.
func (c *Calibrator) MapPoint(x, y float64) (float64, float64) {
	if c.transform != nil {
		h := c.transform
		w := h[6]*x + h[7]*y + h[8]
		if math.Abs(w) < 1e-12 {
			return c.deadZoneMap(x, y)
		}
		return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
	}
	return c.deadZoneMap(x, y)
}

// deadZoneMap clamps to the inner region of the frame and rescales it to
// fill the full [0, 1] range on both axes.
func (c *Calibrator) deadZoneMap(x, y float64) (float64, float64) {
	dz := c.deadZone
	span := 1 - 2*dz
	if span <= 0 {
		return 0.5, 0.5
	}
	cx := math.Max(dz, math.Min(1-dz, x))
	cy := math.Max(dz, math.Min(1-dz, y))
	return (cx - dz) / span, (cy - dz) / span
}

// ShouldRecalibrate reports whether the current hand size has drifted from
// the calibration baseline by more than the relative tolerance.
func (c *Calibrator) ShouldRecalibrate(currentHandSize, tolerance float64) bool {
	if c.handSize <= 0 || currentHandSize <= 0 {
		return false
	}
	return math.Abs(currentHandSize-c.handSize)/c.handSize > tolerance
}

// solveTransform fits the camera-to-screen homography from the four corner
// correspondences. The center point is deliberately excluded; it exists for
// accuracy feedback only.
func (c *Calibrator) solveTransform() error {
	const corners = 4
	a := mat.NewDense(2*corners, 8, nil)
	b := mat.NewVecDense(2*corners, nil)

	for i := 0; i < corners; i++ {
		p := c.points[i]
		if !p.Captured {
			return fmt.Errorf("corner %q not captured", p.Name)
		}
		x, y := p.CameraX, p.CameraY
		u, v := p.ScreenX, p.ScreenY

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return fmt.Errorf("solve perspective transform: %w", err)
	}

	var t [9]float64
	for i := 0; i < 8; i++ {
		t[i] = h.AtVec(i)
	}
	t[8] = 1
	c.transform = &t
	return nil
}

// Persistence format. A record with only four points (the older corner-only
// layout) loads successfully and is padded with an uncaptured center point.

type recordPoint struct {
	Name     string     `json:"name"`
	Screen   [2]float64 `json:"screen"`
	Camera   *[2]float64 `json:"camera"`
	Captured bool       `json:"captured"`
}

type record struct {
	Version          string        `json:"version"`
	Timestamp        float64       `json:"timestamp"`
	ScreenResolution [2]int        `json:"screen_resolution"`
	Points           []recordPoint `json:"points"`
	HandSize         *float64      `json:"hand_size"`
}

// ErrIncomplete is returned when saving before all points are captured.
var ErrIncomplete = errors.New("calibration is not complete")

// Save writes the calibration record to path, creating parent directories.
func (c *Calibrator) Save(path string) error {
	if !c.complete {
		return ErrIncomplete
	}

	rec := record{
		Version:          "1.1",
		Timestamp:        float64(time.Now().UnixNano()) / 1e9,
		ScreenResolution: [2]int{c.screenWidth, c.screenHeight},
	}
	for _, p := range c.points {
		rp := recordPoint{
			Name:     p.Name,
			Screen:   [2]float64{p.ScreenX, p.ScreenY},
			Captured: p.Captured,
		}
		if p.Captured {
			rp.Camera = &[2]float64{p.CameraX, p.CameraY}
		}
		rec.Points = append(rec.Points, rp)
	}
	if c.handSize > 0 {
		hs := c.handSize
		rec.HandSize = &hs
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create calibration dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	return nil
}

// Load reads a calibration record from path. On any error the calibrator is
// left unchanged, so callers can treat a failed load as "no calibration yet".
func (c *Calibrator) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read calibration: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse calibration: %w", err)
	}
	if len(rec.Points) != 4 && len(rec.Points) != 5 {
		return fmt.Errorf("calibration has %d points, want 4 or 5", len(rec.Points))
	}

	points := make([]Point, 0, 5)
	for _, rp := range rec.Points {
		p := Point{
			Name:    rp.Name,
			ScreenX: rp.Screen[0],
			ScreenY: rp.Screen[1],
		}
		if rp.Captured && rp.Camera != nil {
			p.Capture(rp.Camera[0], rp.Camera[1])
		}
		points = append(points, p)
	}
	if len(points) == 4 {
		points = append(points, Point{Name: "Center", ScreenX: 0.5, ScreenY: 0.5})
	}

	// The stored resolution is informational; MapPoint output is normalized,
	// so the live screen size always wins.
	c.points = points
	c.cursor = len(c.points)
	c.handSize = 0
	if rec.HandSize != nil && *rec.HandSize > 0 {
		c.handSize = *rec.HandSize
	}

	c.transform = nil
	if err := c.solveTransform(); err != nil {
		c.transform = nil
	}
	c.complete = true
	return nil
}
