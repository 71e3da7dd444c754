package control

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/smoothing"
)

// Cursor converts camera-space fingertip positions into screen pixels:
// calibration mapping, sensitivity gain around screen center, jitter
// smoothing, then clamping to the display.
type Cursor struct {
	cal         *calibration.Calibrator
	smoother    *smoothing.PointSmoother
	screenW     int
	screenH     int
	sensitivity float64
}

// NewCursor creates a Cursor. sensitivity 1.0 is a direct mapping; higher
// values reach the edges with less hand travel.
func NewCursor(cal *calibration.Calibrator, params smoothing.Params, screenW, screenH int, sensitivity float64) (*Cursor, error) {
	ps, err := smoothing.NewPointSmoother(params)
	if err != nil {
		return nil, err
	}
	if sensitivity <= 0 {
		sensitivity = 1
	}
	return &Cursor{
		cal:         cal,
		smoother:    ps,
		screenW:     screenW,
		screenH:     screenH,
		sensitivity: sensitivity,
	}, nil
}

// Position maps one camera-space sample to a screen pixel.
func (c *Cursor) Position(camX, camY float64, ts time.Time) (int, int) {
	nx, ny := c.cal.MapPoint(camX, camY)

	nx = 0.5 + (nx-0.5)*c.sensitivity
	ny = 0.5 + (ny-0.5)*c.sensitivity

	nx, ny = c.smoother.Filter(nx, ny, ts)

	px := int(math.Round(nx * float64(c.screenW-1)))
	py := int(math.Round(ny * float64(c.screenH-1)))
	return clamp(px, 0, c.screenW-1), clamp(py, 0, c.screenH-1)
}

// Reset clears smoothing history, as after a tracking loss.
func (c *Cursor) Reset() {
	c.smoother.Reset()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
