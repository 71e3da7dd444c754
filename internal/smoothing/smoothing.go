// Package smoothing provides cursor smoothing filters: a fixed-alpha
// exponential filter and a velocity-adaptive One-Euro filter.
package smoothing

import (
	"fmt"
	"math"
	"time"
)

// Strategy names accepted by New.
const (
	TypeOneEuro     = "adaptive"
	TypeExponential = "exponential"

	// Aliases kept for configs written against the original tool.
	aliasOneEuro = "one_euro"
	aliasEMA     = "ema"
)

// Smoother filters a scalar signal one sample at a time. The first call
// after construction or Reset returns its input unchanged.
type Smoother interface {
	Filter(value float64, ts time.Time) float64
	Reset()
}

// Params holds tuning for both strategies. Zero values are replaced by
// defaults and out-of-range values are clamped.
type Params struct {
	Type string

	// Exponential filter.
	Alpha float64

	// One-Euro filter.
	Freq      float64
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// DefaultParams returns the adaptive strategy with the original tuning.
func DefaultParams() Params {
	return Params{
		Type:      TypeOneEuro,
		Alpha:     0.3,
		Freq:      30,
		MinCutoff: 1.0,
		Beta:      0.007,
		DCutoff:   1.0,
	}
}

func (p *Params) normalize() {
	p.Alpha = clamp01(p.Alpha)
	if p.Freq <= 0 {
		p.Freq = 30
	}
	if p.MinCutoff <= 0 {
		p.MinCutoff = 1.0
	}
	if p.Beta < 0 {
		p.Beta = 0
	}
	if p.DCutoff <= 0 {
		p.DCutoff = 1.0
	}
}

// New builds a Smoother for the named strategy. An unrecognized strategy
// name is a construction-time error.
func New(p Params) (Smoother, error) {
	p.normalize()
	switch p.Type {
	case TypeOneEuro, aliasOneEuro:
		return newOneEuro(p), nil
	case TypeExponential, aliasEMA:
		return newExponential(p.Alpha), nil
	default:
		return nil, fmt.Errorf("unknown smoother type %q", p.Type)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// lowPass is the single-pole filter the One-Euro filter is built from.
type lowPass struct {
	alpha  float64
	prev   float64
	seeded bool
}

func (f *lowPass) setAlpha(alpha float64) {
	f.alpha = clamp01(alpha)
}

func (f *lowPass) filter(value float64) float64 {
	if !f.seeded {
		f.prev = value
		f.seeded = true
		return value
	}
	f.prev = f.alpha*value + (1-f.alpha)*f.prev
	return f.prev
}

func (f *lowPass) reset() {
	f.prev = 0
	f.seeded = false
}

// Exponential is a fixed-alpha exponential moving average.
type Exponential struct {
	lp lowPass
}

func newExponential(alpha float64) *Exponential {
	e := &Exponential{}
	e.lp.setAlpha(alpha)
	return e
}

// Filter applies the EMA. The timestamp is ignored; the filter is
// rate-independent.
func (e *Exponential) Filter(value float64, _ time.Time) float64 {
	return e.lp.filter(value)
}

// Reset drops all filter memory.
func (e *Exponential) Reset() {
	e.lp.reset()
}

// OneEuro adapts its cutoff to the estimated signal speed: heavy smoothing
// when near-stationary, light smoothing during fast motion.
type OneEuro struct {
	freq      float64
	minCutoff float64
	beta      float64
	dCutoff   float64

	x      lowPass
	dx     lowPass
	prev   float64
	prevTS time.Time
	seeded bool
}

func newOneEuro(p Params) *OneEuro {
	return &OneEuro{
		freq:      p.Freq,
		minCutoff: p.MinCutoff,
		beta:      p.Beta,
		dCutoff:   p.DCutoff,
	}
}

func alphaFor(cutoff, dt float64) float64 {
	tau := 1.0 / (2 * math.Pi * cutoff)
	return 1.0 / (1 + tau/dt)
}

// Filter applies the One-Euro filter at the given timestamp.
func (o *OneEuro) Filter(value float64, ts time.Time) float64 {
	if !o.seeded {
		o.prev = value
		o.prevTS = ts
		o.seeded = true
		o.x.filter(value)
		return value
	}

	dt := ts.Sub(o.prevTS).Seconds()
	if dt <= 0 {
		dt = 1.0 / o.freq
	}

	dx := (value - o.prev) / dt
	o.dx.setAlpha(alphaFor(o.dCutoff, dt))
	dxSmooth := o.dx.filter(dx)

	cutoff := o.minCutoff + o.beta*math.Abs(dxSmooth)
	o.x.setAlpha(alphaFor(cutoff, dt))
	result := o.x.filter(value)

	o.prev = result
	o.prevTS = ts
	return result
}

// Reset drops all memory; the next call behaves like the first ever made.
func (o *OneEuro) Reset() {
	o.x.reset()
	o.dx.reset()
	o.prev = 0
	o.prevTS = time.Time{}
	o.seeded = false
}

// PointSmoother smooths a 2D point with independent per-axis filters.
type PointSmoother struct {
	x Smoother
	y Smoother
}

// NewPointSmoother builds a 2D smoother from the given strategy parameters.
func NewPointSmoother(p Params) (*PointSmoother, error) {
	x, err := New(p)
	if err != nil {
		return nil, err
	}
	y, _ := New(p)
	return &PointSmoother{x: x, y: y}, nil
}

// Filter smooths one 2D sample.
func (s *PointSmoother) Filter(x, y float64, ts time.Time) (float64, float64) {
	return s.x.Filter(x, ts), s.y.Filter(y, ts)
}

// Reset clears both axis filters.
func (s *PointSmoother) Reset() {
	s.x.Reset()
	s.y.Reset()
}
