package app

import (
	"encoding/json"
	"log"
	"os"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// Calibration sampling constants.
const (
	// calSamples is how many steady fingertip samples are averaged per
	// calibration target.
	calSamples = 30
	// calSpread is the maximum fingertip travel, in normalized units,
	// within a sample window for the hand to count as held still.
	calSpread = 0.02
)

type calSampler struct {
	xs    []float64
	ys    []float64
	sizes []float64
}

func (s *calSampler) reset() {
	s.xs = s.xs[:0]
	s.ys = s.ys[:0]
	s.sizes = s.sizes[:0]
}

func (s *calSampler) add(x, y, size float64) {
	s.xs = append(s.xs, x)
	s.ys = append(s.ys, y)
	s.sizes = append(s.sizes, size)
	if len(s.xs) > calSamples {
		s.xs = s.xs[1:]
		s.ys = s.ys[1:]
		s.sizes = s.sizes[1:]
	}
}

// steady reports whether the window is full and the fingertip stayed within
// the spread bound on both axes.
func (s *calSampler) steady() bool {
	if len(s.xs) < calSamples {
		return false
	}
	return spread(s.xs) <= calSpread && spread(s.ys) <= calSpread
}

func (s *calSampler) meanSize() float64 {
	var sum float64
	for _, v := range s.sizes {
		sum += v
	}
	return sum / float64(len(s.sizes))
}

func spread(vs []float64) float64 {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// StartCalibration begins a fresh calibration pass. The pipeline stops
// dispatching gestures until the pass completes.
func (a *App) StartCalibration() {
	a.mu.Lock()
	a.calibrating = true
	a.mu.Unlock()

	a.sampler.reset()
	a.calibrator.Start()
	a.automator.EndDrag()

	if target := a.calibrator.CurrentTarget(); target != nil {
		log.Printf("Calibration started, hold your index finger at: %s", target.Name)
	}
}

func (a *App) isCalibrating() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calibrating
}

// stepCalibration consumes one observation during calibration: it waits for
// the index fingertip to hold still, then captures the averaged position
// for the current target.
func (a *App) stepCalibration(obs detector.Observation) {
	if obs.Count() == 0 {
		a.sampler.reset()
		return
	}

	hand := obs.Dominant(detector.HandednessRight)
	tip := hand.Points[detector.IndexTip]
	a.sampler.add(tip.X, tip.Y, hand.HandSize())

	if !a.sampler.steady() {
		return
	}

	target := a.calibrator.CurrentTarget()
	if target == nil {
		return
	}
	name := target.Name

	a.calibrator.CaptureAveraged(a.sampler.xs, a.sampler.ys, a.sampler.meanSize())
	a.sampler.reset()
	log.Printf("Captured calibration point: %s (%.0f%%)", name, a.calibrator.Progress()*100)

	if next := a.calibrator.CurrentTarget(); next != nil {
		log.Printf("Hold your index finger at: %s", next.Name)
		return
	}

	a.finishCalibration()
}

// finishCalibration persists the completed calibration and returns the
// pipeline to gesture dispatch.
func (a *App) finishCalibration() {
	path := a.cfg.Settings.Calibration.Path
	if err := a.calibrator.Save(path); err != nil {
		log.Printf("Failed to save calibration: %v", err)
	} else {
		log.Printf("Calibration saved to %s", path)
	}

	if a.cfg.Store != nil {
		if data, err := os.ReadFile(path); err == nil && json.Valid(data) {
			w, h := a.calibrator.ScreenSize()
			entry := &store.CalibrationEntry{
				ScreenWidth:  w,
				ScreenHeight: h,
				HandSize:     a.calibrator.HandSize(),
				Data:         string(data),
			}
			if err := a.cfg.Store.Calibrations().Create(entry); err != nil {
				log.Printf("Failed to record calibration: %v", err)
			}
		}
	}

	a.cursor.Reset()
	a.classifier.Reset()
	a.debouncer.Reset()

	a.mu.Lock()
	a.calibrating = false
	a.mu.Unlock()
	log.Println("Calibration complete")
}
