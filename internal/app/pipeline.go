package app

import (
	"errors"
	"log"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/keymode"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline timing constants.
const (
	// frameInterval paces the processing loop at ~30 FPS.
	frameInterval = 33 * time.Millisecond
	// driftCheckEvery is how many processed frames pass between hand-size
	// drift checks against the calibration baseline.
	driftCheckEvery = 120
	// driftWarnGap rate-limits the recalibration warning.
	driftWarnGap = time.Minute
)

// runPipeline is the main processing loop: read the latest frame, detect
// hands, classify, debounce, and inject. One frame flows through all stages
// before the next is read, so commands are never reordered.
func (a *App) runPipeline(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var (
		detectErrs    int
		frames        int
		lastDriftWarn time.Time
		lastMode      keymode.State
		winDX, winDY  float64
	)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			a.automator.EndDrag()
			continue
		}

		frame, ok := a.source.Read()
		if !ok {
			continue
		}

		a.publishFrame(&frame)

		obs, err := a.det.Detect(&frame.Mat)
		frame.Mat.Close()
		if err != nil {
			detectErrs++
			if detectErrs == 1 || detectErrs%100 == 0 {
				log.Printf("Detection error (%d): %v", detectErrs, err)
			}
			continue
		}
		detectErrs = 0
		frames++

		if a.cfg.Snapshots != nil {
			a.cfg.Snapshots.SetObservation(obs)
			a.cfg.Snapshots.SetStatus(a.source.FPS(), a.keys.State().String(), a.calibrator.Complete())
		}

		if a.isCalibrating() {
			a.stepCalibration(obs)
			continue
		}

		// Drift check: a hand size far from the calibration baseline means
		// the mapping no longer matches the user's position.
		if frames%driftCheckEvery == 0 && obs.Count() > 0 {
			hand := obs.Dominant(detector.HandednessRight)
			if a.calibrator.ShouldRecalibrate(hand.HandSize(), a.cfg.Settings.Calibration.DriftTolerance) &&
				time.Since(lastDriftWarn) > driftWarnGap {
				lastDriftWarn = time.Now()
				log.Println("Hand size has drifted from the calibration baseline, consider recalibrating")
			}
		}

		// Keyboard mode sees every frame; while it is engaged the pointer
		// pipeline stands down.
		var exts [5]bool
		if obs.Count() > 0 {
			exts = a.classifier.Extensions(obs.Dominant(detector.HandednessRight))
		}
		shortcut, fired := a.keys.Update(exts)
		if fired {
			if err := a.automator.SendShortcut(shortcut); err != nil {
				a.injectionError(err)
			} else {
				a.record("SHORTCUT", shortcut.String(), 1)
			}
		}
		mode := a.keys.State()
		if mode != lastMode {
			lastMode = mode
			a.classifier.Reset()
			a.debouncer.Reset()
			a.automator.EndDrag()
		}
		if mode != keymode.Inactive {
			continue
		}

		cand := a.classifier.Classify(obs)
		if cand == nil {
			// Hand lost: never leave a drag held on a stale gesture.
			a.automator.EndDrag()
			a.cursor.Reset()
			a.debouncer.Process(nil)
			continue
		}

		cmd := a.debouncer.Process(cand)
		if cmd == nil {
			continue
		}
		if cmd.Type == gesture.Grab {
			winDX, winDY = 0, 0
		}
		a.dispatch(cmd, cand.Confidence, &winDX, &winDY)
	}
}

// publishFrame JPEG-encodes the frame for the preview stream.
func (a *App) publishFrame(frame *capture.Frame) {
	if a.cfg.Snapshots == nil {
		return
	}
	buf, err := gocv.IMEncode(".jpg", frame.Mat)
	if err != nil {
		return
	}
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	buf.Close()
	a.cfg.Snapshots.SetFrame(jpeg)
}

// dispatch injects one debounced command into the OS.
func (a *App) dispatch(cmd *gesture.Command, confidence float64, winDX, winDY *float64) {
	screenW, screenH := a.calibrator.ScreenSize()

	var err error
	switch cmd.Type {
	case gesture.Move:
		p := cmd.Payload.(gesture.PointPayload)
		a.automator.EndDrag()
		x, y := a.cursor.Position(p.X, p.Y, cmd.At)
		err = a.automator.MoveTo(x, y)

	case gesture.Drag:
		p := cmd.Payload.(gesture.PointPayload)
		x, y := a.cursor.Position(p.X, p.Y, cmd.At)
		err = a.automator.DragTo(x, y)

	case gesture.LeftClick:
		err = a.automator.Click("left", false)
		a.record("LEFT_CLICK", "", confidence)

	case gesture.RightClick:
		err = a.automator.Click("right", false)
		a.record("RIGHT_CLICK", "", confidence)

	case gesture.DoubleClick:
		err = a.automator.Click("left", true)
		a.record("DOUBLE_CLICK", "", confidence)

	case gesture.Scroll:
		p := cmd.Payload.(gesture.ScrollPayload)
		err = a.automator.Scroll(int(math.Round(p.Delta)))

	case gesture.Grab:
		a.record("GRAB", "", confidence)

	case gesture.WindowMove:
		p := cmd.Payload.(gesture.WindowMovePayload)
		dx := int(math.Round((p.DeltaX - *winDX) * float64(screenW)))
		dy := int(math.Round((p.DeltaY - *winDY) * float64(screenH)))
		*winDX, *winDY = p.DeltaX, p.DeltaY
		if dx != 0 || dy != 0 {
			err = a.automator.DragBy(dx, dy)
		}

	case gesture.WindowMinimize:
		a.automator.EndDrag()
		err = a.automator.MinimizeWindow()
		a.record("WINDOW_MINIMIZE", "", confidence)

	case gesture.WindowMaximize:
		a.automator.EndDrag()
		err = a.automator.MaximizeWindow()
		a.record("WINDOW_MAXIMIZE", "", confidence)

	case gesture.TwoHandResize:
		p := cmd.Payload.(gesture.ResizePayload)
		err = a.automator.Zoom(int(math.Round(p.Delta * a.cfg.Settings.Gestures.ScrollScale)))

	case gesture.Idle:
		a.automator.EndDrag()
	}

	if err != nil {
		a.injectionError(err)
	}
}

// injectionError logs injection failures; a failsafe abort also drops the
// debounce state so nothing fires the instant the pointer leaves the corner.
func (a *App) injectionError(err error) {
	if errors.Is(err, control.ErrFailsafe) {
		a.debouncer.Reset()
		log.Println("Failsafe corner active, injection suspended")
		return
	}
	log.Printf("Injection error: %v", err)
}

// record logs a one-shot command to the store and notifies listeners.
func (a *App) record(name, detail string, confidence float64) {
	if a.cfg.Store != nil {
		entry := &store.CommandEntry{Type: name, Detail: detail, Confidence: confidence}
		if err := a.cfg.Store.Commands().Append(entry); err != nil {
			log.Printf("Failed to log command: %v", err)
		}
	}
	if a.cfg.Snapshots != nil {
		a.cfg.Snapshots.SetLastCommand(name, time.Now())
	}
	if a.OnCommand != nil {
		a.OnCommand(name)
	}
}
