// Package app wires the capture, detection, classification, and injection
// stages into the running gesture control application.
package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/keymode"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/smoothing"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the application dependencies and settings.
type Config struct {
	Settings  config.Config
	Store     *store.Store
	Snapshots *server.Snapshots

	// Detector overrides the MediaPipe detector, for tests.
	Detector detector.Detector
	// Injector overrides the robotgo injector, for tests.
	Injector control.Injector
}

// App is the main application that turns hand gestures into OS input.
type App struct {
	cfg Config

	source     *capture.FrameSource
	det        detector.Detector
	classifier *gesture.Classifier
	debouncer  *gesture.Debouncer
	keys       *keymode.Controller
	automator  *control.Automator
	cursor     *control.Cursor
	calibrator *calibration.Calibrator

	// OnCommand, when set, is told about each one-shot command dispatched,
	// so the tray can surface it.
	OnCommand func(name string)

	enabled     bool
	calibrating bool
	sampler     calSampler
	mu          sync.RWMutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an App from the given configuration. The camera is not opened
// until Start.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings

	det := cfg.Detector
	if det == nil {
		mp, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        settings.Detector.MaxHands,
			MinConfidence:   settings.Detector.MinDetectionConfidence,
			MinTrackingConf: settings.Detector.MinTrackingConfidence,
		})
		if err != nil {
			return nil, fmt.Errorf("create detector: %w", err)
		}
		det = mp
	}

	inj := cfg.Injector
	if inj == nil {
		inj = control.NewInjector()
	}
	automator := control.NewAutomator(inj)
	screenW, screenH := automator.ScreenSize()
	if screenW <= 0 || screenH <= 0 {
		screenW, screenH = 1920, 1080
	}

	calibrator := calibration.New(screenW, screenH, settings.Pointer.DeadZone)
	if err := calibrator.Load(settings.Calibration.Path); err != nil {
		log.Printf("No usable calibration (%v), using linear mapping", err)
	}

	cursor, err := control.NewCursor(calibrator, smoothing.Params{
		Type:      settings.Smoothing.Type,
		Alpha:     settings.Smoothing.Alpha,
		Freq:      settings.Smoothing.Freq,
		MinCutoff: settings.Smoothing.MinCutoff,
		Beta:      settings.Smoothing.Beta,
		DCutoff:   settings.Smoothing.DCutoff,
	}, screenW, screenH, settings.Pointer.Sensitivity)
	if err != nil {
		return nil, fmt.Errorf("create cursor: %w", err)
	}

	a := &App{
		cfg:        cfg,
		source:     capture.NewFrameSource(settings.Camera.Device, settings.Camera.Width, settings.Camera.Height),
		det:        det,
		classifier: gesture.NewClassifier(gesture.Thresholds{
			Finger:           settings.Gestures.FingerThreshold,
			Pinch:            settings.Gestures.PinchThreshold,
			Grab:             settings.Gestures.GrabThreshold,
			GrabDisplacement: settings.Gestures.GrabDisplacement,
			KeyboardHold:     settings.Gestures.KeyboardHold(),
			ScrollScale:      settings.Gestures.ScrollScale,
		}),
		debouncer: gesture.NewDebouncer(gesture.DebounceConfig{
			StabilityFrames: settings.Gestures.StabilityFrames,
			ClickCooldown:   settings.Gestures.ClickCooldown(),
			ScrollCooldown:  settings.Gestures.ScrollCooldown(),
		}),
		keys: keymode.New(keymode.Config{
			HoldTime: settings.Gestures.KeyboardHold(),
		}),
		automator:  automator,
		cursor:     cursor,
		calibrator: calibrator,
		enabled:    true,
	}
	if cfg.Store != nil {
		saved, err := cfg.Store.Settings().GetDefault(enabledSettingKey, "true")
		if err != nil {
			log.Printf("Error reading saved enable state: %v", err)
		} else {
			a.enabled = saved != "false"
		}
	}
	return a, nil
}

// enabledSettingKey persists the enable toggle across restarts.
const enabledSettingKey = "control_enabled"

// SetEnabled enables or disables gesture control. Disabling releases any
// held drag.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	if !enabled {
		log.Println("Gesture control disabled")
	} else {
		log.Println("Gesture control enabled")
	}
	if a.cfg.Store != nil {
		value := "true"
		if !enabled {
			value = "false"
		}
		if err := a.cfg.Store.Settings().Set(enabledSettingKey, value); err != nil {
			log.Printf("Error saving enable state: %v", err)
		}
	}
}

// IsEnabled returns whether gesture control is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Calibrator returns the shared calibrator.
func (a *App) Calibrator() *calibration.Calibrator {
	return a.calibrator
}

// KeyboardModeState returns the current keyboard mode state name.
func (a *App) KeyboardModeState() string {
	return a.keys.State().String()
}

// OnKeyboardMode registers a listener for keyboard mode transitions. Call
// before Start.
func (a *App) OnKeyboardMode(fn func(state string)) {
	last := keymode.Inactive
	a.keys.OnFeedback = func(f keymode.Feedback) {
		if f.Executed != keymode.ShortcutNone {
			log.Printf("Keyboard mode shortcut: %s", f.Executed)
		}
		if f.State == last {
			return
		}
		last = f.State
		fn(f.State.String())
	}
}

// Start opens the camera and launches the processing pipeline. An unusable
// camera is a fatal startup error.
func (a *App) Start() error {
	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Pipeline started")
	return nil
}

// Stop shuts the application down in order: pipeline first, then the
// camera, then the detector. Any held drag is released so no button is left
// stuck down.
func (a *App) Stop() {
	if a.stopCh != nil {
		close(a.stopCh)
		select {
		case <-a.doneCh:
		case <-time.After(2 * time.Second):
			log.Println("Pipeline did not stop in time")
		}
		a.stopCh = nil
	}

	a.automator.EndDrag()

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.det.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	log.Println("Stopped")
}
