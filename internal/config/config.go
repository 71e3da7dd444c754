// Package config loads the YAML configuration file, applying defaults for
// anything the file leaves out and clamping values to sane ranges.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDirName is the per-user state directory under the home directory.
const DefaultDirName = ".mudra"

// Camera holds capture settings.
type Camera struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Detector holds hand landmark detector settings.
type Detector struct {
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
}

// Gestures holds classifier and debouncer tuning.
type Gestures struct {
	FingerThreshold  float64 `yaml:"finger_threshold"`
	PinchThreshold   float64 `yaml:"pinch_threshold"`
	GrabThreshold    float64 `yaml:"grab_threshold"`
	GrabDisplacement float64 `yaml:"grab_displacement"`
	StabilityFrames  int     `yaml:"stability_frames"`
	CooldownClickMS  int     `yaml:"cooldown_click_ms"`
	CooldownScrollMS int     `yaml:"cooldown_scroll_ms"`
	KeyboardHoldMS   int     `yaml:"keyboard_hold_ms"`
	ScrollScale      float64 `yaml:"scroll_scale"`
}

// Smoothing holds cursor filter settings.
type Smoothing struct {
	Type      string  `yaml:"type"`
	Alpha     float64 `yaml:"alpha"`
	Freq      float64 `yaml:"freq"`
	MinCutoff float64 `yaml:"min_cutoff"`
	Beta      float64 `yaml:"beta"`
	DCutoff   float64 `yaml:"d_cutoff"`
}

// Pointer holds cursor mapping settings.
type Pointer struct {
	Sensitivity float64 `yaml:"sensitivity"`
	DeadZone    float64 `yaml:"dead_zone"`
}

// Calibration holds calibration persistence settings.
type Calibration struct {
	Path           string  `yaml:"path"`
	DriftTolerance float64 `yaml:"drift_tolerance"`
}

// Server holds the local HTTP server settings.
type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Store holds the local database settings.
type Store struct {
	Path string `yaml:"path"`
}

// Config is the full application configuration.
type Config struct {
	Camera      Camera      `yaml:"camera"`
	Detector    Detector    `yaml:"detector"`
	Gestures    Gestures    `yaml:"gestures"`
	Smoothing   Smoothing   `yaml:"smoothing"`
	Pointer     Pointer     `yaml:"pointer"`
	Calibration Calibration `yaml:"calibration"`
	Server      Server      `yaml:"server"`
	Store       Store       `yaml:"store"`
}

// Default returns the stock configuration. Paths are resolved under the
// user's state directory.
func Default() Config {
	dir := Dir()
	return Config{
		Camera: Camera{Device: 0, Width: 640, Height: 480},
		Detector: Detector{
			MaxHands:               2,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
		},
		Gestures: Gestures{
			FingerThreshold:  0.15,
			PinchThreshold:   0.08,
			GrabThreshold:    0.12,
			GrabDisplacement: 0.15,
			StabilityFrames:  3,
			CooldownClickMS:  300,
			CooldownScrollMS: 50,
			KeyboardHoldMS:   1000,
			ScrollScale:      100,
		},
		Smoothing: Smoothing{
			Type:      "adaptive",
			Alpha:     0.3,
			Freq:      30,
			MinCutoff: 1.0,
			Beta:      0.007,
			DCutoff:   1.0,
		},
		Pointer: Pointer{Sensitivity: 1.0, DeadZone: 0.1},
		Calibration: Calibration{
			Path:           filepath.Join(dir, "calibration.json"),
			DriftTolerance: 0.3,
		},
		Server: Server{Enabled: true, Addr: "127.0.0.1:8321"},
		Store:  Store{Path: filepath.Join(dir, "mudra.db")},
	}
}

// Dir returns the per-user state directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.clamp()
	return cfg, nil
}

// clamp pulls out-of-range values back to usable bounds rather than
// refusing to start.
func (c *Config) clamp() {
	clampInt(&c.Camera.Device, 0, 16)
	clampInt(&c.Camera.Width, 160, 4096)
	clampInt(&c.Camera.Height, 120, 4096)
	clampInt(&c.Detector.MaxHands, 1, 2)
	clampFloat(&c.Detector.MinDetectionConfidence, 0, 1)
	clampFloat(&c.Detector.MinTrackingConfidence, 0, 1)
	clampFloat(&c.Gestures.FingerThreshold, 0.01, 1)
	clampFloat(&c.Gestures.PinchThreshold, 0.01, 1)
	clampFloat(&c.Gestures.GrabThreshold, 0.01, 1)
	clampFloat(&c.Gestures.GrabDisplacement, 0.01, 1)
	clampInt(&c.Gestures.StabilityFrames, 1, 30)
	clampInt(&c.Gestures.CooldownClickMS, 0, 5000)
	clampInt(&c.Gestures.CooldownScrollMS, 0, 5000)
	clampInt(&c.Gestures.KeyboardHoldMS, 100, 10000)
	clampFloat(&c.Gestures.ScrollScale, 1, 1000)
	clampFloat(&c.Pointer.Sensitivity, 0.1, 5)
	clampFloat(&c.Pointer.DeadZone, 0, 0.45)
	clampFloat(&c.Calibration.DriftTolerance, 0.05, 2)
}

func clampInt(v *int, lo, hi int) {
	if *v < lo {
		*v = lo
	}
	if *v > hi {
		*v = hi
	}
}

func clampFloat(v *float64, lo, hi float64) {
	if *v < lo {
		*v = lo
	}
	if *v > hi {
		*v = hi
	}
}

// KeyboardHold returns the keyboard hold duration.
func (g Gestures) KeyboardHold() time.Duration {
	return time.Duration(g.KeyboardHoldMS) * time.Millisecond
}

// ClickCooldown returns the click cooldown duration.
func (g Gestures) ClickCooldown() time.Duration {
	return time.Duration(g.CooldownClickMS) * time.Millisecond
}

// ScrollCooldown returns the scroll cooldown duration.
func (g Gestures) ScrollCooldown() time.Duration {
	return time.Duration(g.CooldownScrollMS) * time.Millisecond
}
