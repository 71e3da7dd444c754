package detector

import "gocv.io/x/gocv"

// Detector turns a video frame into detected hand skeletons.
type Detector interface {
	// Detect analyzes a frame and returns 0, 1, or 2 hands. A failed
	// detection returns an error; callers treat that as zero hands and
	// continue with the next frame.
	Detect(frame *gocv.Mat) (Observation, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds tuning options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
	}
}
