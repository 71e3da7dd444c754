package server

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Snapshots is the handoff point between the processing pipeline and the
// HTTP handlers. The pipeline publishes its latest frame, observation, and
// status; handlers read them at their own pace.
type Snapshots struct {
	mu sync.RWMutex

	jpeg    []byte
	jpegSeq uint64

	obs   detector.Observation
	obsAt time.Time

	fps          float64
	keyboardMode string
	lastCommand  string
	lastAt       time.Time
	calibrated   bool
}

// NewSnapshots creates an empty Snapshots.
func NewSnapshots() *Snapshots {
	return &Snapshots{keyboardMode: "inactive"}
}

// SetFrame publishes the latest JPEG-encoded camera frame.
func (s *Snapshots) SetFrame(jpeg []byte) {
	s.mu.Lock()
	s.jpeg = jpeg
	s.jpegSeq++
	s.mu.Unlock()
}

// Frame returns the latest JPEG frame and its sequence number.
func (s *Snapshots) Frame() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg, s.jpegSeq
}

// SetObservation publishes the latest hand observation.
func (s *Snapshots) SetObservation(obs detector.Observation) {
	s.mu.Lock()
	s.obs = obs
	s.obsAt = time.Now()
	s.mu.Unlock()
}

// Observation returns the latest observation and when it was published.
func (s *Snapshots) Observation() (detector.Observation, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obs, s.obsAt
}

// SetStatus publishes pipeline status for the health endpoint.
func (s *Snapshots) SetStatus(fps float64, keyboardMode string, calibrated bool) {
	s.mu.Lock()
	s.fps = fps
	s.keyboardMode = keyboardMode
	s.calibrated = calibrated
	s.mu.Unlock()
}

// SetLastCommand publishes the most recently dispatched command.
func (s *Snapshots) SetLastCommand(name string, at time.Time) {
	s.mu.Lock()
	s.lastCommand = name
	s.lastAt = at
	s.mu.Unlock()
}

// Status returns the published pipeline status.
func (s *Snapshots) Status() (fps float64, keyboardMode, lastCommand string, lastAt time.Time, calibrated bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fps, s.keyboardMode, s.lastCommand, s.lastAt, s.calibrated
}
