// Package capture provides camera frame acquisition using GoCV (OpenCV),
// with a background reader that always exposes the most recent frame.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480

	// fpsWindow is the number of consumer read intervals averaged for FPS.
	fpsWindow = 30

	// closeJoinTimeout bounds how long Close waits for the reader goroutine.
	closeJoinTimeout = time.Second
)

// ErrNotOpen is returned when reading from a source that is not open.
var ErrNotOpen = errors.New("frame source is not open")

// Frame is one captured camera frame. Pixels are mirrored horizontally so
// the image behaves like a mirror of the user. The Mat is a copy owned by
// the caller, who must Close it.
type Frame struct {
	Mat       gocv.Mat
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
}

// device abstracts the underlying capture handle so tests can substitute a
// synthetic source.
type device interface {
	read(dst *gocv.Mat) bool
	close() error
}

type gocvDevice struct {
	capture *gocv.VideoCapture
}

func openGocvDevice(deviceID, width, height int) (device, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", deviceID, err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	return &gocvDevice{capture: capture}, nil
}

func (d *gocvDevice) read(dst *gocv.Mat) bool { return d.capture.Read(dst) }
func (d *gocvDevice) close() error            { return d.capture.Close() }

// FrameSource owns a camera device and a reader goroutine. The reader
// overwrites a single latest-frame slot; consumers never block it, and a
// slow consumer only ever skips frames, it does not delay them.
type FrameSource struct {
	deviceID int
	width    int
	height   int

	openDevice func(deviceID, width, height int) (device, error)

	mu      sync.Mutex
	dev     device
	running bool
	stop    chan struct{}
	done    chan struct{}

	latest    gocv.Mat
	latestSeq uint64
	latestAt  time.Time
	hasFrame  bool

	lastReadSeq uint64
	lastReadAt  time.Time
	intervals   []float64
}

// NewFrameSource creates a FrameSource for the given device ID. Non-positive
// dimensions fall back to the defaults.
func NewFrameSource(deviceID, width, height int) *FrameSource {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &FrameSource{
		deviceID:   deviceID,
		width:      width,
		height:     height,
		openDevice: openGocvDevice,
	}
}

// Open opens the camera, verifies a first frame can be read, and starts the
// reader goroutine. A device that cannot produce a first frame is a hard
// failure; there is no silent retry loop.
func (s *FrameSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	dev, err := s.openDevice(s.deviceID, s.width, s.height)
	if err != nil {
		return err
	}

	first := gocv.NewMat()
	if ok := dev.read(&first); !ok || first.Empty() {
		first.Close()
		dev.close()
		return fmt.Errorf("camera %d produced no frames", s.deviceID)
	}
	s.publishLocked(&first)
	first.Close()

	s.dev = dev
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.readLoop(dev, s.stop, s.done)

	return nil
}

func (s *FrameSource) readLoop(dev device, stop, done chan struct{}) {
	defer close(done)

	buf := gocv.NewMat()
	defer buf.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := dev.read(&buf); !ok || buf.Empty() {
			// Transient read failure; the device may recover.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		// A read that outlives Close must not repopulate the slot Close
		// already released.
		s.mu.Lock()
		if s.running {
			s.publishLocked(&buf)
		}
		s.mu.Unlock()
	}
}

// publishLocked mirrors src into the latest-frame slot. Caller holds mu.
func (s *FrameSource) publishLocked(src *gocv.Mat) {
	if !s.hasFrame {
		s.latest = gocv.NewMat()
		s.hasFrame = true
	}
	gocv.Flip(*src, &s.latest, 1)
	s.latestSeq++
	s.latestAt = time.Now()
}

// Read returns a copy of the most recent frame. The second return value is
// false when no new frame has arrived since the previous Read, or when the
// source is not open. The caller owns the returned Mat.
func (s *FrameSource) Read() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasFrame || s.latestSeq == s.lastReadSeq {
		return Frame{}, false
	}

	now := time.Now()
	if !s.lastReadAt.IsZero() {
		s.intervals = append(s.intervals, now.Sub(s.lastReadAt).Seconds())
		if len(s.intervals) > fpsWindow {
			s.intervals = s.intervals[len(s.intervals)-fpsWindow:]
		}
	}
	s.lastReadAt = now
	s.lastReadSeq = s.latestSeq

	return Frame{
		Mat:       s.latest.Clone(),
		Seq:       s.latestSeq,
		Timestamp: s.latestAt,
		Width:     s.latest.Cols(),
		Height:    s.latest.Rows(),
	}, true
}

// FPS returns the consumer-side frame rate averaged over the last reads,
// or 0 before enough reads have happened.
func (s *FrameSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.intervals) == 0 {
		return 0
	}
	var sum float64
	for _, dt := range s.intervals {
		sum += dt
	}
	mean := sum / float64(len(s.intervals))
	if mean <= 0 {
		return 0
	}
	return 1 / mean
}

// IsOpen reports whether the source is currently capturing.
func (s *FrameSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Close stops the reader goroutine, waits up to a second for it to exit,
// and releases the device. Calling Close on a closed source is a no-op.
func (s *FrameSource) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	done := s.done
	dev := s.dev
	s.dev = nil
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(closeJoinTimeout):
	}

	err := dev.close()

	s.mu.Lock()
	if s.hasFrame {
		s.latest.Close()
		s.hasFrame = false
	}
	s.latestSeq = 0
	s.lastReadSeq = 0
	s.lastReadAt = time.Time{}
	s.intervals = nil
	s.mu.Unlock()

	return err
}
