package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// fakeDevice produces a bounded number of synthetic frames, then reports
// read failures so the reader loop settles. A nonzero interval paces the
// frames like a real camera.
type fakeDevice struct {
	mu       sync.Mutex
	frames   int
	interval time.Duration
	produced int
	closed   bool
}

func (d *fakeDevice) read(dst *gocv.Mat) bool {
	if d.interval > 0 {
		time.Sleep(d.interval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.produced >= d.frames {
		return false
	}
	d.produced++

	m := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(d.produced), 0, 0, 0),
		8, 8, gocv.MatTypeCV8UC1,
	)
	m.CopyTo(dst)
	m.Close()
	return true
}

func (d *fakeDevice) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func newFakeSource(frames int) (*FrameSource, *fakeDevice) {
	dev := &fakeDevice{frames: frames}
	s := NewFrameSource(0, 0, 0)
	s.openDevice = func(deviceID, width, height int) (device, error) {
		return dev, nil
	}
	return s, dev
}

func TestFrameSource_OpenFailsWithoutDevice(t *testing.T) {
	s := NewFrameSource(0, 0, 0)
	s.openDevice = func(deviceID, width, height int) (device, error) {
		return nil, errors.New("no such device")
	}
	if err := s.Open(); err == nil {
		t.Fatal("Open succeeded with no device")
	}
}

func TestFrameSource_OpenFailsWithoutFirstFrame(t *testing.T) {
	s, dev := newFakeSource(0)
	if err := s.Open(); err == nil {
		t.Fatal("Open succeeded with a device that produces no frames")
	}
	if !dev.closed {
		t.Error("device not released after failed open")
	}
}

func TestFrameSource_ReadLatestWins(t *testing.T) {
	s, _ := newFakeSource(5)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// Let the reader drain the remaining fake frames.
	time.Sleep(200 * time.Millisecond)

	frame, ok := s.Read()
	if !ok {
		t.Fatal("Read returned no frame")
	}
	defer frame.Mat.Close()

	if frame.Seq != 5 {
		t.Errorf("frame seq = %d, want the latest (5)", frame.Seq)
	}
	if frame.Width != 8 || frame.Height != 8 {
		t.Errorf("frame = %dx%d, want 8x8", frame.Width, frame.Height)
	}

	// Nothing new has arrived, so the next read is empty.
	if _, ok := s.Read(); ok {
		t.Error("Read returned a frame twice with no new capture")
	}
}

func TestFrameSource_ReadBeforeOpen(t *testing.T) {
	s, _ := newFakeSource(3)
	if _, ok := s.Read(); ok {
		t.Error("Read returned a frame before Open")
	}
}

func TestFrameSource_CloseIdempotent(t *testing.T) {
	s, dev := newFakeSource(3)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dev.closed {
		t.Error("device not released on Close")
	}
	if s.IsOpen() {
		t.Error("IsOpen true after Close")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFrameSource_FPSWindow(t *testing.T) {
	dev := &fakeDevice{frames: 1000, interval: 10 * time.Millisecond}
	s := NewFrameSource(0, 0, 0)
	s.openDevice = func(deviceID, width, height int) (device, error) {
		return dev, nil
	}
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.FPS(); got != 0 {
		t.Errorf("FPS before any reads = %v, want 0", got)
	}

	time.Sleep(100 * time.Millisecond)
	if frame, ok := s.Read(); ok {
		frame.Mat.Close()
	}
	time.Sleep(50 * time.Millisecond)
	if frame, ok := s.Read(); ok {
		frame.Mat.Close()
	}

	// Two reads give one interval of roughly 50ms.
	if got := s.FPS(); got <= 0 || got > 100 {
		t.Errorf("FPS = %v, want a plausible positive rate", got)
	}
}

// stallDevice answers the first-frame read immediately, then parks the reader
// goroutine on a gate until the test releases it.
type stallDevice struct {
	mu    sync.Mutex
	reads int
	gate  chan struct{}
}

func (d *stallDevice) read(dst *gocv.Mat) bool {
	d.mu.Lock()
	d.reads++
	n := d.reads
	d.mu.Unlock()
	if n > 1 {
		<-d.gate
	}
	m := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(n), 0, 0, 0),
		8, 8, gocv.MatTypeCV8UC1,
	)
	m.CopyTo(dst)
	m.Close()
	return true
}

func (d *stallDevice) close() error { return nil }

func TestFrameSource_LateReadAfterCloseIsDropped(t *testing.T) {
	dev := &stallDevice{gate: make(chan struct{})}
	s := NewFrameSource(0, 0, 0)
	s.openDevice = func(deviceID, width, height int) (device, error) {
		return dev, nil
	}
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	done := s.done

	// The reader is parked inside a device read, so Close gives up on the
	// join and releases the frame slot without it.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Release the stalled read; its frame must not repopulate the slot.
	close(dev.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not exit after release")
	}

	s.mu.Lock()
	hasFrame, seq := s.hasFrame, s.latestSeq
	s.mu.Unlock()
	if hasFrame || seq != 0 {
		t.Errorf("frame slot repopulated after Close: hasFrame=%v seq=%d", hasFrame, seq)
	}
	if _, ok := s.Read(); ok {
		t.Error("Read returned a frame after Close")
	}
}
