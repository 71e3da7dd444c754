package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// calibrate captures the five targets with camera positions that mirror the
// screen targets exactly, which makes the solved mapping the identity.
func calibrateIdentity(t *testing.T, c *Calibrator, handSize float64) {
	t.Helper()
	c.Start()
	for {
		target := c.CurrentTarget()
		if target == nil {
			break
		}
		if !c.CapturePoint(target.ScreenX, target.ScreenY, handSize) {
			t.Fatal("CapturePoint refused a pending target")
		}
	}
	if !c.Complete() {
		t.Fatal("calibration not complete after capturing all targets")
	}
}

func TestCalibrator_FivePointFlow(t *testing.T) {
	c := New(1920, 1080, 0.1)
	c.Start()

	wantOrder := []string{"Top Left", "Top Right", "Bottom Right", "Bottom Left", "Center"}
	for i, name := range wantOrder {
		target := c.CurrentTarget()
		if target == nil {
			t.Fatalf("no target at step %d", i)
		}
		if target.Name != name {
			t.Errorf("target %d = %q, want %q", i, target.Name, name)
		}
		wantProgress := float64(i) / 5
		if got := c.Progress(); math.Abs(got-wantProgress) > 1e-9 {
			t.Errorf("progress at step %d = %v, want %v", i, got, wantProgress)
		}
		c.CapturePoint(target.ScreenX, target.ScreenY, 0.2)
	}

	if !c.Complete() {
		t.Fatal("not complete after five captures")
	}
	if got := c.Progress(); got != 1 {
		t.Errorf("progress = %v, want 1", got)
	}
	if c.CurrentTarget() != nil {
		t.Error("CurrentTarget should be nil when complete")
	}
	if c.CapturePoint(0.5, 0.5, 0.2) {
		t.Error("CapturePoint succeeded after completion")
	}
}

func TestCalibrator_IdentityMapping(t *testing.T) {
	c := New(1920, 1080, 0.1)
	calibrateIdentity(t, c, 0.2)

	tests := []struct {
		name string
		x, y float64
	}{
		{"center", 0.5, 0.5},
		{"top left target", 0.1, 0.1},
		{"bottom right target", 0.9, 0.9},
		{"off-grid point", 0.3, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gx, gy := c.MapPoint(tt.x, tt.y)
			if math.Abs(gx-tt.x) > 1e-6 || math.Abs(gy-tt.y) > 1e-6 {
				t.Errorf("MapPoint(%v, %v) = (%v, %v), want identity", tt.x, tt.y, gx, gy)
			}
		})
	}
}

func TestCalibrator_SkewedMapping(t *testing.T) {
	c := New(1920, 1080, 0.1)
	c.Start()

	// Camera sees the screen targets shifted right by 0.2.
	for {
		target := c.CurrentTarget()
		if target == nil {
			break
		}
		c.CapturePoint(target.ScreenX+0.2, target.ScreenY, 0.2)
	}

	gx, gy := c.MapPoint(0.7, 0.5)
	if math.Abs(gx-0.5) > 1e-6 || math.Abs(gy-0.5) > 1e-6 {
		t.Errorf("MapPoint(0.7, 0.5) = (%v, %v), want (0.5, 0.5)", gx, gy)
	}
}

func TestCalibrator_DeadZoneFallback(t *testing.T) {
	c := New(1920, 1080, 0.1)

	// Without a calibration, the inner region is rescaled to the full range.
	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{"center maps to center", 0.5, 0.5, 0.5, 0.5},
		{"dead zone edge maps to origin", 0.1, 0.1, 0, 0},
		{"inside dead zone is clamped", 0.02, 0.5, 0, 0.5},
		{"far edge maps to far edge", 0.9, 0.9, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gx, gy := c.MapPoint(tt.x, tt.y)
			if math.Abs(gx-tt.wantX) > 1e-9 || math.Abs(gy-tt.wantY) > 1e-9 {
				t.Errorf("MapPoint(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, gx, gy, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestCalibrator_SaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.json")

	c := New(1920, 1080, 0.1)
	calibrateIdentity(t, c, 0.25)
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(800, 600, 0.1)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !loaded.Complete() {
		t.Fatal("loaded calibration not complete")
	}
	// The live screen resolution wins over the one stored in the record.
	w, h := loaded.ScreenSize()
	if w != 800 || h != 600 {
		t.Errorf("loaded screen size = %dx%d, want the live 800x600", w, h)
	}
	if got := loaded.HandSize(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("loaded hand size = %v, want 0.25", got)
	}

	gx, gy := loaded.MapPoint(0.3, 0.7)
	if math.Abs(gx-0.3) > 1e-6 || math.Abs(gy-0.7) > 1e-6 {
		t.Errorf("loaded MapPoint(0.3, 0.7) = (%v, %v), want identity", gx, gy)
	}
}

func TestCalibrator_SaveIncomplete(t *testing.T) {
	c := New(1920, 1080, 0.1)
	c.Start()
	c.CapturePoint(0.1, 0.1, 0.2)

	err := c.Save(filepath.Join(t.TempDir(), "calibration.json"))
	if err != ErrIncomplete {
		t.Errorf("Save on incomplete calibration = %v, want ErrIncomplete", err)
	}
}

func TestCalibrator_LoadLegacyFourPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	legacy := `{
		"version": "1.0",
		"timestamp": 1700000000.0,
		"screen_resolution": [1920, 1080],
		"points": [
			{"name": "Top Left", "screen": [0.1, 0.1], "camera": [0.1, 0.1], "captured": true},
			{"name": "Top Right", "screen": [0.9, 0.1], "camera": [0.9, 0.1], "captured": true},
			{"name": "Bottom Right", "screen": [0.9, 0.9], "camera": [0.9, 0.9], "captured": true},
			{"name": "Bottom Left", "screen": [0.1, 0.9], "camera": [0.1, 0.9], "captured": true}
		]
	}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(1920, 1080, 0.1)
	if err := c.Load(path); err != nil {
		t.Fatalf("Load legacy record: %v", err)
	}
	if !c.Complete() {
		t.Fatal("legacy calibration not complete after load")
	}

	points := c.Points()
	if len(points) != 5 {
		t.Fatalf("legacy record padded to %d points, want 5", len(points))
	}
	center := points[4]
	if center.Name != "Center" || center.Captured {
		t.Errorf("padded center = %+v, want uncaptured Center placeholder", center)
	}

	gx, gy := c.MapPoint(0.5, 0.5)
	if math.Abs(gx-0.5) > 1e-6 || math.Abs(gy-0.5) > 1e-6 {
		t.Errorf("legacy MapPoint(0.5, 0.5) = (%v, %v), want identity", gx, gy)
	}
}

func TestCalibrator_LoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"wrong point count", `{"version":"1.1","points":[{"name":"A","screen":[0,0]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calibration.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			c := New(1920, 1080, 0.1)
			if err := c.Load(path); err == nil {
				t.Fatal("Load accepted a malformed record")
			}
			// The calibrator still works via the fallback mapping.
			if c.Complete() {
				t.Error("malformed load marked the calibration complete")
			}
			gx, gy := c.MapPoint(0.5, 0.5)
			if math.Abs(gx-0.5) > 1e-9 || math.Abs(gy-0.5) > 1e-9 {
				t.Errorf("fallback MapPoint(0.5, 0.5) = (%v, %v)", gx, gy)
			}
		})
	}
}

func TestCalibrator_LoadMissingFile(t *testing.T) {
	c := New(1920, 1080, 0.1)
	if err := c.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestCalibrator_ShouldRecalibrate(t *testing.T) {
	c := New(1920, 1080, 0.1)
	calibrateIdentity(t, c, 0.2)

	tests := []struct {
		name     string
		current  float64
		tol      float64
		want     bool
	}{
		{"small drift stays", 0.21, 0.3, false},
		{"10 percent drift stays", 0.22, 0.3, false},
		{"50 percent drift recalibrates", 0.3, 0.3, true},
		{"shrunk hand recalibrates", 0.1, 0.3, true},
		{"zero current ignored", 0, 0.3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ShouldRecalibrate(tt.current, tt.tol); got != tt.want {
				t.Errorf("ShouldRecalibrate(%v, %v) = %v, want %v", tt.current, tt.tol, got, tt.want)
			}
		})
	}
}

func TestCalibrator_NoBaselineNeverRecalibrates(t *testing.T) {
	c := New(1920, 1080, 0.1)
	if c.ShouldRecalibrate(0.5, 0.3) {
		t.Error("ShouldRecalibrate true without a baseline")
	}
}

func TestCalibrator_CaptureAveraged(t *testing.T) {
	c := New(1920, 1080, 0.1)
	c.Start()

	xs := []float64{0.09, 0.10, 0.11}
	ys := []float64{0.11, 0.10, 0.09}
	if !c.CaptureAveraged(xs, ys, 0.2) {
		t.Fatal("CaptureAveraged refused samples")
	}

	p := c.Points()[0]
	if !p.Captured {
		t.Fatal("first target not captured")
	}
	if math.Abs(p.CameraX-0.1) > 1e-9 || math.Abs(p.CameraY-0.1) > 1e-9 {
		t.Errorf("captured mean = (%v, %v), want (0.1, 0.1)", p.CameraX, p.CameraY)
	}

	if c.CaptureAveraged(nil, nil, 0.2) {
		t.Error("CaptureAveraged accepted empty samples")
	}
	if c.CaptureAveraged([]float64{1}, []float64{1, 2}, 0.2) {
		t.Error("CaptureAveraged accepted mismatched samples")
	}
}
