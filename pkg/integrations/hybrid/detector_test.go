package hybrid

import (
	"errors"
	"testing"

	"github.com/actionsum/presence/pkg/pointer"
)

type fakeDetector struct {
	pos       pointer.Position
	err       error
	available bool
	reads     int
	closed    bool
}

func (f *fakeDetector) Read() (pointer.Position, error) {
	f.reads++
	return f.pos, f.err
}
func (f *fakeDetector) IsAvailable() bool        { return f.available }
func (f *fakeDetector) GetDisplayServer() string { return "x11" }
func (f *fakeDetector) Close() error             { f.closed = true; return nil }

func TestPrefersFirstAvailable(t *testing.T) {
	primary := &fakeDetector{pos: pointer.Position{X: 1, Y: 1}, available: true}
	fallback := &fakeDetector{pos: pointer.Position{X: 2, Y: 2}, available: true}

	d := newDetector("x11", primary, fallback)

	pos, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if pos != primary.pos {
		t.Errorf("Read() = %v, want %v", pos, primary.pos)
	}
	if fallback.reads != 0 {
		t.Errorf("fallback read %d times, want 0", fallback.reads)
	}
}

func TestFallsBackOnError(t *testing.T) {
	primary := &fakeDetector{err: errors.New("x server gone"), available: true}
	fallback := &fakeDetector{pos: pointer.Position{X: 9, Y: 8}, available: true}

	d := newDetector("x11", primary, fallback)

	pos, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if pos != fallback.pos {
		t.Errorf("Read() = %v, want %v", pos, fallback.pos)
	}
}

func TestUnavailableDetectorsAreClosed(t *testing.T) {
	missing := &fakeDetector{available: false}
	present := &fakeDetector{available: true}

	d := newDetector("wayland", missing, present)

	if !missing.closed {
		t.Error("unavailable detector was not closed")
	}
	if !d.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}
	if d.GetDisplayServer() != "wayland" {
		t.Errorf("GetDisplayServer() = %s, want wayland", d.GetDisplayServer())
	}
}

func TestAllFail(t *testing.T) {
	d := newDetector("x11", &fakeDetector{err: errors.New("boom"), available: true})

	if _, err := d.Read(); err == nil {
		t.Error("Read() expected error when every detector fails")
	}

	empty := newDetector("x11")
	if empty.IsAvailable() {
		t.Error("empty detector should not be available")
	}
	if _, err := empty.Read(); err == nil {
		t.Error("Read() expected error with no detectors")
	}
}

func TestClose(t *testing.T) {
	det := &fakeDetector{available: true}
	d := newDetector("x11", det)

	if err := d.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if !det.closed {
		t.Error("inner detector was not closed")
	}
	if d.IsAvailable() {
		t.Error("IsAvailable() = true after Close()")
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ pointer.Detector = (*Detector)(nil)
}
