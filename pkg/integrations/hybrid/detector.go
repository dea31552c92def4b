package hybrid

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/actionsum/presence/pkg/integrations/x11"
	"github.com/actionsum/presence/pkg/integrations/xdotool"
	"github.com/actionsum/presence/pkg/pointer"
)

// Detector reads the pointer from the first detector that answers,
// in preference order
type Detector struct {
	detectors []pointer.Detector

	displayServer string

	mu                   sync.Mutex
	lastSuccessfulMethod string
}

// NewDetector builds the detector chain for displayServer ("x11" or
// "wayland"). Under Wayland only XWayland clients are visible to either
// backend.
func NewDetector(displayServer string) (*Detector, error) {
	var candidates []pointer.Detector
	if os.Getenv("DISPLAY") != "" {
		candidates = append(candidates, x11.NewDetector())
	}
	candidates = append(candidates, xdotool.NewDetector(displayServer))

	d := newDetector(displayServer, candidates...)
	if len(d.detectors) == 0 {
		return nil, fmt.Errorf("no pointer detector available for %s session", displayServer)
	}

	return d, nil
}

func newDetector(displayServer string, candidates ...pointer.Detector) *Detector {
	d := &Detector{displayServer: displayServer}

	for _, det := range candidates {
		if det.IsAvailable() {
			d.detectors = append(d.detectors, det)
			continue
		}
		det.Close()
	}

	return d
}

// Read tries each detector in order and returns the first position read
func (d *Detector) Read() (pointer.Position, error) {
	var lastErr error

	for _, det := range d.detectors {
		pos, err := det.Read()
		if err == nil {
			d.recordMethod(fmt.Sprintf("%T", det))
			return pos, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return pointer.Position{}, fmt.Errorf("no pointer detector available")
	}
	return pointer.Position{}, fmt.Errorf("all pointer detectors failed: %w", lastErr)
}

func (d *Detector) recordMethod(method string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastSuccessfulMethod != "" && d.lastSuccessfulMethod != method {
		log.Printf("Pointer source switched from %s to %s", d.lastSuccessfulMethod, method)
	}
	d.lastSuccessfulMethod = method
}

func (d *Detector) IsAvailable() bool {
	return len(d.detectors) > 0
}

func (d *Detector) GetDisplayServer() string {
	return d.displayServer
}

func (d *Detector) Close() error {
	var firstErr error
	for _, det := range d.detectors {
		if err := det.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.detectors = nil
	return firstErr
}
