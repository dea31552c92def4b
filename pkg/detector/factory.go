package detector

import (
	"fmt"
	"os"

	"github.com/actionsum/presence/pkg/integrations/hybrid"
	"github.com/actionsum/presence/pkg/pointer"
)

// New returns the pointer detector for the current graphical session
func New() (pointer.Detector, error) {
	displayServer := DetectDisplayServer()
	if displayServer == "unknown" {
		return nil, fmt.Errorf("no graphical session detected (DISPLAY and WAYLAND_DISPLAY are unset)")
	}
	return hybrid.NewDetector(displayServer)
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
