package xdotool

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/actionsum/presence/pkg/pointer"
)

// Detector implements pointer.Detector by shelling out to xdotool.
// It works under plain X11 and under XWayland.
type Detector struct {
	hasXdotool bool
	display    string
}

// NewDetector creates a new xdotool detector
func NewDetector(displayServer string) *Detector {
	d := &Detector{display: displayServer}
	d.hasXdotool = d.commandExists("xdotool")
	return d
}

// commandExists checks if a command is available in PATH
func (d *Detector) commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable checks if xdotool is installed
func (d *Detector) IsAvailable() bool {
	return d.hasXdotool
}

// GetDisplayServer returns the display server this detector was created for
func (d *Detector) GetDisplayServer() string {
	return d.display
}

// Read runs `xdotool getmouselocation --shell` and parses its output
func (d *Detector) Read() (pointer.Position, error) {
	if !d.hasXdotool {
		return pointer.Position{}, fmt.Errorf("xdotool not found in PATH")
	}

	output, err := exec.Command("xdotool", "getmouselocation", "--shell").Output()
	if err != nil {
		return pointer.Position{}, fmt.Errorf("failed to get mouse location: %w", err)
	}

	return parseMouseLocation(string(output))
}

// parseMouseLocation extracts X and Y from the KEY=VALUE lines printed by --shell
func parseMouseLocation(output string) (pointer.Position, error) {
	var pos pointer.Position
	var hasX, hasY bool

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}

		switch key {
		case "X":
			x, err := strconv.Atoi(value)
			if err != nil {
				return pointer.Position{}, fmt.Errorf("invalid X coordinate %q: %w", value, err)
			}
			pos.X, hasX = x, true
		case "Y":
			y, err := strconv.Atoi(value)
			if err != nil {
				return pointer.Position{}, fmt.Errorf("invalid Y coordinate %q: %w", value, err)
			}
			pos.Y, hasY = y, true
		}
	}

	if !hasX || !hasY {
		return pointer.Position{}, fmt.Errorf("mouse location missing from xdotool output")
	}

	return pos, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
