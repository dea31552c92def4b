package pointer

import "fmt"

// Position is a screen-coordinate snapshot of the global pointer
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Source reads the current global pointer position
type Source interface {
	Read() (Position, error)
}

// SourceFunc adapts a plain function to a Source
type SourceFunc func() (Position, error)

func (f SourceFunc) Read() (Position, error) {
	return f()
}

// Detector is the interface that all pointer detection implementations must satisfy
type Detector interface {
	Source

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
