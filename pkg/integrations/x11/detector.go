package x11

import (
	"fmt"
	"sync"

	"github.com/actionsum/presence/pkg/pointer"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Detector implements pointer.Detector over a single X11 connection
type Detector struct {
	mu      sync.Mutex
	conn    *xgb.Conn
	root    xproto.Window
	connErr error
}

// NewDetector creates a new X11 detector. The connection is opened
// eagerly; IsAvailable reports whether it succeeded.
func NewDetector() *Detector {
	d := &Detector{}

	conn, err := xgb.NewConn()
	if err != nil {
		d.connErr = err
		return d
	}

	setup := xproto.Setup(conn)
	d.conn = conn
	d.root = setup.DefaultScreen(conn).Root
	return d
}

// IsAvailable checks if an X server connection is open
func (d *Detector) IsAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// Read queries the pointer position relative to the root window
func (d *Detector) Read() (pointer.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		if d.connErr != nil {
			return pointer.Position{}, fmt.Errorf("x11 display not connected: %w", d.connErr)
		}
		return pointer.Position{}, fmt.Errorf("x11 display not connected")
	}

	reply, err := xproto.QueryPointer(d.conn, d.root).Reply()
	if err != nil {
		return pointer.Position{}, fmt.Errorf("failed to query x11 pointer: %w", err)
	}

	return pointer.Position{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

// Close releases the X11 connection
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}
