package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSession(t *testing.T, sessionType, waylandDisplay, x11Display string) {
	t.Helper()
	t.Setenv("XDG_SESSION_TYPE", sessionType)
	t.Setenv("WAYLAND_DISPLAY", waylandDisplay)
	t.Setenv("DISPLAY", x11Display)
}

func TestNew(t *testing.T) {
	det, err := New()
	if err != nil {
		t.Skipf("no pointer detector in this environment: %v", err)
	}
	defer det.Close()

	assert.Contains(t, []string{"x11", "wayland"}, det.GetDisplayServer())

	if pos, err := det.Read(); err != nil {
		t.Logf("Read() error: %v", err)
	} else {
		t.Logf("Pointer at %v", pos)
	}
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		want           string
	}{
		{"wayland session", "wayland", "wayland-0", "", "wayland"},
		{"x11 session", "x11", "", ":0", "x11"},
		{"nothing set", "", "", "", "unknown"},
		{"wayland display only", "", "wayland-1", "", "wayland"},
		{"x11 display only", "", "", ":1", "x11"},
		{"xwayland prefers wayland", "", "wayland-0", ":0", "wayland"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSession(t, tt.sessionType, tt.waylandDisplay, tt.x11Display)
			assert.Equal(t, tt.want, DetectDisplayServer())
		})
	}
}

func TestNewWithoutGraphicalSession(t *testing.T) {
	setSession(t, "", "", "")

	det, err := New()
	require.Error(t, err)
	assert.Nil(t, det)
}
