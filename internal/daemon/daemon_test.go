package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileRoundTrip(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "presence.pid"))

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid, "missing file reads as no PID")

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID(), "removing twice is fine")
	_, err = os.Stat(d.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestReadPIDInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	_, err := New(path).ReadPID()
	assert.Error(t, err)
}

func TestReadPIDTrimsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.pid")
	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0644))

	pid, err := New(path).ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)
}

func TestIsRunningCurrentProcess(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "presence.pid"))
	require.NoError(t, d.WritePID())

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunningStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.pid")
	// Above the default pid_max, so no live process has it
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(1<<22+1)), 0644))

	d := New(path)
	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "stale PID file is removed")
}

func TestStopNotRunning(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "presence.pid"))
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())

	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
}

func TestDetachResolvesCommandFromPath(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not on PATH")
	}

	pid, err := Detach([]string{"true"})
	require.NoError(t, err)
	assert.Positive(t, pid)
}

func TestResolveExecutableFallsBackToSelf(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)

	path, err := resolveExecutable("presence-no-such-command")
	require.NoError(t, err)
	assert.Equal(t, self, path)
}

func TestDetachNoArgs(t *testing.T) {
	_, err := Detach(nil)
	assert.Error(t, err)
}
