package runner

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunSuccess(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"}, t.TempDir(), 5*time.Second)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.TimedOut)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), []string{"sh", "-c", "exit 3"}, t.TempDir(), 5*time.Second)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunMissingExecutable(t *testing.T) {
	res := Run(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, t.TempDir(), 5*time.Second)

	assert.Equal(t, ExitNotFound, res.ExitCode)
	assert.NotEmpty(t, res.Stderr)
	assert.False(t, res.TimedOut)
}

func TestRunEmptyCommand(t *testing.T) {
	res := Run(context.Background(), nil, t.TempDir(), time.Second)
	assert.Equal(t, ExitNotFound, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)

	start := time.Now()
	res := Run(context.Background(), []string{"sleep", "30"}, t.TempDir(), 100*time.Millisecond)

	assert.True(t, res.TimedOut)
	assert.Equal(t, ExitTimeout, res.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second, "process must be killed, not awaited")
}

func TestRunRespectsWorkingDirectory(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	res := Run(context.Background(), []string{"pwd"}, dir, 5*time.Second)
	assert.Equal(t, 0, res.ExitCode)
	// Compare basenames; tmpdirs may be behind symlinks on some platforms.
	assert.Contains(t, res.Stdout, filepath.Base(dir))
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}
