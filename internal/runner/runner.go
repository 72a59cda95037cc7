// Package runner executes external scanner tools as subprocesses with a
// timeout, capturing exit status and output. Callers branch on exit codes
// uniformly: a missing executable and a timeout both produce a synthetic
// Result rather than an error.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

const (
	// ExitNotFound is the reserved exit code reported when the executable
	// cannot be found.
	ExitNotFound = 127

	// ExitTimeout is the reserved exit code reported when the subprocess
	// exceeded its timeout and was killed.
	ExitTimeout = 124
)

// Result holds the outcome of a subprocess execution. Pure value, no
// lifecycle beyond the call that produced it.
type Result struct {
	Command  []string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Run executes command in cwd with the given timeout. It never returns an
// error for non-zero exits, missing executables, or timeouts; those are
// encoded in the Result. The spawned process is killed when the timeout or
// the parent context expires. No retries: scanning is a query operation.
func Run(ctx context.Context, command []string, cwd string, timeout time.Duration) Result {
	res := Result{Command: command, Dir: cwd}
	if len(command) == 0 {
		res.ExitCode = ExitNotFound
		res.Stderr = "empty command"
		return res
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = ExitTimeout
		if res.Stderr == "" {
			res.Stderr = "command timed out"
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Executable missing or not runnable.
			res.ExitCode = ExitNotFound
			res.Stderr = err.Error()
		}
	}

	return res
}
