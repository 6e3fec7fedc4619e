package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// Run starts cmd in its own process group and waits for it. When ctx ends
// the whole group gets SIGTERM, then SIGKILL after the grace period.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, ErrBinaryRequired
	}
	grace := cmd.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}

	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var stderr bytes.Buffer
	stdout := &capped{limit: cmd.MaxStdout, overflow: func() { stop(ErrOutputLimit) }}
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running configured tools is the point
	c.Stdin = cmd.Stdin
	c.Stdout = stdout
	c.Stderr = &stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error { return syscall.Kill(-c.Process.Pid, syscall.SIGTERM) }
	c.WaitDelay = grace

	began := time.Now()
	err := c.Run()
	res := &Result{Stdout: stdout.buf.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1, Duration: time.Since(began)}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	var notFound *exec.Error
	switch cause := context.Cause(ctx); {
	case err == nil:
		return res, nil
	case errors.Is(cause, ErrOutputLimit):
		return res, fmt.Errorf("%w: %s wrote over %d bytes", ErrOutputLimit, cmd.Binary, cmd.MaxStdout)
	case cause != nil:
		return res, fmt.Errorf("process: %s stopped: %w", cmd.Binary, cause)
	case errors.As(err, &notFound):
		return res, fmt.Errorf("process: %w", err)
	}
	return res, &ExitError{Binary: cmd.Binary, ExitCode: res.ExitCode, Stderr: res.StderrTail(512), Err: err}
}

// capped keeps at most limit bytes and calls overflow once past it.
type capped struct {
	buf      bytes.Buffer
	limit    int64
	over     bool
	overflow func()
}

func (w *capped) Write(p []byte) (int, error) {
	if w.over {
		return len(p), nil
	}
	if w.limit > 0 && int64(w.buf.Len()+len(p)) > w.limit {
		w.over = true
		w.overflow()
		return len(p), nil
	}
	return w.buf.Write(p)
}
