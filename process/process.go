package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrBinaryRequired = errors.New("process: binary is required")
	ErrOutputLimit    = errors.New("process: output limit exceeded")
)

// Command is one invocation of an external tool.
type Command struct {
	Binary string
	Args   []string
	// Stdin, when set, is copied to the process and then closed.
	Stdin io.Reader
	// GracePeriod separates SIGTERM from SIGKILL on cancellation (5s if 0).
	GracePeriod time.Duration
	// MaxStdout stops the process once it has written more bytes than
	// this. 0 disables the cap.
	MaxStdout int64
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Result is what a finished process left behind.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 when killed by a signal
	Duration time.Duration
}

// StderrTail is the last n bytes of stderr, trimmed; all of it when n <= 0.
// ffmpeg prints the reason it failed at the end.
func (r *Result) StderrTail(n int) string {
	if r == nil {
		return ""
	}
	tail := bytes.TrimSpace(r.Stderr)
	if n > 0 && len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	return string(tail)
}

// ExitError is returned for a process that started but exited non-zero.
type ExitError struct {
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	why := e.Stderr
	if why == "" && e.Err != nil {
		why = e.Err.Error()
	}
	return fmt.Sprintf("process: %s exited %d: %s", e.Binary, e.ExitCode, why)
}

func (e *ExitError) Unwrap() error { return e.Err }
