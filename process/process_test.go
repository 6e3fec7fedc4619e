package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/process"
)

func TestRun(t *testing.T) {
	flac := string([]byte{'f', 'L', 'a', 'C', 0x00, 0xff, 0x10})
	tests := []struct {
		name     string
		cmd      process.Command
		stdout   string
		exitCode int
	}{
		{"args", process.Command{Binary: "echo", Args: []string{"-n", "hello", "world"}}, "hello world", 0},
		{"binary stdin", process.Command{Binary: "cat", Stdin: strings.NewReader(flac)}, flac, 0},
		{"output under the cap", process.Command{Binary: "printf", Args: []string{"0123456789"}, MaxStdout: 10}, "0123456789", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := process.Run(context.Background(), tt.cmd)
			if err != nil {
				t.Fatal(err)
			}
			if string(res.Stdout) != tt.stdout || res.ExitCode != tt.exitCode {
				t.Errorf("stdout %q exit %d", res.Stdout, res.ExitCode)
			}
		})
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		ctx   func() (context.Context, context.CancelFunc)
		cmd   process.Command
		check func(error) bool
	}{
		{
			name:  "empty binary",
			cmd:   process.Command{},
			check: func(err error) bool { return errors.Is(err, process.ErrBinaryRequired) },
		},
		{
			name: "missing binary is not an exit error",
			cmd:  process.Command{Binary: "ffmpeg-that-does-not-exist"},
			check: func(err error) bool {
				var exit *process.ExitError
				return err != nil && !errors.As(err, &exit)
			},
		},
		{
			name:  "deadline kills the group",
			ctx:   func() (context.Context, context.CancelFunc) { return context.WithTimeout(context.Background(), 100*time.Millisecond) },
			cmd:   process.Command{Binary: "sh", Args: []string{"-c", "sleep 10 & sleep 10"}, GracePeriod: 200 * time.Millisecond},
			check: func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
		},
		{
			name:  "stdout cap",
			cmd:   process.Command{Binary: "sh", Args: []string{"-c", "while :; do echo fLaC; done"}, MaxStdout: 1024, GracePeriod: 200 * time.Millisecond},
			check: func(err error) bool { return errors.Is(err, process.ErrOutputLimit) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			if tt.ctx != nil {
				ctx, cancel = tt.ctx()
			}
			defer cancel()
			began := time.Now()
			_, err := process.Run(ctx, tt.cmd)
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if time.Since(began) > 5*time.Second {
				t.Errorf("took %v", time.Since(began))
			}
		})
	}
}

func TestExitError(t *testing.T) {
	res, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'pipe:0: Invalid data found when processing input' >&2; exit 1"},
	})
	var exit *process.ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("err = %v", err)
	}
	if exit.ExitCode != 1 || res.ExitCode != 1 || !strings.Contains(exit.Error(), "Invalid data found") {
		t.Errorf("exit = %+v", exit)
	}
}

func TestStderrTail(t *testing.T) {
	r := &process.Result{Stderr: []byte("  Stream #0:0: Audio\nInvalid data\n")}
	for n, want := range map[int]string{12: "Invalid data", 0: "Stream #0:0: Audio\nInvalid data", 500: "Stream #0:0: Audio\nInvalid data"} {
		if got := r.StderrTail(n); got != want {
			t.Errorf("StderrTail(%d) = %q, want %q", n, got, want)
		}
	}
	if (*process.Result)(nil).StderrTail(10) != "" {
		t.Error("nil result has no tail")
	}
}

func TestCommandString(t *testing.T) {
	cmd := process.Command{Binary: "ffmpeg", Args: []string{"-i", "pipe:0", "-f", "flac", "pipe:1"}}
	if got := cmd.String(); got != "ffmpeg -i pipe:0 -f flac pipe:1" {
		t.Errorf("String() = %q", got)
	}
}

func TestTool(t *testing.T) {
	tool := process.NewTool(process.ToolConfig{Name: "ffmpeg", Binaries: []string{"sh"}, Timeout: 50 * time.Millisecond, GracePeriod: 100 * time.Millisecond})
	if tool.Name() != "ffmpeg" || !tool.IsAvailable(context.Background()) {
		t.Errorf("tool %q available=%v", tool.Name(), tool.IsAvailable(context.Background()))
	}
	if _, err := tool.Execute(context.Background(), process.Command{Binary: "sleep", Args: []string{"5"}}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout not applied: %v", err)
	}

	missing := process.NewTool(process.ToolConfig{Binaries: []string{"sh", "ffprobe-that-does-not-exist"}})
	if missing.Name() != "process" || missing.IsAvailable(context.Background()) {
		t.Error("missing binary should make the tool unavailable")
	}
}
