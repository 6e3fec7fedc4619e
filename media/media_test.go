package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/process"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
)

// fakeExecutor records commands and answers with a canned result.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []process.Command
	stdin    [][]byte
	files    []string
	result   *process.Result
	err      error
}

func (f *fakeExecutor) executor() Executor {
	return provider.Func("fake", func(_ context.Context, cmd process.Command) (*process.Result, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.commands = append(f.commands, cmd)
		if cmd.Stdin != nil {
			data, _ := io.ReadAll(cmd.Stdin)
			f.stdin = append(f.stdin, data)
		}
		for i, a := range cmd.Args {
			if a == "-i" && cmd.Args[i+1] != "pipe:0" {
				data, err := os.ReadFile(cmd.Args[i+1])
				if err != nil {
					return nil, err
				}
				f.files = append(f.files, cmd.Args[i+1])
				f.stdin = append(f.stdin, data)
			}
		}
		return f.result, f.err
	})
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"image", KindImage, false},
		{"AUDIO", KindAudio, false},
		{"video", KindVideo, false},
		{"text", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v", tt.in, got, err)
		}
	}
	if KindImage.HasAudio() || !KindVideo.HasAudio() || !KindAudio.HasAudio() {
		t.Error("unexpected HasAudio")
	}
}

func TestAudioProfileValidate(t *testing.T) {
	var nilProfile *AudioProfile
	tests := []struct {
		name    string
		profile *AudioProfile
		wantErr bool
	}{
		{"valid", &AudioProfile{SampleRateHertz: 16000, AudioChannelCount: 1}, false},
		{"nil", nilProfile, true},
		{"zero rate", &AudioProfile{AudioChannelCount: 1}, true},
		{"zero channels", &AudioProfile{SampleRateHertz: 48000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.FFmpegPath != "ffmpeg" || cfg.InputMode != InputStdin || cfg.MaxConcurrent != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.maxOutputBytes() != 64<<20 {
		t.Errorf("expected 64MB output cap, got %d", cfg.maxOutputBytes())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.InputMode = "socket"
	if err := cfg.Validate(); err == nil {
		t.Error("expected input mode error")
	}
}

func TestTranscoderArgs(t *testing.T) {
	tests := []struct {
		name      string
		run       func(*Transcoder, context.Context, []byte) ([]byte, error)
		wantVideo bool
	}{
		{"audio", (*Transcoder).ToLosslessAudio, false},
		{"video", (*Transcoder).ExtractAudioTrack, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExecutor{result: &process.Result{Stdout: []byte("fLaC-data")}}
			tc := NewTranscoder(fake.executor(), Config{})

			out, err := tt.run(tc, context.Background(), []byte("m4a-bytes"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != "fLaC-data" {
				t.Errorf("unexpected output %q", out)
			}

			cmd := fake.commands[0]
			args := strings.Join(cmd.Args, " ")
			if cmd.Binary != "ffmpeg" {
				t.Errorf("expected ffmpeg, got %s", cmd.Binary)
			}
			if !strings.Contains(args, "-i pipe:0") || !strings.HasSuffix(args, "-acodec flac -f flac pipe:1") {
				t.Errorf("unexpected args %s", args)
			}
			if strings.Contains(args, "-nostdin") {
				t.Error("stdin input must not disable stdin")
			}
			if got := strings.Contains(args, "-vn"); got != tt.wantVideo {
				t.Errorf("-vn present = %v, want %v", got, tt.wantVideo)
			}
			if string(fake.stdin[0]) != "m4a-bytes" {
				t.Errorf("expected input piped on stdin, got %q", fake.stdin[0])
			}
			if cmd.MaxStdout != 64<<20 {
				t.Errorf("expected output cap, got %d", cmd.MaxStdout)
			}
		})
	}
}

func TestTranscoderFileInput(t *testing.T) {
	fake := &fakeExecutor{result: &process.Result{Stdout: []byte("fLaC")}}
	tc := NewTranscoder(fake.executor(), Config{InputMode: InputFile, TempDir: t.TempDir()})

	if _, err := tc.ToLosslessAudio(context.Background(), []byte("m4a-with-trailing-moov")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.files) != 1 || string(fake.stdin[0]) != "m4a-with-trailing-moov" {
		t.Fatalf("expected content spooled to a file, got %+v", fake.files)
	}
	if !strings.Contains(strings.Join(fake.commands[0].Args, " "), "-nostdin") {
		t.Error("expected -nostdin with file input")
	}
	if _, err := os.Stat(fake.files[0]); !os.IsNotExist(err) {
		t.Error("expected temp file removed")
	}
}

func TestTranscoderFailures(t *testing.T) {
	exitErr := &process.ExitError{Binary: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"}
	tests := []struct {
		name       string
		data       []byte
		result     *process.Result
		err        error
		wantStderr string
	}{
		{"empty input", nil, nil, nil, ""},
		{"exit error", []byte("junk"), &process.Result{Stderr: []byte("pipe:0: Invalid data found when processing input\n")}, exitErr, "pipe:0: Invalid data found when processing input"},
		{"no output", []byte("junk"), &process.Result{}, nil, ""},
		{"executor error without result", []byte("junk"), nil, errors.New("bulkhead is full"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExecutor{result: tt.result, err: tt.err}
			_, err := NewTranscoder(fake.executor(), Config{}).ToLosslessAudio(context.Background(), tt.data)
			if !apperrors.IsTranscode(err) {
				t.Fatalf("expected transcode error, got %v", err)
			}
			appErr, _ := apperrors.AsAppError(err)
			if appErr.Retryable {
				t.Error("transcode errors are not retryable")
			}
			if tt.wantStderr != "" && appErr.Details["stderr"] != tt.wantStderr {
				t.Errorf("expected stderr detail %q, got %v", tt.wantStderr, appErr.Details["stderr"])
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("expected cause %v preserved", tt.err)
			}
		})
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *AudioProfile
		wantErr bool
	}{
		{
			name: "flac stream",
			raw:  `{"streams":[{"index":0,"codec_name":"flac","codec_type":"audio","sample_rate":"44100","channels":2}]}`,
			want: &AudioProfile{SampleRateHertz: 44100, AudioChannelCount: 2},
		},
		{
			name: "first stream with sample rate wins",
			raw:  `{"streams":[{"codec_type":"video"},{"codec_type":"audio","sample_rate":"16000","channels":1},{"codec_type":"audio","sample_rate":"48000","channels":2}]}`,
			want: &AudioProfile{SampleRateHertz: 16000, AudioChannelCount: 1},
		},
		{name: "no streams", raw: `{"streams":[]}`, wantErr: true},
		{name: "video only", raw: `{"streams":[{"codec_type":"video","width":640}]}`, wantErr: true},
		{name: "bad json", raw: `not json`, wantErr: true},
		{name: "bad rate", raw: `{"streams":[{"sample_rate":"fast","channels":1}]}`, wantErr: true},
		{name: "zero channels", raw: `{"streams":[{"sample_rate":"8000","channels":0}]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tt.raw))
			if tt.wantErr {
				if !apperrors.IsProbe(err) {
					t.Fatalf("expected probe error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProberCommand(t *testing.T) {
	fake := &fakeExecutor{result: &process.Result{Stdout: []byte(`{"streams":[{"sample_rate":"22050","channels":1}]}`)}}
	profile, err := NewProber(fake.executor(), Config{FFprobePath: "/usr/bin/ffprobe"}).Probe(context.Background(), []byte("fLaC"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.SampleRateHertz != 22050 || profile.AudioChannelCount != 1 {
		t.Errorf("unexpected profile %+v", profile)
	}
	cmd := fake.commands[0]
	if cmd.Binary != "/usr/bin/ffprobe" || !strings.Contains(strings.Join(cmd.Args, " "), "-print_format json -show_streams -i pipe:0") {
		t.Errorf("unexpected command %s", cmd)
	}

	fake = &fakeExecutor{result: &process.Result{Stderr: []byte("pipe:0: Invalid data")}, err: errors.New("exit status 1")}
	if _, err := NewProber(fake.executor(), Config{}).Probe(context.Background(), []byte("junk")); !apperrors.IsProbe(err) {
		t.Errorf("expected probe error, got %v", err)
	}
	if _, err := NewProber(fake.executor(), Config{}).Probe(context.Background(), nil); !apperrors.IsProbe(err) {
		t.Errorf("expected probe error for empty input, got %v", err)
	}
}

func TestComponentHealth(t *testing.T) {
	c := NewComponent(Config{})
	c.lookPath = func(bin string) (string, error) {
		if bin == "ffprobe" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + bin, nil
	}
	h := c.Health(context.Background())
	if h.Status != "degraded" || !strings.Contains(h.Message, "ffprobe") {
		t.Errorf("expected degraded for missing ffprobe, got %+v", h)
	}

	c.lookPath = func(bin string) (string, error) { return "/usr/bin/" + bin, nil }
	if h := c.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("expected healthy, got %+v", h)
	}
	if d := c.Describe(); d.Type != "media" || !strings.Contains(d.Details, "input=stdin") {
		t.Errorf("unexpected description %+v", d)
	}
}

// --- tests against the real binaries ---

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not on PATH", bin)
		}
	}
}

func generate(t *testing.T, args ...string) []byte {
	t.Helper()
	res, err := process.Run(context.Background(), process.Command{
		Binary: "ffmpeg",
		Args:   append([]string{"-hide_banner", "-loglevel", "error", "-nostdin"}, args...),
	})
	if err != nil {
		t.Fatalf("generating fixture: %v", err)
	}
	return res.Stdout
}

func newRealPipeline(t *testing.T, cfg Config) (*Transcoder, *Prober) {
	t.Helper()
	log := logger.NewWithWriter(&logger.Config{Level: "error", Format: "json"}, "test", &bytes.Buffer{})
	executor := NewExecutor(cfg, log, nil)
	return NewTranscoder(executor, cfg), NewProber(executor, cfg)
}

func TestRealAudioRoundTrip(t *testing.T) {
	requireFFmpeg(t)
	wav := generate(t, "-f", "lavfi", "-i", "sine=frequency=440:sample_rate=16000:duration=1", "-ac", "1", "-f", "wav", "pipe:1")

	tc, pr := newRealPipeline(t, Config{})
	flac, err := tc.ToLosslessAudio(context.Background(), wav)
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if !bytes.HasPrefix(flac, []byte("fLaC")) {
		t.Fatalf("expected FLAC stream marker, got %q", flac[:min(4, len(flac))])
	}

	profile, err := pr.Probe(context.Background(), flac)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if profile.SampleRateHertz != 16000 || profile.AudioChannelCount != 1 {
		t.Errorf("unexpected profile %+v", profile)
	}
}

func TestRealVideoExtractFileMode(t *testing.T) {
	requireFFmpeg(t)
	mkv := generate(t,
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=5",
		"-f", "lavfi", "-i", "sine=sample_rate=48000:duration=1",
		"-ac", "2", "-c:v", "mpeg4", "-c:a", "flac", "-shortest", "-f", "matroska", "pipe:1")

	tc, pr := newRealPipeline(t, Config{InputMode: InputFile, TempDir: t.TempDir()})
	flac, err := tc.ExtractAudioTrack(context.Background(), mkv)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	profile, err := pr.Probe(context.Background(), flac)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if profile.SampleRateHertz != 48000 || profile.AudioChannelCount != 2 {
		t.Errorf("unexpected profile %+v", profile)
	}
}

func TestRealCorruptInput(t *testing.T) {
	requireFFmpeg(t)
	tc, _ := newRealPipeline(t, Config{})
	_, err := tc.ToLosslessAudio(context.Background(), []byte("definitely not audio"))
	if !apperrors.IsTranscode(err) {
		t.Fatalf("expected transcode error, got %v", err)
	}
}
