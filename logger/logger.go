package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Logger is a zerolog logger that takes its fields as maps, so call sites
// read logger.Fields("message_id", id) rather than chaining.
type Logger struct {
	zl zerolog.Logger
}

// NewWithWriter builds a logger writing to w. JSON output carries a
// "service" field; console output is meant for people.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.console() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: cfg.NoColor}
	}
	zc := zerolog.New(w).Level(level).With()
	if cfg.Timestamp || cfg.console() {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if service != "" && !cfg.console() {
		zc = zc.Str("service", service)
	}
	return &Logger{zl: zc.Logger()}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	messageIDKey
	traceIDKey
)

// ContextWithRequestID stores the HTTP request ID for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithMessageID stores the LINE message ID for WithContext.
func ContextWithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

// ContextWithTraceID stores the trace ID for WithContext.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

var contextFields = []struct {
	key   ctxKey
	field string
}{
	{traceIDKey, FieldTraceID},
	{requestIDKey, FieldRequestID},
	{messageIDKey, FieldMessageID},
}

// WithContext adds the IDs stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	for _, f := range contextFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			zc = zc.Str(f.field, v)
		}
	}
	return &Logger{zl: zc.Logger()}
}

// WithComponent tags every entry with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger()}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	write(l.zl.Error(), msg, fields)
}

func write(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, m := range fields {
		for k, v := range m {
			e = e.Interface(k, v)
		}
	}
	e.Msg(msg)
}

var (
	globalMu sync.RWMutex
	global   *Logger
)

// Init replaces the process-wide logger.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	l := NewWithWriter(&cfg, "", output(cfg.Output))
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the process-wide logger, a console logger on
// stdout until Init is called.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	l = NewWithWriter(&cfg, "", os.Stdout)
	globalMu.Lock()
	if global == nil {
		global = l
	}
	l = global
	globalMu.Unlock()
	return l
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

func output(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}
