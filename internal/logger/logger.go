// Package logger wraps zerolog with a process-wide logger, context
// propagation and a gin request middleware.
package logger

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every log line.
const (
	FieldRequestID    = "request_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatus       = "status"
	FieldLatency      = "latency_ms"
	FieldClientIP     = "client_ip"
	FieldModule       = "module"
	FieldConnectionID = "conn_id"
	FieldSubject      = "subject"
	FieldService      = "service"
)

type Config struct {
	Level       string
	Pretty      bool
	ServiceName string
}

var (
	global zerolog.Logger
	once   sync.Once
)

func init() {
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// New creates a configured zerolog.Logger.
func New(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		logger = logger.With().Str(FieldService, cfg.ServiceName).Logger()
	}
	return logger
}

// Init sets the global logger once and bridges stdlib log into it.
func Init(cfg Config) {
	once.Do(func() {
		global = New(cfg)

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// L returns the global logger.
func L() zerolog.Logger {
	return global
}

// Module returns the global logger tagged with a module name.
func Module(name string) zerolog.Logger {
	return global.With().Str(FieldModule, name).Logger()
}

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Ctx returns the logger stored in ctx, or the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
