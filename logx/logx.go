// Package logx is a thin structured-logging wrapper around zerolog,
// giving the driver and CLI a small Debug/Info/Warn/Error surface with
// configurable level and format instead of a direct zerolog dependency
// scattered through every package.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is one of the four logging levels the driver emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the console writer ("text") or raw JSON lines ("json").
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config configures New.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// Logger wraps a configured zerolog.Logger with a fixed four-method
// surface; callers never import zerolog directly.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger from cfg, defaulting Output to os.Stdout and
// Level to info when left zero.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	out := cfg.Output
	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).With().Timestamp().Logger()
	switch cfg.Level {
	case LevelDebug:
		z = z.Level(zerolog.DebugLevel)
	case LevelWarn:
		z = z.Level(zerolog.WarnLevel)
	case LevelError:
		z = z.Level(zerolog.ErrorLevel)
	default:
		z = z.Level(zerolog.InfoLevel)
	}

	return &Logger{z: z}
}

func (l *Logger) event(e *zerolog.Event, msg string, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

// Debug logs an ESS-evaluation-granularity message.
func (l *Logger) Debug(msg string, kv ...any) { l.event(l.z.Debug(), msg, kv...) }

// Info logs a state-transition-granularity message.
func (l *Logger) Info(msg string, kv ...any) { l.event(l.z.Info(), msg, kv...) }

// Warn logs a recoverable condition, e.g. a NumericalInfeasible fallback.
func (l *Logger) Warn(msg string, kv ...any) { l.event(l.z.Warn(), msg, kv...) }

// Error logs a fatal-path message before the caller returns the error.
func (l *Logger) Error(msg string, kv ...any) { l.event(l.z.Error(), msg, kv...) }
