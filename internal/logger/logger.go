// Package logger provides structured logging for zarrdump
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with zarrdump-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output instead of JSON
	NoColor    bool
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	switch s {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level '%s' (expected debug, info, warn or error)", s)
}

// NewLogger creates a new structured logger. Unknown levels fall back to info.
func NewLogger(cfg Config) *Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "zarrdump").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// GrpcLogger returns a logger for gRPC operations
func (l *Logger) GrpcLogger(method string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "grpc").
			Str("method", method).
			Logger(),
	}
}

// StoreLogger returns a logger for operations on one store
func (l *Logger) StoreLogger(location string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "store").
			Str("store", location).
			Logger(),
	}
}

// LogGrpcRequest logs a gRPC request with structured fields
func (l *Logger) LogGrpcRequest(method string, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "grpc").
		Str("method", method).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "grpc").
			Str("method", method).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("gRPC request completed")
}

// LogLoad logs a metadata load
func (l *Logger) LogLoad(strategy string, duration time.Duration, variables, dimensions int, err error) {
	event := l.zlog.Debug().
		Str("component", "ingest").
		Str("strategy", strategy).
		Dur("duration_ms", duration).
		Int("variables", variables).
		Int("dimensions", dimensions)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "ingest").
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Store metadata loaded")
}

// LogCheck logs the outcome of a CF check
func (l *Logger) LogCheck(duration time.Duration, warnings, errors int) {
	event := l.zlog.Debug()
	if errors > 0 {
		event = l.zlog.Warn()
	}
	event.
		Str("component", "cf").
		Dur("duration_ms", duration).
		Int("warnings", warnings).
		Int("errors", errors).
		Msg("CF check completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(port int, root string) {
	l.zlog.Info().
		Str("event", "server_start").
		Int("port", port).
		Str("root", root).
		Msg("zarrdump server starting")
}

// LogServerReady logs when server is ready
func (l *Logger) LogServerReady(port int) {
	l.zlog.Info().
		Str("event", "server_ready").
		Int("port", port).
		Msg("zarrdump server ready to accept connections")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("zarrdump server shutting down")
}
