package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ZerologLogger is the daemon's structured backend. Console output is human
// readable; file output is JSON lines.
type ZerologLogger struct {
	mu     sync.RWMutex
	zl     zerolog.Logger
	closer io.Closer
}

// NewConsoleLogger writes colourless, timestamped lines to w.
func NewConsoleLogger(w io.Writer, level string) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat, NoColor: true}
	zl := zerolog.New(cw).Level(ParseLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// NewJSONLogger writes one JSON object per line to w.
func NewJSONLogger(w io.Writer, level string) *ZerologLogger {
	zl := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// OpenFileLogger appends JSON lines to path, creating parent directories.
func OpenFileLogger(path, level string) (*ZerologLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	l := NewJSONLogger(f, level)
	l.closer = f
	return l, nil
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel changes the minimum level; used by config hot reload.
func (z *ZerologLogger) SetLevel(level string) {
	z.mu.Lock()
	z.zl = z.zl.Level(ParseLevel(level))
	z.mu.Unlock()
}

func (z *ZerologLogger) current() zerolog.Logger {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.zl
}

func (z *ZerologLogger) Debug(format string, args ...interface{}) {
	l := z.current()
	l.Debug().Msgf(format, args...)
}

func (z *ZerologLogger) Info(format string, args ...interface{}) {
	l := z.current()
	l.Info().Msgf(format, args...)
}

func (z *ZerologLogger) Warning(format string, args ...interface{}) {
	l := z.current()
	l.Warn().Msgf(format, args...)
}

func (z *ZerologLogger) Error(format string, args ...interface{}) {
	l := z.current()
	l.Error().Msgf(format, args...)
}

// Close closes the underlying file, if any. Safe to call multiple times.
func (z *ZerologLogger) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closer == nil {
		return nil
	}
	err := z.closer.Close()
	z.closer = nil
	return err
}

var _ Logger = (*ZerologLogger)(nil)
