// Package logger provides the structured logger shared by every fastgen stage.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	// Logger defines the interface for structured logging
	Logger interface {
		Debug(msg string, keyvals ...any)
		Info(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Error(msg string, keyvals ...any)
		With(keyvals ...any) Logger
	}

	// teeLogger fans every record out to one or more charm loggers, each with
	// its own level and formatter.
	teeLogger struct {
		sinks []*charmlog.Logger
	}
)

type Config struct {
	// Level applies to the file sink. Console output is always warn and above.
	Level string
	// File is the rotating log file path. Empty disables the file sink.
	File string
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int
	// Console receives warnings and errors. Defaults to os.Stderr.
	Console io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     "info",
		File:      "generator.log",
		MaxSizeMB: 10,
		Console:   os.Stderr,
	}
}

// New builds a logger from cfg. The returned closer releases the file sink and
// must be called once logging is finished.
func New(cfg Config) (Logger, io.Closer) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	sinks := []*charmlog.Logger{
		charmlog.NewWithOptions(console, charmlog.Options{
			Level:           charmlog.WarnLevel,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Formatter:       charmlog.TextFormatter,
		}),
	}

	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(cfg.File) != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
		}
		sinks = append(sinks, charmlog.NewWithOptions(lj, charmlog.Options{
			Level:           ParseLevel(cfg.Level),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339Nano,
			Formatter:       charmlog.JSONFormatter,
		}))
		closer = lj
	}

	return &teeLogger{sinks: sinks}, closer
}

// NewWriter logs everything at or above level to w as text. Tests use it to
// capture output.
func NewWriter(w io.Writer, level string) Logger {
	return &teeLogger{sinks: []*charmlog.Logger{
		charmlog.NewWithOptions(w, charmlog.Options{
			Level:     ParseLevel(level),
			Formatter: charmlog.TextFormatter,
		}),
	}}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &teeLogger{}
}

// ParseLevel maps a level name to a charm level, defaulting to info.
func ParseLevel(level string) charmlog.Level {
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return charmlog.InfoLevel
	}
	return lvl
}

func (l *teeLogger) Debug(msg string, keyvals ...any) {
	for _, s := range l.sinks {
		s.Debug(msg, keyvals...)
	}
}

func (l *teeLogger) Info(msg string, keyvals ...any) {
	for _, s := range l.sinks {
		s.Info(msg, keyvals...)
	}
}

func (l *teeLogger) Warn(msg string, keyvals ...any) {
	for _, s := range l.sinks {
		s.Warn(msg, keyvals...)
	}
}

func (l *teeLogger) Error(msg string, keyvals ...any) {
	for _, s := range l.sinks {
		s.Error(msg, keyvals...)
	}
}

func (l *teeLogger) With(keyvals ...any) Logger {
	sinks := make([]*charmlog.Logger, 0, len(l.sinks))
	for _, s := range l.sinks {
		sinks = append(sinks, s.With(keyvals...))
	}
	return &teeLogger{sinks: sinks}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
