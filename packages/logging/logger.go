// Package logging provides the diagnostic logger used across hitscript.
//
// Diagnostics are structured key/value events written with zerolog, either
// to a human-readable console stream or to a rotating log file. User-facing
// script output (client.log, test lines) never goes through this package.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the diagnostic logging interface. Fields are passed as
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// Options configures a zerolog-backed Logger.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer
	NoColor    bool
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

type zeroLogger struct {
	zl zerolog.Logger
}

// New builds a Logger. With File set, events go to a lumberjack-rotated file
// as JSON lines; otherwise they go to Console (stderr by default) in
// zerolog's console format.
func New(opts Options) (Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = defaultMaxBackups
		}
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
	} else {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

// ParseLevel maps a level name to a zerolog level. An empty name means warn.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return zerolog.WarnLevel, nil
	case "off", "disabled":
		return zerolog.Disabled, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func (l *zeroLogger) Debug(msg string, kv ...any) {
	l.emit(l.zl.Debug(), msg, kv)
}

func (l *zeroLogger) Info(msg string, kv ...any) {
	l.emit(l.zl.Info(), msg, kv)
}

func (l *zeroLogger) Warn(msg string, kv ...any) {
	l.emit(l.zl.Warn(), msg, kv)
}

func (l *zeroLogger) Error(msg string, kv ...any) {
	l.emit(l.zl.Error(), msg, kv)
}

func (l *zeroLogger) With(kv ...any) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(fields(kv)).Logger()}
}

func (l *zeroLogger) emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	ev.Fields(fields(kv)).Msg(msg)
}

// fields turns alternating key/value pairs into a map. A dangling key is
// recorded under "!BADKEY" so nothing is silently lost.
func fields(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			m["!BADKEY"] = key
			break
		}
		if err, isErr := kv[i+1].(error); isErr {
			m[key] = err.Error()
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}
