// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

const (
	rootModule  = "wxcipher"
	logFormat   = "%{level:.4s} %{module}: %{message}"
	timeFormat  = "%{time:15:04:05.000} " + logFormat
	logFileMode = 0600
)

// level maps a verbosity onto the go-logging threshold.  Warnings and
// errors survive every verbosity except quiet, where only errors do.
func (v LogLevel) level() logging.Level {
	switch {
	case v <= LogQuiet:
		return logging.ERROR
	case v == LogNormal:
		return logging.NOTICE
	case v == LogVerbose:
		return logging.INFO
	default:
		return logging.DEBUG
	}
}

// sink is the backend shared by a Logger and every logger derived from
// it with Named, so that SetOutput and SetTimestamps apply to all of
// them.
type sink struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timestamps bool
	backend    logging.LeveledBackend
}

func (s *sink) rebuild() {
	f := logFormat
	if s.timestamps {
		f = timeFormat
	}
	base := logging.NewLogBackend(s.output, "", 0)
	formatted := logging.NewBackendFormatter(base, logging.MustStringFormatter(f))
	s.backend = logging.AddModuleLevel(formatted)
	s.backend.SetLevel(s.level.level(), "")
}

func (s *sink) Log(lvl logging.Level, depth int, rec *logging.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Log(lvl, depth+1, rec)
}

func (s *sink) GetLevel(module string) logging.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.GetLevel(module)
}

func (s *sink) SetLevel(lvl logging.Level, module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend.SetLevel(lvl, module)
}

func (s *sink) IsEnabledFor(lvl logging.Level, module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.IsEnabledFor(lvl, module)
}

// Logger writes levelled messages to stderr with optional timestamps.
// Each Logger carries a module name that prefixes its lines.
type Logger struct {
	s   *sink
	log *logging.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	s := &sink{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= int(LogDebug), // auto-enable timestamps in debug mode
	}
	s.rebuild()
	return newModuleLogger(s, rootModule)
}

func newModuleLogger(s *sink, module string) *Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(s)
	l.ExtraCalldepth = 1
	return &Logger{s: s, log: l}
}

// Named returns a logger for a sub-module that shares this logger's
// output and verbosity.
func (l *Logger) Named(module string) *Logger {
	return newModuleLogger(l.s, l.log.Module+"/"+module)
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.timestamps = on
	l.s.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.output = w
	l.s.rebuild()
}

// TeeFile appends log output to the file at path in addition to the
// current output.  The caller closes the returned file on shutdown.
func (l *Logger) TeeFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("log: failed to open log file: %w", err)
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.output = io.MultiWriter(l.s.output, f)
	l.s.rebuild()
	return f, nil
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) { l.log.Noticef(format, args...) }

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) { l.log.Warningf(format, args...) }

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) { l.log.Infof(format, args...) }

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) { l.log.Debugf(format, args...) }

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) { l.log.Errorf(format, args...) }
