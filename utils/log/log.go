// Package log provides a thin, package-level facade over zap, mirroring
// the calling convention used throughout this codebase (log.Info(...),
// log.With(...).Infof(...)) so call sites never import zap directly.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Config configures a Logger. The zero value is a sane development default:
// debug level, console-encoded, writing to stderr.
type Config struct {
	// Disable silences all output; used by tests that don't want log noise.
	Disable bool `yaml:"disable"`

	// Level is one of "debug", "info", "warn", "error". Empty keeps the
	// encoder's default: "debug" for console output, "info" for JSON.
	Level string `yaml:"level"`

	// JSON switches the encoder from human-readable console output to
	// structured JSON lines, for production/ELK consumption.
	JSON bool `yaml:"json"`
}

func (c Config) build(fields map[string]interface{}) (*zap.Logger, error) {
	if c.Disable {
		return zap.NewNop(), nil
	}
	var zc zap.Config
	if c.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("parse level: %s", err)
		}
		zc.Level = lvl
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		zfields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zfields = append(zfields, zap.Any(k, v))
		}
		l = l.With(zfields...)
	}
	return l, nil
}

// New builds a new *zap.SugaredLogger from config, annotated with fields
// that will appear on every subsequent log line (e.g. hostname, peer id).
func New(config Config, fields map[string]interface{}) (*zap.SugaredLogger, error) {
	l, err := config.build(fields)
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

var (
	mu      sync.RWMutex
	global  = zap.NewExample().Sugar()
)

// Configure replaces the package-level global logger used by the
// convenience functions below (Info, Infof, With, ...).
func Configure(config Config) error {
	l, err := New(config, nil)
	if err != nil {
		return err
	}
	mu.Lock()
	global = l
	mu.Unlock()
	return nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// With returns a logger annotated with the given alternating key/value
// pairs, scoped to a single call site (e.g. log.With("addr", a).Info(...)).
func With(args ...interface{}) *zap.SugaredLogger {
	return current().With(args...)
}

// Debug logs at debug level using the global logger.
func Debug(args ...interface{}) { current().Debug(args...) }

// Debugf logs at debug level with format using the global logger.
func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }

// Info logs at info level using the global logger.
func Info(args ...interface{}) { current().Info(args...) }

// Infof logs at info level with format using the global logger.
func Infof(format string, args ...interface{}) { current().Infof(format, args...) }

// Warn logs at warn level using the global logger.
func Warn(args ...interface{}) { current().Warn(args...) }

// Warnf logs at warn level with format using the global logger.
func Warnf(format string, args ...interface{}) { current().Warnf(format, args...) }

// Error logs at error level using the global logger.
func Error(args ...interface{}) { current().Error(args...) }

// Errorf logs at error level with format using the global logger.
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Fatal logs at fatal level and exits the process.
func Fatal(args ...interface{}) { current().Fatal(args...) }

// Fatalf logs at fatal level with format and exits the process.
func Fatalf(format string, args ...interface{}) { current().Fatalf(format, args...) }
