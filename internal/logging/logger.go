package logging

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
//
// Components depend on this interface rather than a concrete logger so tests
// can inject a no-op or capturing implementation.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a level name to its Level, defaulting to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ComponentLogger writes leveled, component-tagged lines to a single writer.
type ComponentLogger struct {
	mu        *sync.Mutex
	out       io.Writer
	level     Level
	component string
	now       func() time.Time
}

var (
	defaultMu  sync.Mutex
	defaultOut io.Writer = os.Stderr
)

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) *ComponentLogger {
	return &ComponentLogger{
		mu:        &defaultMu,
		out:       defaultOut,
		level:     LevelInfo,
		component: component,
		now:       time.Now,
	}
}

// NewWriterLogger builds a component logger on an explicit writer, used by tests.
func NewWriterLogger(out io.Writer, component string, level Level) *ComponentLogger {
	return &ComponentLogger{
		mu:        &sync.Mutex{},
		out:       out,
		level:     level,
		component: component,
		now:       time.Now,
	}
}

// SetLevel sets the minimum level emitted by this logger.
func (l *ComponentLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ComponentLogger) write(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	ts := l.now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		fmt.Fprintf(l.out, "%s [%s] [%s] %s\n", ts, level, l.component, msg)
		return
	}
	fmt.Fprintf(l.out, "%s [%s] %s\n", ts, level, msg)
}

func (l *ComponentLogger) Debug(format string, args ...any) {
	l.write(LevelDebug, format, args...)
}

func (l *ComponentLogger) Info(format string, args ...any) {
	l.write(LevelInfo, format, args...)
}

func (l *ComponentLogger) Warn(format string, args ...any) {
	l.write(LevelWarn, format, args...)
}

func (l *ComponentLogger) Error(format string, args ...any) {
	l.write(LevelError, format, args...)
}
