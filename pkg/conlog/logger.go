// Package conlog is the leveled, categorized logger shared by the console
// packages. Warnings and errors are always shown; the chattier levels need
// the logger enabled and their category switched on.
package conlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// LogLevel represents the severity of a log message (higher value = higher severity)
type LogLevel int

const (
	LevelTrace  LogLevel = iota // Detailed tracing (requires enabled + category)
	LevelInfo                   // Informational messages (requires enabled + category)
	LevelDebug                  // Development debugging (requires enabled + category)
	LevelNotice                 // Notable events (always shown)
	LevelWarn                   // Warnings (always shown)
	LevelError                  // Runtime errors (always shown)
	LevelFatal                  // Unrecoverable errors (always shown)
)

// String returns the tag used in log prefixes.
func (l LogLevel) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelNotice:
		return "NOTICE"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return fmt.Sprintf("LEVEL%d", int(l))
}

// LogCategory represents the subsystem generating the message
type LogCategory string

const (
	CatNone     LogCategory = ""         // Uncategorized
	CatLoop     LogCategory = "loop"     // GUI loop dispatch
	CatRegistry LogCategory = "registry" // View registration and lookup
	CatStream   LogCategory = "stream"   // Session stream traffic
	CatSession  LogCategory = "session"  // Session open/close
	CatProperty LogCategory = "property" // Property bridge
	CatInterp   LogCategory = "interp"   // Embedded interpreter
	CatConfig   LogCategory = "config"   // Configuration and preferences
	CatApp      LogCategory = "app"      // Application specific
)

// AllCategories lists every named category, for "enable all" switches.
var AllCategories = []LogCategory{
	CatLoop, CatRegistry, CatStream, CatSession, CatProperty, CatInterp, CatConfig, CatApp,
}

// ANSI color codes for terminal output
const (
	colorYellow = "\x1b[93m" // Bright yellow foreground
	colorReset  = "\x1b[0m"  // Reset to default
)

// Logger handles logging for the console. It is safe for concurrent use;
// derived loggers share the enable switches of their parent.
type Logger struct {
	state  *loggerState
	prefix string
	out    io.Writer
	errOut io.Writer
	// colorEnabled is true if terminal colors should be used for errOut
	colorEnabled bool
}

type loggerState struct {
	mu                sync.RWMutex
	enabled           bool
	enabledCategories map[LogCategory]bool
	writeMu           sync.Mutex
}

// stderrSupportsColor checks if stderr is a terminal that supports color output
func stderrSupportsColor() bool {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return false
	}

	// Respect NO_COLOR environment variable (https://no-color.org/)
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	if t := os.Getenv("TERM"); t == "dumb" {
		return false
	}

	return true
}

// New creates a logger writing to stdout and stderr.
func New(enabled bool) *Logger {
	return NewWithWriters(enabled, os.Stdout, os.Stderr)
}

// NewWithWriters creates a logger with explicit writers. Colors are only
// used when errOut is the process stderr and it is a terminal.
func NewWithWriters(enabled bool, out, errOut io.Writer) *Logger {
	return &Logger{
		state: &loggerState{
			enabled:           enabled,
			enabledCategories: make(map[LogCategory]bool),
		},
		prefix:       "PawConsole",
		out:          out,
		errOut:       errOut,
		colorEnabled: errOut == io.Writer(os.Stderr) && stderrSupportsColor(),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriters(false, io.Discard, io.Discard)
}

// WithOutput derives a logger that writes to another pair of writers, such
// as a session's output and error streams. Enable switches stay shared.
func (l *Logger) WithOutput(out, errOut io.Writer) *Logger {
	if l == nil {
		return nil
	}
	derived := *l
	derived.out = out
	derived.errOut = errOut
	derived.colorEnabled = false
	return &derived
}

// WithPrefix derives a logger whose always-shown messages carry another prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	if l == nil {
		return nil
	}
	derived := *l
	derived.prefix = prefix
	return &derived
}

// SetEnabled switches the gated levels on or off.
func (l *Logger) SetEnabled(enabled bool) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.enabled = enabled
}

// EnableCategory turns on debug output for a category
func (l *Logger) EnableCategory(cat LogCategory) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.enabledCategories[cat] = true
}

// DisableCategory turns off debug output for a category
func (l *Logger) DisableCategory(cat LogCategory) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	delete(l.state.enabledCategories, cat)
}

// EnableCategories parses a comma separated list ("loop,stream" or "all").
func (l *Logger) EnableCategories(list string) {
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		switch name {
		case "":
			continue
		case "all":
			for _, cat := range AllCategories {
				l.EnableCategory(cat)
			}
		default:
			l.EnableCategory(LogCategory(name))
		}
	}
}

// IsCategoryEnabled reports whether debug output is on for a category.
func (l *Logger) IsCategoryEnabled(cat LogCategory) bool {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.enabledCategories[cat]
}

// shouldLog determines if a message should be logged
func (l *Logger) shouldLog(level LogLevel, cat LogCategory) bool {
	// Notice and above are always shown
	if level >= LevelNotice {
		return true
	}

	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	if !l.state.enabled {
		return false
	}
	if cat == CatNone {
		return true
	}
	return l.state.enabledCategories[cat]
}

// Log writes a message at the given level and category.
func (l *Logger) Log(level LogLevel, cat LogCategory, message string, args ...interface{}) {
	if l == nil || !l.shouldLog(level, cat) {
		return
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	var prefix string
	if level < LevelNotice {
		if cat != CatNone {
			prefix = fmt.Sprintf("[%s:%s]", level, cat)
		} else {
			prefix = fmt.Sprintf("[%s]", level)
		}
	} else {
		if cat != CatNone {
			prefix = fmt.Sprintf("[%s:%s %s]", l.prefix, cat, level)
		} else {
			prefix = fmt.Sprintf("[%s %s]", l.prefix, level)
		}
	}

	line := fmt.Sprintf("%s %s", prefix, message)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	l.state.writeMu.Lock()
	defer l.state.writeMu.Unlock()

	// Warnings and errors go to errOut, in yellow on a terminal
	if level >= LevelWarn {
		if l.colorEnabled {
			line = colorYellow + strings.TrimSuffix(line, "\n") + colorReset + "\n"
		}
		fmt.Fprint(l.errOut, line)
		return
	}
	fmt.Fprint(l.out, line)
}

// Fatal logs at fatal level. It does not exit.
func (l *Logger) Fatal(message string, args ...interface{}) {
	l.Log(LevelFatal, CatNone, message, args...)
}

// Error logs a runtime error
func (l *Logger) Error(message string, args ...interface{}) {
	l.Log(LevelError, CatNone, message, args...)
}

// ErrorCat logs a runtime error with a category
func (l *Logger) ErrorCat(cat LogCategory, message string, args ...interface{}) {
	l.Log(LevelError, cat, message, args...)
}

// Warn logs a warning
func (l *Logger) Warn(message string, args ...interface{}) {
	l.Log(LevelWarn, CatNone, message, args...)
}

// WarnCat logs a warning with a category
func (l *Logger) WarnCat(cat LogCategory, message string, args ...interface{}) {
	l.Log(LevelWarn, cat, message, args...)
}

// Notice logs a notable event
func (l *Logger) Notice(message string, args ...interface{}) {
	l.Log(LevelNotice, CatNone, message, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.Log(LevelDebug, CatNone, message, args...)
}

// DebugCat logs a debug message with a category
func (l *Logger) DebugCat(cat LogCategory, message string, args ...interface{}) {
	l.Log(LevelDebug, cat, message, args...)
}

// Info logs an informational message
func (l *Logger) Info(cat LogCategory, message string, args ...interface{}) {
	l.Log(LevelInfo, cat, message, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(cat LogCategory, message string, args ...interface{}) {
	l.Log(LevelTrace, cat, message, args...)
}
