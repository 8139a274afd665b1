package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Level is the severity of a log message.
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
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel maps a config string onto a Level. Unknown strings fall back to
// info rather than erroring; the log level is never worth refusing to start
// over.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry is a single structured log record.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Formatter renders an entry for output.
type Formatter interface {
	Format(entry *Entry) string
}

// TextFormatter renders entries as single-line human-readable text with
// fields sorted for stable output.
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *Entry) string {
	msg := fmt.Sprintf("[%s] %s [%s] %s",
		entry.Timestamp.Format("2006-01-02 15:04:05.000"),
		entry.Level, entry.Component, entry.Message)
	if entry.Err != nil {
		msg += fmt.Sprintf(" | error=%v", entry.Err)
	}
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg += " |"
		for _, k := range keys {
			msg += fmt.Sprintf(" %s=%v", k, entry.Fields[k])
		}
	}
	return msg + "\n"
}

// Logger writes leveled, component-tagged entries to one or more outputs.
type Logger struct {
	component string
	minLevel  Level
	outputs   []io.Writer
	formatter Formatter
	mu        sync.Mutex
}

// New creates a logger for a component, writing to stdout at info level.
func New(component string) *Logger {
	return &Logger{
		component: component,
		minLevel:  LevelInfo,
		outputs:   []io.Writer{os.Stdout},
		formatter: &TextFormatter{},
	}
}

// SetMinLevel raises or lowers the output threshold.
func (l *Logger) SetMinLevel(level Level) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
	return l
}

// AddOutput mirrors entries to an additional writer.
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, w)
	return l
}

// SetFormatter replaces the entry renderer.
func (l *Logger) SetFormatter(f Formatter) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.formatter = f
	return l
}

// Named returns a logger for a sub-component sharing this logger's outputs
// and threshold.
func (l *Logger) Named(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		component: l.component + "." + component,
		minLevel:  l.minLevel,
		outputs:   l.outputs,
		formatter: l.formatter,
	}
}

func (l *Logger) log(level Level, message string, err error, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}
	formatted := l.formatter.Format(&Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   message,
		Err:       err,
		Fields:    fields,
	})
	for _, out := range l.outputs {
		out.Write([]byte(formatted))
	}
}

func (l *Logger) Debug(message string)            { l.log(LevelDebug, message, nil, nil) }
func (l *Logger) Info(message string)             { l.log(LevelInfo, message, nil, nil) }
func (l *Logger) Warn(message string)             { l.log(LevelWarn, message, nil, nil) }
func (l *Logger) Error(message string, err error) { l.log(LevelError, message, err, nil) }

func (l *Logger) DebugWith(message string, fields map[string]interface{}) {
	l.log(LevelDebug, message, nil, fields)
}

func (l *Logger) InfoWith(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, nil, fields)
}

func (l *Logger) WarnWith(message string, fields map[string]interface{}) {
	l.log(LevelWarn, message, nil, fields)
}

func (l *Logger) ErrorWith(message string, err error, fields map[string]interface{}) {
	l.log(LevelError, message, err, fields)
}

// SessionFile opens an append-mode log file for one session and mirrors this
// logger's output into it. The caller owns the returned closer.
func (l *Logger) SessionFile(dir, sessionID string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, sessionID+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	l.AddOutput(f)
	return f, nil
}
