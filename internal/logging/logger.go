package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured, component-scoped logging
type Logger struct {
	level     Level
	component string
	output    io.Writer
	context   map[string]interface{}
	formatter *Formatter
}

// NewLogger creates a logger for a component. A nil output logs to stdout.
func NewLogger(component string, level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{
		level:     level,
		component: component,
		output:    output,
		formatter: NewFormatter(),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// WithContext returns a copy of the logger with one added context field
func (l *Logger) WithContext(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a copy of the logger with added context fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.context)+len(fields))
	for k, v := range l.context {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:     l.level,
		component: l.component,
		output:    l.output,
		context:   merged,
		formatter: l.formatter,
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	// Skip log() and the public Debug/Info/Warn/Error wrapper
	pc, file, line, ok := runtime.Caller(2)
	funcName := "unknown"
	if ok {
		file = filepath.Base(file)
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = filepath.Base(fn.Name())
		}
	} else {
		file = "unknown"
		line = 0
	}

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		File:      file,
		Line:      line,
		Function:  funcName,
		Message:   fmt.Sprintf(format, args...),
		Context:   l.context,
	}

	l.output.Write([]byte(l.formatter.Format(entry)))
}
