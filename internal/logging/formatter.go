package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry represents a structured log entry
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component string
	File      string
	Line      int
	Function  string
	Message   string
	Context   map[string]interface{}
}

// Formatter renders log entries as single lines:
// [YYYY-MM-DD HH:MM:SS] LEVEL [component] file.go:line function message key=value
type Formatter struct{}

// NewFormatter creates a new formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders an entry into its line form
func (f *Formatter) Format(entry Entry) string {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	sb.WriteString("] ")
	sb.WriteString(entry.Level.String())
	sb.WriteString(" [")
	sb.WriteString(entry.Component)
	sb.WriteString("] ")
	sb.WriteString(entry.File)
	sb.WriteString(":")
	fmt.Fprintf(&sb, "%d", entry.Line)
	sb.WriteString(" ")
	sb.WriteString(entry.Function)
	sb.WriteString(" ")
	sb.WriteString(sanitize(entry.Message))

	if len(entry.Context) > 0 {
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" ")
			sb.WriteString(k)
			sb.WriteString("=")
			fmt.Fprintf(&sb, "%v", entry.Context[k])
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// sanitize replaces control characters (except newline and tab) with spaces
// to prevent log injection
func sanitize(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		switch {
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r < 0x20:
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
