package logging

import (
	"io"
	"strings"
)

// MultiWriter routes formatted log lines to console and file by level.
// With debug logging enabled, WARN and ERROR go to both destinations while
// DEBUG and INFO go to the file only. With debug disabled everything goes
// to the console.
type MultiWriter struct {
	console      io.Writer
	file         io.Writer
	debugEnabled bool
}

// NewMultiWriter creates a level-routing writer
func NewMultiWriter(console, file io.Writer, debugEnabled bool) *MultiWriter {
	return &MultiWriter{
		console:      console,
		file:         file,
		debugEnabled: debugEnabled,
	}
}

// Write implements io.Writer over formatted log lines
func (m *MultiWriter) Write(p []byte) (int, error) {
	if !m.debugEnabled {
		return m.console.Write(p)
	}

	level := extractLevel(p)
	fileN, fileErr := m.file.Write(p)
	n := fileN

	if level == "WARN" || level == "ERROR" {
		consoleN, consoleErr := m.console.Write(p)
		if consoleN > n {
			n = consoleN
		}
		if fileErr != nil {
			return n, fileErr
		}
		return n, consoleErr
	}

	return n, fileErr
}

// extractLevel parses the level token from a formatted line.
// Expected form: [YYYY-MM-DD HH:MM:SS] LEVEL [component] ...
func extractLevel(p []byte) string {
	msg := string(p)
	after := strings.Index(msg, "] ")
	if after == -1 {
		return ""
	}
	rest := msg[after+2:]
	end := strings.Index(rest, " ")
	if end == -1 {
		return ""
	}
	return rest[:end]
}
