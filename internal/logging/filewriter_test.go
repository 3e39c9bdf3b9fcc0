package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileWriter(t *testing.T) {
	t.Run("writes reach disk after flush", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		fw, err := NewFileWriter(path, 10, 3)
		if err != nil {
			t.Fatalf("NewFileWriter: %v", err)
		}
		defer fw.Close()

		if _, err := fw.Write([]byte("first line\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := fw.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !strings.Contains(string(data), "first line") {
			t.Errorf("expected flushed data on disk, got %q", data)
		}
	})

	t.Run("close flushes remaining buffer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		fw, err := NewFileWriter(path, 10, 3)
		if err != nil {
			t.Fatalf("NewFileWriter: %v", err)
		}

		fw.Write([]byte("pending\n"))
		if err := fw.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "pending") {
			t.Errorf("expected buffered data flushed on close, got %q", data)
		}
	})

	t.Run("write after close fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		fw, err := NewFileWriter(path, 10, 3)
		if err != nil {
			t.Fatalf("NewFileWriter: %v", err)
		}
		fw.Close()

		if _, err := fw.Write([]byte("late\n")); err == nil {
			t.Error("expected error writing to closed writer")
		}
	})

	t.Run("rotation keeps a numbered backup", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.log")
		fw, err := NewFileWriter(path, 0, 2)
		if err != nil {
			t.Fatalf("NewFileWriter: %v", err)
		}
		defer fw.Close()

		// maxSize of 0 MB means every flush rotates
		fw.maxSize = 1
		fw.Write([]byte("rotate me\n"))
		if err := fw.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}

		if _, err := os.Stat(path + ".1"); err != nil {
			t.Errorf("expected backup file after rotation: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected fresh live file after rotation: %v", err)
		}
	})
}
