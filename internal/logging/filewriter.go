package logging

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileWriter is a buffered, size-rotating log file writer. Writes land in a
// 64KB buffer that is flushed every 5 seconds and on Close; rotation keeps
// up to maxBackups numbered backups (file.1 newest).
type FileWriter struct {
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	buffer     *bufio.Writer
	mu         sync.Mutex
	flushTimer *time.Timer
	closed     bool
}

// NewFileWriter opens (or creates) the log file in append mode. Callers that
// get an error should fall back to console-only logging.
func NewFileWriter(path string, maxSizeMB, maxBackups int) (*FileWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	fw := &FileWriter{
		path:       path,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		file:       file,
		buffer:     bufio.NewWriterSize(file, 64*1024),
	}

	fw.flushTimer = time.AfterFunc(5*time.Second, func() {
		fw.mu.Lock()
		defer fw.mu.Unlock()
		if !fw.closed {
			fw.flushLocked()
			fw.flushTimer.Reset(5 * time.Second)
		}
	})

	return fw, nil
}

// Write appends data to the buffer. Thread-safe.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return 0, fmt.Errorf("file writer is closed")
	}
	return fw.buffer.Write(p)
}

// Flush writes the buffer to disk and rotates if the file is over the limit
func (fw *FileWriter) Flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return fmt.Errorf("file writer is closed")
	}
	return fw.flushLocked()
}

func (fw *FileWriter) flushLocked() error {
	if err := fw.buffer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] failed to flush log buffer: %v\n", err)
		return err
	}

	info, err := fw.file.Stat()
	if err != nil {
		return err
	}
	if fw.maxSize > 0 && info.Size() >= fw.maxSize {
		if err := fw.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] failed to rotate log file: %v\n", err)
			return err
		}
	}
	return nil
}

// rotate shifts backups up by one (file.N-1 -> file.N), moves the live file
// to file.1 and reopens a fresh live file. Caller must hold the mutex.
func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("failed to close file before rotation: %w", err)
	}

	// Oldest backup falls off the end
	for i := fw.maxBackups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", fw.path, i)
		dst := fmt.Sprintf("%s.%d", fw.path, i+1)
		if _, err := os.Stat(src); err == nil {
			os.Rename(src, dst)
		}
	}
	if fw.maxBackups > 0 {
		os.Rename(fw.path, fw.path+".1")
	} else {
		os.Remove(fw.path)
	}

	file, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen file after rotation: %w", err)
	}
	fw.file = file
	fw.buffer = bufio.NewWriterSize(file, 64*1024)
	return nil
}

// Close stops the flush timer, flushes the buffer and closes the file
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return nil
	}
	fw.closed = true
	fw.flushTimer.Stop()

	if err := fw.buffer.Flush(); err != nil {
		fw.file.Close()
		return err
	}
	return fw.file.Close()
}
