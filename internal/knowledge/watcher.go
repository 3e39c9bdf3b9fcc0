package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

// FolderIngester interface for processing watched files
type FolderIngester interface {
	IngestText(ctx context.Context, source, text string, tags []string) error
}

// Watcher monitors configured guide folders for changes
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	ingester    FolderIngester
	store       Store
	folders     []string
	allowedExts map[string]bool
	maxSize     int64
	logger      *logging.Logger
}

// NewWatcher creates a guide-folder watcher with fsnotify initialization
func NewWatcher(ingester FolderIngester, store Store, cfg config.KnowledgeConfig, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithContext("error", err.Error()).Error("failed to create fsnotify watcher")
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}

	exts := make(map[string]bool)
	for _, ext := range cfg.AllowedExts {
		exts[strings.ToLower(ext)] = true
	}

	return &Watcher{
		fsWatcher:   fsw,
		ingester:    ingester,
		store:       store,
		folders:     cfg.Folders,
		allowedExts: exts,
		maxSize:     int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		logger:      logger,
	}, nil
}

// Start registers the configured folders and runs the event loop until
// ctx is cancelled. Invalid folders are skipped, not fatal.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Debug("starting guide folder watcher")

	watched := 0
	for _, folder := range w.folders {
		if err := w.validatePath(folder); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"folder_path": folder,
				"error":       err.Error(),
			}).Warn("skipping invalid folder")
			continue
		}

		if err := w.fsWatcher.Add(folder); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"folder_path": folder,
				"error":       err.Error(),
			}).Warn("failed to watch folder")
			continue
		}

		watched++
		w.logger.WithContext("folder_path", folder).Debug("watching folder")
	}

	go w.eventLoop(ctx)

	w.logger.WithContext("folder_count", watched).Info("guide folder watcher started")
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.fsWatcher.Close()
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.WithContext("error", err.Error()).Error("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !w.shouldProcess(event.Name) {
		return
	}

	logger := w.logger.WithFields(map[string]interface{}{
		"file_path":  event.Name,
		"event_type": event.Op.String(),
	})

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create,
		event.Op&fsnotify.Write == fsnotify.Write:
		logger.Debug("guide file changed")
		w.ingestFile(ctx, event.Name)

	case event.Op&fsnotify.Remove == fsnotify.Remove:
		logger.Debug("guide file deleted")
		if err := w.store.DeleteChunksBySource(ctx, event.Name); err != nil {
			logger.WithContext("error", err.Error()).Error("failed to delete chunks")
		}
	}
}

// shouldProcess checks extension and size. Delete events pass the size
// check because the file is already gone.
func (w *Watcher) shouldProcess(path string) bool {
	if !w.allowedExts[strings.ToLower(filepath.Ext(path))] {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}

	if info.Size() > w.maxSize {
		w.logger.WithFields(map[string]interface{}{
			"file_path": path,
			"file_size": info.Size(),
			"limit":     w.maxSize,
		}).Warn("file exceeds size limit")
		return false
	}

	return true
}

func (w *Watcher) validatePath(path string) error {
	systemDirs := []string{"/etc", "/sys", "/proc", "/System", "C:\\Windows"}
	for _, sysDir := range systemDirs {
		if strings.HasPrefix(path, sysDir) {
			return fmt.Errorf("cannot watch system directory: %s", path)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	logger := w.logger.WithContext("file_path", path)

	content, err := os.ReadFile(path)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("failed to read file")
		return
	}

	if err := w.ingester.IngestText(ctx, path, string(content), []string{"auto-ingested"}); err != nil {
		logger.WithContext("error", err.Error()).Error("failed to ingest file")
		return
	}
	logger.Debug("guide file ingested")
}
