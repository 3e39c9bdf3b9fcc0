package knowledge

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

// Store interface for saving and replacing chunks
type Store interface {
	SaveChunk(ctx context.Context, source, text string, tags []string) error
	DeleteChunksBySource(ctx context.Context, source string) error
}

// TextChunker interface for splitting guide text
type TextChunker interface {
	ChunkText(text string) []string
}

// Ingester loads farming guides into the knowledge store
type Ingester struct {
	store       Store
	chunker     TextChunker
	maxFileSize int64
	allowedExts map[string]bool
	logger      *logging.Logger
}

// NewIngester creates a new Ingester with all dependencies
func NewIngester(store Store, chunker TextChunker, cfg config.KnowledgeConfig, logger *logging.Logger) *Ingester {
	exts := make(map[string]bool)
	for _, ext := range cfg.AllowedExts {
		exts[strings.ToLower(ext)] = true
	}

	return &Ingester{
		store:       store,
		chunker:     chunker,
		maxFileSize: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		allowedExts: exts,
		logger:      logger,
	}
}

// IngestText chunks plain text and stores it under the given source,
// replacing any chunks previously stored for that source.
func (ing *Ingester) IngestText(ctx context.Context, source, text string, tags []string) error {
	logger := ing.logger.WithFields(map[string]interface{}{
		"source":    source,
		"text_size": len(text),
	})
	logger.Debug("starting text ingestion")

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("ingest: empty text for source %s", source)
	}

	// Replace behavior: clear out the previous version of this source.
	if err := ing.store.DeleteChunksBySource(ctx, source); err != nil {
		logger.WithContext("error", err.Error()).Warn("failed to delete existing chunks")
	}

	chunks := ing.chunker.ChunkText(text)
	for i, chunk := range chunks {
		if err := ing.store.SaveChunk(ctx, source, chunk, tags); err != nil {
			logger.WithFields(map[string]interface{}{
				"chunk_index": i,
				"error":       err.Error(),
			}).Error("save chunk failed")
			return fmt.Errorf("ingest: save chunk: %w", err)
		}
	}

	logger.WithContext("total_chunks", len(chunks)).Debug("text ingestion completed")
	return nil
}

// IngestURL fetches a guide page and stores its readable text
func (ing *Ingester) IngestURL(ctx context.Context, urlStr string, tags []string) error {
	logger := ing.logger.WithContext("url", urlStr)
	logger.Debug("starting URL ingestion")

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("invalid URL")
		return fmt.Errorf("ingest: invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("ingest: build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("failed to fetch URL")
		return fmt.Errorf("ingest: fetch URL: %w", err)
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("failed to parse page")
		return fmt.Errorf("ingest: parse page: %w", err)
	}

	logger.WithContext("text_size", len(article.TextContent)).Debug("page fetched and parsed")
	return ing.IngestText(ctx, urlStr, article.TextContent, tags)
}

// IngestFile stores an uploaded guide file after size and extension checks
func (ing *Ingester) IngestFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, tags []string) error {
	logger := ing.logger.WithFields(map[string]interface{}{
		"file_name": header.Filename,
		"file_size": header.Size,
	})
	logger.Debug("starting file ingestion")

	if header.Size > ing.maxFileSize {
		logger.WithContext("limit", ing.maxFileSize).Error("file size exceeds limit")
		return fmt.Errorf("ingest: file size %d exceeds limit %d", header.Size, ing.maxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !ing.allowedExts[ext] {
		logger.WithContext("extension", ext).Error("file extension not allowed")
		return fmt.Errorf("ingest: file extension %s is not allowed", ext)
	}

	var text string
	var err error
	switch ext {
	case ".html", ".htm":
		var article readability.Article
		article, err = readability.FromReader(file, nil)
		text = article.TextContent
	default:
		var raw []byte
		raw, err = io.ReadAll(file)
		text = string(raw)
	}
	if err != nil {
		logger.WithContext("error", err.Error()).Error("failed to parse file")
		return fmt.Errorf("ingest: parse file: %w", err)
	}

	return ing.IngestText(ctx, header.Filename, text, tags)
}
