package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmhand/internal/config"
)

type mockChunkStore struct {
	saved   []Chunk
	deleted []string
	saveErr error
}

func (m *mockChunkStore) SaveChunk(ctx context.Context, source, text string, tags []string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, Chunk{Source: source, Text: text})
	return nil
}

func (m *mockChunkStore) DeleteChunksBySource(ctx context.Context, source string) error {
	m.deleted = append(m.deleted, source)
	return nil
}

func testKnowledgeConfig() config.KnowledgeConfig {
	return config.KnowledgeConfig{
		MaxFileSizeMB: 1,
		AllowedExts:   []string{".txt", ".md", ".html"},
	}
}

func TestIngester_IngestText(t *testing.T) {
	t.Run("chunks are saved under the source", func(t *testing.T) {
		store := &mockChunkStore{}
		ing := NewIngester(store, NewChunker(10, 2), testKnowledgeConfig(), knowledgeTestLogger())

		text := strings.Repeat("rotate crops every season ", 20)
		if err := ing.IngestText(context.Background(), "rotation.md", text, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(store.saved) < 2 {
			t.Errorf("expected multiple chunks, got %d", len(store.saved))
		}
		for _, chunk := range store.saved {
			if chunk.Source != "rotation.md" {
				t.Errorf("expected source rotation.md, got %s", chunk.Source)
			}
		}
	})

	t.Run("existing chunks for the source are replaced", func(t *testing.T) {
		store := &mockChunkStore{}
		ing := NewIngester(store, NewChunker(100, 10), testKnowledgeConfig(), knowledgeTestLogger())

		if err := ing.IngestText(context.Background(), "guide.md", "short guide", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.deleted) != 1 || store.deleted[0] != "guide.md" {
			t.Errorf("expected delete for guide.md, got %v", store.deleted)
		}
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		ing := NewIngester(&mockChunkStore{}, NewChunker(100, 10), testKnowledgeConfig(), knowledgeTestLogger())
		if err := ing.IngestText(context.Background(), "empty.md", "   \n", nil); err == nil {
			t.Error("expected error for empty text")
		}
	})
}

func TestIngester_IngestURL(t *testing.T) {
	t.Run("readable page text is ingested under the URL", func(t *testing.T) {
		page := `<html><head><title>Wheat Guide</title></head><body><article>
			<h1>Growing Wheat</h1>
			<p>Wheat grows best in well drained loamy soil with a neutral pH. Sow seeds
			after the monsoon retreats and soil moisture is steady. Irrigate at crown
			root initiation and again at flowering for the best yield.</p>
			<p>Apply nitrogen in split doses and watch for rust on the leaves during
			humid weeks. Harvest when the grains harden and the stalks turn golden.</p>
		</article></body></html>`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, page)
		}))
		defer srv.Close()

		store := &mockChunkStore{}
		ing := NewIngester(store, NewChunker(500, 50), testKnowledgeConfig(), knowledgeTestLogger())

		if err := ing.IngestURL(context.Background(), srv.URL, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.saved) == 0 {
			t.Fatal("expected saved chunks")
		}
		if store.saved[0].Source != srv.URL {
			t.Errorf("expected source %s, got %s", srv.URL, store.saved[0].Source)
		}
		if !strings.Contains(store.saved[0].Text, "loamy soil") {
			t.Errorf("expected page text in chunk, got %q", store.saved[0].Text)
		}
	})

	t.Run("unreachable URL errors", func(t *testing.T) {
		ing := NewIngester(&mockChunkStore{}, NewChunker(500, 50), testKnowledgeConfig(), knowledgeTestLogger())
		if err := ing.IngestURL(context.Background(), "http://127.0.0.1:1/guide", nil); err == nil {
			t.Error("expected error")
		}
	})
}

func TestIngester_IngestFile(t *testing.T) {
	buildUpload := func(t *testing.T, name, content string) (multipart.File, *multipart.FileHeader) {
		t.Helper()
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(content))
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/upload", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		file, header, err := req.FormFile("file")
		if err != nil {
			t.Fatalf("parse form file: %v", err)
		}
		return file, header
	}

	t.Run("text file is ingested", func(t *testing.T) {
		store := &mockChunkStore{}
		ing := NewIngester(store, NewChunker(100, 10), testKnowledgeConfig(), knowledgeTestLogger())

		file, header := buildUpload(t, "maize.txt", "Maize needs warm soil and full sun.")
		if err := ing.IngestFile(context.Background(), file, header, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.saved) != 1 || store.saved[0].Source != "maize.txt" {
			t.Errorf("expected one chunk from maize.txt, got %v", store.saved)
		}
	})

	t.Run("disallowed extension is rejected", func(t *testing.T) {
		ing := NewIngester(&mockChunkStore{}, NewChunker(100, 10), testKnowledgeConfig(), knowledgeTestLogger())
		file, header := buildUpload(t, "report.exe", "binary")
		if err := ing.IngestFile(context.Background(), file, header, nil); err == nil {
			t.Error("expected extension error")
		}
	})

	t.Run("oversized file is rejected", func(t *testing.T) {
		ing := NewIngester(&mockChunkStore{}, NewChunker(100, 10), testKnowledgeConfig(), knowledgeTestLogger())
		file, header := buildUpload(t, "big.txt", strings.Repeat("x", 2*1024*1024))
		if err := ing.IngestFile(context.Background(), file, header, nil); err == nil {
			t.Error("expected size error")
		}
	})
}
