package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmhand/internal/config"
)

func TestNewTranscriber(t *testing.T) {
	t.Run("no key means no transcriber", func(t *testing.T) {
		if tr := NewTranscriber(config.VoiceConfig{}, voiceTestLogger()); tr != nil {
			t.Error("expected nil without an API key")
		}
	})
}

func TestTranscriber_Transcribe(t *testing.T) {
	t.Run("returns the transcribed text", func(t *testing.T) {
		var gotLanguage, gotModel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			gotLanguage = r.FormValue("language")
			gotModel = r.FormValue("model")
			if _, _, err := r.FormFile("file"); err != nil {
				http.Error(w, "no file", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"text": " what is the weather today "}`)
		}))
		defer srv.Close()

		tr := NewTranscriber(config.VoiceConfig{
			TranscribeKey:   "key",
			TranscribeURL:   srv.URL,
			TranscribeModel: "whisper-1",
			TimeoutSecs:     5,
		}, voiceTestLogger())

		text, err := tr.Transcribe(context.Background(), []byte("audio-bytes"), "hi-IN")
		if err != nil {
			t.Fatalf("transcribe: %v", err)
		}
		if text != "what is the weather today" {
			t.Errorf("expected trimmed transcript, got %q", text)
		}
		if gotLanguage != "hi" {
			t.Errorf("expected bare language code hi, got %q", gotLanguage)
		}
		if gotModel != "whisper-1" {
			t.Errorf("expected whisper-1, got %q", gotModel)
		}
	})

	t.Run("non-200 response errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		tr := NewTranscriber(config.VoiceConfig{
			TranscribeKey: "key",
			TranscribeURL: srv.URL,
			TimeoutSecs:   5,
		}, voiceTestLogger())

		if _, err := tr.Transcribe(context.Background(), []byte("audio"), "en-IN"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty audio is rejected before the network", func(t *testing.T) {
		tr := NewTranscriber(config.VoiceConfig{
			TranscribeKey: "key",
			TranscribeURL: "http://127.0.0.1:1",
			TimeoutSecs:   5,
		}, voiceTestLogger())

		if _, err := tr.Transcribe(context.Background(), nil, "en-IN"); err == nil {
			t.Error("expected error for empty audio")
		}
	})
}
