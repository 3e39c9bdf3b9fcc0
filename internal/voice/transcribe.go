package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

// Transcriber converts audio to text through a Whisper-style
// transcription endpoint.
type Transcriber struct {
	apiKey string
	url    string
	model  string
	client *http.Client
	logger *logging.Logger
}

// NewTranscriber creates a Transcriber from config. Returns nil when no
// API key is configured, which the session surfaces as unsupported.
func NewTranscriber(cfg config.VoiceConfig, logger *logging.Logger) *Transcriber {
	if cfg.TranscribeKey == "" {
		return nil
	}
	return &Transcriber{
		apiKey: cfg.TranscribeKey,
		url:    cfg.TranscribeURL,
		model:  cfg.TranscribeModel,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		logger: logger,
	}
}

// Transcribe sends audio as a multipart upload and returns the text
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, locale string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}

	writer.WriteField("model", t.model)
	// The API takes a bare language code, not a full locale tag.
	if lang := languageFromLocale(locale); lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	t.logger.WithContext("text_size", len(result.Text)).Debug("transcription complete")
	return strings.TrimSpace(result.Text), nil
}

func languageFromLocale(locale string) string {
	if idx := strings.Index(locale, "-"); idx > 0 {
		return locale[:idx]
	}
	return locale
}
