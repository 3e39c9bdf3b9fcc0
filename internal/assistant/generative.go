package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"farmhand/internal/logging"
)

// generativeProvider is the keyed generative-text provider (Gemini shape):
// a single contents/parts prompt with a generation config.
type generativeProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
	logger   *logging.Logger
}

func newGenerativeProvider(apiKey, endpoint, model string, logger *logging.Logger) *generativeProvider {
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return &generativeProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

func (p *generativeProvider) Generate(ctx context.Context, q Query) (string, error) {
	logger := p.logger.WithFields(map[string]interface{}{
		"provider": "generative",
		"model":    p.model,
	})
	logger.Debug("starting generative request")
	start := time.Now()

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": buildPrompt(q)}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.7,
			"topK":            40,
			"topP":            0.95,
			"maxOutputTokens": 1024,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("generative: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.endpoint, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("generative: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("generative request failed")
		return "", fmt.Errorf("generative: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("generative: returned status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("generative: failed to decode response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generative: empty response")
	}

	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("generative: empty generated text")
	}

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("generative request completed")
	return text, nil
}
