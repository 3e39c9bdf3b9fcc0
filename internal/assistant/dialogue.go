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

// dialogueProvider is the hosted open dialogue model provider (Hugging Face
// inference shape)
type dialogueProvider struct {
	apiKey string
	url    string
	client *http.Client
	logger *logging.Logger
}

func newDialogueProvider(apiKey, url string, logger *logging.Logger) *dialogueProvider {
	return &dialogueProvider{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (p *dialogueProvider) Generate(ctx context.Context, q Query) (string, error) {
	logger := p.logger.WithContext("provider", "dialogue")
	logger.Debug("starting dialogue request")
	start := time.Now()

	reqBody := map[string]interface{}{
		"inputs": buildPrompt(q),
		"parameters": map[string]interface{}{
			"max_length":  200,
			"temperature": 0.7,
			"do_sample":   true,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("dialogue: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dialogue: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.WithContext("error", err.Error()).Error("dialogue request failed")
		return "", fmt.Errorf("dialogue: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("dialogue: returned status %d: %s", resp.StatusCode, respBody)
	}

	var result []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("dialogue: failed to decode response: %w", err)
	}
	if len(result) == 0 || result[0].GeneratedText == "" {
		return "", fmt.Errorf("dialogue: empty generated text")
	}

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("dialogue request completed")
	return result[0].GeneratedText, nil
}
