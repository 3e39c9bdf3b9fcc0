package plant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"farmhand/internal/logging"
)

// publicProvider is the free public identification API (Pl@ntNet shape).
// It identifies the species but cannot assess health.
type publicProvider struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

func newPublicProvider(endpoint string, logger *logging.Logger) *publicProvider {
	return &publicProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

func (p *publicProvider) Identify(ctx context.Context, image []byte) (Identification, error) {
	logger := p.logger.WithFields(map[string]interface{}{
		"provider":   "public",
		"image_size": len(image),
	})
	logger.Debug("starting public identification request")
	start := time.Now()

	reqBody := map[string]interface{}{
		"images":                 []string{base64.StdEncoding.EncodeToString(image)},
		"organs":                 []string{"leaf", "flower", "fruit"},
		"include_related_images": false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Identification{}, fmt.Errorf("public: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Identification{}, fmt.Errorf("public: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Identification{}, fmt.Errorf("public: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Identification{}, fmt.Errorf("public: returned status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Results []struct {
			Score   float64 `json:"score"`
			Species struct {
				ScientificNameWithoutAuthor string `json:"scientificNameWithoutAuthor"`
			} `json:"species"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Identification{}, fmt.Errorf("public: failed to decode response: %w", err)
	}
	if len(result.Results) == 0 {
		return Identification{}, fmt.Errorf("public: no identification results")
	}

	top := result.Results[0]
	name := top.Species.ScientificNameWithoutAuthor
	if name == "" {
		name = "Unknown Plant"
	}

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("public identification completed")
	return Identification{
		Name:            name,
		Confidence:      normalizeConfidence(top.Score),
		Health:          "Unable to assess from image",
		Recommendations: careRecommendations(name),
	}, nil
}
