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

// healthProvider is the keyed identification+health provider (Plant.id
// shape): one POST carrying the base64 image returns suggestions plus a
// health assessment with per-disease probabilities.
type healthProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

func newHealthProvider(apiKey, endpoint string, logger *logging.Logger) *healthProvider {
	if endpoint == "" {
		endpoint = "https://api.plant.id/v2/identify"
	}
	return &healthProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

func (p *healthProvider) Identify(ctx context.Context, image []byte) (Identification, error) {
	logger := p.logger.WithFields(map[string]interface{}{
		"provider":   "health",
		"image_size": len(image),
	})
	logger.Debug("starting keyed identification request")
	start := time.Now()

	reqBody := map[string]interface{}{
		"images":    []string{base64.StdEncoding.EncodeToString(image)},
		"modifiers": []string{"crops_fast", "health_only"},
		"plant_details": []string{"common_names"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Identification{}, fmt.Errorf("health: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Identification{}, fmt.Errorf("health: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Identification{}, fmt.Errorf("health: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Identification{}, fmt.Errorf("health: returned status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Suggestions []struct {
			PlantName   string  `json:"plant_name"`
			Probability float64 `json:"probability"`
		} `json:"suggestions"`
		HealthAssessment struct {
			Diseases []struct {
				Name        string  `json:"name"`
				Description string  `json:"description"`
				Probability float64 `json:"probability"`
			} `json:"diseases"`
		} `json:"health_assessment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Identification{}, fmt.Errorf("health: failed to decode response: %w", err)
	}
	if len(result.Suggestions) == 0 {
		return Identification{}, fmt.Errorf("health: no identification results")
	}

	top := result.Suggestions[0]
	health := HealthyStatus
	var healthRecs []string
	if diseases := result.HealthAssessment.Diseases; len(diseases) > 0 {
		if d := diseases[0]; d.Probability > diseaseWarnThreshold {
			health = DiseaseWarningStatus
			healthRecs = append(healthRecs, fmt.Sprintf("Possible %s: %s", d.Name, d.Description))
		}
	}

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("keyed identification completed")
	return Identification{
		Name:            top.PlantName,
		Confidence:      normalizeConfidence(top.Probability),
		Health:          health,
		Recommendations: append(careRecommendations(top.PlantName), healthRecs...),
	}, nil
}
