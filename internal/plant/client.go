// Package plant identifies a plant from image bytes and attaches a health
// status and care recommendations. The provider chain tries a keyed
// identification+health API, then a free public API, then a deterministic
// local guess, so callers always get a renderable result.
package plant

import (
	"context"
	"fmt"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/fallback"
	"farmhand/internal/logging"
)

// Client resolves identifications through the provider chain
type Client struct {
	chain  *fallback.Chain[[]byte, Identification]
	logger *logging.Logger
}

// NewClient builds the provider chain from config. The keyed provider is
// included only when a credential is present.
func NewClient(cfg config.PlantConfig, logger *logging.Logger) *Client {
	var providers []fallback.Provider[[]byte, Identification]

	if cfg.APIKey != "" {
		keyed := newHealthProvider(cfg.APIKey, cfg.APIEndpoint, logger)
		providers = append(providers, fallback.Provider[[]byte, Identification]{
			Name: "health",
			Call: keyed.Identify,
		})
	}

	free := newPublicProvider(cfg.FreeURL, logger)
	providers = append(providers, fallback.Provider[[]byte, Identification]{
		Name: "public",
		Call: free.Identify,
	})

	providers = append(providers, fallback.Provider[[]byte, Identification]{
		Name: "local-guess",
		Call: func(ctx context.Context, image []byte) (Identification, error) {
			if len(image) == 0 {
				return Identification{}, fmt.Errorf("local-guess: empty image")
			}
			return guessFromImage(image), nil
		},
	})

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return &Client{
		chain:  fallback.NewChain(logger, timeout, unavailableIdentification, providers...),
		logger: logger,
	}
}

// Identify returns the normalized identification for image bytes. It never
// returns an error.
func (c *Client) Identify(ctx context.Context, image []byte) Identification {
	result, source := c.chain.Fetch(ctx, image)
	c.logger.WithFields(map[string]interface{}{
		"source":     source,
		"name":       result.Name,
		"confidence": result.Confidence,
	}).Info("plant identification served")
	return result
}

// unavailableIdentification is the last-resort payload when even the local
// guesser cannot run
func unavailableIdentification([]byte) Identification {
	return Identification{
		Name:       "Plant identification unavailable",
		Confidence: 0,
		Health:     "Unable to assess",
		Recommendations: []string{
			"Plant identification service is currently unavailable",
			"Try taking a clearer photo with good lighting",
			"Focus on distinctive features like leaves, flowers, or fruits",
			"Consider using multiple plant identification resources",
			"Consult local gardening experts or extension services",
			"Check plant identification books or field guides",
		},
	}
}
