// Package weather looks up current conditions and a 5-day forecast for a
// free-text region, generates farming advisories from them, and never fails:
// a keyed metric provider is tried first (when a credential is configured),
// then a free public endpoint, then a static payload.
package weather

import (
	"context"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/fallback"
	"farmhand/internal/logging"
)

// Client resolves weather reports through the provider chain
type Client struct {
	chain  *fallback.Chain[string, Report]
	logger *logging.Logger
}

// NewClient builds the provider chain from config. The keyed provider is
// included only when a credential is present.
func NewClient(cfg config.WeatherConfig, logger *logging.Logger) *Client {
	var providers []fallback.Provider[string, Report]

	if cfg.APIKey != "" {
		metric := newMetricProvider(cfg.APIKey, cfg.APIEndpoint, logger)
		providers = append(providers, fallback.Provider[string, Report]{
			Name: "metric",
			Call: metric.Fetch,
		})
	}

	free := newFreeTextProvider(cfg.FreeURL, logger)
	providers = append(providers, fallback.Provider[string, Report]{
		Name: "free-text",
		Call: free.Fetch,
	})

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return &Client{
		chain:  fallback.NewChain(logger, timeout, staticReport, providers...),
		logger: logger,
	}
}

// Current returns the normalized weather report for a region. It never
// returns an error; on total provider failure the static payload is served.
func (c *Client) Current(ctx context.Context, region string) Report {
	report, source := c.chain.Fetch(ctx, region)
	c.logger.WithFields(map[string]interface{}{
		"region": region,
		"source": source,
	}).Info("weather report served")
	return report
}

// staticReport is the guaranteed last-resort payload. The location echoes
// the request so the UI can still label the card.
func staticReport(region string) Report {
	return Report{
		Location:     region,
		TemperatureC: 22,
		HumidityPct:  65,
		Conditions:   "Partly Cloudy",
		Advisories: []string{
			"Weather data temporarily unavailable",
			"General advice: Check soil moisture before watering",
			"Monitor plants for signs of stress in current conditions",
			"Consider local weather patterns for your region",
			"Early morning watering is generally best to reduce evaporation",
		},
		Forecast: []ForecastDay{
			{Day: "Today", TempC: 22, Condition: "Partly Cloudy"},
			{Day: "Tomorrow", TempC: 24, Condition: "Sunny"},
			{Day: "Thu", TempC: 20, Condition: "Cloudy"},
			{Day: "Fri", TempC: 23, Condition: "Sunny"},
			{Day: "Sat", TempC: 25, Condition: "Sunny"},
		},
	}
}
