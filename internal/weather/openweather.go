package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"farmhand/internal/logging"
)

// metricProvider is the keyed metric-forecast provider. It geocodes the
// region, then fetches current conditions and a 5-day forecast in two more
// calls (OpenWeather shape).
type metricProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *logging.Logger
	now     func() time.Time
}

func newMetricProvider(apiKey, baseURL string, logger *logging.Logger) *metricProvider {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	return &metricProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

func (p *metricProvider) Fetch(ctx context.Context, region string) (Report, error) {
	logger := p.logger.WithFields(map[string]interface{}{
		"provider": "metric",
		"region":   region,
	})
	logger.Debug("starting metric weather request")
	start := time.Now()

	lat, lon, err := p.geocode(ctx, region)
	if err != nil {
		return Report{}, err
	}

	var current struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}
	currentURL := fmt.Sprintf("%s/data/2.5/weather?lat=%f&lon=%f&appid=%s&units=metric", p.baseURL, lat, lon, p.apiKey)
	if err := p.getJSON(ctx, currentURL, &current); err != nil {
		return Report{}, err
	}
	if len(current.Weather) == 0 {
		return Report{}, fmt.Errorf("metric: current conditions missing weather block")
	}

	var forecast struct {
		List []struct {
			DT   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Main string `json:"main"`
			} `json:"weather"`
		} `json:"list"`
	}
	forecastURL := fmt.Sprintf("%s/data/2.5/forecast?lat=%f&lon=%f&appid=%s&units=metric", p.baseURL, lat, lon, p.apiKey)
	if err := p.getJSON(ctx, forecastURL, &forecast); err != nil {
		return Report{}, err
	}

	tempC := int(math.Round(current.Main.Temp))
	humidity := int(math.Round(current.Main.Humidity))
	conditions := titleCase(current.Weather[0].Description)

	days := p.collapseForecast(forecast.List)

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("metric weather request completed")
	return Report{
		Location:     fmt.Sprintf("%s, %s", current.Name, current.Sys.Country),
		TemperatureC: tempC,
		HumidityPct:  humidity,
		Conditions:   conditions,
		Advisories:   generateAdvisories(tempC, humidity, current.Weather[0].Main),
		Forecast:     padForecast(days, p.now()),
	}, nil
}

// geocode resolves a free-text region to coordinates
func (p *metricProvider) geocode(ctx context.Context, region string) (float64, float64, error) {
	var results []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	geoURL := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s", p.baseURL, url.QueryEscape(region), p.apiKey)
	if err := p.getJSON(ctx, geoURL, &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("metric: location %q not found", region)
	}
	return results[0].Lat, results[0].Lon, nil
}

// collapseForecast groups the 3-hour forecast list into per-day entries:
// average temperature, most common condition, up to ForecastDays days.
func (p *metricProvider) collapseForecast(list []struct {
	DT   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}) []ForecastDay {
	type bucket struct {
		date       time.Time
		temps      []float64
		conditions []string
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, item := range list {
		date := time.Unix(item.DT, 0)
		key := date.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{date: date}
			buckets[key] = b
			order = append(order, key)
		}
		b.temps = append(b.temps, item.Main.Temp)
		if len(item.Weather) > 0 {
			b.conditions = append(b.conditions, item.Weather[0].Main)
		}
	}
	sort.Strings(order)

	var days []ForecastDay
	for i, key := range order {
		if i >= ForecastDays {
			break
		}
		b := buckets[key]
		var sum float64
		for _, t := range b.temps {
			sum += t
		}
		days = append(days, ForecastDay{
			Day:       b.date.Format("Mon"),
			TempC:     int(math.Round(sum / float64(len(b.temps)))),
			Condition: mostCommon(b.conditions),
		})
	}
	return days
}

func mostCommon(values []string) string {
	if len(values) == 0 {
		return NoDataCondition
	}
	counts := make(map[string]int)
	best := values[0]
	for _, v := range values {
		counts[v]++
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func (p *metricProvider) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("metric: failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("metric: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("metric: returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("metric: failed to decode response: %w", err)
	}
	return nil
}
