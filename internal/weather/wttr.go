package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"farmhand/internal/logging"
)

// freeTextProvider queries the free wttr.in-style endpoint, which takes a
// region directly and needs no credential.
type freeTextProvider struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
	now     func() time.Time
}

func newFreeTextProvider(baseURL string, logger *logging.Logger) *freeTextProvider {
	return &freeTextProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

func (p *freeTextProvider) Fetch(ctx context.Context, region string) (Report, error) {
	logger := p.logger.WithFields(map[string]interface{}{
		"provider": "free-text",
		"region":   region,
	})
	logger.Debug("starting free weather request")
	start := time.Now()

	reqURL := fmt.Sprintf("%s/%s?format=j1", p.baseURL, url.PathEscape(region))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Report{}, fmt.Errorf("free-text: failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("free-text: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Report{}, fmt.Errorf("free-text: returned status %d: %s", resp.StatusCode, body)
	}

	var data struct {
		CurrentCondition []struct {
			TempC       string `json:"temp_C"`
			Humidity    string `json:"humidity"`
			WeatherDesc []struct {
				Value string `json:"value"`
			} `json:"weatherDesc"`
		} `json:"current_condition"`
		NearestArea []struct {
			AreaName []struct {
				Value string `json:"value"`
			} `json:"areaName"`
			Country []struct {
				Value string `json:"value"`
			} `json:"country"`
		} `json:"nearest_area"`
		Weather []struct {
			Date     string `json:"date"`
			MaxTempC string `json:"maxtempC"`
			Hourly   []struct {
				WeatherDesc []struct {
					Value string `json:"value"`
				} `json:"weatherDesc"`
			} `json:"hourly"`
		} `json:"weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Report{}, fmt.Errorf("free-text: failed to decode response: %w", err)
	}
	if len(data.CurrentCondition) == 0 {
		return Report{}, fmt.Errorf("free-text: response missing current conditions")
	}

	current := data.CurrentCondition[0]
	tempC := atoiLenient(current.TempC)
	humidity := atoiLenient(current.Humidity)

	condition := ""
	if len(current.WeatherDesc) > 0 {
		condition = current.WeatherDesc[0].Value
	}

	location := region
	if len(data.NearestArea) > 0 && len(data.NearestArea[0].AreaName) > 0 && len(data.NearestArea[0].Country) > 0 {
		location = fmt.Sprintf("%s, %s", data.NearestArea[0].AreaName[0].Value, data.NearestArea[0].Country[0].Value)
	}

	var days []ForecastDay
	for i, day := range data.Weather {
		if i >= ForecastDays {
			break
		}
		label := "Today"
		if i > 0 {
			if parsed, err := time.Parse("2006-01-02", day.Date); err == nil {
				label = parsed.Format("Mon")
			} else {
				label = dayLabel(p.now(), i)
			}
		}
		cond := NoDataCondition
		if len(day.Hourly) > 0 && len(day.Hourly[0].WeatherDesc) > 0 {
			cond = day.Hourly[0].WeatherDesc[0].Value
		}
		days = append(days, ForecastDay{
			Day:       label,
			TempC:     atoiLenient(day.MaxTempC),
			Condition: cond,
		})
	}

	logger.WithContext("latency_ms", time.Since(start).Milliseconds()).Debug("free weather request completed")
	return Report{
		Location:     location,
		TemperatureC: tempC,
		HumidityPct:  humidity,
		Conditions:   condition,
		Advisories:   generateAdvisories(tempC, humidity, condition),
		Forecast:     padForecast(days, p.now()),
	}, nil
}

func atoiLenient(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
