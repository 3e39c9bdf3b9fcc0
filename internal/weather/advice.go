package weather

import (
	"strings"
	"time"
	"unicode"
)

// generateAdvisories produces farming advisories from temperature, humidity
// and condition text. Band checks run in a fixed order (temperature, then
// humidity, then condition keywords) and every matching band appends its
// strings; overlapping matches are all kept. An empty result gets one
// generic advisory.
func generateAdvisories(tempC, humidityPct int, condition string) []string {
	var advice []string

	switch {
	case tempC < 5:
		advice = append(advice,
			"Protect sensitive plants from frost - consider row covers or bringing potted plants indoors",
			"Good time for winter preparation tasks like mulching and tool maintenance")
	case tempC > 30:
		advice = append(advice,
			"Provide shade for sensitive plants and increase watering frequency during hot weather",
			"Early morning or late evening are best times for outdoor work")
	case tempC >= 15 && tempC <= 25:
		advice = append(advice,
			"Ideal temperature for most outdoor farming activities and planting",
			"Perfect conditions for transplanting and garden maintenance")
	}

	switch {
	case humidityPct > 80:
		advice = append(advice,
			"High humidity may increase disease risk - ensure good air circulation around plants",
			"Monitor for fungal issues and avoid overhead watering")
	case humidityPct < 40:
		advice = append(advice,
			"Low humidity may stress plants - consider mulching to retain soil moisture",
			"Increase watering frequency and consider misting for humidity-loving plants")
	}

	lower := strings.ToLower(condition)
	switch {
	case strings.Contains(lower, "rain"):
		advice = append(advice,
			"Skip watering today - natural rainfall should be sufficient for most plants",
			"Good time for indoor tasks like seed starting, planning, or tool maintenance",
			"Check for proper drainage to prevent waterlogged soil")
	case strings.Contains(lower, "sun"):
		advice = append(advice,
			"Excellent conditions for photosynthesis and plant growth",
			"Good day for transplanting, harvesting, and outdoor farming activities",
			"Ensure adequate watering as sunny conditions increase evaporation")
	case strings.Contains(lower, "cloud"):
		advice = append(advice,
			"Overcast conditions are ideal for transplanting to reduce plant stress",
			"Good time for pruning and garden maintenance work")
	}

	if len(advice) == 0 {
		advice = []string{"Monitor your plants and adjust care based on their specific needs"}
	}
	return advice
}

// titleCase uppercases the first letter of each word and lowercases the rest
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// padForecast ensures exactly ForecastDays entries. Missing slots get a day
// label projected from the entry index and a no-data sentinel condition.
// Extra entries are truncated.
func padForecast(days []ForecastDay, now time.Time) []ForecastDay {
	if len(days) > ForecastDays {
		days = days[:ForecastDays]
	}
	for i := len(days); i < ForecastDays; i++ {
		days = append(days, ForecastDay{
			Day:       dayLabel(now, i),
			TempC:     0,
			Condition: NoDataCondition,
		})
	}
	return days
}

// dayLabel renders "Today" for offset 0 and a short weekday name otherwise
func dayLabel(now time.Time, offset int) string {
	if offset == 0 {
		return "Today"
	}
	return now.AddDate(0, 0, offset).Format("Mon")
}
