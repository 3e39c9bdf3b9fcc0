package weather

// ForecastDays is the fixed number of forecast slots in every report
const ForecastDays = 5

// NoDataCondition marks a padded forecast slot for which no provider data
// exists. The day label is still set so callers can index all slots.
const NoDataCondition = "No data"

// ForecastDay is one normalized forecast slot
type ForecastDay struct {
	Day       string `json:"day"`
	TempC     int    `json:"temp_c"`
	Condition string `json:"condition"`
}

// Report is the normalized weather result. Forecast always holds exactly
// ForecastDays entries.
type Report struct {
	Location     string        `json:"location"`
	TemperatureC int           `json:"temperature_c"`
	HumidityPct  int           `json:"humidity_pct"`
	Conditions   string        `json:"conditions"`
	Advisories   []string      `json:"advisories"`
	Forecast     []ForecastDay `json:"forecast"`
}
