package plant

// Identification is the normalized plant result. Confidence is always in
// [0,1] regardless of the scale the provider reported.
type Identification struct {
	Name            string   `json:"name"`
	Confidence      float64  `json:"confidence"`
	Health          string   `json:"health"`
	Recommendations []string `json:"recommendations"`
}

// HealthyStatus is the default health text when no disease signal exists
const HealthyStatus = "Healthy"

// DiseaseWarningStatus replaces HealthyStatus when a provider reports a
// disease probability above the warning threshold
const DiseaseWarningStatus = "Warning - Possible Disease"

// diseaseWarnThreshold is the provider disease probability above which the
// health status flips to a warning
const diseaseWarnThreshold = 0.5
