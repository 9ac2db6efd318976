package models

import "time"

// -----------------------------------------------------------------------------
// Anomaly classification
// -----------------------------------------------------------------------------

type AnomalyType string

const (
	AnomalySpike AnomalyType = "spike"
	AnomalyDrop  AnomalyType = "drop"
)

// -----------------------------------------------------------------------------

// MAnomalyAlert is a cross-validated anomaly: a date flagged by at least two
// independent detection methods, classified and severity-scored.
// SeverityScore is always within [0, 10] and rounded to 2 decimals.
type MAnomalyAlert struct {
	Date             time.Time         `json:"-"`
	DateStr          string            `json:"date"` // YYYY-MM-DD, derived from Date
	MetricName       string            `json:"metric_name"`
	Value            float64           `json:"value"`
	SeverityScore    float64           `json:"severity_score"`
	AnomalyType      AnomalyType       `json:"anomaly_type"`
	DetectionMethods []DetectionMethod `json:"detection_methods"`
	State            string            `json:"state"`
	District         string            `json:"district"`
}

// -----------------------------------------------------------------------------

// MethodsAsStrings returns the detection methods in their recorded order,
// for storage backends that persist a flat list.
func (a MAnomalyAlert) MethodsAsStrings() []string {
	out := make([]string, len(a.DetectionMethods))
	for i, m := range a.DetectionMethods {
		out[i] = string(m)
	}
	return out
}

// -----------------------------------------------------------------------------

// FormatAlertDate renders a date the way the alert store expects it.
func FormatAlertDate(t time.Time) string {
	return t.Format("2006-01-02")
}
