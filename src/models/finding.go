package models

import "time"

// -----------------------------------------------------------------------------
// Detection methods
// -----------------------------------------------------------------------------

type DetectionMethod string

const (
	MethodZScore           DetectionMethod = "z_score"
	MethodIQR              DetectionMethod = "iqr"
	MethodRollingDeviation DetectionMethod = "rolling_deviation"
)

// -----------------------------------------------------------------------------
// Per-method statistics
// -----------------------------------------------------------------------------

// MZScoreStats carries the absolute z-score of a flagged point.
type MZScoreStats struct {
	ZScore float64 `json:"z_score"`
}

// MIQRStats carries the quartile band a flagged point fell outside of.
type MIQRStats struct {
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// MRollingStats carries the trailing mean and the deviation fraction.
type MRollingStats struct {
	RollingMean  float64 `json:"rolling_mean"`
	DeviationPct float64 `json:"deviation_pct"`
}

// -----------------------------------------------------------------------------

// MFinding is a single detector's verdict on a single date. Exactly one of
// the stat slots is set, matching Method.
type MFinding struct {
	Date    time.Time       `json:"date"`
	Value   float64         `json:"value"`
	Method  DetectionMethod `json:"method"`
	ZScore  *MZScoreStats   `json:"z_score_stats,omitempty"`
	IQR     *MIQRStats      `json:"iqr_stats,omitempty"`
	Rolling *MRollingStats  `json:"rolling_stats,omitempty"`
}
