package core

import (
	"math"

	"enrollment-observer/src/models"
)

// Minimum series lengths below which a detector silently yields nothing.
// Too little history is a normal condition, not an error.
const (
	MinPointsZScore = 3
	MinPointsIQR    = 5
)

const iqrMultiplier = 1.5

// -----------------------------------------------------------------------------

// ZScoreAnomalies flags points whose distance from the series mean exceeds
// threshold standard deviations. A constant series (zero stddev) produces
// no findings.
func ZScoreAnomalies(series []models.MMetricPoint, threshold float64) []models.MFinding {
	if len(series) < MinPointsZScore {
		return nil
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	mean, std := CalculateMeanStd(values)
	if std == 0 {
		return nil
	}

	var findings []models.MFinding
	for _, p := range series {
		z := math.Abs(CalculateZScore(p.Value, mean, std))
		if z > threshold {
			findings = append(findings, models.MFinding{
				Date:   p.Date,
				Value:  p.Value,
				Method: models.MethodZScore,
				ZScore: &models.MZScoreStats{ZScore: z},
			})
		}
	}
	return findings
}

// -----------------------------------------------------------------------------

// IQROutliers flags points strictly outside the [Q1 - 1.5*IQR, Q3 + 1.5*IQR]
// band. Quartiles use linear interpolation over the full window.
func IQROutliers(series []models.MMetricPoint) []models.MFinding {
	if len(series) < MinPointsIQR {
		return nil
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	q1 := Percentile(values, 0.25)
	q3 := Percentile(values, 0.75)
	iqr := q3 - q1

	lowerBound := q1 - iqrMultiplier*iqr
	upperBound := q3 + iqrMultiplier*iqr

	var findings []models.MFinding
	for _, p := range series {
		if p.Value < lowerBound || p.Value > upperBound {
			findings = append(findings, models.MFinding{
				Date:   p.Date,
				Value:  p.Value,
				Method: models.MethodIQR,
				IQR: &models.MIQRStats{
					LowerBound: lowerBound,
					UpperBound: upperBound,
				},
			})
		}
	}
	return findings
}

// -----------------------------------------------------------------------------

// RollingDeviation flags points deviating from their trailing mean by more
// than deviationThreshold (a fraction, e.g. 0.5 for 50%). The trailing mean
// at position i covers the preceding window points, so the first window
// positions have no baseline and are skipped. A zero trailing mean leaves
// the ratio undefined and the point is excluded rather than flagged.
func RollingDeviation(series []models.MMetricPoint, window int, deviationThreshold float64) []models.MFinding {
	if window <= 0 || len(series) < window {
		return nil
	}

	// Running sum over the trailing window keeps this O(n).
	windowSum := 0.0
	for i := 0; i < window; i++ {
		windowSum += series[i].Value
	}

	var findings []models.MFinding
	for i := window; i < len(series); i++ {
		rollingMean := windowSum / float64(window)

		if rollingMean != 0 {
			dev := math.Abs((series[i].Value - rollingMean) / rollingMean)
			if dev > deviationThreshold {
				findings = append(findings, models.MFinding{
					Date:   series[i].Date,
					Value:  series[i].Value,
					Method: models.MethodRollingDeviation,
					Rolling: &models.MRollingStats{
						RollingMean:  rollingMean,
						DeviationPct: dev,
					},
				})
			}
		}

		windowSum += series[i].Value - series[i-window].Value
	}
	return findings
}
