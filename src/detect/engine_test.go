package detect

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
)

// -----------------------------------------------------------------------------

var testPartition = models.MPartition{State: "Karnataka", District: "Bengaluru Urban"}

func newTestEngine() *Engine {
	cfg := &models.MDetectionConfig{
		MetricName:                "daily_enrollments",
		LookbackDays:              90,
		ZScoreThreshold:           3.0,
		RollingWindow:             30,
		RollingDeviationThreshold: 0.5,
	}
	return NewEngine(cfg, logger.NewLogger("ERROR", "test"))
}

// makeSeries builds a daily series starting 2025-01-01 from raw values.
func makeSeries(values []float64) []models.MMetricPoint {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]models.MMetricPoint, len(values))
	for i, v := range values {
		series[i] = models.MMetricPoint{
			Date:  start.AddDate(0, 0, i),
			Value: v,
		}
	}
	return series
}

// noisyBaseline alternates 100+amp / 100-amp for a deterministic series with
// mean 100 and stddev amp.
func noisyBaseline(n int, amp float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		if i%2 == 0 {
			values[i] = 100 + amp
		} else {
			values[i] = 100 - amp
		}
	}
	return values
}

func constantValues(n int, v float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return values
}

// -----------------------------------------------------------------------------

func TestDetectSeriesQuietInputs(t *testing.T) {
	engine := newTestEngine()

	assert.Empty(t, engine.DetectSeries(nil, testPartition))
	assert.Empty(t, engine.DetectSeries(makeSeries(constantValues(90, 100)), testPartition))
	assert.Empty(t, engine.DetectSeries(makeSeries(noisyBaseline(90, 5)), testPartition))
}

// -----------------------------------------------------------------------------

func TestDetectSeriesSpikeAllMethods(t *testing.T) {
	engine := newTestEngine()

	values := noisyBaseline(90, 5)
	values[50] = 200
	alerts := engine.DetectSeries(makeSeries(values), testPartition)

	require.Len(t, alerts, 1)
	alert := alerts[0]

	assert.Equal(t, "2025-02-20", alert.DateStr)
	assert.Equal(t, "daily_enrollments", alert.MetricName)
	assert.Equal(t, 200.0, alert.Value)
	assert.Equal(t, models.AnomalySpike, alert.AnomalyType)
	assert.Equal(t, "Karnataka", alert.State)
	assert.Equal(t, "Bengaluru Urban", alert.District)

	assert.Equal(t, []models.DetectionMethod{
		models.MethodZScore,
		models.MethodIQR,
		models.MethodRollingDeviation,
	}, alert.DetectionMethods)

	// The outlier inflates the series stddev, so its own score lands at
	// ~8.52 rather than the naive (200-100)/5
	assert.InDelta(t, 8.52, alert.SeverityScore, 0.005)
}

// -----------------------------------------------------------------------------

func TestDetectSeriesDropUsesSeriesMeanFallback(t *testing.T) {
	engine := newTestEngine()

	values := noisyBaseline(90, 5)
	values[70] = 50
	alerts := engine.DetectSeries(makeSeries(values), testPartition)

	require.Len(t, alerts, 1)
	alert := alerts[0]

	assert.Equal(t, "2025-03-12", alert.DateStr)
	assert.Equal(t, models.AnomalyDrop, alert.AnomalyType)

	// 50 against a trailing mean of exactly 100 deviates by exactly 50%,
	// below the strict threshold, so direction falls back to the series mean
	assert.Equal(t, []models.DetectionMethod{
		models.MethodZScore,
		models.MethodIQR,
	}, alert.DetectionMethods)
	assert.InDelta(t, 6.84, alert.SeverityScore, 0.005)
}

// -----------------------------------------------------------------------------

func TestDetectSeriesSingleMethodRejected(t *testing.T) {
	engine := newTestEngine()

	// Ten points: the outlier's score is exactly 3.0 (not above threshold)
	// and the series is shorter than the rolling window, so only the
	// quartile detector fires. One method is not enough.
	values := constantValues(10, 100)
	values[6] = 300
	alerts := engine.DetectSeries(makeSeries(values), testPartition)

	assert.Empty(t, alerts)
}

// -----------------------------------------------------------------------------

func TestDetectSeriesSeverityCapAndOrdering(t *testing.T) {
	engine := newTestEngine()

	values := constantValues(150, 100)
	values[40] = 500
	values[80] = 700
	series := makeSeries(values)
	alerts := engine.DetectSeries(series, testPartition)

	require.Len(t, alerts, 2)

	// Ascending by date regardless of map iteration order
	assert.Equal(t, series[40].Date, alerts[0].Date)
	assert.Equal(t, series[80].Date, alerts[1].Date)

	assert.InDelta(t, 6.72, alerts[0].SeverityScore, 0.005)
	assert.Equal(t, 10.0, alerts[1].SeverityScore)

	for _, alert := range alerts {
		assert.Equal(t, models.AnomalySpike, alert.AnomalyType)
		assert.GreaterOrEqual(t, alert.SeverityScore, 0.0)
		assert.LessOrEqual(t, alert.SeverityScore, 10.0)
		// Two-decimal rounding is part of the persisted contract
		assert.Equal(t, math.Round(alert.SeverityScore*100)/100, alert.SeverityScore)
	}
}
