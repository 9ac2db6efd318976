package detect

import (
	"math"
	"sort"
	"sync"
	"time"

	"enrollment-observer/src/detect/core"
	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
)

// MinAgreementMethods is the cross-validation policy: a date must be flagged
// by at least this many distinct methods to become an alert. Single-detector
// signals are treated as noise.
const MinAgreementMethods = 2

// defaultSeverity applies when the z-score detector did not fire for a date.
const defaultSeverity = 5.0

// -----------------------------------------------------------------------------

// Engine runs the detector ensemble over one series and turns the combined
// findings into validated alerts.
type Engine struct {
	Config *models.MDetectionConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MDetectionConfig, log *logger.Logger) *Engine {
	return &Engine{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// candidate accumulates the findings of all methods that fired for one date.
// One optional slot per detector method; methods records arrival order.
type candidate struct {
	date    time.Time
	value   float64
	methods []models.DetectionMethod
	zScore  *models.MZScoreStats
	iqr     *models.MIQRStats
	rolling *models.MRollingStats
}

// -----------------------------------------------------------------------------

// DetectSeries runs the three detectors over one immutable series, aggregates
// their findings, and returns the validated alerts tagged with partition
// identity, sorted ascending by date. An empty or short series yields an
// empty result, never an error.
func (e *Engine) DetectSeries(series []models.MMetricPoint, partition models.MPartition) []models.MAnomalyAlert {
	if len(series) == 0 {
		return nil
	}

	// The detectors are pure functions over the same immutable input; run
	// them in parallel and wait for all three before aggregating.
	var (
		wg           sync.WaitGroup
		zFindings    []models.MFinding
		iqrFindings  []models.MFinding
		rollFindings []models.MFinding
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		zFindings = core.ZScoreAnomalies(series, e.Config.ZScoreThreshold)
	}()
	go func() {
		defer wg.Done()
		iqrFindings = core.IQROutliers(series)
	}()
	go func() {
		defer wg.Done()
		rollFindings = core.RollingDeviation(series, e.Config.RollingWindow, e.Config.RollingDeviationThreshold)
	}()
	wg.Wait()

	e.Logger.Debug("Detector findings for %s: z=%d iqr=%d rolling=%d",
		partition, len(zFindings), len(iqrFindings), len(rollFindings))

	candidates := aggregate(zFindings, iqrFindings, rollFindings)
	if len(candidates) == 0 {
		return nil
	}

	seriesMean := seriesMean(series)

	var alerts []models.MAnomalyAlert
	for _, c := range candidates {
		if len(c.methods) < MinAgreementMethods {
			continue
		}
		alerts = append(alerts, e.buildAlert(c, seriesMean, partition))
	}

	// Map grouping loses input order; callers rely on ascending dates.
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Date.Before(alerts[j].Date)
	})
	return alerts
}

// -----------------------------------------------------------------------------

// aggregate merges per-method findings into one candidate per date. Findings
// are folded in a fixed method order so detection_methods stays deterministic
// regardless of detector scheduling.
func aggregate(findingSets ...[]models.MFinding) map[int64]*candidate {
	candidates := make(map[int64]*candidate)

	for _, findings := range findingSets {
		for _, f := range findings {
			key := f.Date.Unix()
			c, ok := candidates[key]
			if !ok {
				c = &candidate{date: f.Date, value: f.Value}
				candidates[key] = c
			}
			c.methods = append(c.methods, f.Method)

			switch f.Method {
			case models.MethodZScore:
				c.zScore = f.ZScore
			case models.MethodIQR:
				c.iqr = f.IQR
			case models.MethodRollingDeviation:
				c.rolling = f.Rolling
			}
		}
	}
	return candidates
}

// -----------------------------------------------------------------------------

// buildAlert classifies direction and scores severity for a validated
// candidate.
//
// Direction: the trailing mean is the preferred baseline when the rolling
// detector fired for this date; otherwise the whole-series mean. Value below
// the baseline means drop, otherwise spike.
//
// Severity: min(10, |z|) when the z-score detector fired, else 5.0. Rounded
// to 2 decimals.
func (e *Engine) buildAlert(c *candidate, seriesMean float64, partition models.MPartition) models.MAnomalyAlert {
	baseline := seriesMean
	if c.rolling != nil {
		baseline = c.rolling.RollingMean
	}

	anomalyType := models.AnomalySpike
	if c.value < baseline {
		anomalyType = models.AnomalyDrop
	}

	severity := defaultSeverity
	if c.zScore != nil {
		severity = math.Min(10.0, c.zScore.ZScore)
	}
	severity = math.Round(severity*100) / 100

	return models.MAnomalyAlert{
		Date:             c.date,
		DateStr:          models.FormatAlertDate(c.date),
		MetricName:       e.Config.MetricName,
		Value:            c.value,
		SeverityScore:    severity,
		AnomalyType:      anomalyType,
		DetectionMethods: c.methods,
		State:            partition.State,
		District:         partition.District,
	}
}

// -----------------------------------------------------------------------------

func seriesMean(series []models.MMetricPoint) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range series {
		sum += p.Value
	}
	return sum / float64(len(series))
}
