package scanner

import (
	"context"
	"sync"
	"time"

	"enrollment-observer/src/detect"
	"enrollment-observer/src/helpers"
	"enrollment-observer/src/interfaces"
	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
	"enrollment-observer/src/utils"
)

// -----------------------------------------------------------------------------
// Scanner runs the full pipeline (fetch -> detect -> aggregate) for every
// partition with a bounded worker pool, then persists the combined alerts.
// -----------------------------------------------------------------------------

type Scanner struct {
	Provider interfaces.IMetricProvider
	Sink     interfaces.IAlertSink
	Engine   *detect.Engine
	Config   *models.MConfig
	Logger   *logger.Logger
	Cache    *utils.SeriesCache // optional; holds the last fetched series per partition

	SinkRetries    int
	RetryBaseDelay time.Duration
}

// -----------------------------------------------------------------------------

func NewScanner(
	provider interfaces.IMetricProvider,
	sink interfaces.IAlertSink,
	engine *detect.Engine,
	cfg *models.MConfig,
	log *logger.Logger,
) *Scanner {
	return &Scanner{
		Provider:       provider,
		Sink:           sink,
		Engine:         engine,
		Config:         cfg,
		Logger:         log,
		SinkRetries:    3,
		RetryBaseDelay: time.Second,
	}
}

// -----------------------------------------------------------------------------

// ScanAll discovers every partition in the warehouse and scans them all.
func (s *Scanner) ScanAll(ctx context.Context) (*models.MLatestScan, error) {
	partitions, err := s.Provider.ListPartitions()
	if err != nil {
		return nil, &helpers.DataFetchError{ObserverError: helpers.ObserverError{
			Message: "failed to list partitions",
			Cause:   err,
		}}
	}
	return s.ScanPartitions(ctx, partitions)
}

// -----------------------------------------------------------------------------

// ScanPartitions runs the pipeline once per partition. Partitions are
// independent: a fetch failure or empty series is logged and skipped without
// touching siblings. The returned error is non-nil only for sink failures,
// in which case the scan result is still returned with the persisted count
// it managed.
func (s *Scanner) ScanPartitions(ctx context.Context, partitions []models.MPartition) (*models.MLatestScan, error) {
	start := time.Now()

	workers := s.Config.Scan.Workers
	if workers > len(partitions) {
		workers = len(partitions)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan models.MPartition)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		alerts  = make(map[string][]models.MAnomalyAlert)
		scanned int
		skipped int
		found   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for partition := range jobs {
				partitionAlerts, ok := s.scanPartition(partition)

				mu.Lock()
				if !ok {
					skipped++
				} else {
					scanned++
					if len(partitionAlerts) > 0 {
						alerts[partition.Key()] = partitionAlerts
						found += len(partitionAlerts)
					}
				}
				mu.Unlock()
			}
		}()
	}

	// Feed jobs with a cooperative cancellation check between partitions.
feed:
	for _, partition := range partitions {
		select {
		case <-ctx.Done():
			s.Logger.Warning("Scan cancelled with %d partitions pending", len(partitions)-scanned-skipped)
			break feed
		case jobs <- partition:
		}
	}
	close(jobs)
	wg.Wait()

	persisted, sinkErr := s.persistAlerts(alerts)

	scan := &models.MLatestScan{
		Type:      "UPDATE",
		Alerts:    alerts,
		Timestamp: time.Now().Unix(),
		ScanMetrics: models.MScanMetrics{
			ScanTimeSeconds:   time.Since(start).Seconds(),
			PartitionsScanned: scanned,
			PartitionsSkipped: skipped,
			AlertsFound:       found,
			AlertsPersisted:   persisted,
		},
	}

	s.Logger.Info("Scan finished: %d partitions scanned, %d skipped, %d alerts (%d persisted) in %.2fs",
		scanned, skipped, found, persisted, scan.ScanMetrics.ScanTimeSeconds)

	return scan, sinkErr
}

// -----------------------------------------------------------------------------

// scanPartition fetches and analyzes one partition. The second return value
// is false when the partition had to be skipped.
func (s *Scanner) scanPartition(partition models.MPartition) ([]models.MAnomalyAlert, bool) {
	series, err := s.Provider.FetchSeries(partition, s.Config.Detection.LookbackDays)
	if err != nil {
		s.Logger.Error("Skipping partition %s: fetch failed: %v", partition, err)
		return nil, false
	}
	if len(series) == 0 {
		s.Logger.Debug("Skipping partition %s: no data", partition)
		return nil, false
	}

	if s.Cache != nil {
		s.Cache.PutSeries(partition, series)
	}

	return s.Engine.DetectSeries(series, partition), true
}

// -----------------------------------------------------------------------------

// persistAlerts writes the combined alert batch through the sink with
// retries. Losing alerts silently is a correctness issue, so the final error
// is surfaced to the caller rather than swallowed.
func (s *Scanner) persistAlerts(alerts map[string][]models.MAnomalyAlert) (int, error) {
	var batch []models.MAnomalyAlert
	for _, list := range alerts {
		batch = append(batch, list...)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	persisted := 0
	err := helpers.RetryWithBackoff(s.Logger, "persist alerts", s.SinkRetries, s.RetryBaseDelay, func() error {
		n, saveErr := s.Sink.SaveAlerts(batch)
		persisted = n
		return saveErr
	})
	if err != nil {
		return persisted, &helpers.DatabaseError{ObserverError: helpers.ObserverError{
			Message: "alert persistence failed",
			Cause:   err,
		}}
	}
	return persisted, nil
}
