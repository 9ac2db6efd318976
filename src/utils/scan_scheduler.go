package utils

import (
	"context"
	"time"

	"enrollment-observer/src/logger"
)

// -----------------------------------------------------------------------------
// ScanScheduler fires one scan trigger per operating day at the configured
// UTC hour.
// -----------------------------------------------------------------------------

type ScanScheduler struct {
	Calendar *OperatingCalendar
	HourUTC  int
	Logger   *logger.Logger

	lastRunDay string
}

// -----------------------------------------------------------------------------

func NewScanScheduler(cal *OperatingCalendar, hourUTC int, log *logger.Logger) *ScanScheduler {
	return &ScanScheduler{
		Calendar: cal,
		HourUTC:  hourUTC,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// Run pushes to trigger once per due day until the context is cancelled.
// The check interval is coarse because scans are daily.
func (s *ScanScheduler) Run(ctx context.Context, trigger chan<- struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			if !s.due(now.UTC()) {
				continue
			}
			s.lastRunDay = now.UTC().Format("2006-01-02")
			s.Logger.Info("Scheduled scan due")

			select {
			case trigger <- struct{}{}:
			default:
				// A scan is already queued; the daily run is not lost,
				// it is the one in flight.
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *ScanScheduler) due(now time.Time) bool {
	if now.Hour() != s.HourUTC {
		return false
	}
	if s.lastRunDay == now.Format("2006-01-02") {
		return false
	}
	return s.Calendar.IsOperatingDay(now)
}
