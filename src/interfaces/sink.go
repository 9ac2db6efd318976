package interfaces

import "enrollment-observer/src/models"

// -----------------------------------------------------------------------------
// IAlertSink persists validated anomalies.
// -----------------------------------------------------------------------------

type IAlertSink interface {

	// SaveAlerts inserts a batch of alerts and returns the number persisted.
	// An empty batch is a no-op returning (0, nil).
	SaveAlerts(alerts []models.MAnomalyAlert) (int, error)
}
