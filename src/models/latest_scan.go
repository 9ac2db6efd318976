package models

// -----------------------------------------------------------------------------
// Server state structure
// -----------------------------------------------------------------------------

type MLatestScan struct {
	Type        string                     `json:"type"` // "INITIAL" or "UPDATE"
	Alerts      map[string][]MAnomalyAlert `json:"alerts"` // keyed by partition key
	Timestamp   int64                      `json:"timestamp"`
	ScanMetrics MScanMetrics               `json:"scan_metrics"`
}

// -----------------------------------------------------------------------------

// MScanMetrics summarizes one full multi-partition scan.
type MScanMetrics struct {
	ScanTimeSeconds   float64 `json:"scan_time_seconds"`
	PartitionsScanned int     `json:"partitions_scanned"`
	PartitionsSkipped int     `json:"partitions_skipped"`
	AlertsFound       int     `json:"alerts_found"`
	AlertsPersisted   int     `json:"alerts_persisted"`
}

// -----------------------------------------------------------------------------
// MSubscribeCommand for websocket client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	States  []string `json:"states"`
}
