package interfaces

import "enrollment-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing scan results with
// external listeners (REST/WebSocket server).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// Broadcast pushes a completed scan to connected listeners.
	Broadcast(scan *models.MLatestScan)

	// -----------------------------------------------------------------------------
	// UpdateLatestScan updates the internal state without broadcasting.
	UpdateLatestScan(scan *models.MLatestScan)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
