package interfaces

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations. The warehouse is
// both the metric provider and the alert sink.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	IMetricProvider

	IAlertSink

	// -----------------------------------------------------------------------------

	// CleanupOldAlerts removes alerts older than the retention policy.
	CleanupOldAlerts() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
