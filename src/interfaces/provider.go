package interfaces

import "enrollment-observer/src/models"

// -----------------------------------------------------------------------------
// IMetricProvider supplies ordered time series from the warehouse.
// -----------------------------------------------------------------------------

type IMetricProvider interface {

	// FetchSeries returns the last lookbackDays of daily points for one
	// partition, ascending by date, with extra history beyond lookbackDays
	// for detector warm-up. Undefined (NULL) values are excluded. An empty
	// series is a legal result.
	FetchSeries(partition models.MPartition, lookbackDays int) ([]models.MMetricPoint, error)

	// -----------------------------------------------------------------------------

	// ListPartitions returns every distinct (state, district) pair with data.
	ListPartitions() ([]models.MPartition, error)
}
