package models

import (
	"fmt"
	"time"
)

// MMetricPoint is one day of an enrollment volume series.
type MMetricPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// -----------------------------------------------------------------------------

// MPartition identifies one independent time series (state, district).
type MPartition struct {
	State    string `json:"state"`
	District string `json:"district"`
}

// -----------------------------------------------------------------------------

// Key returns a stable map/cache key for the partition.
func (p MPartition) Key() string {
	return fmt.Sprintf("%s|%s", p.State, p.District)
}

// -----------------------------------------------------------------------------

// String is used for log lines.
func (p MPartition) String() string {
	return fmt.Sprintf("%s/%s", p.State, p.District)
}
