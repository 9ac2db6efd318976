package utils

// -----------------------------------------------------------------------------

// Cache sizing for daily series: one point per day plus the detector
// warm-up buffer.
const (
	DefaultCacheMemoryMB = 256
	WarmupBufferDays     = 60
)

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints returns the cache capacity for a given lookback.
func CalculateMaxDataPoints(lookbackDays int) int {
	return lookbackDays + WarmupBufferDays
}
