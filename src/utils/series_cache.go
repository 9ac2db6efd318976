package utils

import (
	"runtime"
	"runtime/debug"
	"sync"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
)

// -----------------------------------------------------------------------------
// SeriesCache holds the most recently fetched series per partition so the
// API can serve charts without a warehouse round trip per request.
// -----------------------------------------------------------------------------

type SeriesCache struct {
	Buffers       map[string]*RingBuffer
	MaxMemoryMB   int
	MaxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewSeriesCache(maxMemoryMB, maxDataPoints int, log *logger.Logger) *SeriesCache {
	return &SeriesCache{
		Buffers:       make(map[string]*RingBuffer),
		MaxMemoryMB:   maxMemoryMB,
		MaxDataPoints: maxDataPoints,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

// PutSeries replaces the cached series for a partition with a fresh fetch.
func (sc *SeriesCache) PutSeries(partition models.MPartition, series []models.MMetricPoint) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	buffer, ok := sc.Buffers[partition.Key()]
	if !ok {
		buffer = NewRingBuffer(sc.MaxDataPoints)
		sc.Buffers[partition.Key()] = buffer
	}

	buffer.Clear()
	for _, p := range series {
		buffer.Append(p)
	}

	sc.checkMemoryLimits()
}

// -----------------------------------------------------------------------------

// GetSeries returns the cached series for a partition, oldest first, or nil
// when nothing has been cached yet.
func (sc *SeriesCache) GetSeries(partition models.MPartition) []models.MMetricPoint {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	buffer, ok := sc.Buffers[partition.Key()]
	if !ok || buffer.Size() == 0 {
		return nil
	}
	return buffer.GetAll()
}

// -----------------------------------------------------------------------------

// PartitionCount returns the number of partitions with cached data.
func (sc *SeriesCache) PartitionCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return len(sc.Buffers)
}

// -----------------------------------------------------------------------------

// checkMemoryLimits halves buffer capacities when the heap grows past the
// configured bound. Caller must hold the write lock.
func (sc *SeriesCache) checkMemoryLimits() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	currentMemory := float64(m.HeapAlloc) / 1024 / 1024

	if currentMemory <= float64(sc.MaxMemoryMB) {
		return
	}

	sc.Logger.Info("Cache memory %.1fMB exceeds limit %dMB. Shrinking buffers.",
		currentMemory, sc.MaxMemoryMB)

	for _, buffer := range sc.Buffers {
		if buffer.Capacity() > 60 {
			newCapacity := buffer.Capacity() / 2
			if newCapacity < 60 {
				newCapacity = 60
			}
			buffer.Resize(newCapacity)
		}
	}

	runtime.GC()
	debug.FreeOSMemory()
}
