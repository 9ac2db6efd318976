package utils

import (
	"time"

	"enrollment-observer/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of metric points.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 365 // Default: one year of daily points
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a metric point, overwriting the oldest entry when full.
func (rb *RingBuffer) Append(point models.MMetricPoint) {
	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(point.Date.Unix()),
		point.Value,
	}

	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent points, oldest first.
func (rb *RingBuffer) GetLatest(n int) []models.MMetricPoint {
	if rb.size == 0 || n <= 0 {
		return []models.MMetricPoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MMetricPoint, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		row := rb.data[idx]

		result[i] = models.MMetricPoint{
			Date:  time.Unix(int64(row[models.RB_IDX_TIMESTAMP]), 0).UTC(),
			Value: row[models.RB_IDX_VALUE],
		}
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MMetricPoint {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity of the buffer. When shrinking, only the
// newest entries survive.
func (rb *RingBuffer) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == rb.capacity {
		return
	}

	newData := make([][models.RB_NUM_FEATURES]float64, newCapacity)

	count := rb.size
	if count > newCapacity {
		count = newCapacity
	}

	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		newData[i] = rb.data[idx]
	}

	rb.data = newData
	rb.capacity = newCapacity
	rb.size = count
	rb.index = count % newCapacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
