package models

// Ring buffer feature layout for cached metric points.
const (
	RB_NUM_FEATURES  = 2
	RB_IDX_TIMESTAMP = 0
	RB_IDX_VALUE     = 1
)
