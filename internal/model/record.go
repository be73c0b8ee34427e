// Package model defines the data types shared across the vitals pipeline.
package model

// Record is one timestamped sensor sample plus its delivery status.
// A Record is immutable once constructed except for Sent, which
// transitions false -> true exactly once and never reverts.
type Record struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	HeartRate   int     `json:"heartRate"`
	// Timestamp is milliseconds since boot. The device has no reliable
	// wall clock; the collector anchors samples using its own receive time.
	Timestamp int64 `json:"timestamp"`
	Sent      bool  `json:"sent"`
}
