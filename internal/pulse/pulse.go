// Package pulse captures discrete heartbeat pulse events with hardware
// abstraction. The real implementation subscribes to GPIO rising-edge
// events; the sim implementation synthesizes a steady pulse train; the
// fake allows scripted tests.
package pulse

import "time"

// Handler receives the time of each pulse edge. It is invoked from the
// capture goroutine, not the poll loop, so it must be safe to call
// concurrently with the loop (the heart-rate estimator is).
type Handler func(now time.Time)

// Source delivers pulse events to a Handler until closed.
type Source interface {
	// Start begins delivering events to h.
	Start(h Handler) error

	// Close stops event delivery and releases resources.
	Close() error
}

// DefaultPin is the BCM pin for the pulse sensor's digital output.
const DefaultPin = 17
