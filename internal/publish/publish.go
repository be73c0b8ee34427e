// Package publish provides record delivery to the collector with
// abstraction for testing. The pipeline core only depends on the Publisher
// and Status interfaces; the MQTT, HTTP and Kafka sinks are interchangeable
// adapters behind them.
package publish

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tansey/vitals-edge/internal/model"
)

var errSinkDisabled = errors.New("publish: sink disabled")

// Topic is the channel for vitals records.
const Topic = "vitals/edge/records"

// TopicSystem is the channel for system lifecycle events.
const TopicSystem = "vitals/edge/system"

// Publisher delivers records to the collector. A nil error means the
// record was accepted and may be marked sent.
type Publisher interface {
	// Publish sends one vitals record. Failure is non-fatal; the caller
	// retries via the sync scheduler.
	Publish(rec model.Record) error

	// PublishSystem sends a system lifecycle event (e.g. STARTUP,
	// SHUTDOWN, HEARTBEAT).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the collector.
	Close() error
}

// Status reports whether the collector link is currently usable. The sync
// scheduler consults it before every attempt.
type Status interface {
	IsAvailable() bool
}

// StaticStatus is a Status fixed at construction, used in simulation and
// record-only deployments.
type StaticStatus bool

// IsAvailable returns the fixed value.
func (s StaticStatus) IsAvailable() bool { return bool(s) }

// SystemEvent represents a system lifecycle event.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool   // broker-retained where the transport supports it
}

// Payload is the wire envelope for a vitals record.
type Payload struct {
	Vitals VitalsPayload `json:"vitals"`
}

// VitalsPayload contains the record details.
type VitalsPayload struct {
	DeviceID    string  `json:"device_id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	HeartRate   int     `json:"heart_rate"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// FormatPayload creates the JSON payload for a vitals record.
func FormatPayload(deviceID string, rec model.Record) ([]byte, error) {
	payload := Payload{
		Vitals: VitalsPayload{
			DeviceID:    deviceID,
			Temperature: rec.Temperature,
			Humidity:    rec.Humidity,
			HeartRate:   rec.HeartRate,
			TimestampMs: rec.Timestamp,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the wire envelope for simple system events that do not
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event. If
// event.RawPayload is set it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(deviceID string, event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			DeviceID:  deviceID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is a Publisher that accepts nothing and a Status that is never
// available. Used for record-only deployments: samples accumulate in the
// buffer and log until a real sink is configured.
type Discard struct{}

// Publish reports the sink as unavailable.
func (Discard) Publish(model.Record) error { return errSinkDisabled }

// PublishSystem drops the event.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close is a no-op.
func (Discard) Close() error { return nil }

// IsAvailable always reports false, so the sync scheduler never drains.
func (Discard) IsAvailable() bool { return false }
