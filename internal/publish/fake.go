package publish

import (
	"github.com/tansey/vitals-edge/internal/model"
)

// FakePublisher records published records for test assertions.
type FakePublisher struct {
	// Records contains all vitals records that were published.
	Records []model.Record

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Available controls the return value of IsAvailable.
	Available bool

	// Closed tracks if Close was called.
	Closed bool

	// DeviceID is stamped on formatted payloads.
	DeviceID string
}

// NewFakePublisher creates a FakePublisher that reports the link as up.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Available: true, DeviceID: "test-device"}
}

// Publish records the vitals record.
func (f *FakePublisher) Publish(rec model.Record) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Records = append(f.Records, rec)

	payload, err := FormatPayload(f.DeviceID, rec)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// IsAvailable reports the configured link state.
func (f *FakePublisher) IsAvailable() bool {
	return f.Available
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakePublisher) Reset() {
	f.Records = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Available = true
	f.Closed = false
}
