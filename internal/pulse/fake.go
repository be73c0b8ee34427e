package pulse

import "time"

// FakeSource is a test double that delivers pulses on demand.
type FakeSource struct {
	// Started tracks if Start was called.
	Started bool

	// Closed tracks if Close was called.
	Closed bool

	// StartError, if set, will be returned by Start.
	StartError error

	handler Handler
}

// NewFakeSource creates a FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// Start stores the handler for later Emit calls.
func (f *FakeSource) Start(h Handler) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.Started = true
	f.handler = h
	return nil
}

// Emit delivers one pulse at the given time to the registered handler.
func (f *FakeSource) Emit(now time.Time) {
	if f.handler != nil {
		f.handler(now)
	}
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
