package indicator

// FakeControl records indicator state changes for test assertions.
type FakeControl struct {
	// Alert is the last state passed to SetAlert.
	Alert bool

	// Connectivity is the last state passed to SetConnectivity.
	Connectivity bool

	// Pulses counts TransmissionPulse calls.
	Pulses int

	// AlertChanges counts SetAlert calls.
	AlertChanges int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeControl creates a FakeControl.
func NewFakeControl() *FakeControl {
	return &FakeControl{}
}

// SetAlert records the alert state.
func (f *FakeControl) SetAlert(on bool) {
	f.Alert = on
	f.AlertChanges++
}

// SetConnectivity records the connectivity state.
func (f *FakeControl) SetConnectivity(on bool) {
	f.Connectivity = on
}

// TransmissionPulse counts the pulse.
func (f *FakeControl) TransmissionPulse() {
	f.Pulses++
}

// Close marks the control as closed.
func (f *FakeControl) Close() error {
	f.Closed = true
	return nil
}
