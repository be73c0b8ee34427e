// Package indicator drives the device status LEDs with hardware
// abstraction: an alert LED, a connectivity LED, and a transmission pulse.
package indicator

// Control sets the device indicators. Methods never fail from the
// caller's perspective; hardware errors are logged by the implementation.
type Control interface {
	// SetAlert turns the alert LED on or off.
	SetAlert(on bool)

	// SetConnectivity turns the connectivity LED on or off.
	SetConnectivity(on bool)

	// TransmissionPulse blinks the transmission LED once.
	TransmissionPulse()

	// Close releases indicator resources.
	Close() error
}

// Pin definitions (BCM numbering).
const (
	DefaultPinAlert = 23
	DefaultPinConn  = 24
	DefaultPinTx    = 25
)

// Nop is a Control that does nothing, for deployments without LEDs.
type Nop struct{}

// SetAlert does nothing.
func (Nop) SetAlert(bool) {}

// SetConnectivity does nothing.
func (Nop) SetConnectivity(bool) {}

// TransmissionPulse does nothing.
func (Nop) TransmissionPulse() {}

// Close does nothing.
func (Nop) Close() error { return nil }
