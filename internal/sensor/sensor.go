// Package sensor provides temperature/humidity acquisition with
// abstraction for testing. Driver access to a physical sensor is a
// separate concern; this package defines the boundary and ships a
// simulator.
package sensor

// Source reads one temperature/humidity sample per call.
type Source interface {
	// ReadTemperatureHumidity returns degrees Celsius and percent
	// relative humidity. A read error means this sample cycle is skipped;
	// it never terminates the loop.
	ReadTemperatureHumidity() (float64, float64, error)
}
