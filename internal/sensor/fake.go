package sensor

import "errors"

var errNoSamples = errors.New("no samples configured")

// Sample is one scripted temperature/humidity reading.
type Sample struct {
	Temp float64
	Hum  float64
}

// FakeSource is a test double that returns scripted samples.
type FakeSource struct {
	// Samples contains scripted readings. Each call to
	// ReadTemperatureHumidity consumes the next sample; when exhausted,
	// the last sample is returned repeatedly.
	Samples []Sample

	// ReadError, if set, will be returned by ReadTemperatureHumidity.
	ReadError error

	// Reads counts how many times the source was read.
	Reads int

	index int
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples []Sample) *FakeSource {
	return &FakeSource{Samples: samples}
}

// ReadTemperatureHumidity returns the next scripted sample.
func (f *FakeSource) ReadTemperatureHumidity() (float64, float64, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, 0, errNoSamples
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.Temp, sample.Hum, nil
}

// Reset rewinds the source to the first sample.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Reads = 0
}
