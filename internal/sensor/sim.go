package sensor

import (
	"math/rand"
	"sync"
)

// SimSource produces a bounded random walk around a baseline, for running
// the daemon without a sensor attached.
type SimSource struct {
	mu   sync.Mutex
	temp float64
	hum  float64
	rng  *rand.Rand
}

// NewSimSource creates a simulator starting at the given baseline.
func NewSimSource(temp, hum float64, seed int64) *SimSource {
	return &SimSource{
		temp: temp,
		hum:  hum,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// ReadTemperatureHumidity steps the walk and returns the new values.
func (s *SimSource) ReadTemperatureHumidity() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp += (s.rng.Float64() - 0.5) * 0.2
	s.hum += (s.rng.Float64() - 0.5) * 0.6
	s.hum = clamp(s.hum, 0, 100)
	return s.temp, s.hum, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
