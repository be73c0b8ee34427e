package pulse

import (
	"sync"
	"time"
)

// SimSource synthesizes a steady pulse train at a configured rate, for
// running the daemon without a pulse sensor attached.
type SimSource struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewSimSource creates a source emitting bpm pulses per minute.
func NewSimSource(bpm int) *SimSource {
	if bpm <= 0 {
		bpm = 72
	}
	return &SimSource{
		interval: time.Minute / time.Duration(bpm),
	}
}

// Start launches the pulse goroutine.
func (s *SimSource) Start(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	stop := s.stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				h(t)
			}
		}
	}()
	return nil
}

// Close stops the pulse goroutine.
func (s *SimSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}
