// Package heartrate converts discrete beat events into a windowed
// beats-per-minute figure.
package heartrate

import (
	"sync"
	"time"
)

// Default tuning. The refractory period suppresses mechanical and
// electrical bounce on the pulse input; the window is how much signal is
// accumulated before a rate is produced.
const (
	DefaultRefractory = 200 * time.Millisecond
	DefaultWindow     = 60 * time.Second
)

// Estimator counts debounced beat events over a rolling window.
//
// RecordBeat is called from the pulse capture goroutine while the poll
// loop calls Tick; a mutex guards the shared window state so a beat can
// never race a window reset.
type Estimator struct {
	mu         sync.Mutex
	refractory time.Duration
	window     time.Duration

	eventCount  int
	windowStart time.Time // zero value = no window open
	lastBeat    time.Time
}

// New creates an Estimator with the given refractory period and window
// duration. A non-positive window falls back to the default: the window
// must be strictly positive or the rate computation has no elapsed time
// to divide by.
func New(refractory, window time.Duration) *Estimator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Estimator{
		refractory: refractory,
		window:     window,
	}
}

// RecordBeat registers one beat event. A beat closer than the refractory
// period to the previously accepted beat is dropped as bounce. The first
// accepted beat of a new window latches the window start.
func (e *Estimator) RecordBeat(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastBeat.IsZero() && now.Sub(e.lastBeat) < e.refractory {
		return
	}
	e.lastBeat = now

	if e.windowStart.IsZero() {
		e.windowStart = now
	}
	e.eventCount++
}

// Tick closes the window if it has run at least its full duration,
// returning the computed rate and resetting for the next window. The
// elapsed time is normalized to a per-minute rate with integer division.
//
// A window only opens on an accepted beat, so a beat-less stretch never
// closes a window and the elapsed time here is never zero. Tick must be
// called on every scheduler pass regardless of beat activity.
func (e *Estimator) Tick(now time.Time) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.windowStart.IsZero() {
		return 0, false
	}
	elapsed := now.Sub(e.windowStart)
	if elapsed < e.window {
		return 0, false
	}

	bpm := int(int64(e.eventCount) * 60000 / elapsed.Milliseconds())
	e.eventCount = 0
	e.windowStart = time.Time{}
	return bpm, true
}
