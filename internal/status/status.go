// Package status provides a thread-safe status tracker for the
// vitals-edge daemon. It is read by the HTTP handlers and formatted into
// the system telemetry events.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	SampleMs   int64
	SyncMs     int64
	HRWindowMs int64
	Capacity   int
	Sink       string
	Collector  string
	LogPath    string
	HTTPAddr   string
	DeviceID   string
}

// Vitals is the most recent sample and its alert outcome.
type Vitals struct {
	Temperature float64
	Humidity    float64
	HeartRate   int
	Alert       string
}

// Pipeline describes the buffering and drain state.
type Pipeline struct {
	Pending     int
	TotalStored int
	SyncIndex   int
	State       string
}

// Counts tracks pipeline activity since startup.
type Counts struct {
	Samples         int
	Published       int
	PublishFailures int
	SkippedReads    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Vitals    Vitals
	Pipeline  Pipeline
	Counts    Counts
	LinkUp    bool
	BootID    string
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, boot id and
// config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			BootID:    bootID,
			Config:    cfg,
		},
	}
}

// Update sets the vitals, pipeline state and counts. Called from the poll
// loop on every tick.
func (t *Tracker) Update(v Vitals, p Pipeline, c Counts) {
	t.mu.Lock()
	t.snap.Vitals = v
	t.snap.Pipeline = p
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetLinkUp sets the collector link state.
func (t *Tracker) SetLinkUp(up bool) {
	t.mu.Lock()
	t.snap.LinkUp = up
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The Now
// field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
