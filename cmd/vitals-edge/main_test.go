package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tansey/vitals-edge/internal/alert"
	"github.com/tansey/vitals-edge/internal/buffer"
	"github.com/tansey/vitals-edge/internal/heartrate"
	"github.com/tansey/vitals-edge/internal/indicator"
	"github.com/tansey/vitals-edge/internal/publish"
	"github.com/tansey/vitals-edge/internal/pulse"
	"github.com/tansey/vitals-edge/internal/sensor"
	"github.com/tansey/vitals-edge/internal/status"
	"github.com/tansey/vitals-edge/internal/store"
	"github.com/tansey/vitals-edge/internal/syncer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// switchStatus is a link state the test can flip while the loop runs.
type switchStatus struct{ up atomic.Bool }

func (s *switchStatus) IsAvailable() bool { return s.up.Load() }

type harness struct {
	clock   *fakeClock
	sensors *sensor.FakeSource
	pulses  *pulse.FakeSource
	est     *heartrate.Estimator
	buf     *buffer.Buffer
	store   *store.Log
	pub     *publish.FakePublisher
	conn    *switchStatus
	ind     *indicator.FakeControl
	tracker *status.Tracker
	sync    *syncer.Syncer

	tick chan time.Time
	sig  chan os.Signal
	done chan error
}

type harnessOpts struct {
	sample       time.Duration
	syncInterval time.Duration
	heartbeat    time.Duration
	hrWindow     time.Duration
	linkUp       bool
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()
	logger := zap.NewNop()

	if o.sample == 0 {
		o.sample = time.Second
	}
	if o.syncInterval == 0 {
		o.syncInterval = time.Second
	}
	if o.hrWindow == 0 {
		o.hrWindow = heartrate.DefaultWindow
	}

	h := &harness{
		clock: newFakeClock(),
		sensors: sensor.NewFakeSource([]sensor.Sample{
			{Temp: 36.5, Hum: 45},
		}),
		pulses:  pulse.NewFakeSource(),
		est:     heartrate.New(heartrate.DefaultRefractory, o.hrWindow),
		buf:     buffer.New(100),
		store:   store.New(filepath.Join(t.TempDir(), "records.log"), logger),
		pub:     publish.NewFakePublisher(),
		conn:    &switchStatus{},
		ind:     indicator.NewFakeControl(),
		tick:    make(chan time.Time),
		sig:     make(chan os.Signal, 1),
		done:    make(chan error, 1),
	}
	h.conn.up.Store(o.linkUp)
	h.sync = syncer.New(h.buf, h.store, h.pub, h.conn, o.syncInterval, logger)
	h.tracker = status.NewTracker(h.clock.Now(), "boot-test", status.Config{DeviceID: "test-device"})

	if err := h.pulses.Start(h.est.RecordBeat); err != nil {
		t.Fatalf("start pulses: %v", err)
	}

	d := loopDeps{
		log:        logger,
		sensors:    h.sensors,
		est:        h.est,
		buf:        h.buf,
		store:      h.store,
		pub:        h.pub,
		conn:       h.conn,
		sync:       h.sync,
		ind:        h.ind,
		tracker:    h.tracker,
		thresholds: alert.DefaultThresholds(),
		sample:     o.sample,
		heartbeat:  o.heartbeat,
	}
	go func() {
		h.done <- runLoop(d, h.clock.Now, h.tick, h.sig)
	}()
	return h
}

// step advances the clock and delivers one tick.
func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.tick <- h.clock.Now()
}

// stop signals shutdown and waits for the loop to exit. All assertions on
// shared state happen after this returns.
func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.sig <- syscall.SIGTERM
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not exit")
	}
}

func TestSampleIsPublishedImmediatelyWhenOnline(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})

	h.step(time.Second)
	h.stop(t)

	if len(h.pub.Records) != 1 {
		t.Fatalf("expected 1 published record, got %d", len(h.pub.Records))
	}
	rec := h.pub.Records[0]
	if rec.Temperature != 36.5 || rec.Humidity != 45 {
		t.Errorf("unexpected sample values: %+v", rec)
	}
	if rec.Timestamp != 1000 {
		t.Errorf("expected timestamp 1000ms since start, got %d", rec.Timestamp)
	}
	if h.ind.Pulses != 1 {
		t.Errorf("expected 1 transmission pulse, got %d", h.ind.Pulses)
	}

	// The delivered record drains straight through: buffer reset and the
	// durable log cleared on the same tick.
	if h.buf.TotalStored() != 0 {
		t.Errorf("expected empty buffer after drain, got %d", h.buf.TotalStored())
	}
	unsent, err := h.store.LoadUnsent(100)
	if err != nil {
		t.Fatalf("load unsent: %v", err)
	}
	if len(unsent) != 0 {
		t.Errorf("expected cleared log, got %d records", len(unsent))
	}
}

func TestOfflineSamplesAccumulate(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: false})

	for i := 0; i < 3; i++ {
		h.step(time.Second)
	}
	h.stop(t)

	if len(h.pub.Records) != 0 {
		t.Errorf("expected no publishes while offline, got %d", len(h.pub.Records))
	}
	if h.buf.TotalStored() != 3 {
		t.Fatalf("expected 3 buffered records, got %d", h.buf.TotalStored())
	}
	for i := 0; i < 3; i++ {
		rec, _ := h.buf.At(i)
		if rec.Sent {
			t.Errorf("record %d must not be marked sent while offline", i)
		}
	}
	unsent, err := h.store.LoadUnsent(100)
	if err != nil {
		t.Fatalf("load unsent: %v", err)
	}
	if len(unsent) != 3 {
		t.Errorf("expected 3 durable records, got %d", len(unsent))
	}
	if h.ind.Connectivity {
		t.Error("connectivity indicator should be off")
	}
}

func TestBacklogDrainsInOrderWhenLinkReturns(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: false})

	for i := 0; i < 3; i++ {
		h.step(time.Second)
	}

	h.conn.up.Store(true)
	// Fresh samples keep arriving on the immediate path while the
	// scheduler drains the backlog one record per sync slot.
	for i := 0; i < 7; i++ {
		h.step(time.Second)
	}
	h.stop(t)

	if len(h.pub.Records) < 3 {
		t.Fatalf("expected backlog drained, got %d publishes", len(h.pub.Records))
	}
	// The backlog goes out oldest first, interleaved with at most the
	// fresh immediate-path samples that arrived after the link returned.
	var backlog []int64
	for _, rec := range h.pub.Records {
		if rec.Timestamp <= 3000 {
			backlog = append(backlog, rec.Timestamp)
		}
	}
	want := []int64{1000, 2000, 3000}
	if len(backlog) != len(want) {
		t.Fatalf("expected 3 backlog publishes, got %d", len(backlog))
	}
	for i := range want {
		if backlog[i] != want[i] {
			t.Errorf("backlog[%d]: expected timestamp %d, got %d", i, want[i], backlog[i])
		}
	}
	if h.ind.Connectivity != true {
		t.Error("connectivity indicator should be on")
	}
}

func TestImmediatePublishFailureQueuesRecord(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})
	h.pub.PublishError = errors.New("broker rejected")

	h.step(time.Second)
	h.stop(t)

	if h.buf.TotalStored() != 1 {
		t.Fatalf("expected 1 queued record, got %d", h.buf.TotalStored())
	}
	rec, _ := h.buf.At(0)
	if rec.Sent {
		t.Error("failed record must stay unsent")
	}
	snap := h.tracker.Snapshot()
	if snap.Counts.PublishFailures == 0 {
		t.Error("expected publish failure counted")
	}
	if h.ind.Pulses != 0 {
		t.Errorf("expected no transmission pulse, got %d", h.ind.Pulses)
	}
}

func TestSensorErrorSkipsCycle(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})
	h.sensors.ReadError = errors.New("probe disconnected")

	h.step(time.Second)
	h.step(time.Second)
	h.stop(t)

	if h.buf.TotalStored() != 0 {
		t.Errorf("expected no records from failed reads, got %d", h.buf.TotalStored())
	}
	snap := h.tracker.Snapshot()
	if snap.Counts.SkippedReads != 2 {
		t.Errorf("expected 2 skipped reads, got %d", snap.Counts.SkippedReads)
	}
	if snap.Counts.Samples != 0 {
		t.Errorf("expected 0 samples, got %d", snap.Counts.Samples)
	}
}

func TestNaNReadingSkipsCycle(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})
	h.sensors.Samples = []sensor.Sample{{Temp: math.NaN(), Hum: 45}}

	h.step(time.Second)
	h.stop(t)

	if h.buf.TotalStored() != 0 {
		t.Errorf("expected NaN reading dropped, got %d records", h.buf.TotalStored())
	}
	snap := h.tracker.Snapshot()
	if snap.Counts.SkippedReads != 1 {
		t.Errorf("expected 1 skipped read, got %d", snap.Counts.SkippedReads)
	}
}

func TestCriticalTemperatureRaisesAlert(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})
	h.sensors.Samples = []sensor.Sample{{Temp: 39.0, Hum: 45}}

	h.step(time.Second)
	h.stop(t)

	if !h.ind.Alert {
		t.Error("expected alert indicator on for critical temperature")
	}
	snap := h.tracker.Snapshot()
	if snap.Vitals.Alert != "CRITICAL" {
		t.Errorf("expected CRITICAL alert, got %s", snap.Vitals.Alert)
	}
}

func TestHeartRateFlowsIntoRecords(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true, sample: time.Minute, hrWindow: time.Minute})

	// 10 beats over the minute, then a tick at the window boundary: the
	// window closes and the same tick samples with the fresh rate.
	for i := 0; i < 10; i++ {
		h.pulses.Emit(h.clock.Now().Add(time.Duration(i) * 6 * time.Second))
	}
	h.step(time.Minute)
	h.stop(t)

	if len(h.pub.Records) != 1 {
		t.Fatalf("expected 1 published record, got %d", len(h.pub.Records))
	}
	if h.pub.Records[0].HeartRate != 10 {
		t.Errorf("expected heart rate 10, got %d", h.pub.Records[0].HeartRate)
	}
}

func TestHeartbeatEvent(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true, heartbeat: 3 * time.Second})
	h.sensors.ReadError = errors.New("quiet")

	for i := 0; i < 3; i++ {
		h.step(time.Second)
	}
	h.stop(t)

	var heartbeats int
	for _, ev := range h.pub.SystemEvents {
		if ev.Event == "HEARTBEAT" {
			heartbeats++
			if ev.RawPayload == nil {
				t.Error("heartbeat must carry a status snapshot")
			}
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 heartbeat, got %d", heartbeats)
	}
}

func TestShutdownPublishesEvent(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: true})

	h.step(time.Second)
	h.stop(t)

	var shutdown *publish.SystemEvent
	for i := range h.pub.SystemEvents {
		if h.pub.SystemEvents[i].Event == "SHUTDOWN" {
			shutdown = &h.pub.SystemEvents[i]
		}
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown event")
	}
	if shutdown.Reason != "SIGTERM" {
		t.Errorf("expected reason SIGTERM, got %s", shutdown.Reason)
	}
	if !shutdown.Retained {
		t.Error("shutdown event should be retained")
	}
	if !strings.Contains(string(shutdown.RawPayload), `"event":"SHUTDOWN"`) {
		t.Errorf("shutdown payload missing event field: %s", shutdown.RawPayload)
	}
}

func TestDrainedRecordPulsesIndicator(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: false})

	h.step(time.Second)
	h.conn.up.Store(true)
	h.step(time.Second)
	h.stop(t)

	// Tick two delivers the fresh sample immediately and drains the
	// buffered one, each with its own transmission pulse.
	if len(h.pub.Records) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(h.pub.Records))
	}
	var sawBacklog bool
	for _, rec := range h.pub.Records {
		if rec.Timestamp == 1000 {
			sawBacklog = true
		}
	}
	if !sawBacklog {
		t.Error("expected the buffered record among the publishes")
	}
	if h.ind.Pulses != 2 {
		t.Errorf("expected 2 transmission pulses, got %d", h.ind.Pulses)
	}
}

func TestTrackerReflectsPipeline(t *testing.T) {
	h := newHarness(t, harnessOpts{linkUp: false})

	h.step(time.Second)
	h.step(time.Second)
	h.stop(t)

	snap := h.tracker.Snapshot()
	if snap.Pipeline.TotalStored != 2 {
		t.Errorf("expected 2 stored, got %d", snap.Pipeline.TotalStored)
	}
	if snap.Pipeline.Pending != 2 {
		t.Errorf("expected 2 pending, got %d", snap.Pipeline.Pending)
	}
	if snap.Vitals.Temperature != 36.5 {
		t.Errorf("expected latest temperature tracked, got %f", snap.Vitals.Temperature)
	}
	if snap.Counts.Samples != 2 {
		t.Errorf("expected 2 samples, got %d", snap.Counts.Samples)
	}
}
