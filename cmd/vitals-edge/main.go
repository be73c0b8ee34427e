// Command vitals-edge samples environmental and biometric sensors,
// buffers readings across connectivity loss and power cycles, and forwards
// them to a remote collector while raising threshold alerts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tansey/vitals-edge/internal/alert"
	"github.com/tansey/vitals-edge/internal/buffer"
	"github.com/tansey/vitals-edge/internal/heartrate"
	"github.com/tansey/vitals-edge/internal/indicator"
	"github.com/tansey/vitals-edge/internal/logging"
	"github.com/tansey/vitals-edge/internal/model"
	"github.com/tansey/vitals-edge/internal/publish"
	"github.com/tansey/vitals-edge/internal/pulse"
	"github.com/tansey/vitals-edge/internal/sensor"
	"github.com/tansey/vitals-edge/internal/status"
	"github.com/tansey/vitals-edge/internal/store"
	"github.com/tansey/vitals-edge/internal/syncer"
	"github.com/tansey/vitals-edge/internal/web"
)

type options struct {
	poll         time.Duration
	sample       time.Duration
	refractory   time.Duration
	hrWindow     time.Duration
	syncInterval time.Duration
	heartbeat    time.Duration
	capacity     int
	logFile      string
	sink         string
	broker       string
	collector    string
	kafkaBrokers string
	deviceID     string
	httpAddr     string
	sim          bool
	simBPM       int
	printState   bool
	leds         bool
	pinPulse     int
	pinAlert     int
	pinConn      int
	pinTx        int
	thresholds   alert.Thresholds
	logLevel     string
	logFormat    string
}

func parseFlags() options {
	var o options
	flag.DurationVar(&o.poll, "poll", 250*time.Millisecond, "Main loop tick interval")
	flag.DurationVar(&o.sample, "sample", 5*time.Second, "Sensor sampling interval")
	flag.DurationVar(&o.refractory, "refractory", heartrate.DefaultRefractory, "Minimum spacing between accepted beats")
	flag.DurationVar(&o.hrWindow, "hr-window", heartrate.DefaultWindow, "Heart rate measurement window")
	flag.DurationVar(&o.syncInterval, "sync-interval", syncer.DefaultInterval, "Minimum spacing between drain attempts")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&o.capacity, "capacity", 1000, "Record buffer capacity")
	flag.StringVar(&o.logFile, "log-file", "vitals-records.log", "Durable record log path")
	flag.StringVar(&o.sink, "sink", "mqtt", "Collector sink: mqtt, http, kafka, or none")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.collector, "collector", "http://localhost:8000", "Collector base URL (http sink)")
	flag.StringVar(&o.kafkaBrokers, "kafka-brokers", "localhost:9092", "Kafka broker addresses, comma separated (kafka sink)")
	flag.StringVar(&o.deviceID, "device-id", "", "Device identifier (default: generated)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.sim, "sim", false, "Run without GPIO hardware (simulated pulse train, no LEDs)")
	flag.IntVar(&o.simBPM, "sim-bpm", 72, "Simulated pulse rate")
	flag.BoolVar(&o.printState, "print-state", false, "Read one sensor sample, print it, and exit")
	flag.BoolVar(&o.leds, "leds", true, "Drive indicator LEDs")
	flag.IntVar(&o.pinPulse, "pin-pulse", pulse.DefaultPin, "BCM pin for the pulse sensor")
	flag.IntVar(&o.pinAlert, "pin-alert", indicator.DefaultPinAlert, "BCM pin for the alert LED")
	flag.IntVar(&o.pinConn, "pin-conn", indicator.DefaultPinConn, "BCM pin for the connectivity LED")
	flag.IntVar(&o.pinTx, "pin-tx", indicator.DefaultPinTx, "BCM pin for the transmission LED")
	flag.Float64Var(&o.thresholds.TempElevated, "temp-elevated", alert.DefaultThresholds().TempElevated, "Elevated temperature threshold")
	flag.Float64Var(&o.thresholds.TempCritical, "temp-critical", alert.DefaultThresholds().TempCritical, "Critical temperature threshold")
	flag.IntVar(&o.thresholds.HRElevated, "hr-elevated", alert.DefaultThresholds().HRElevated, "Elevated heart rate threshold")
	flag.IntVar(&o.thresholds.HRCritical, "hr-critical", alert.DefaultThresholds().HRCritical, "Critical heart rate threshold")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&o.logFormat, "log-format", "json", "Log format: json or console")
	flag.Parse()

	if o.deviceID == "" {
		o.deviceID = uuid.NewString()
	}
	return o
}

func main() {
	o := parseFlags()

	logger, err := logging.New(o.logLevel, o.logFormat, "vitals-edge")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(o, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(o options, logger *zap.Logger) error {
	sensors := newSensorSource()

	if o.printState {
		temp, hum, err := sensors.ReadTemperatureHumidity()
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Printf("temperature: %.2f°C, humidity: %.1f%%\n", temp, hum)
		return nil
	}

	pub, conn, err := newSink(o, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	ind, err := newIndicator(o, logger)
	if err != nil {
		return err
	}
	defer ind.Close()

	pulses, err := newPulseSource(o)
	if err != nil {
		return fmt.Errorf("init pulse source: %w", err)
	}
	defer pulses.Close()

	est := heartrate.New(o.refractory, o.hrWindow)
	if err := pulses.Start(est.RecordBeat); err != nil {
		return fmt.Errorf("start pulse capture: %w", err)
	}

	// Replay the durable log into the buffer before anything else runs,
	// so records from the previous session are first in line to drain.
	recLog := store.New(o.logFile, logger)
	buf := buffer.New(o.capacity)
	replayed, err := recLog.LoadUnsent(o.capacity)
	if err != nil {
		logger.Warn("record log replay failed, starting empty", zap.Error(err))
	}
	for _, rec := range replayed {
		buf.Store(rec)
	}
	if len(replayed) > 0 {
		logger.Info("replayed unsent records", zap.Int("count", len(replayed)))
	}

	sync := syncer.New(buf, recLog, pub, conn, o.syncInterval, logger)

	bootID := uuid.NewString()
	tracker := status.NewTracker(time.Now(), bootID, status.Config{
		SampleMs:   o.sample.Milliseconds(),
		SyncMs:     o.syncInterval.Milliseconds(),
		HRWindowMs: o.hrWindow.Milliseconds(),
		Capacity:   o.capacity,
		Sink:       o.sink,
		Collector:  collectorAddr(o),
		LogPath:    o.logFile,
		HTTPAddr:   o.httpAddr,
		DeviceID:   o.deviceID,
	})

	snap := tracker.Snapshot()
	startup := publish.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := pub.PublishSystem(startup); err != nil {
		logger.Warn("publish startup event failed", zap.Error(err))
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", zap.String("addr", o.httpAddr))
	}

	logger.Info("started",
		zap.String("device_id", o.deviceID),
		zap.String("boot_id", bootID),
		zap.String("sink", o.sink),
		zap.Duration("sample", o.sample),
		zap.Duration("sync_interval", o.syncInterval),
		zap.Int("capacity", o.capacity),
		zap.Int("replayed", len(replayed)))

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := loopDeps{
		log:        logger,
		sensors:    sensors,
		est:        est,
		buf:        buf,
		store:      recLog,
		pub:        pub,
		conn:       conn,
		sync:       sync,
		ind:        ind,
		tracker:    tracker,
		thresholds: o.thresholds,
		sample:     o.sample,
		heartbeat:  o.heartbeat,
	}
	return runLoop(d, time.Now, ticker.C, sigCh)
}

// loopDeps carries everything runLoop needs, so tests can substitute
// fakes for every collaborator.
type loopDeps struct {
	log        *zap.Logger
	sensors    sensor.Source
	est        *heartrate.Estimator
	buf        *buffer.Buffer
	store      *store.Log
	pub        publish.Publisher
	conn       publish.Status
	sync       *syncer.Syncer
	ind        indicator.Control
	tracker    *status.Tracker
	thresholds alert.Thresholds
	sample     time.Duration
	heartbeat  time.Duration
}

// runLoop is the single-threaded cooperative scheduler: each tick it runs
// the time-gated tasks in turn — heart-rate window check, sensor sample,
// drain attempt, heartbeat — and no task blocks the loop for longer than
// one publish or log operation. The only concurrent input is the pulse
// handler, which the estimator synchronizes internally.
func runLoop(d loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	var (
		lastSample        time.Time
		lastHeartbeat     = startTime
		lastBPM           int
		lastTemp, lastHum float64
		lastAlert         alert.Result
		counts            status.Counts
	)

	applyAlert := func(rec model.Record) {
		res := alert.Evaluate(rec, d.thresholds)
		d.ind.SetAlert(res.Active())
		if res.Active() {
			d.log.Warn("alert",
				zap.String("severity", res.Severity.String()),
				zap.String("temperature", res.Temperature.String()),
				zap.String("heart_rate", res.HeartRate.String()),
				zap.Float64("temp", rec.Temperature),
				zap.Int("bpm", rec.HeartRate))
		}
		lastAlert = res
	}

	d.sync.OnPublished = func(rec model.Record) {
		counts.Published++
		d.ind.TransmissionPulse()
		applyAlert(rec)
	}

	for {
		select {
		case s := <-sig:
			d.log.Info("shutting down", zap.String("signal", s.String()))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			snap := d.tracker.Snapshot()
			event := publish.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := d.pub.PublishSystem(event); err != nil {
				d.log.Warn("publish shutdown event failed", zap.Error(err))
			}
			return nil

		case <-tick:
			t := now()

			linkUp := d.conn.IsAvailable()
			d.ind.SetConnectivity(linkUp)

			// The window check runs on every pass regardless of beat
			// activity, so a completed window is consumed promptly.
			if bpm, ok := d.est.Tick(t); ok {
				lastBPM = bpm
				d.log.Info("heart rate window closed", zap.Int("bpm", bpm))
			}

			if lastSample.IsZero() || t.Sub(lastSample) >= d.sample {
				lastSample = t
				temp, hum, err := d.sensors.ReadTemperatureHumidity()
				switch {
				case err != nil:
					counts.SkippedReads++
					d.log.Warn("sensor read failed, skipping cycle", zap.Error(err))
				case math.IsNaN(temp) || math.IsNaN(hum):
					counts.SkippedReads++
					d.log.Warn("sensor returned invalid reading, skipping cycle")
				default:
					counts.Samples++
					lastTemp, lastHum = temp, hum
					rec := model.Record{
						Temperature: temp,
						Humidity:    hum,
						HeartRate:   lastBPM,
						Timestamp:   t.Sub(startTime).Milliseconds(),
					}

					// Immediate delivery when the link is up; the sent
					// flag is settled before the record is persisted so
					// the log line never needs a retroactive first-write.
					if linkUp {
						if err := d.pub.Publish(rec); err != nil {
							counts.PublishFailures++
							d.log.Warn("immediate publish failed, record queued", zap.Error(err))
						} else {
							rec.Sent = true
							counts.Published++
							d.ind.TransmissionPulse()
							applyAlert(rec)
						}
					}

					d.buf.Store(rec)
					if err := d.store.Append(rec); err != nil {
						d.log.Warn("durable append failed, buffered copy only", zap.Error(err))
					}
				}
			}

			d.sync.Tick(t)

			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				snap := d.tracker.Snapshot()
				hb := publish.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := d.pub.PublishSystem(hb); err != nil {
					d.log.Warn("heartbeat publish failed", zap.Error(err))
				}
			}

			d.tracker.SetLinkUp(linkUp)
			d.tracker.Update(
				status.Vitals{
					Temperature: lastTemp,
					Humidity:    lastHum,
					HeartRate:   lastBPM,
					Alert:       lastAlert.Severity.String(),
				},
				status.Pipeline{
					Pending:     d.sync.Pending(),
					TotalStored: d.buf.TotalStored(),
					SyncIndex:   d.sync.SyncIndex(),
					State:       string(d.sync.State()),
				},
				counts,
			)
		}
	}
}

func newSensorSource() sensor.Source {
	// No hardware temperature/humidity driver ships yet, so every mode
	// runs the simulated walk. A real driver slots in behind
	// sensor.Source without touching the loop.
	return sensor.NewSimSource(36.6, 45, time.Now().UnixNano())
}

func newPulseSource(o options) (pulse.Source, error) {
	if o.sim {
		return pulse.NewSimSource(o.simBPM), nil
	}
	return pulse.NewRealSource(o.pinPulse)
}

func newIndicator(o options, logger *zap.Logger) (indicator.Control, error) {
	if !o.leds || o.sim {
		return indicator.Nop{}, nil
	}
	ind, err := indicator.NewRealControl(o.pinAlert, o.pinConn, o.pinTx, logger)
	if err != nil {
		return nil, fmt.Errorf("init indicators: %w", err)
	}
	return ind, nil
}

func newSink(o options, logger *zap.Logger) (publish.Publisher, publish.Status, error) {
	switch o.sink {
	case "mqtt":
		pub, err := publish.NewMQTTPublisher(o.broker, o.deviceID)
		if err != nil {
			return nil, nil, fmt.Errorf("init mqtt sink: %w", err)
		}
		return pub, pub, nil
	case "http":
		pub := publish.NewHTTPPublisher(o.collector, o.deviceID)
		return pub, pub, nil
	case "kafka":
		brokers := strings.Split(o.kafkaBrokers, ",")
		pub := publish.NewKafkaPublisher(brokers, publish.Topic, publish.TopicSystem, o.deviceID)
		return pub, pub, nil
	case "none":
		return publish.Discard{}, publish.Discard{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", o.sink)
	}
}

func collectorAddr(o options) string {
	switch o.sink {
	case "mqtt":
		return o.broker
	case "http":
		return o.collector
	case "kafka":
		return o.kafkaBrokers
	default:
		return ""
	}
}
