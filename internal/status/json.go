package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	DeviceID      string       `json:"device_id"`
	BootID        string       `json:"boot_id"`
	Vitals        VitalsJSON   `json:"vitals"`
	Pipeline      PipelineJSON `json:"pipeline"`
	Counts        CountsJSON   `json:"counts"`
	LinkUp        bool         `json:"link_up"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Config        ConfigJSON   `json:"config"`
}

// VitalsJSON is the JSON representation of the latest sample.
type VitalsJSON struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	HeartRate   int     `json:"heart_rate"`
	Alert       string  `json:"alert"`
}

// PipelineJSON is the JSON representation of buffering/drain state.
type PipelineJSON struct {
	Pending     int    `json:"pending"`
	TotalStored int    `json:"total_stored"`
	SyncIndex   int    `json:"sync_index"`
	State       string `json:"state"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Samples         int `json:"samples"`
	Published       int `json:"published"`
	PublishFailures int `json:"publish_failures"`
	SkippedReads    int `json:"skipped_reads"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs   int64  `json:"sample_ms"`
	SyncMs     int64  `json:"sync_ms"`
	HRWindowMs int64  `json:"hr_window_ms"`
	Capacity   int    `json:"capacity"`
	Sink       string `json:"sink"`
	Collector  string `json:"collector"`
	LogPath    string `json:"log_path"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	al := snap.Vitals.Alert
	if al == "" {
		al = "NORMAL"
	}

	return StatusInner{
		DeviceID: snap.Config.DeviceID,
		BootID:   snap.BootID,
		Vitals: VitalsJSON{
			Temperature: snap.Vitals.Temperature,
			Humidity:    snap.Vitals.Humidity,
			HeartRate:   snap.Vitals.HeartRate,
			Alert:       al,
		},
		Pipeline: PipelineJSON{
			Pending:     snap.Pipeline.Pending,
			TotalStored: snap.Pipeline.TotalStored,
			SyncIndex:   snap.Pipeline.SyncIndex,
			State:       snap.Pipeline.State,
		},
		Counts: CountsJSON{
			Samples:         snap.Counts.Samples,
			Published:       snap.Counts.Published,
			PublishFailures: snap.Counts.PublishFailures,
			SkippedReads:    snap.Counts.SkippedReads,
		},
		LinkUp:        snap.LinkUp,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			SampleMs:   snap.Config.SampleMs,
			SyncMs:     snap.Config.SyncMs,
			HRWindowMs: snap.Config.HRWindowMs,
			Capacity:   snap.Config.Capacity,
			Sink:       snap.Config.Sink,
			Collector:  snap.Config.Collector,
			LogPath:    snap.Config.LogPath,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no
// event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system telemetry event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
