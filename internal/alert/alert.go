// Package alert applies threshold rules to a record and yields an alert
// severity. Evaluation is pure; the indicator side effect belongs to the
// caller.
package alert

import "github.com/tansey/vitals-edge/internal/model"

// Severity is an escalating alert level for a monitored metric.
type Severity int

const (
	Normal Severity = iota
	Elevated
	Critical
)

// String returns the severity label used in logs and telemetry.
func (s Severity) String() string {
	switch s {
	case Elevated:
		return "ELEVATED"
	case Critical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Thresholds holds the trigger levels for both rule tracks. A reading
// strictly above a level triggers that severity.
type Thresholds struct {
	TempElevated float64
	TempCritical float64
	HRElevated   int
	HRCritical   int
}

// DefaultThresholds returns the stock trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempElevated: 35,
		TempCritical: 38,
		HRElevated:   100,
		HRCritical:   120,
	}
}

// Result reports the outcome of evaluating one record: the per-track
// severities and their maximum.
type Result struct {
	Severity    Severity
	Temperature Severity
	HeartRate   Severity
}

// Active reports whether the alert indicator should be on: any track at
// elevated or above.
func (r Result) Active() bool {
	return r.Severity >= Elevated
}

// Evaluate applies both rule tracks to rec. The tracks are independent;
// the overall severity is the maximum across them.
func Evaluate(rec model.Record, th Thresholds) Result {
	var r Result

	switch {
	case rec.Temperature > th.TempCritical:
		r.Temperature = Critical
	case rec.Temperature > th.TempElevated:
		r.Temperature = Elevated
	}

	switch {
	case rec.HeartRate > th.HRCritical:
		r.HeartRate = Critical
	case rec.HeartRate > th.HRElevated:
		r.HeartRate = Elevated
	}

	r.Severity = r.Temperature
	if r.HeartRate > r.Severity {
		r.Severity = r.HeartRate
	}
	return r
}
