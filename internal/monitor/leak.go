package monitor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"codeberg.org/ravlen/aquamon/internal/reading"
)

// sensorFailureLimit is the number of consecutive failed sampling ticks
// before a sensor_failure alert is raised. Fixed, not a setting.
const sensorFailureLimit = 5

type LeakConfig struct {
	// ThresholdPct is compared with strict > against |difference|; a
	// reading exactly at the threshold counts as not over.
	ThresholdPct float64
	// ConsecutiveRequired readings over (or under) the threshold flip the
	// alert state. 1 disables hysteresis and is a legal configuration.
	ConsecutiveRequired int
	// Cooldown is the minimum time between two leak alerts. It gates only
	// the NORMAL to ALERTING transition; recovery is never suppressed.
	Cooldown time.Duration
}

// LeakSnapshot is an atomic copy of the detector state for presentation.
type LeakSnapshot struct {
	ConsecutiveOver     int
	ConsecutiveUnder    int
	Alerting            bool
	LastAlertTime       time.Time
	ConsecutiveFailures int
}

// LeakDetector is the two-state (NORMAL/ALERTING) decision engine. The
// sampling loop is its sole writer; readers get consistent state through
// Snapshot. State is process-scoped and zeroed on restart: the engine
// resumes in the normal assumption rather than replaying hysteresis history.
type LeakDetector struct {
	cfg LeakConfig

	mu               sync.Mutex
	consecutiveOver  int
	consecutiveUnder int
	alerting         bool
	lastAlert        time.Time

	failures       int
	failureAlerted bool
}

func NewLeakDetector(cfg LeakConfig) *LeakDetector {
	return &LeakDetector{cfg: cfg}
}

// Observe consumes one reading and returns the alert records the transition
// produced, if any. A resumed sampling run after a failure episode yields a
// recovery record alongside any leak decision.
func (d *LeakDetector) Observe(r reading.DualReading, now time.Time) []reading.AlertRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	var alerts []reading.AlertRecord

	if d.failureAlerted {
		alerts = append(alerts, reading.AlertRecord{
			Type:      reading.AlertRecovery,
			Message:   "Sensor sampling resumed",
			CreatedAt: now,
		})
	}
	d.failures = 0
	d.failureAlerted = false

	over := math.Abs(r.Difference) > d.cfg.ThresholdPct
	if over {
		d.consecutiveOver++
		d.consecutiveUnder = 0
	} else {
		d.consecutiveUnder++
		d.consecutiveOver = 0
	}

	if !d.alerting {
		cooledDown := d.lastAlert.IsZero() || now.Sub(d.lastAlert) >= d.cfg.Cooldown
		if d.consecutiveOver >= d.cfg.ConsecutiveRequired && cooledDown {
			d.alerting = true
			d.lastAlert = now
			alerts = append(alerts, reading.AlertRecord{
				Type: reading.AlertLeakDetected,
				Message: fmt.Sprintf(
					"Potential leak detected! Difference: %.1f%% (Reference: %.1f%%, Control: %.1f%%)",
					r.Difference, r.Reference.Percentage, r.Control.Percentage),
				Difference: r.Difference,
				CreatedAt:  now,
			})
		}
	} else if d.consecutiveUnder >= d.cfg.ConsecutiveRequired {
		d.alerting = false
		alerts = append(alerts, reading.AlertRecord{
			Type: reading.AlertRecovery,
			Message: fmt.Sprintf(
				"Levels back within threshold. Difference: %.1f%%", r.Difference),
			Difference: r.Difference,
			CreatedAt:  now,
		})
	}

	return alerts
}

// RecordFailure notes a failed sampling tick. Failures pause the hysteresis
// counters rather than corrupting them: a missing reading is neither over
// nor under the threshold. Returns a sensor_failure record once per failure
// episode, after sensorFailureLimit consecutive failures.
func (d *LeakDetector) RecordFailure(now time.Time, cause error) *reading.AlertRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failures++
	if d.failures < sensorFailureLimit || d.failureAlerted {
		return nil
	}

	d.failureAlerted = true

	return &reading.AlertRecord{
		Type: reading.AlertSensorFailure,
		Message: fmt.Sprintf("Sensor read failing for %d consecutive ticks: %v",
			d.failures, cause),
		CreatedAt: now,
	}
}

// Snapshot returns a consistent copy of the detector state
func (d *LeakDetector) Snapshot() LeakSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return LeakSnapshot{
		ConsecutiveOver:     d.consecutiveOver,
		ConsecutiveUnder:    d.consecutiveUnder,
		Alerting:            d.alerting,
		LastAlertTime:       d.lastAlert,
		ConsecutiveFailures: d.failures,
	}
}
