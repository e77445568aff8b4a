package monitor

import (
	"fmt"
	"testing"
	"time"

	"codeberg.org/ravlen/aquamon/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func diffReading(difference float64) reading.DualReading {
	return reading.DualReading{
		Reference:  reading.CalibratedReading{Channel: reading.Reference, Percentage: 80 + difference},
		Control:    reading.CalibratedReading{Channel: reading.Control, Percentage: 80},
		Difference: difference,
	}
}

func defaultDetector() *LeakDetector {
	return NewLeakDetector(LeakConfig{
		ThresholdPct:        5,
		ConsecutiveRequired: 3,
		Cooldown:            time.Hour,
	})
}

func TestLeakDetectedAfterConsecutiveReadings(t *testing.T) {
	d := defaultDetector()

	var produced []reading.AlertRecord
	for i := 0; i < 4; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		produced = append(produced, d.Observe(diffReading(6), now)...)
	}

	require.Len(t, produced, 1, "Expected exactly one alert for a sustained streak")
	assert.Equal(t, reading.AlertLeakDetected, produced[0].Type)
	assert.InDelta(t, 6.0, produced[0].Difference, 0.001)
	assert.Equal(t, start.Add(2*time.Minute), produced[0].CreatedAt,
		"Expected the transition on the third over-threshold reading")

	snap := d.Snapshot()
	assert.True(t, snap.Alerting)
	assert.Equal(t, start.Add(2*time.Minute), snap.LastAlertTime)
}

func TestNegativeDifferenceCountsTowardLeak(t *testing.T) {
	d := defaultDetector()

	var produced []reading.AlertRecord
	for i := 0; i < 3; i++ {
		produced = append(produced, d.Observe(diffReading(-6), start.Add(time.Duration(i)*time.Minute))...)
	}

	require.Len(t, produced, 1, "A control channel reading high is still a divergence")
}

func TestReadingExactlyAtThresholdIsNotOver(t *testing.T) {
	d := defaultDetector()

	for i := 0; i < 10; i++ {
		alerts := d.Observe(diffReading(5), start.Add(time.Duration(i)*time.Minute))
		assert.Empty(t, alerts)
	}

	snap := d.Snapshot()
	assert.False(t, snap.Alerting)
	assert.Zero(t, snap.ConsecutiveOver, "Strict > comparison: at-threshold is under")
}

func TestInterruptedStreakResetsCounter(t *testing.T) {
	d := defaultDetector()

	require.Empty(t, d.Observe(diffReading(6), start))
	require.Empty(t, d.Observe(diffReading(6), start.Add(time.Minute)))
	require.Empty(t, d.Observe(diffReading(1), start.Add(2*time.Minute)))

	// Two more over-threshold readings are not enough after the reset.
	require.Empty(t, d.Observe(diffReading(6), start.Add(3*time.Minute)))
	require.Empty(t, d.Observe(diffReading(6), start.Add(4*time.Minute)))

	alerts := d.Observe(diffReading(6), start.Add(5*time.Minute))
	require.Len(t, alerts, 1)
}

func TestSingleReadingHysteresis(t *testing.T) {
	d := NewLeakDetector(LeakConfig{ThresholdPct: 5, ConsecutiveRequired: 1, Cooldown: time.Hour})

	alerts := d.Observe(diffReading(6), start)
	require.Len(t, alerts, 1, "required=1 must trigger on the first divergent reading")
	assert.Equal(t, reading.AlertLeakDetected, alerts[0].Type)
}

func TestRecoveryIsNotGatedByCooldown(t *testing.T) {
	d := defaultDetector()

	for i := 0; i < 3; i++ {
		d.Observe(diffReading(6), start.Add(time.Duration(i)*time.Minute))
	}
	require.True(t, d.Snapshot().Alerting)

	// Well within the one hour cooldown.
	var produced []reading.AlertRecord
	for i := 3; i < 6; i++ {
		produced = append(produced, d.Observe(diffReading(1), start.Add(time.Duration(i)*time.Minute))...)
	}

	require.Len(t, produced, 1)
	assert.Equal(t, reading.AlertRecovery, produced[0].Type)
	assert.False(t, d.Snapshot().Alerting)
}

func TestCooldownSuppressesRepeatAlerts(t *testing.T) {
	d := defaultDetector()

	// First alert, then recovery.
	for i := 0; i < 3; i++ {
		d.Observe(diffReading(6), start.Add(time.Duration(i)*time.Minute))
	}
	for i := 3; i < 6; i++ {
		d.Observe(diffReading(1), start.Add(time.Duration(i)*time.Minute))
	}

	// A fresh streak inside the cooldown window stays silent.
	var produced []reading.AlertRecord
	for i := 6; i < 12; i++ {
		produced = append(produced, d.Observe(diffReading(6), start.Add(time.Duration(i)*time.Minute))...)
	}
	assert.Empty(t, produced, "Cooldown must suppress a second leak alert")

	// Once the cooldown elapses the still-standing streak alerts again.
	produced = d.Observe(diffReading(6), start.Add(2*time.Hour))
	require.Len(t, produced, 1)
	assert.Equal(t, reading.AlertLeakDetected, produced[0].Type)
}

func TestAlertingStreakProducesNoFurtherRecords(t *testing.T) {
	d := defaultDetector()

	var produced []reading.AlertRecord
	for i := 0; i < 20; i++ {
		produced = append(produced, d.Observe(diffReading(8), start.Add(time.Duration(i)*time.Minute))...)
	}

	require.Len(t, produced, 1, "A continuing streak never creates additional records")

	snap := d.Snapshot()
	assert.Equal(t, start.Add(2*time.Minute), snap.LastAlertTime,
		"last_alert_time is untouched while the streak continues")
}

func TestSensorFailuresPauseCounters(t *testing.T) {
	d := defaultDetector()
	cause := fmt.Errorf("i2c timeout")

	// Two over-threshold readings, then a burst of failures.
	d.Observe(diffReading(6), start)
	d.Observe(diffReading(6), start.Add(time.Minute))

	for i := 0; i < 3; i++ {
		alert := d.RecordFailure(start.Add(time.Duration(2+i)*time.Minute), cause)
		assert.Nil(t, alert, "Below the failure limit no alert is raised")
	}
	assert.Equal(t, 2, d.Snapshot().ConsecutiveOver, "Failures pause, never reset, the streak")

	// Sampling resumes: the paused streak completes.
	alerts := d.Observe(diffReading(6), start.Add(10*time.Minute))
	require.Len(t, alerts, 1)
	assert.Equal(t, reading.AlertLeakDetected, alerts[0].Type)
}

func TestSensorFailureEscalatesOncePerEpisode(t *testing.T) {
	d := defaultDetector()
	cause := fmt.Errorf("i2c timeout")

	var produced []reading.AlertRecord
	for i := 0; i < sensorFailureLimit+4; i++ {
		if alert := d.RecordFailure(start.Add(time.Duration(i)*time.Minute), cause); alert != nil {
			produced = append(produced, *alert)
		}
	}

	require.Len(t, produced, 1, "One sensor_failure record per failure episode")
	assert.Equal(t, reading.AlertSensorFailure, produced[0].Type)

	// Resumption yields a recovery record and restarts failure counting.
	alerts := d.Observe(diffReading(0), start.Add(time.Hour))
	require.Len(t, alerts, 1)
	assert.Equal(t, reading.AlertRecovery, alerts[0].Type)
	assert.Zero(t, d.Snapshot().ConsecutiveFailures)

	alert := d.RecordFailure(start.Add(2*time.Hour), cause)
	assert.Nil(t, alert, "A new episode counts from zero")
}
