// Package reading holds the domain value objects shared by the sensor,
// calibration, monitoring, statistics and storage packages.
package reading

import "time"

// Channel identifies one of the two monitored transducers.
type Channel string

const (
	// Reference is the transducer in the primary (monitored) container.
	Reference Channel = "reference"
	// Control is the transducer in the sealed reference container, used
	// as an environmental baseline.
	Control Channel = "control"
)

// IsValid returns whether the channel is one of the two known transducers
func (c Channel) IsValid() bool {
	return c == Reference || c == Control
}

// String implements the Stringer interface
func (c Channel) String() string {
	return string(c)
}

// RawSample is a single analog conversion result for one channel.
// RawValue is the signed 16-bit ADC conversion result; its valid range and
// resolution are source-specific and documented by the Reading Source.
type RawSample struct {
	Channel   Channel
	RawValue  int
	Voltage   float64
	Timestamp time.Time
}

// CalibratedReading is a raw sample mapped to a fill percentage. The raw
// value is kept alongside the percentage so recalibration never corrupts
// the interpretation of history.
type CalibratedReading struct {
	Channel    Channel
	Percentage float64
	RawValue   int
	Timestamp  time.Time
}

// DualReading pairs both channels under one shared timestamp. It is the
// atomic unit consumed by the leak decision engine and persisted to history.
type DualReading struct {
	Reference CalibratedReading
	Control   CalibratedReading
	// Difference is Reference.Percentage - Control.Percentage (signed).
	Difference float64
	Timestamp  time.Time
}

// AlertType classifies an alert record
type AlertType string

const (
	AlertLeakDetected  AlertType = "leak_detected"
	AlertSensorFailure AlertType = "sensor_failure"
	AlertRecovery      AlertType = "recovery"
)

// AlertRecord is one entry in the append-only alert log. Records are only
// ever mutated by an explicit acknowledgement; state transitions append new
// records instead of editing old ones.
type AlertRecord struct {
	ID             int64
	Type           AlertType
	Message        string
	Difference     float64
	CreatedAt      time.Time
	Acknowledged   bool
	AcknowledgedAt *time.Time
}
