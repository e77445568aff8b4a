package monitor

import (
	"context"
	"time"

	"codeberg.org/ravlen/aquamon/internal/calibration"
	"codeberg.org/ravlen/aquamon/internal/reading"
	"codeberg.org/ravlen/aquamon/internal/sensor"
)

// Aggregator turns one raw sample per channel into a calibrated DualReading.
type Aggregator struct {
	source sensor.Source
	model  *calibration.Model
}

func NewAggregator(source sensor.Source, model *calibration.Model) *Aggregator {
	return &Aggregator{source: source, model: model}
}

// Sample acquires both channels and computes their signed difference. Both
// calibrated readings carry one shared timestamp; the microseconds between
// the two acquisitions are not skew-compensated, the samples are treated as
// simultaneous. A failure on either channel fails the whole sample; a
// partial reading is never produced, since the leak decision needs both.
func (a *Aggregator) Sample(ctx context.Context) (reading.DualReading, error) {
	refRaw, err := a.source.Read(ctx, reading.Reference)
	if err != nil {
		return reading.DualReading{}, err
	}

	ctrlRaw, err := a.source.Read(ctx, reading.Control)
	if err != nil {
		return reading.DualReading{}, err
	}

	stamp := time.Now()

	refPct, err := a.model.ToPercentage(reading.Reference, refRaw.RawValue)
	if err != nil {
		return reading.DualReading{}, err
	}

	ctrlPct, err := a.model.ToPercentage(reading.Control, ctrlRaw.RawValue)
	if err != nil {
		return reading.DualReading{}, err
	}

	return reading.DualReading{
		Reference: reading.CalibratedReading{
			Channel:    reading.Reference,
			Percentage: refPct,
			RawValue:   refRaw.RawValue,
			Timestamp:  stamp,
		},
		Control: reading.CalibratedReading{
			Channel:    reading.Control,
			Percentage: ctrlPct,
			RawValue:   ctrlRaw.RawValue,
			Timestamp:  stamp,
		},
		Difference: refPct - ctrlPct,
		Timestamp:  stamp,
	}, nil
}
