// Package calibration maps raw ADC samples to fill percentages using two
// stored reference points per channel.
package calibration

import (
	"context"
	"sync"

	"codeberg.org/ravlen/aquamon/internal/errors"
	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/reading"
)

// Persister is the slice of the store the model needs. Every mutation is
// persisted before it is visible in memory, so a crash never loses a
// calibration or leaves a half-applied one.
type Persister interface {
	SaveCalibration(ctx context.Context, ch reading.Channel, pt reading.CalibrationPoint) error
	LoadCalibration(ctx context.Context, ch reading.Channel) (reading.CalibrationPoint, bool, error)
}

// TareResult reports a re-anchored empty point
type TareResult struct {
	NewEmpty int
	OldEmpty int
}

type Model struct {
	persister Persister

	mu     sync.RWMutex
	points map[reading.Channel]reading.CalibrationPoint
}

// New loads the stored calibration for both channels
func New(ctx context.Context, persister Persister) (*Model, error) {
	m := &Model{
		persister: persister,
		points:    make(map[reading.Channel]reading.CalibrationPoint, 2),
	}

	for _, ch := range []reading.Channel{reading.Reference, reading.Control} {
		pt, found, err := persister.LoadCalibration(ctx, ch)
		if err != nil {
			return nil, err
		}
		if found {
			m.points[ch] = pt
			logger.Debug().
				Str("channel", ch.String()).
				Int("empty_raw", pt.EmptyRaw).
				Int("full_raw", pt.FullRaw).
				Bool("complete", pt.Complete()).
				Msg("Calibration loaded")
		}
	}

	return m, nil
}

// Calibrate sets the empty or full endpoint for a channel to the given raw
// value and persists it. Endpoints may be set in either order.
func (m *Model) Calibrate(ctx context.Context, ch reading.Channel, raw int, isEmpty bool) (reading.CalibrationPoint, error) {
	errFactory := errors.New()

	if !ch.IsValid() {
		return reading.CalibrationPoint{}, errFactory.WithData(ErrUnknownChannel, ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pt := m.points[ch]
	if isEmpty {
		if pt.HasFull && pt.FullRaw == raw {
			return reading.CalibrationPoint{}, errFactory.WithMessage(ErrEqualEndpoints,
				"empty point must differ from full point")
		}
		pt.EmptyRaw = raw
		pt.HasEmpty = true
	} else {
		if pt.HasEmpty && pt.EmptyRaw == raw {
			return reading.CalibrationPoint{}, errFactory.WithMessage(ErrEqualEndpoints,
				"full point must differ from empty point")
		}
		pt.FullRaw = raw
		pt.HasFull = true
	}

	if err := m.persister.SaveCalibration(ctx, ch, pt); err != nil {
		return reading.CalibrationPoint{}, err
	}
	m.points[ch] = pt

	logger.Info().
		Str("channel", ch.String()).
		Bool("is_empty", isEmpty).
		Int("raw", raw).
		Msg("Calibration point set")

	return pt, nil
}

// Tare re-anchors the channel's empty point to the current raw value,
// redefining 0% as the present physical level. The full point is untouched.
// A full point must already exist, since the percentage spread is undefined
// without one.
func (m *Model) Tare(ctx context.Context, ch reading.Channel, raw int) (TareResult, error) {
	errFactory := errors.New()

	if !ch.IsValid() {
		return TareResult{}, errFactory.WithData(ErrUnknownChannel, ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pt := m.points[ch]
	if !pt.HasFull {
		return TareResult{}, errFactory.WithMessage(ErrNoFullPoint,
			"tare requires a calibrated full point")
	}
	if pt.FullRaw == raw {
		return TareResult{}, errFactory.WithMessage(ErrEqualEndpoints,
			"tare value equals the full point")
	}

	oldEmpty := pt.EmptyRaw
	pt.EmptyRaw = raw
	pt.HasEmpty = true

	if err := m.persister.SaveCalibration(ctx, ch, pt); err != nil {
		return TareResult{}, err
	}
	m.points[ch] = pt

	logger.Info().
		Str("channel", ch.String()).
		Int("old_empty", oldEmpty).
		Int("new_empty", raw).
		Msg("Channel tared")

	return TareResult{NewEmpty: raw, OldEmpty: oldEmpty}, nil
}

// ToPercentage converts a raw sample to a 0-100% level by linear
// interpolation between the channel's endpoints, clamped to [0, 100].
// Raw values may rise or fall with the level; the endpoint order decides.
// Fails when the channel has never been fully calibrated, so a missing
// configuration is never silently reported as an empty tank.
func (m *Model) ToPercentage(ch reading.Channel, raw int) (float64, error) {
	m.mu.RLock()
	pt := m.points[ch]
	m.mu.RUnlock()

	if !pt.Complete() {
		return 0, errors.New().WithData(ErrNotCalibrated, ch)
	}

	span := float64(pt.FullRaw - pt.EmptyRaw)
	percentage := 100 * float64(raw-pt.EmptyRaw) / span

	if percentage < 0 {
		percentage = 0
	} else if percentage > 100 {
		percentage = 100
	}

	return percentage, nil
}

// Point returns a snapshot of the channel's calibration
func (m *Model) Point(ch reading.Channel) (reading.CalibrationPoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pt, ok := m.points[ch]

	return pt, ok
}
