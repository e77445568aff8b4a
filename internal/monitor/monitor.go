// Package monitor runs the sampling loop: acquire, calibrate, decide,
// persist, one tick at a time.
package monitor

import (
	"context"
	"time"

	"codeberg.org/ravlen/aquamon/internal/errors"
	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/reading"
	"codeberg.org/ravlen/aquamon/internal/sensor"
	"codeberg.org/ravlen/aquamon/internal/store"
)

// AlertSink receives created alert records for external delivery. Offer
// must not block; a slow consumer never stalls the tick cadence.
type AlertSink interface {
	Offer(alert reading.AlertRecord)
}

type Monitor struct {
	interval   time.Duration
	aggregator *Aggregator
	detector   *LeakDetector
	store      store.Store
	sink       AlertSink
}

func New(interval time.Duration, aggregator *Aggregator, detector *LeakDetector, st store.Store, sink AlertSink) *Monitor {
	return &Monitor{
		interval:   interval,
		aggregator: aggregator,
		detector:   detector,
		store:      st,
		sink:       sink,
	}
}

// Snapshot exposes the current leak state for presentation
func (m *Monitor) Snapshot() LeakSnapshot {
	return m.detector.Snapshot()
}

// Run executes sampling ticks until the context is canceled. Each tick
// runs to completion before the next begins; no error inside a tick is
// fatal to the loop.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logger.Info().
		Dur("interval", m.interval).
		Msg("Monitoring started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Monitoring stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	// A read that has not returned within one sampling interval is a read
	// failure, not a pending read.
	tickCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	r, err := m.aggregator.Sample(tickCtx)
	now := time.Now()

	if err != nil {
		if errors.HasCode(err, sensor.ErrReadFailed) {
			logger.Warn().Err(err).Msg("Sensor read failed, tick skipped")
			if alert := m.detector.RecordFailure(now, err); alert != nil {
				m.createAlert(tickCtx, alert)
			}
		} else {
			// Calibration problems abort the tick without touching any
			// counters; they are configuration, not hardware.
			logger.Warn().Err(err).Msg("Tick skipped")
		}
		return
	}

	if err := m.store.AppendReading(tickCtx, r); err != nil {
		// The reading is lost for this tick; the loop continues.
		logger.Error().Err(err).Msg("Failed to persist reading")
	}

	alerts := m.detector.Observe(r, now)
	for i := range alerts {
		m.createAlert(tickCtx, &alerts[i])
	}

	logger.Debug().
		Float64("reference", r.Reference.Percentage).
		Float64("control", r.Control.Percentage).
		Float64("difference", r.Difference).
		Msg("Reading stored")
}

// createAlert persists the record, then offers it for notification.
// Notifier delivery failure never rolls back or blocks persistence.
func (m *Monitor) createAlert(ctx context.Context, alert *reading.AlertRecord) {
	if err := m.store.CreateAlert(ctx, alert); err != nil {
		logger.Error().Err(err).
			Str("alert_type", string(alert.Type)).
			Msg("Failed to persist alert")
	} else {
		logger.Warn().
			Str("alert_type", string(alert.Type)).
			Str("message", alert.Message).
			Msg("Alert created")
	}

	if m.sink != nil {
		m.sink.Offer(*alert)
	}
}
