package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/ravlen/aquamon/internal/calibration"
	"codeberg.org/ravlen/aquamon/internal/config"
	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/monitor"
	"codeberg.org/ravlen/aquamon/internal/notify"
	"codeberg.org/ravlen/aquamon/internal/reading"
	"codeberg.org/ravlen/aquamon/internal/sensor"
	"codeberg.org/ravlen/aquamon/internal/stats"
	"codeberg.org/ravlen/aquamon/internal/store"
)

const pruneInterval = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	st, err := store.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	model, err := calibration.New(ctx, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load calibration")
	}

	source, err := sensor.NewADS1115(cfg.ADC.Bus, cfg.ADC.Address)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sensors")
	}
	defer source.Close()

	if cfg.Calibrate != "" || cfg.Tare != "" {
		if err := runCalibration(ctx, cfg, source, model); err != nil {
			logger.Fatal().Err(err).Msg("calibration failed")
		}
		return
	}

	var notifiers []notify.Notifier
	if cfg.Slack.Enabled {
		notifiers = append(notifiers, notify.NewSlack(cfg.Slack))
		logger.Info().Str("channel", cfg.Slack.Channel).Msg("Slack notifications enabled")
	}
	dispatcher := notify.NewDispatcher(notifiers...)
	defer dispatcher.Close()

	detector := monitor.NewLeakDetector(monitor.LeakConfig{
		ThresholdPct:        cfg.LeakThreshold,
		ConsecutiveRequired: cfg.ConsecutiveReadings,
		Cooldown:            time.Duration(cfg.AlertCooldown) * time.Second,
	})

	mon := monitor.New(
		time.Duration(cfg.Interval)*time.Second,
		monitor.NewAggregator(source, model),
		detector,
		st,
		dispatcher,
	)

	go maintenanceLoop(ctx, st, cfg.RetentionDays)

	if err := mon.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in monitoring loop")
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// runCalibration performs the one-shot --calibrate or --tare action using a
// long burst read for a steadier anchor.
func runCalibration(ctx context.Context, cfg *config.Config, source *sensor.ADS1115Source, model *calibration.Model) error {
	if cfg.Calibrate != "" {
		ch := reading.Channel(cfg.Calibrate)
		if !ch.IsValid() {
			return fmt.Errorf("unknown channel %q", cfg.Calibrate)
		}

		var isEmpty bool
		switch cfg.CalibratePoint {
		case "empty":
			isEmpty = true
		case "full":
			isEmpty = false
		default:
			return fmt.Errorf("unknown calibration point %q", cfg.CalibratePoint)
		}

		sample, err := source.ReadBurst(ctx, ch, sensor.CalibrationBurst)
		if err != nil {
			return err
		}

		pt, err := model.Calibrate(ctx, ch, sample.RawValue, isEmpty)
		if err != nil {
			return err
		}

		logger.Info().
			Str("channel", ch.String()).
			Str("point", cfg.CalibratePoint).
			Int("raw", sample.RawValue).
			Float64("voltage", sample.Voltage).
			Bool("complete", pt.Complete()).
			Msg("Calibration saved")

		return nil
	}

	ch := reading.Channel(cfg.Tare)
	if !ch.IsValid() {
		return fmt.Errorf("unknown channel %q", cfg.Tare)
	}

	sample, err := source.ReadBurst(ctx, ch, sensor.CalibrationBurst)
	if err != nil {
		return err
	}

	res, err := model.Tare(ctx, ch, sample.RawValue)
	if err != nil {
		return err
	}

	logger.Info().
		Str("channel", ch.String()).
		Int("old_empty", res.OldEmpty).
		Int("new_empty", res.NewEmpty).
		Msg("Tare saved")

	return nil
}

// maintenanceLoop prunes data past the retention window once a day and
// logs a daily summary of the last 24 hours.
func maintenanceLoop(ctx context.Context, st store.Store, retentionDays int) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			removed, err := st.PruneBefore(ctx, cutoff)
			if err != nil {
				logger.Error().Err(err).Msg("failed to prune old data")
			} else {
				logger.Info().Int64("removed", removed).Msg("Pruned old records")
			}

			logDailySummary(ctx, st)
		}
	}
}

func logDailySummary(ctx context.Context, st store.Store) {
	now := time.Now()
	window := stats.Window{Since: now.Add(-24 * time.Hour), Until: now}

	history, err := st.QueryHistory(ctx, window.Since, window.Until)
	if err != nil {
		logger.Error().Err(err).Msg("failed to query history for summary")
		return
	}
	alerts, err := st.QueryAlerts(ctx, window.Since, window.Until)
	if err != nil {
		logger.Error().Err(err).Msg("failed to query alerts for summary")
		return
	}

	s := stats.Compute(window, history, alerts)
	logger.Info().
		Int("readings", s.ReadingCount).
		Int("alerts", s.AlertCount).
		Float64("avg_reference", s.AvgReference).
		Float64("avg_control", s.AvgControl).
		Float64("avg_difference", s.AvgDifference).
		Float64("max_difference", s.MaxDifference).
		Float64("min_difference", s.MinDifference).
		Msg("Daily summary")
}
