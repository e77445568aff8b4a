package store

import (
	"context"
	"time"

	"codeberg.org/ravlen/aquamon/internal/reading"
)

// Store is the durable persistence boundary. All operations are durable on
// return; retry and backoff are the implementation's concern, callers never
// retry.
type Store interface {
	// AppendReading persists one complete dual reading.
	AppendReading(ctx context.Context, r reading.DualReading) error

	// QueryHistory returns the readings with since <= timestamp < until,
	// in chronological order.
	QueryHistory(ctx context.Context, since, until time.Time) ([]reading.DualReading, error)

	// SaveCalibration persists the calibration point for a channel.
	SaveCalibration(ctx context.Context, ch reading.Channel, pt reading.CalibrationPoint) error

	// LoadCalibration returns the stored calibration point for a channel.
	// The second return value is false when no point has been stored.
	LoadCalibration(ctx context.Context, ch reading.Channel) (reading.CalibrationPoint, bool, error)

	// CreateAlert appends a record to the alert log and fills in its ID.
	CreateAlert(ctx context.Context, alert *reading.AlertRecord) error

	// AcknowledgeAlert marks an alert acknowledged.
	AcknowledgeAlert(ctx context.Context, id int64) error

	// ListAlerts returns alerts, newest first.
	ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]reading.AlertRecord, error)

	// QueryAlerts returns the alerts created with since <= created_at < until.
	QueryAlerts(ctx context.Context, since, until time.Time) ([]reading.AlertRecord, error)

	// PruneBefore deletes readings older than cutoff and acknowledged
	// alerts older than cutoff, returning the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
