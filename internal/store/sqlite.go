package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/ravlen/aquamon/internal/errors"
	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/reading"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type sqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// initializes the schema.
func Open(dbPath string) (Store, error) {
	errFactory := errors.New()

	if dbPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Opening store at: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := dbPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) AppendReading(ctx context.Context, r reading.DualReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO readings (
            timestamp,
            reference_percentage, reference_raw,
            control_percentage, control_raw,
            difference
        ) VALUES (?, ?, ?, ?, ?, ?)
    `,
		r.Timestamp.Unix(),
		r.Reference.Percentage,
		r.Reference.RawValue,
		r.Control.Percentage,
		r.Control.RawValue,
		r.Difference,
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (s *sqliteStore) QueryHistory(ctx context.Context, since, until time.Time) ([]reading.DualReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT timestamp,
               reference_percentage, reference_raw,
               control_percentage, control_raw,
               difference
        FROM readings
        WHERE timestamp >= ? AND timestamp < ?
        ORDER BY timestamp ASC
    `, since.Unix(), until.Unix())
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var history []reading.DualReading
	for rows.Next() {
		var (
			ts              int64
			refPct, ctrlPct float64
			refRaw, ctrlRaw int
			difference      float64
		)
		if err := rows.Scan(&ts, &refPct, &refRaw, &ctrlPct, &ctrlRaw, &difference); err != nil {
			return nil, errors.New().Wrap(ErrStorageAccess, err)
		}

		stamp := time.Unix(ts, 0)
		history = append(history, reading.DualReading{
			Reference: reading.CalibratedReading{
				Channel:    reading.Reference,
				Percentage: refPct,
				RawValue:   refRaw,
				Timestamp:  stamp,
			},
			Control: reading.CalibratedReading{
				Channel:    reading.Control,
				Percentage: ctrlPct,
				RawValue:   ctrlRaw,
				Timestamp:  stamp,
			},
			Difference: difference,
			Timestamp:  stamp,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	return history, nil
}

func (s *sqliteStore) SaveCalibration(ctx context.Context, ch reading.Channel, pt reading.CalibrationPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO calibration (channel, empty_raw, full_raw, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(channel) DO UPDATE SET
            empty_raw = excluded.empty_raw,
            full_raw = excluded.full_raw,
            updated_at = excluded.updated_at
    `,
		ch.String(),
		nullableInt(pt.EmptyRaw, pt.HasEmpty),
		nullableInt(pt.FullRaw, pt.HasFull),
		time.Now().Unix(),
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (s *sqliteStore) LoadCalibration(ctx context.Context, ch reading.Channel) (reading.CalibrationPoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var emptyRaw, fullRaw sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
        SELECT empty_raw, full_raw FROM calibration WHERE channel = ?
    `, ch.String()).Scan(&emptyRaw, &fullRaw)
	if err == sql.ErrNoRows {
		return reading.CalibrationPoint{}, false, nil
	}
	if err != nil {
		return reading.CalibrationPoint{}, false, errors.New().Wrap(ErrStorageAccess, err)
	}

	return reading.CalibrationPoint{
		EmptyRaw: int(emptyRaw.Int64),
		FullRaw:  int(fullRaw.Int64),
		HasEmpty: emptyRaw.Valid,
		HasFull:  fullRaw.Valid,
	}, true, nil
}

func (s *sqliteStore) CreateAlert(ctx context.Context, alert *reading.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO alerts (created_at, alert_type, message, difference)
        VALUES (?, ?, ?, ?)
    `,
		alert.CreatedAt.Unix(),
		string(alert.Type),
		alert.Message,
		alert.Difference,
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	alert.ID = id

	return nil
}

func (s *sqliteStore) AcknowledgeAlert(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
        UPDATE alerts
        SET acknowledged = 1, acknowledged_at = ?
        WHERE id = ? AND acknowledged = 0
    `, time.Now().Unix(), id)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	if affected == 0 {
		return errors.New().WithData(ErrAlertNotFound, id)
	}

	return nil
}

func (s *sqliteStore) ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]reading.AlertRecord, error) {
	query := `
        SELECT id, created_at, alert_type, message, difference, acknowledged, acknowledged_at
        FROM alerts
    `
	if unacknowledgedOnly {
		query += " WHERE acknowledged = 0"
	}
	query += " ORDER BY created_at DESC, id DESC"

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanAlerts(ctx, query)
}

func (s *sqliteStore) QueryAlerts(ctx context.Context, since, until time.Time) ([]reading.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanAlerts(ctx, `
        SELECT id, created_at, alert_type, message, difference, acknowledged, acknowledged_at
        FROM alerts
        WHERE created_at >= ? AND created_at < ?
        ORDER BY created_at ASC, id ASC
    `, since.Unix(), until.Unix())
}

func (s *sqliteStore) scanAlerts(ctx context.Context, query string, args ...any) ([]reading.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var alerts []reading.AlertRecord
	for rows.Next() {
		var (
			alert     reading.AlertRecord
			alertType string
			createdAt int64
			acked     int
			ackedAt   sql.NullInt64
		)
		if err := rows.Scan(&alert.ID, &createdAt, &alertType, &alert.Message,
			&alert.Difference, &acked, &ackedAt); err != nil {
			return nil, errors.New().Wrap(ErrStorageAccess, err)
		}

		alert.Type = reading.AlertType(alertType)
		alert.CreatedAt = time.Unix(createdAt, 0)
		alert.Acknowledged = acked != 0
		if ackedAt.Valid {
			t := time.Unix(ackedAt.Int64, 0)
			alert.AcknowledgedAt = &t
		}

		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	return alerts, nil
}

func (s *sqliteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM readings WHERE timestamp < ?", cutoff.Unix())
	if err != nil {
		return 0, errors.New().Wrap(ErrStorageAccess, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		removed += n
	}

	res, err = s.db.ExecContext(ctx,
		"DELETE FROM alerts WHERE created_at < ? AND acknowledged = 1", cutoff.Unix())
	if err != nil {
		return removed, errors.New().Wrap(ErrStorageAccess, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		removed += n
	}

	return removed, nil
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func nullableInt(v int, ok bool) any {
	if !ok {
		return nil
	}
	return int64(v)
}
