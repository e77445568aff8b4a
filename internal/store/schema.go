package store

import (
	"database/sql"

	"codeberg.org/ravlen/aquamon/internal/errors"
)

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS readings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp INTEGER NOT NULL,
            reference_percentage REAL NOT NULL,
            reference_raw INTEGER NOT NULL,
            control_percentage REAL NOT NULL,
            control_raw INTEGER NOT NULL,
            difference REAL NOT NULL
        );

        CREATE INDEX IF NOT EXISTS idx_readings_timestamp
        ON readings(timestamp DESC);

        CREATE TABLE IF NOT EXISTS alerts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            created_at INTEGER NOT NULL,
            alert_type TEXT NOT NULL,
            message TEXT,
            difference REAL NOT NULL DEFAULT 0,
            acknowledged INTEGER NOT NULL DEFAULT 0,
            acknowledged_at INTEGER
        );

        CREATE INDEX IF NOT EXISTS idx_alerts_created_at
        ON alerts(created_at DESC);

        CREATE TABLE IF NOT EXISTS calibration (
            channel TEXT PRIMARY KEY,
            empty_raw INTEGER,
            full_raw INTEGER,
            updated_at INTEGER NOT NULL
        );
    `)
	if err != nil {
		return errors.New().Wrap(ErrStorageInit, err)
	}

	return nil
}
