// Package db persists users, calibration output, and workout history in
// sqlite.
package db

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the database at path and ensures the base
// schema exists. Schema evolution beyond the base tables is handled by
// the migrations in migrations/.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id           TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			body_type         TEXT DEFAULT '',
			ratios            TEXT DEFAULT '',
			thresholds        TEXT DEFAULT '',
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS workout_sessions (
			session_id        TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			exercise          TEXT NOT NULL,
			reps              BIGINT DEFAULT 0,
			sets              BIGINT DEFAULT 0,
			calories          DOUBLE DEFAULT 0,
			fatigue           DOUBLE DEFAULT 0,
			duration_seconds  BIGINT DEFAULT 0,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(user_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}
