package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// single writer: the reader goroutine appends samples while handlers query
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaSerialLink = `
CREATE TABLE IF NOT EXISTS serial_link (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    port TEXT NOT NULL,
    baud_rate INTEGER NOT NULL,
    phase TEXT NOT NULL,
    header TEXT,
    connected BOOLEAN NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaExtruderEvents = `
CREATE TABLE IF NOT EXISTS extruder_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
CREATE INDEX IF NOT EXISTS idx_extruder_events_occurred_at ON extruder_events(occurred_at);
`

const schemaExtruderSamples = `
CREATE TABLE IF NOT EXISTS extruder_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    received_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL,
    fault INTEGER NOT NULL,
    row TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extruder_samples_received_at ON extruder_samples(received_at);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaSerialLink,
		schemaExtruderEvents,
		schemaExtruderSamples,
		schemaOperators,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
