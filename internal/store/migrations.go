package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one ordered schema change.
type migration struct {
	version     int
	description string
	up          func(*sql.Tx) error
}

var migrations = []migration{
	{1, "create schema_version table", migration001},
	{2, "create sessions table", migration002},
	{3, "create mode_transitions table", migration003},
	{4, "create tick_stats table", migration004},
	{5, "create dispatch_log table", migration005},
}

// migrate applies every pending migration in order.
func (s *Store) migrate() error {
	current, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.execTx(func(tx *sql.Tx) error {
			if err := m.up(tx); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
			}
			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, m.version, m.description, time.Now())
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var exists bool
	err := s.conn.QueryRow(`
		SELECT COUNT(*) > 0 FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = s.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func migration001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			tree TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			ticks INTEGER NOT NULL DEFAULT 0,
			overruns INTEGER NOT NULL DEFAULT 0,
			skipped_captures INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

func migration003(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE mode_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			from_mode TEXT NOT NULL,
			to_mode TEXT NOT NULL,
			at DATETIME NOT NULL
		)
	`)
	return err
}

func migration004(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE tick_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			tick INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			overrun INTEGER NOT NULL DEFAULT 0,
			action TEXT NOT NULL DEFAULT '',
			at DATETIME NOT NULL
		)
	`)
	return err
}

func migration005(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE dispatch_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			tick INTEGER NOT NULL,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			at DATETIME NOT NULL
		)
	`)
	return err
}
