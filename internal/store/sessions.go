package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one recorded Setup or Live run.
type Session struct {
	ID              string
	Mode            string
	Tree            string
	StartedAt       time.Time
	EndedAt         *time.Time
	Ticks           int64
	Overruns        int64
	SkippedCaptures int64
	EndReason       string
}

// Dispatch is one recorded action delivery.
type Dispatch struct {
	SessionID string
	Tick      uint64
	Action    string
	Outcome   string
	Err       string
	At        time.Time
}

// StartSession inserts a new session row and returns its generated ID.
func (s *Store) StartSession(mode, tree string) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(`
		INSERT INTO sessions (id, mode, tree, started_at)
		VALUES (?, ?, ?, ?)
	`, id, mode, tree, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession closes a session with its final counters.
func (s *Store) EndSession(id, reason string, ticks, overruns, skipped uint64) error {
	res, err := s.conn.Exec(`
		UPDATE sessions
		SET ended_at = ?, end_reason = ?, ticks = ?, overruns = ?, skipped_captures = ?
		WHERE id = ? AND ended_at IS NULL
	`, time.Now(), reason, ticks, overruns, skipped, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s not open", id)
	}
	return nil
}

// RecordTransition logs one mode change for a session.
func (s *Store) RecordTransition(sessionID, from, to string) error {
	_, err := s.conn.Exec(`
		INSERT INTO mode_transitions (session_id, from_mode, to_mode, at)
		VALUES (?, ?, ?, ?)
	`, sessionID, from, to, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// RecordTick logs one tick's duration and chosen action.
func (s *Store) RecordTick(sessionID string, tick uint64, duration time.Duration, overrun bool, action string) error {
	_, err := s.conn.Exec(`
		INSERT INTO tick_stats (session_id, tick, duration_ms, overrun, action, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, tick, float64(duration.Microseconds())/1000.0, overrun, action, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record tick: %w", err)
	}
	return nil
}

// RecordDispatch logs one action delivery and its outcome.
func (s *Store) RecordDispatch(d Dispatch) error {
	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.conn.Exec(`
		INSERT INTO dispatch_log (session_id, tick, action, outcome, error, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.SessionID, d.Tick, d.Action, d.Outcome, d.Err, at)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.conn.QueryRow(`
		SELECT id, mode, tree, started_at, ended_at, ticks, overruns, skipped_captures, end_reason
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// RecentSessions returns the latest sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]*Session, error) {
	rows, err := s.conn.Query(`
		SELECT id, mode, tree, started_at, ended_at, ticks, overruns, skipped_captures, end_reason
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var endedAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.Mode, &sess.Tree, &sess.StartedAt, &endedAt,
		&sess.Ticks, &sess.Overruns, &sess.SkippedCaptures, &sess.EndReason)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}
