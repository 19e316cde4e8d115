package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one tracking run: a contiguous sequence of frames pushed
// through a single tracker instance.
type Session struct {
	ID              string `json:"session_id"`
	Label           string `json:"label"`
	Source          string `json:"source"`
	StartedUnixNano int64  `json:"started_unix_nanos"`
	EndedUnixNano   *int64 `json:"ended_unix_nanos,omitempty"`
	FramesProcessed int64  `json:"frames_processed"`
}

// CreateSession registers a new session and returns it. The session ID
// is a fresh UUID; label and source are free-form operator notes.
func (db *DB) CreateSession(label, source string) (*Session, error) {
	s := &Session{
		ID:              uuid.NewString(),
		Label:           label,
		Source:          source,
		StartedUnixNano: time.Now().UnixNano(),
	}

	_, err := db.Exec(
		`INSERT INTO sessions (session_id, label, source, started_unix_nanos) VALUES (?, ?, ?, ?)`,
		s.ID, s.Label, s.Source, s.StartedUnixNano,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return s, nil
}

// EndSession stamps the session's end time and final frame count.
func (db *DB) EndSession(sessionID string, framesProcessed int64) error {
	res, err := db.Exec(
		`UPDATE sessions SET ended_unix_nanos = ?, frames_processed = ? WHERE session_id = ?`,
		time.Now().UnixNano(), framesProcessed, sessionID,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// GetSession fetches one session by ID.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	row := db.QueryRow(
		`SELECT session_id, label, source, started_unix_nanos, ended_unix_nanos, frames_processed
		 FROM sessions WHERE session_id = ?`, sessionID)

	var s Session
	var ended sql.NullInt64
	if err := row.Scan(&s.ID, &s.Label, &s.Source, &s.StartedUnixNano, &ended, &s.FramesProcessed); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if ended.Valid {
		s.EndedUnixNano = &ended.Int64
	}
	return &s, nil
}

// ListSessions returns sessions in reverse start order, newest first.
func (db *DB) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT session_id, label, source, started_unix_nanos, ended_unix_nanos, frames_processed
		 FROM sessions ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var ended sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Label, &s.Source, &s.StartedUnixNano, &ended, &s.FramesProcessed); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if ended.Valid {
			s.EndedUnixNano = &ended.Int64
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
