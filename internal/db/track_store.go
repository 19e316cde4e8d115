package db

import (
	"fmt"

	"github.com/banshee-data/boxtrack/internal/track"
)

// TrackRecord is the per-track summary row, updated as the track
// accumulates frames.
type TrackRecord struct {
	SessionID     string  `json:"session_id"`
	TrackID       int64   `json:"track_id"`
	Label         string  `json:"label"`
	FirstFrame    int64   `json:"first_frame"`
	LastFrame     int64   `json:"last_frame"`
	Hits          int64   `json:"hits"`
	Age           int64   `json:"age"`
	MaxConfidence float64 `json:"max_confidence"`
}

// TrackObservation is one frame of one track, as persisted.
type TrackObservation struct {
	SessionID       string  `json:"session_id"`
	TrackID         int64   `json:"track_id"`
	Frame           int64   `json:"frame"`
	X1              float64 `json:"x1"`
	Y1              float64 `json:"y1"`
	X2              float64 `json:"x2"`
	Y2              float64 `json:"y2"`
	VX              float64 `json:"vx"`
	VY              float64 `json:"vy"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	TimeSinceUpdate int64   `json:"time_since_update"`
}

// ObservationFromTrack converts an emitted track into its persisted
// observation row for the given session and frame.
func ObservationFromTrack(sessionID string, frame int64, t track.Track) TrackObservation {
	return TrackObservation{
		SessionID:       sessionID,
		TrackID:         t.ID,
		Frame:           frame,
		X1:              t.Box.X1,
		Y1:              t.Box.Y1,
		X2:              t.Box.X2,
		Y2:              t.Box.Y2,
		VX:              t.VX,
		VY:              t.VY,
		Label:           t.Label,
		Confidence:      t.Confidence,
		TimeSinceUpdate: int64(t.TimeSinceUpdate),
	}
}

// UpsertTrack inserts or refreshes the summary row for a track.
// ON CONFLICT DO UPDATE rather than INSERT OR REPLACE: replacing would
// delete the row first and cascade-delete its observations.
func (db *DB) UpsertTrack(rec TrackRecord) error {
	query := `
		INSERT INTO tracks (
			session_id, track_id, label, first_frame, last_frame, hits, age, max_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, track_id) DO UPDATE SET
			label = CASE WHEN excluded.label != 'unknown' THEN excluded.label ELSE tracks.label END,
			last_frame = excluded.last_frame,
			hits = excluded.hits,
			age = excluded.age,
			max_confidence = MAX(tracks.max_confidence, excluded.max_confidence)
	`
	if _, err := db.Exec(query,
		rec.SessionID, rec.TrackID, rec.Label, rec.FirstFrame,
		rec.LastFrame, rec.Hits, rec.Age, rec.MaxConfidence,
	); err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}
	return nil
}

// InsertObservations writes a batch of observation rows in a single
// transaction. The batch is all-or-nothing.
func (db *DB) InsertObservations(obs []TrackObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin observation batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_obs (
			session_id, track_id, frame,
			x1, y1, x2, y2, vx, vy,
			label, confidence, time_since_update
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.Exec(
			o.SessionID, o.TrackID, o.Frame,
			o.X1, o.Y1, o.X2, o.Y2, o.VX, o.VY,
			o.Label, o.Confidence, o.TimeSinceUpdate,
		); err != nil {
			return fmt.Errorf("insert observation for track %d frame %d: %w", o.TrackID, o.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit observation batch: %w", err)
	}
	return nil
}

// GetTrack fetches one track summary.
func (db *DB) GetTrack(sessionID string, trackID int64) (*TrackRecord, error) {
	row := db.QueryRow(`
		SELECT session_id, track_id, label, first_frame, last_frame, hits, age, max_confidence
		FROM tracks WHERE session_id = ? AND track_id = ?`, sessionID, trackID)

	var rec TrackRecord
	if err := row.Scan(
		&rec.SessionID, &rec.TrackID, &rec.Label, &rec.FirstFrame,
		&rec.LastFrame, &rec.Hits, &rec.Age, &rec.MaxConfidence,
	); err != nil {
		return nil, fmt.Errorf("get track %d: %w", trackID, err)
	}
	return &rec, nil
}

// GetSessionTracks returns all track summaries for a session, in
// track-ID order.
func (db *DB) GetSessionTracks(sessionID string) ([]*TrackRecord, error) {
	rows, err := db.Query(`
		SELECT session_id, track_id, label, first_frame, last_frame, hits, age, max_confidence
		FROM tracks WHERE session_id = ? ORDER BY track_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session tracks: %w", err)
	}
	defer rows.Close()

	var recs []*TrackRecord
	for rows.Next() {
		var rec TrackRecord
		if err := rows.Scan(
			&rec.SessionID, &rec.TrackID, &rec.Label, &rec.FirstFrame,
			&rec.LastFrame, &rec.Hits, &rec.Age, &rec.MaxConfidence,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetTrackObservations returns the observation log for one track in
// frame order, capped at limit rows (0 means no cap beyond 10000).
func (db *DB) GetTrackObservations(sessionID string, trackID int64, limit int) ([]*TrackObservation, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := db.Query(`
		SELECT session_id, track_id, frame, x1, y1, x2, y2, vx, vy, label, confidence, time_since_update
		FROM track_obs WHERE session_id = ? AND track_id = ?
		ORDER BY frame LIMIT ?`, sessionID, trackID, limit)
	if err != nil {
		return nil, fmt.Errorf("get track observations: %w", err)
	}
	defer rows.Close()

	var obs []*TrackObservation
	for rows.Next() {
		var o TrackObservation
		if err := rows.Scan(
			&o.SessionID, &o.TrackID, &o.Frame,
			&o.X1, &o.Y1, &o.X2, &o.Y2, &o.VX, &o.VY,
			&o.Label, &o.Confidence, &o.TimeSinceUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return obs, nil
}
