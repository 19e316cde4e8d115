package db

import (
	"sync"
	"time"

	"github.com/banshee-data/boxtrack/internal/monitoring"
	"github.com/banshee-data/boxtrack/internal/track"
)

// TrackWriter buffers emitted tracks and flushes them to the store on a
// timer. Keeping SQLite writes off the frame path lets the tracker run
// at frame rate while observations land in batches.
type TrackWriter struct {
	DB        *DB
	SessionID string
	Interval  time.Duration // how often to flush (e.g., 30s)
	StopChan  chan struct{}

	mu      sync.Mutex
	pending []TrackObservation
	summary map[int64]TrackRecord

	logf func(format string, v ...interface{})
}

// NewTrackWriter creates a writer for one session. Call Start to begin
// the flush loop and Stop to drain and terminate it.
func NewTrackWriter(db *DB, sessionID string, interval time.Duration) *TrackWriter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TrackWriter{
		DB:        db,
		SessionID: sessionID,
		Interval:  interval,
		StopChan:  make(chan struct{}),
		summary:   make(map[int64]TrackRecord),
		logf:      monitoring.Prefixed("trackwriter"),
	}
}

// Record buffers one frame's emitted tracks for the next flush.
func (w *TrackWriter) Record(frame int64, tracks []track.Track) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range tracks {
		w.pending = append(w.pending, ObservationFromTrack(w.SessionID, frame, t))

		rec, ok := w.summary[t.ID]
		if !ok {
			rec = TrackRecord{
				SessionID:  w.SessionID,
				TrackID:    t.ID,
				Label:      t.Label,
				FirstFrame: frame,
			}
		}
		if t.Label != "unknown" {
			rec.Label = t.Label
		}
		rec.LastFrame = frame
		rec.Hits = int64(t.Hits)
		rec.Age = int64(t.Age)
		if t.Confidence > rec.MaxConfidence {
			rec.MaxConfidence = t.Confidence
		}
		w.summary[t.ID] = rec
	}
}

// Start runs the periodic flush loop in a goroutine.
func (w *TrackWriter) Start() {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.Flush(); err != nil {
					w.logf("flush error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop terminates the flush loop and drains remaining buffered rows.
func (w *TrackWriter) Stop() {
	close(w.StopChan)
	if err := w.Flush(); err != nil {
		w.logf("final flush error: %v", err)
	}
}

// Flush writes the buffered summaries and observations to the store.
// The buffers are cleared only for the rows written; on failure the
// batch is retained for the next attempt.
func (w *TrackWriter) Flush() error {
	w.mu.Lock()
	obs := w.pending
	recs := make([]TrackRecord, 0, len(w.summary))
	for _, rec := range w.summary {
		recs = append(recs, rec)
	}
	w.pending = nil
	w.summary = make(map[int64]TrackRecord)
	w.mu.Unlock()

	if len(obs) == 0 && len(recs) == 0 {
		return nil
	}

	for _, rec := range recs {
		if err := w.DB.UpsertTrack(rec); err != nil {
			w.requeue(obs, recs)
			return err
		}
	}
	if err := w.DB.InsertObservations(obs); err != nil {
		w.requeue(obs, nil)
		return err
	}
	return nil
}

func (w *TrackWriter) requeue(obs []TrackObservation, recs []TrackRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(obs, w.pending...)
	for _, rec := range recs {
		if _, ok := w.summary[rec.TrackID]; !ok {
			w.summary[rec.TrackID] = rec
		}
	}
}

// PendingCount reports buffered observation rows, for tests and stats.
func (w *TrackWriter) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
