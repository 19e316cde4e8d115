package db

import (
	"testing"
	"time"

	"github.com/banshee-data/boxtrack/internal/track"
)

func TestTrackWriterFlush(t *testing.T) {
	db := newTestDB(t)
	s := createTestSession(t, db)

	w := NewTrackWriter(db, s.ID, time.Hour) // manual flushes only

	w.Record(1, []track.Track{testTrack(0, "unknown")})
	w.Record(2, []track.Track{testTrack(0, "car")})
	w.Record(3, []track.Track{testTrack(0, "car"), testTrack(1, "person")})

	if w.PendingCount() != 4 {
		t.Errorf("pending = %d, want 4", w.PendingCount())
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending after flush = %d, want 0", w.PendingCount())
	}

	recs, err := db.GetSessionTracks(s.ID)
	if err != nil {
		t.Fatalf("GetSessionTracks failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d track summaries, want 2", len(recs))
	}
	// The unknown first frame must not mask the later car label.
	if recs[0].Label != "car" {
		t.Errorf("track 0 label = %q, want 'car'", recs[0].Label)
	}
	if recs[0].FirstFrame != 1 || recs[0].LastFrame != 3 {
		t.Errorf("track 0 frames = [%d, %d], want [1, 3]", recs[0].FirstFrame, recs[0].LastFrame)
	}

	obs, err := db.GetTrackObservations(s.ID, 0, 0)
	if err != nil {
		t.Fatalf("GetTrackObservations failed: %v", err)
	}
	if len(obs) != 3 {
		t.Errorf("got %d observations for track 0, want 3", len(obs))
	}
}

func TestTrackWriterFlushEmpty(t *testing.T) {
	db := newTestDB(t)
	s := createTestSession(t, db)

	w := NewTrackWriter(db, s.ID, time.Hour)
	if err := w.Flush(); err != nil {
		t.Errorf("empty flush should be a no-op, got: %v", err)
	}
}

func TestTrackWriterStopDrains(t *testing.T) {
	db := newTestDB(t)
	s := createTestSession(t, db)

	w := NewTrackWriter(db, s.ID, time.Hour)
	w.Start()
	w.Record(1, []track.Track{testTrack(0, "car")})
	w.Stop()

	obs, err := db.GetTrackObservations(s.ID, 0, 0)
	if err != nil {
		t.Fatalf("GetTrackObservations failed: %v", err)
	}
	if len(obs) != 1 {
		t.Errorf("got %d observations after Stop, want 1 (drain on stop)", len(obs))
	}
}
