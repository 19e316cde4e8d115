package db

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/boxtrack/internal/track"
)

// migrationsDir is the path to the migration files relative to this
// package. Tests run with the package directory as working directory.
const migrationsDir = "../../migrations"

// newTestDB opens a fresh migrated database in a temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

// createTestSession registers a session for store tests.
func createTestSession(t *testing.T, db *DB) *Session {
	t.Helper()

	s, err := db.CreateSession("test session", "unit test")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return s
}

// testTrack builds an emitted track with plausible field values.
func testTrack(id int64, label string) track.Track {
	return track.Track{
		ID:         id,
		Box:        track.BBox{X1: 10, Y1: 20, X2: 110, Y2: 220},
		Label:      label,
		Confidence: 0.8,
		Age:        5,
		Hits:       4,
		VX:         1.5,
		VY:         -0.5,
	}
}
