package db

import (
	"testing"
	"time"
)

func TestCreateAndGetSession(t *testing.T) {
	db := newTestDB(t)

	s, err := db.CreateSession("evening run", "camera-3")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected non-empty session ID")
	}
	if s.StartedUnixNano == 0 {
		t.Error("expected non-zero start time")
	}

	got, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Label != "evening run" {
		t.Errorf("label = %q, want 'evening run'", got.Label)
	}
	if got.Source != "camera-3" {
		t.Errorf("source = %q, want 'camera-3'", got.Source)
	}
	if got.EndedUnixNano != nil {
		t.Error("new session should have no end time")
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetSession("no-such-session"); err == nil {
		t.Error("expected error for missing session, got nil")
	}
}

func TestEndSession(t *testing.T) {
	db := newTestDB(t)
	s := createTestSession(t, db)

	if err := db.EndSession(s.ID, 1234); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	got, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.EndedUnixNano == nil {
		t.Fatal("expected end time to be set")
	}
	if *got.EndedUnixNano > time.Now().UnixNano() {
		t.Error("end time is in the future")
	}
	if got.FramesProcessed != 1234 {
		t.Errorf("frames_processed = %d, want 1234", got.FramesProcessed)
	}
}

func TestEndSessionMissing(t *testing.T) {
	db := newTestDB(t)

	if err := db.EndSession("no-such-session", 1); err == nil {
		t.Error("expected error ending missing session, got nil")
	}
}

func TestListSessions(t *testing.T) {
	db := newTestDB(t)

	first := createTestSession(t, db)
	time.Sleep(2 * time.Millisecond) // distinct start times
	second := createTestSession(t, db)

	sessions, err := db.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	// Newest first.
	if sessions[0].ID != second.ID {
		t.Errorf("first listed session = %s, want newest %s", sessions[0].ID, second.ID)
	}
	if sessions[1].ID != first.ID {
		t.Errorf("second listed session = %s, want %s", sessions[1].ID, first.ID)
	}

	limited, err := db.ListSessions(1)
	if err != nil {
		t.Fatalf("ListSessions(1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d sessions with limit 1, want 1", len(limited))
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	db := newTestDB(t)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		s := createTestSession(t, db)
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %s", s.ID)
		}
		seen[s.ID] = true
	}
}
