package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/boxtrack/internal/config"
	"github.com/banshee-data/boxtrack/internal/db"
	"github.com/banshee-data/boxtrack/internal/httputil"
	"github.com/banshee-data/boxtrack/internal/replay"
	"github.com/banshee-data/boxtrack/internal/track"
)

func carFrame(n int64, x float64) *replay.Frame {
	return &replay.Frame{
		Frame: n,
		Detections: []track.Detection{
			{
				Box:        track.BBox{X1: x, Y1: 100, X2: x + 100, Y2: 200},
				Label:      "car",
				Confidence: 0.9,
			},
		},
	}
}

func recordingOf(t *testing.T, frames ...*replay.Frame) *replay.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := replay.NewWriter(&buf)
	for _, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return replay.NewReader(&buf)
}

func TestStreamToServer(t *testing.T) {
	reader := recordingOf(t, carFrame(1, 100), carFrame(2, 105))

	metricsBody := `{"frames_processed":2,"tracks_created":1}`
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"frame":1,"tracks":[]}`)
	mock.AddResponse(http.StatusOK, `{"frame":2,"tracks":[]}`)
	mock.AddResponse(http.StatusOK, metricsBody)

	var out bytes.Buffer
	if err := streamToServer(reader, mock, "http://trackd:8080", &out); err != nil {
		t.Fatalf("streamToServer failed: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}

	// Every frame is POSTed in order, then the metrics are fetched.
	for i := 0; i < 2; i++ {
		if calls[i].Method != http.MethodPost || calls[i].URL != "http://trackd:8080/api/frames" {
			t.Errorf("call %d = %s %s, want POST /api/frames", i, calls[i].Method, calls[i].URL)
		}
		var payload struct {
			Detections []track.Detection `json:"detections"`
		}
		if err := json.Unmarshal(calls[i].Body, &payload); err != nil {
			t.Fatalf("call %d body is not valid JSON: %v", i, err)
		}
		if len(payload.Detections) != 1 {
			t.Errorf("call %d posted %d detections, want 1", i, len(payload.Detections))
		}
		if payload.Detections[0].Label != "car" {
			t.Errorf("call %d label = %q, want car", i, payload.Detections[0].Label)
		}
	}
	if calls[2].Method != http.MethodGet || calls[2].URL != "http://trackd:8080/api/metrics" {
		t.Errorf("call 2 = %s %s, want GET /api/metrics", calls[2].Method, calls[2].URL)
	}

	if !strings.Contains(out.String(), metricsBody) {
		t.Errorf("output = %q, want the metrics body %q", out.String(), metricsBody)
	}
}

func TestStreamToServerRejectedFrame(t *testing.T) {
	reader := recordingOf(t, carFrame(1, 100))

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusBadRequest, `{"error":"detection box must be finite"}`)

	var out bytes.Buffer
	err := streamToServer(reader, mock, "http://trackd:8080", &out)
	if err == nil {
		t.Fatal("expected error for rejected frame, got nil")
	}
	if !strings.Contains(err.Error(), "frame 1 rejected with status 400") {
		t.Errorf("err = %v, want frame rejection with status 400", err)
	}
	// The stream stops at the first rejection.
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}
}

func TestRunLocalWithoutDatabase(t *testing.T) {
	reader := recordingOf(t, carFrame(1, 100), carFrame(2, 105), carFrame(3, 110))

	result, err := runLocal(reader, "test.jsonl", config.EmptyTuningConfig(), nil)
	if err != nil {
		t.Fatalf("runLocal failed: %v", err)
	}
	if result.Metrics.FramesProcessed != 3 {
		t.Errorf("frames_processed = %d, want 3", result.Metrics.FramesProcessed)
	}
}

func TestRunLocalPersistsSession(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp("../../../migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	reader := recordingOf(t, carFrame(1, 100), carFrame(2, 105), carFrame(3, 110), carFrame(4, 115))

	result, err := runLocal(reader, "recording.jsonl", config.EmptyTuningConfig(), database)
	if err != nil {
		t.Fatalf("runLocal failed: %v", err)
	}
	if result.Metrics.FramesProcessed != 4 {
		t.Errorf("frames_processed = %d, want 4", result.Metrics.FramesProcessed)
	}

	sessions, err := database.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.Label != "recording.jsonl" {
		t.Errorf("label = %q, want recording.jsonl", s.Label)
	}
	if s.Source != "replay" {
		t.Errorf("source = %q, want replay", s.Source)
	}
	// The session end carries the replayed frame count.
	if s.FramesProcessed != 4 {
		t.Errorf("frames_processed = %d, want 4", s.FramesProcessed)
	}
	if s.EndedUnixNano == nil {
		t.Error("session should be ended after the replay completes")
	}

	tracks, err := database.GetSessionTracks(s.ID)
	if err != nil {
		t.Fatalf("GetSessionTracks failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d persisted tracks, want 1", len(tracks))
	}
	if tracks[0].Label != "car" {
		t.Errorf("persisted label = %q, want car", tracks[0].Label)
	}
}
