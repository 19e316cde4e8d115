// Package api exposes the tracking pipeline over HTTP: frame ingest,
// live track queries, tuning parameters, and session history.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/boxtrack/internal/config"
	"github.com/banshee-data/boxtrack/internal/db"
	"github.com/banshee-data/boxtrack/internal/httputil"
	"github.com/banshee-data/boxtrack/internal/monitoring"
	"github.com/banshee-data/boxtrack/internal/track"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serialises access to one Tracker and persists its output. The
// tracker itself is single-threaded; the server's mutex is the only
// thing standing between concurrent frame posts.
type Server struct {
	db *db.DB

	mu      sync.Mutex
	tracker *track.Tracker
	tuning  *config.TuningConfig
	writer  *db.TrackWriter
	session *db.Session
}

// NewServer builds a server around a fresh tracker configured from
// tuning. A database is optional: with a nil db the server still tracks
// but persists nothing.
func NewServer(database *db.DB, tuning *config.TuningConfig) (*Server, error) {
	tracker, err := track.NewTracker(tuning.TrackerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}

	s := &Server{
		db:      database,
		tracker: tracker,
		tuning:  tuning,
	}

	if database != nil && tuning.GetPersistTracks() {
		session, err := database.CreateSession("", "api")
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		s.session = session
		s.writer = db.NewTrackWriter(database, session.ID, tuning.GetFlushInterval())
		s.writer.Start()
	}

	return s, nil
}

// Close drains the track writer and stamps the session end.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		s.writer.Stop()
	}
	if s.session != nil && s.db != nil {
		if err := s.db.EndSession(s.session.ID, int64(s.tracker.FrameCount())); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
	}
	return nil
}

// rollSessionLocked ends the current persisted session and opens a new
// one under the given tuning. Caller holds s.mu.
func (s *Server) rollSessionLocked(tuning *config.TuningConfig) error {
	if s.writer != nil {
		s.writer.Stop()
		s.writer = nil
	}
	if s.session != nil && s.db != nil {
		if err := s.db.EndSession(s.session.ID, int64(s.tracker.FrameCount())); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
		s.session = nil
	}
	if s.db != nil && tuning.GetPersistTracks() {
		session, err := s.db.CreateSession("", "api")
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		s.session = session
		s.writer = db.NewTrackWriter(s.db, session.ID, tuning.GetFlushInterval())
		s.writer.Start()
	}
	return nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routing table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frames", s.handleFrames)
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	return mux
}

// FramePayload is the ingest body: one frame of detections.
type FramePayload struct {
	Detections []track.Detection `json:"detections"`
}

// FrameResponse reports the frame number assigned to the payload and
// the tracks confirmed for it.
type FrameResponse struct {
	Frame  int           `json:"frame"`
	Tracks []track.Track `json:"tracks"`
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var payload FramePayload
	if err := httputil.DecodeJSON(w, r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	for i, d := range payload.Detections {
		if !d.Box.IsFinite() {
			httputil.BadRequest(w, fmt.Sprintf("detection %d has non-finite box", i))
			return
		}
	}

	s.mu.Lock()
	tracks := s.tracker.Update(payload.Detections)
	frame := s.tracker.FrameCount()
	if s.writer != nil {
		s.writer.Record(int64(frame), tracks)
	}
	s.mu.Unlock()

	httputil.WriteJSONOK(w, FrameResponse{Frame: frame, Tracks: tracks})
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		// Live view: counters for the in-memory tracker.
		s.mu.Lock()
		resp := map[string]interface{}{
			"frame":         s.tracker.FrameCount(),
			"active_tracks": s.tracker.ActiveTracks(),
		}
		if s.session != nil {
			resp["session_id"] = s.session.ID
		}
		s.mu.Unlock()
		httputil.WriteJSONOK(w, resp)
		return
	}

	if s.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	recs, err := s.db.GetSessionTracks(sessionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load tracks: %v", err))
		return
	}
	if recs == nil {
		recs = []*db.TrackRecord{}
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	m := s.tracker.Metrics()
	s.mu.Unlock()

	httputil.WriteJSONOK(w, m)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		tuning := s.tuning
		s.mu.Unlock()
		httputil.WriteJSONOK(w, tuning)

	case http.MethodPost:
		var update config.TuningConfig
		if err := httputil.DecodeJSON(w, r, &update); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}

		s.mu.Lock()
		merged := s.tuning.Merge(&update)
		if err := merged.Validate(); err != nil {
			s.mu.Unlock()
			httputil.BadRequest(w, err.Error())
			return
		}

		// New lifecycle parameters take effect on a fresh tracker; the
		// old one's identities do not survive a reconfiguration. Track
		// IDs restart at zero, so persistence rolls to a new session.
		tracker, err := track.NewTracker(merged.TrackerConfig())
		if err != nil {
			s.mu.Unlock()
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.rollSessionLocked(merged); err != nil {
			s.mu.Unlock()
			httputil.InternalServerError(w, err.Error())
			return
		}
		s.tuning = merged
		s.tracker = tracker
		s.mu.Unlock()

		httputil.WriteJSONOK(w, merged)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.WriteJSONOK(w, []*db.Session{})
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	sessions, err := s.db.ListSessions(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []*db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}
