// Command replay runs a recorded detection stream through the tracker
// offline. It prints the resulting metrics as JSON, which makes it the
// workhorse for parameter sweeps: run the same recording under several
// configs and compare.
//
// Usage:
//
//	go run ./cmd/tools/replay -in recording.jsonl [flags]
//
// Flags:
//
//	-in       Path to the JSONL recording (required)
//	-config   Tuning config JSON file (defaults apply when empty)
//	-db       Optional SQLite database; results are persisted as a new session
//	-server   Optional running trackd URL; frames are POSTed instead of tracked locally
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/banshee-data/boxtrack/internal/config"
	"github.com/banshee-data/boxtrack/internal/db"
	"github.com/banshee-data/boxtrack/internal/httputil"
	"github.com/banshee-data/boxtrack/internal/replay"
	"github.com/banshee-data/boxtrack/internal/track"
)

var (
	inPath        = flag.String("in", "", "Path to JSONL recording (required)")
	configPath    = flag.String("config", "", "Tuning config JSON file")
	dbFile        = flag.String("db", "", "SQLite database to persist the replay session into")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
	serverURL     = flag.String("server", "", "POST frames to a running trackd instead of tracking locally")
)

func main() {
	flag.Parse()

	if *inPath == "" {
		log.Fatal("Error: -in flag is required")
	}

	reader, err := replay.OpenFile(*inPath)
	if err != nil {
		log.Fatalf("Failed to open recording: %v", err)
	}
	defer reader.Close()

	if *serverURL != "" {
		client := httputil.NewStandardClient(http.DefaultClient)
		if err := streamToServer(reader, client, *serverURL, os.Stdout); err != nil {
			log.Fatalf("Replay against server failed: %v", err)
		}
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	var database *db.DB
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	result, err := runLocal(reader, *inPath, tuning, database)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

// runLocal replays a recording through a fresh tracker. When database
// is non-nil the run is persisted as a session labelled with the
// recording path; the session end carries the replayed frame count.
func runLocal(reader *replay.Reader, label string, tuning *config.TuningConfig, database *db.DB) (*replay.Result, error) {
	var emit func(frame int64, tracks []track.Track) error
	var writer *db.TrackWriter
	var session *db.Session
	if database != nil {
		var err error
		session, err = database.CreateSession(label, "replay")
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		writer = db.NewTrackWriter(database, session.ID, tuning.GetFlushInterval())
		emit = func(frame int64, tracks []track.Track) error {
			writer.Record(frame, tracks)
			return nil
		}
		log.Printf("Persisting replay as session %s", session.ID)
	}

	result, err := replay.Run(reader, tuning.TrackerConfig(), emit)
	if err != nil {
		return nil, err
	}

	if database != nil {
		if err := writer.Flush(); err != nil {
			return nil, fmt.Errorf("failed to flush tracks: %w", err)
		}
		if err := database.EndSession(session.ID, int64(result.Metrics.FramesProcessed)); err != nil {
			return nil, fmt.Errorf("failed to end session: %w", err)
		}
	}

	return result, nil
}

// streamToServer POSTs every recorded frame to a running trackd and
// writes its final metrics to out.
func streamToServer(reader *replay.Reader, client httputil.HTTPClient, baseURL string, out io.Writer) error {
	frames := 0
	for {
		f, err := reader.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		body, err := json.Marshal(map[string]interface{}{"detections": f.Detections})
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Frame, err)
		}
		resp, err := client.Post(baseURL+"/api/frames", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post frame %d: %w", f.Frame, err)
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("frame %d rejected with status %d: %s", f.Frame, resp.StatusCode, msg)
		}
		resp.Body.Close()
		frames++
	}
	log.Printf("Streamed %d frames to %s", frames, baseURL)

	resp, err := client.Get(baseURL + "/api/metrics")
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("print metrics: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}
