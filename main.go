// Command trackd runs the multi-object tracking service: an HTTP API
// that turns per-frame detections into persistent, identified tracks
// and records them to SQLite.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/boxtrack/internal/api"
	"github.com/banshee-data/boxtrack/internal/config"
	"github.com/banshee-data/boxtrack/internal/db"
	"github.com/banshee-data/boxtrack/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "boxtrack.db", "Path to the SQLite database (empty disables persistence)")
	configPath    = flag.String("config", "", "Path to a tuning config JSON file (defaults apply when empty)")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
	migrateForce  = flag.Int("migrate-force", -1, "Force the schema to the given version to recover from a dirty migration, then exit")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("trackd %s starting", version.String())

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	var database *db.DB
	if *dbFile != "" {
		var err error
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if *migrateForce >= 0 {
			if err := database.MigrateForce(*migrationsDir, *migrateForce); err != nil {
				log.Fatalf("Failed to force migration version: %v", err)
			}
			log.Printf("Forced schema version to %d", *migrateForce)
			return
		}

		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	server, err := api.NewServer(database, tuning)
	if err != nil {
		log.Fatalf("Failed to create API server: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Fatalf("Failed to attach admin routes: %v", err)
			}
		}

		mux.Handle("/api/", server.ServeMux())

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		// Drain buffered track writes and close the session.
		if err := server.Close(); err != nil {
			log.Printf("API server close error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
