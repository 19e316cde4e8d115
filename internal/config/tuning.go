package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/boxtrack/internal/track"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracker tuning
// parameters. The schema matches the /api/params endpoint so the same
// JSON can be used for both startup configuration and runtime updates.
//
// All fields are pointers: nil means "not specified", and the Get*
// accessors fall back to the documented defaults. This makes partial
// configs safe to load and merge.
type TuningConfig struct {
	// Tracker lifecycle params
	MaxAge           *int     `json:"max_age,omitempty"`
	MinHits          *int     `json:"min_hits,omitempty"`
	IoUThreshold     *float64 `json:"iou_threshold,omitempty"`
	MaxHistoryLength *int     `json:"max_history_length,omitempty"`

	// Persistence params
	FlushInterval *string `json:"flush_interval,omitempty"` // duration string like "30s"
	PersistTracks *bool   `json:"persist_tracks,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxAge != nil && *c.MaxAge < 0 {
		return fmt.Errorf("max_age must be non-negative, got %d", *c.MaxAge)
	}
	if c.MinHits != nil && *c.MinHits < 0 {
		return fmt.Errorf("min_hits must be non-negative, got %d", *c.MinHits)
	}
	if c.IoUThreshold != nil {
		if *c.IoUThreshold < 0 || *c.IoUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", *c.IoUThreshold)
		}
	}
	if c.MaxHistoryLength != nil && *c.MaxHistoryLength < 0 {
		return fmt.Errorf("max_history_length must be non-negative, got %d", *c.MaxHistoryLength)
	}
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
	}
	return nil
}

// Merge overlays the non-nil fields of other onto a copy of c and
// returns the result. Used by the params endpoint to apply partial
// runtime updates without clobbering unspecified fields.
func (c *TuningConfig) Merge(other *TuningConfig) *TuningConfig {
	merged := *c
	if other == nil {
		return &merged
	}
	if other.MaxAge != nil {
		merged.MaxAge = other.MaxAge
	}
	if other.MinHits != nil {
		merged.MinHits = other.MinHits
	}
	if other.IoUThreshold != nil {
		merged.IoUThreshold = other.IoUThreshold
	}
	if other.MaxHistoryLength != nil {
		merged.MaxHistoryLength = other.MaxHistoryLength
	}
	if other.FlushInterval != nil {
		merged.FlushInterval = other.FlushInterval
	}
	if other.PersistTracks != nil {
		merged.PersistTracks = other.PersistTracks
	}
	return &merged
}

// GetMaxAge returns the max_age value or the default.
func (c *TuningConfig) GetMaxAge() int {
	if c.MaxAge == nil {
		return 1 // default
	}
	return *c.MaxAge
}

// GetMinHits returns the min_hits value or the default.
func (c *TuningConfig) GetMinHits() int {
	if c.MinHits == nil {
		return 3 // default
	}
	return *c.MinHits
}

// GetIoUThreshold returns the iou_threshold value or the default.
func (c *TuningConfig) GetIoUThreshold() float64 {
	if c.IoUThreshold == nil {
		return 0.3 // default
	}
	return *c.IoUThreshold
}

// GetMaxHistoryLength returns the max_history_length value or the default.
func (c *TuningConfig) GetMaxHistoryLength() int {
	if c.MaxHistoryLength == nil {
		return 30 // default
	}
	return *c.MaxHistoryLength
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *TuningConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetPersistTracks returns the persist_tracks value or the default.
func (c *TuningConfig) GetPersistTracks() bool {
	if c.PersistTracks == nil {
		return true // default: persistence enabled
	}
	return *c.PersistTracks
}

// TrackerConfig converts the tuning values into the track package's
// configuration struct, applying defaults for unset fields.
func (c *TuningConfig) TrackerConfig() track.Config {
	return track.Config{
		MaxAge:           c.GetMaxAge(),
		MinHits:          c.GetMinHits(),
		IoUThreshold:     c.GetIoUThreshold(),
		MaxHistoryLength: c.GetMaxHistoryLength(),
	}
}
