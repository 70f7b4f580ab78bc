// Package config loads the service configuration from JSON. Fields are
// pointers so a partial config file overrides only what it names; the
// Get* methods supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root service configuration.
type Config struct {
	// HTTP listen address, e.g. ":8000".
	Listen *string `json:"listen,omitempty"`

	// SQLite database path.
	DBPath *string `json:"db_path,omitempty"`

	// Directory containing golang-migrate SQL files.
	MigrationsDir *string `json:"migrations_dir,omitempty"`

	// Default camera index.
	CameraID *int `json:"camera_id,omitempty"`

	// Base URL of the MJPEG camera relay; stream index is appended.
	CameraStreamURL *string `json:"camera_stream_url,omitempty"`

	// Estimate endpoint of the pose inference service.
	PoseServiceURL *string `json:"pose_service_url,omitempty"`

	// Consecutive capture failures before re-acquisition.
	CaptureFailureThreshold *int `json:"capture_failure_threshold,omitempty"`

	// Rest behaviour between sets: "track" or "suspend".
	RestMode *string `json:"rest_mode,omitempty"`

	// Optional JSON file of extra exercise name aliases.
	AliasPath *string `json:"alias_path,omitempty"`

	// Calibration sampling window, duration string like "5s".
	CalibrationDuration *string `json:"calibration_duration,omitempty"`

	// Minimum gap between repeats of the same feedback message.
	FeedbackInterval *string `json:"feedback_interval,omitempty"`

	// User body weight in kg for calorie estimation.
	BodyWeightKg *float64 `json:"body_weight_kg,omitempty"`
}

func ptrString(v string) *string { return &v }

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.CaptureFailureThreshold != nil && *c.CaptureFailureThreshold < 1 {
		return fmt.Errorf("capture_failure_threshold must be positive, got %d", *c.CaptureFailureThreshold)
	}

	if c.RestMode != nil {
		switch *c.RestMode {
		case "track", "suspend":
		default:
			return fmt.Errorf("rest_mode must be \"track\" or \"suspend\", got %q", *c.RestMode)
		}
	}

	if c.CalibrationDuration != nil && *c.CalibrationDuration != "" {
		if _, err := time.ParseDuration(*c.CalibrationDuration); err != nil {
			return fmt.Errorf("invalid calibration_duration '%s': %w", *c.CalibrationDuration, err)
		}
	}

	if c.FeedbackInterval != nil && *c.FeedbackInterval != "" {
		if _, err := time.ParseDuration(*c.FeedbackInterval); err != nil {
			return fmt.Errorf("invalid feedback_interval '%s': %w", *c.FeedbackInterval, err)
		}
	}

	if c.BodyWeightKg != nil && *c.BodyWeightKg <= 0 {
		return fmt.Errorf("body_weight_kg must be positive, got %f", *c.BodyWeightKg)
	}

	return nil
}

// GetListen returns the listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8000"
	}
	return *c.Listen
}

// GetDBPath returns the database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "repcoach.db"
	}
	return *c.DBPath
}

// GetMigrationsDir returns the migrations directory or the default.
func (c *Config) GetMigrationsDir() string {
	if c.MigrationsDir == nil || *c.MigrationsDir == "" {
		return "internal/db/migrations"
	}
	return *c.MigrationsDir
}

// GetCameraID returns the camera index or the default.
func (c *Config) GetCameraID() int {
	if c.CameraID == nil {
		return 0
	}
	return *c.CameraID
}

// GetCameraStreamURL returns the camera relay base URL or the default.
func (c *Config) GetCameraStreamURL() string {
	if c.CameraStreamURL == nil || *c.CameraStreamURL == "" {
		return "http://127.0.0.1:8090/stream"
	}
	return *c.CameraStreamURL
}

// GetPoseServiceURL returns the pose service endpoint or the default.
func (c *Config) GetPoseServiceURL() string {
	if c.PoseServiceURL == nil || *c.PoseServiceURL == "" {
		return "http://127.0.0.1:8091/estimate"
	}
	return *c.PoseServiceURL
}

// GetCaptureFailureThreshold returns the failure threshold or the default.
func (c *Config) GetCaptureFailureThreshold() int {
	if c.CaptureFailureThreshold == nil {
		return 150
	}
	return *c.CaptureFailureThreshold
}

// GetRestMode returns the rest mode or the default.
func (c *Config) GetRestMode() string {
	if c.RestMode == nil || *c.RestMode == "" {
		return "track"
	}
	return *c.RestMode
}

// GetAliasPath returns the alias table path, empty when unset.
func (c *Config) GetAliasPath() string {
	if c.AliasPath == nil {
		return ""
	}
	return *c.AliasPath
}

// GetCalibrationDuration parses the calibration window or the default.
func (c *Config) GetCalibrationDuration() time.Duration {
	if c.CalibrationDuration == nil || *c.CalibrationDuration == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.CalibrationDuration)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetFeedbackInterval parses the feedback throttle or the default.
func (c *Config) GetFeedbackInterval() time.Duration {
	if c.FeedbackInterval == nil || *c.FeedbackInterval == "" {
		return 3 * time.Second
	}
	d, err := time.ParseDuration(*c.FeedbackInterval)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetBodyWeightKg returns the body weight or the default.
func (c *Config) GetBodyWeightKg() float64 {
	if c.BodyWeightKg == nil {
		return 70
	}
	return *c.BodyWeightKg
}
