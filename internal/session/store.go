package session

import (
	"context"

	"github.com/kinetic-data/repcoach/internal/pose"
)

// WorkoutRecord is one persisted exercise segment within a session.
type WorkoutRecord struct {
	SessionID string
	UserID    string
	Exercise  string
	Reps      int
	Sets      int
	Calories  float64
	Fatigue   float64
	Duration  int // seconds
}

// Store is the persistence seam. A nil Store disables persistence; every
// call site checks. Implemented by the db package.
type Store interface {
	// UserThresholds returns the user's saved threshold overrides, or an
	// empty map when the user has none.
	UserThresholds(ctx context.Context, userID string) (map[string]float64, error)

	// CreateWorkout inserts a new workout record and returns its id.
	CreateWorkout(ctx context.Context, rec WorkoutRecord) (string, error)

	// UpdateWorkout updates an existing record in place.
	UpdateWorkout(ctx context.Context, rec WorkoutRecord) error

	// SaveCalibration persists calibration output on the user row.
	SaveCalibration(ctx context.Context, userID string, ratios pose.BodyRatios, thresholds map[string]float64, bodyType string) error
}
