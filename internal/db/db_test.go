package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, u.UserID)
	assert.Equal(t, "Alice", u.Name)

	got, err := db.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, "Alice", got.Name)
	assert.Nil(t, got.Ratios)
	assert.Nil(t, got.Thresholds)

	_, err = db.CreateUser(ctx, "Bob")
	require.NoError(t, err)
	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, db.UpdateUserName(ctx, u.UserID, "Alicia"))
	got, err = db.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)

	require.NoError(t, db.DeleteUser(ctx, u.UserID))
	_, err = db.GetUser(ctx, u.UserID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetUser(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.UpdateUserName(ctx, "nobody", "x"), ErrNotFound))
	assert.True(t, errors.Is(db.DeleteUser(ctx, "nobody"), ErrNotFound))
	_, err = db.UserThresholds(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveCalibrationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "Cal")
	require.NoError(t, err)

	// No calibration yet means empty overrides, not an error.
	thresholds, err := db.UserThresholds(ctx, u.UserID)
	require.NoError(t, err)
	assert.Empty(t, thresholds)

	ratios := pose.BodyRatios{LegTorsoRatio: 1.2, ShoulderWidth: 0.3, ArmLength: 0.22, TorsoHeight: 0.35}
	saved := map[string]float64{"squat_knee_angle": 85, "plank_hip_angle": 150}
	require.NoError(t, db.SaveCalibration(ctx, u.UserID, ratios, saved, "athletic"))

	got, err := db.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "athletic", got.BodyType)
	require.NotNil(t, got.Ratios)
	assert.Equal(t, ratios, *got.Ratios)
	assert.Equal(t, saved, got.Thresholds)

	thresholds, err = db.UserThresholds(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, saved, thresholds)

	err = db.SaveCalibration(ctx, "nobody", ratios, saved, "athletic")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWorkoutHistoryAndStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "Dana")
	require.NoError(t, err)

	rec := session.WorkoutRecord{
		UserID: u.UserID, Exercise: "squat",
		Reps: 10, Sets: 2, Calories: 12.5, Fatigue: 8, Duration: 300,
	}
	id, err := db.CreateWorkout(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	for _, ex := range []string{"pushup", "plank"} {
		rec2 := rec
		rec2.Exercise = ex
		rec2.Reps = 5
		_, err := db.CreateWorkout(ctx, rec2)
		require.NoError(t, err)
	}

	workouts, err := db.UserWorkouts(ctx, u.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, workouts, 3)

	limited, err := db.UserWorkouts(ctx, u.UserID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	rec.SessionID = id
	rec.Reps = 15
	rec.Calories = 20
	require.NoError(t, db.UpdateWorkout(ctx, rec))

	workouts, err = db.UserWorkouts(ctx, u.UserID, 0)
	require.NoError(t, err)
	var updated *Workout
	for _, w := range workouts {
		if w.SessionID == id {
			updated = w
		}
	}
	require.NotNil(t, updated)
	assert.Equal(t, 15, updated.Reps)
	assert.Equal(t, 20.0, updated.Calories)
	assert.Equal(t, "squat", updated.Exercise)

	stats, err := db.UserStats(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 25, stats.TotalReps)
	assert.Equal(t, 30.0, stats.TotalCalories)
	assert.Equal(t, 900, stats.TotalSeconds)
	assert.Equal(t, 8.0, stats.AvgFatigue)

	err = db.UpdateWorkout(ctx, session.WorkoutRecord{SessionID: "ghost"})
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting the user takes the history with it.
	require.NoError(t, db.DeleteUser(ctx, u.UserID))
	workouts, err = db.UserWorkouts(ctx, u.UserID, 0)
	require.NoError(t, err)
	assert.Empty(t, workouts)
}

func TestStatsForEmptyHistory(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.UserStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Equal(t, 0, stats.TotalReps)
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.MigrateUp("migrations"))
	version, dirty, err := db.MigrateVersion("migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp("migrations"))

	require.NoError(t, db.MigrateDown("migrations"))
	version, _, err = db.MigrateVersion("migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
