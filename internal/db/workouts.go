package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kinetic-data/repcoach/internal/session"
)

// Workout is one persisted exercise segment.
type Workout struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Exercise  string    `json:"exercise"`
	Reps      int       `json:"reps"`
	Sets      int       `json:"sets"`
	Calories  float64   `json:"calories"`
	Fatigue   float64   `json:"fatigue"`
	Duration  int       `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// UserStats aggregates a user's workout history.
type UserStats struct {
	TotalSessions int     `json:"total_sessions"`
	TotalReps     int     `json:"total_reps"`
	TotalCalories float64 `json:"total_calories"`
	TotalSeconds  int     `json:"total_seconds"`
	AvgFatigue    float64 `json:"avg_fatigue"`
}

// CreateWorkout inserts a new workout record and returns its id.
func (db *DB) CreateWorkout(ctx context.Context, rec session.WorkoutRecord) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO workout_sessions
		   (session_id, user_id, exercise, reps, sets, calories, fatigue, duration_seconds, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.Exercise, rec.Reps, rec.Sets, rec.Calories,
		rec.Fatigue, rec.Duration, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("create workout: %w", err)
	}
	return id, nil
}

// UpdateWorkout rewrites an existing record in place.
func (db *DB) UpdateWorkout(ctx context.Context, rec session.WorkoutRecord) error {
	res, err := db.ExecContext(ctx,
		`UPDATE workout_sessions
		 SET reps = ?, sets = ?, calories = ?, fatigue = ?, duration_seconds = ?
		 WHERE session_id = ?`,
		rec.Reps, rec.Sets, rec.Calories, rec.Fatigue, rec.Duration, rec.SessionID)
	if err != nil {
		return fmt.Errorf("update workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserWorkouts returns a user's history, newest first.
func (db *DB) UserWorkouts(ctx context.Context, userID string, limit int) ([]*Workout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, user_id, exercise, reps, sets, calories, fatigue, duration_seconds, timestamp
		 FROM workout_sessions WHERE user_id = ?
		 ORDER BY timestamp DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("user workouts: %w", err)
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		var w Workout
		err := rows.Scan(&w.SessionID, &w.UserID, &w.Exercise, &w.Reps, &w.Sets,
			&w.Calories, &w.Fatigue, &w.Duration, &w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, &w)
	}
	return workouts, rows.Err()
}

// UserStats aggregates totals across a user's history.
func (db *DB) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	row := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(calories), 0),
		        COALESCE(SUM(duration_seconds), 0), COALESCE(AVG(fatigue), 0)
		 FROM workout_sessions WHERE user_id = ?`, userID)

	var stats UserStats
	err := row.Scan(&stats.TotalSessions, &stats.TotalReps, &stats.TotalCalories, &stats.TotalSeconds, &stats.AvgFatigue)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return &stats, nil
}
