package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kinetic-data/repcoach/internal/pose"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// User is a coaching profile with calibration output attached.
type User struct {
	UserID     string             `json:"user_id"`
	Name       string             `json:"name"`
	BodyType   string             `json:"body_type,omitempty"`
	Ratios     *pose.BodyRatios   `json:"ratios,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CreateUser inserts a profile and returns it with a generated id.
func (db *DB) CreateUser(ctx context.Context, name string) (*User, error) {
	u := &User{
		UserID:    uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (user_id, name, created_at) VALUES (?, ?, ?)`,
		u.UserID, u.Name, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser fetches one profile by id.
func (db *DB) GetUser(ctx context.Context, userID string) (*User, error) {
	row := db.QueryRowContext(ctx,
		`SELECT user_id, name, body_type, ratios, thresholds, created_at
		 FROM users WHERE user_id = ?`, userID)
	return scanUser(row)
}

// ListUsers returns all profiles, newest first.
func (db *DB) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, name, body_type, ratios, thresholds, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a profile and its workout history.
func (db *DB) DeleteUser(ctx context.Context, userID string) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM workout_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserName renames a profile.
func (db *DB) UpdateUserName(ctx context.Context, userID, name string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET name = ? WHERE user_id = ?`, name, userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserThresholds returns a user's saved threshold overrides, empty when
// the user has never calibrated.
func (db *DB) UserThresholds(ctx context.Context, userID string) (map[string]float64, error) {
	u, err := db.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Thresholds == nil {
		return map[string]float64{}, nil
	}
	return u.Thresholds, nil
}

// SaveCalibration stores calibration output on the user row.
func (db *DB) SaveCalibration(ctx context.Context, userID string, ratios pose.BodyRatios, thresholds map[string]float64, bodyType string) error {
	ratiosJSON, err := json.Marshal(ratios)
	if err != nil {
		return fmt.Errorf("encode ratios: %w", err)
	}
	thresholdsJSON, err := json.Marshal(thresholds)
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE users SET ratios = ?, thresholds = ?, body_type = ? WHERE user_id = ?`,
		string(ratiosJSON), string(thresholdsJSON), bodyType, userID)
	if err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var ratiosJSON, thresholdsJSON string
	err := row.Scan(&u.UserID, &u.Name, &u.BodyType, &ratiosJSON, &thresholdsJSON, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if ratiosJSON != "" {
		var r pose.BodyRatios
		if err := json.Unmarshal([]byte(ratiosJSON), &r); err == nil {
			u.Ratios = &r
		}
	}
	if thresholdsJSON != "" {
		var t map[string]float64
		if err := json.Unmarshal([]byte(thresholdsJSON), &t); err == nil {
			u.Thresholds = t
		}
	}
	return &u, nil
}
