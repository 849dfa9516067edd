package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripplanner/internal/models"
)

const currentSessionSlot = "current"

// SaveSession stores the signed-in user, replacing any previous one.
func (db *DB) SaveSession(ctx context.Context, user *models.User) error {
	if user == nil {
		return db.ClearSession(ctx)
	}

	raw, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}

	query := `INSERT INTO session (slot, user_json, saved_at) VALUES (?, ?, ?)
              ON CONFLICT(slot) DO UPDATE SET
                user_json = excluded.user_json,
                saved_at = excluded.saved_at`
	if _, err := db.ExecContext(ctx, query, currentSessionSlot, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored user or nil when nothing is stored.
// Sessions older than maxAge are treated as absent when maxAge > 0.
func (db *DB) LoadSession(ctx context.Context, maxAge time.Duration) (*models.User, error) {
	var (
		raw     string
		savedAt int64
	)
	err := db.QueryRowContext(ctx, `SELECT user_json, saved_at FROM session WHERE slot = ?`, currentSessionSlot).
		Scan(&raw, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if maxAge > 0 && time.Since(time.Unix(savedAt, 0)) > maxAge {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &user, nil
}

func (db *DB) ClearSession(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM session WHERE slot = ?`, currentSessionSlot)
	return err
}
