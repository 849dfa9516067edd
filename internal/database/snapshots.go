package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveSnapshot stores records as the latest known copy of a collection.
func (db *DB) SaveSnapshot(ctx context.Context, collection string, records any) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", collection, err)
	}

	query := `INSERT INTO snapshots (collection, payload, updated_at) VALUES (?, ?, ?)
              ON CONFLICT(collection) DO UPDATE SET
                payload = excluded.payload,
                updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query, collection, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", collection, err)
	}
	return nil
}

// LoadSnapshot decodes the stored copy of collection into out.
// It reports false when no snapshot exists.
func (db *DB) LoadSnapshot(ctx context.Context, collection string, out any) (bool, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE collection = ?`, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s snapshot: %w", collection, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s snapshot: %w", collection, err)
	}
	return true, nil
}

// SnapshotAge returns how long ago collection was stored.
func (db *DB) SnapshotAge(ctx context.Context, collection string) (time.Duration, bool, error) {
	var updatedAt int64
	err := db.QueryRowContext(ctx, `SELECT updated_at FROM snapshots WHERE collection = ?`, collection).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return time.Since(time.Unix(updatedAt, 0)), true, nil
}
