package repository

import (
	"context"
	"time"

	"tripplanner/internal/database"
	"tripplanner/internal/models"
)

// SQLiteSessionRepository persists the identity cell in the local database.
type SQLiteSessionRepository struct {
	db  *database.DB
	ttl time.Duration
}

func NewSQLiteSessionRepository(db *database.DB, ttl time.Duration) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db, ttl: ttl}
}

func (r *SQLiteSessionRepository) Load(ctx context.Context) (*models.User, error) {
	return r.db.LoadSession(ctx, r.ttl)
}

func (r *SQLiteSessionRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.SaveSession(ctx, user)
}

func (r *SQLiteSessionRepository) Clear(ctx context.Context) error {
	return r.db.ClearSession(ctx)
}
