package repository

import (
	"context"
	"sync"
	"time"

	"tripplanner/internal/models"
)

// MemorySessionRepository keeps the identity cell in process memory.
type MemorySessionRepository struct {
	mu      sync.RWMutex
	user    *models.User
	savedAt time.Time
	ttl     time.Duration
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl}
}

func (r *MemorySessionRepository) Load(_ context.Context) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.user == nil {
		return nil, nil
	}
	if r.ttl > 0 && time.Since(r.savedAt) > r.ttl {
		return nil, nil
	}
	user := *r.user
	return &user, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user == nil {
		r.user = nil
		return nil
	}
	public := user.Public()
	r.user = &public
	r.savedAt = time.Now()
	return nil
}

func (r *MemorySessionRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.user = nil
	r.mu.Unlock()
	return nil
}
