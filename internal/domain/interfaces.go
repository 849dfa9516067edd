package domain

import (
	"context"
	"errors"
	"time"

	"tripplanner/internal/models"
)

// ErrNotFound is returned by a RecordStore when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// Filter narrows a Fetch by field equality, e.g. {"userId": "3"}.
type Filter map[string]string

// RecordStore is the remote record store capability. Records are JSON documents; out is
// decoded the way encoding/json would decode the server response.
type RecordStore interface {
	Fetch(ctx context.Context, collection string, filter Filter, out any) error
	Create(ctx context.Context, collection string, record any, out any) error
	Update(ctx context.Context, collection string, id models.ID, patch any, out any) error
	Delete(ctx context.Context, collection string, id models.ID) error
}

// SessionRepository persists the signed-in identity across restarts.
// Load returns nil, nil when nobody is signed in.
type SessionRepository interface {
	Load(ctx context.Context) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Clear(ctx context.Context) error
}

// SnapshotStore keeps the last known-good copy of a fetched collection.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, collection string, records any) error
	LoadSnapshot(ctx context.Context, collection string, out any) (bool, error)
}

// Authenticator verifies credentials. It is owned outside the core.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, name, email, password string) (*models.User, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Scheduler runs a job after a delay; a newer job for the same key replaces a pending one.
type Scheduler interface {
	Schedule(key string, delay time.Duration, job func(ctx context.Context) error)
}
