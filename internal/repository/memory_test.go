package repository

import (
	"context"
	"testing"
	"time"

	"tripplanner/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	user := &models.User{ID: 1, Name: "Ada", Password: "pw"}
	require.NoError(t, repo.Save(ctx, user))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Empty(t, got.Password)

	got.Name = "mutated"
	again, _ := repo.Load(ctx)
	assert.Equal(t, "Ada", again.Name, "callers get a copy")

	require.NoError(t, repo.Clear(ctx))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionRepository_TTL(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.User{ID: 1}))
	repo.savedAt = time.Now().Add(-2 * time.Hour)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
