package store

import (
	"bytes"
	"context"
	"testing"

	"tripplanner/internal/domain"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumented(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	mem := NewMemoryStore()
	s := NewInstrumented(mem, &logger)
	ctx := context.Background()

	var fav models.Favorite
	require.NoError(t, s.Create(ctx, models.CollectionFavorites, models.Favorite{UserID: 1, TripID: 1}, &fav))

	var favs []models.Favorite
	require.NoError(t, s.Fetch(ctx, models.CollectionFavorites, domain.Filter{"userId": "1"}, &favs))
	assert.Len(t, favs, 1)

	require.NoError(t, s.Update(ctx, models.CollectionFavorites, fav.ID, map[string]any{"tripId": 2}, nil))
	require.NoError(t, s.Delete(ctx, models.CollectionFavorites, fav.ID))
	assert.Error(t, s.Delete(ctx, models.CollectionFavorites, fav.ID))

	out := buf.String()
	assert.Contains(t, out, `"op":"create"`)
	assert.Contains(t, out, `"op":"delete"`)
	assert.Contains(t, out, `"level":"warn"`)
}
