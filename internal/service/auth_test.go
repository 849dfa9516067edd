package service

import (
	"context"
	"errors"
	"testing"

	"tripplanner/internal/models"
	"tripplanner/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAuthenticator_Authenticate(t *testing.T) {
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Seed(models.CollectionUsers, []models.User{
		{ID: 1, Name: "Ada", Email: "ada@example.com", Password: "engine"},
	}))
	auth := NewStoreAuthenticator(mem)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "ada@example.com", password: "engine"},
		{name: "email is case-insensitive", email: " ADA@example.com", password: "engine"},
		{name: "wrong password", email: "ada@example.com", password: "steam", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "engine", wantErr: ErrInvalidCredentials},
		{name: "empty password", email: "ada@example.com", password: "", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auth.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.ID(1), user.ID)
			assert.Empty(t, user.Password)
		})
	}
}

func TestStoreAuthenticator_Register(t *testing.T) {
	st := newFlakyStore()
	auth := NewStoreAuthenticator(st)
	ctx := context.Background()

	_, err := auth.Register(ctx, "", "a@example.com", "pw")
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Zero(t, st.count("fetch", models.CollectionUsers), "validation happens before any remote call")

	user, err := auth.Register(ctx, "Ada", "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.ID(1), user.ID)
	assert.Empty(t, user.Password)

	_, err = auth.Register(ctx, "Ada 2", "A@example.com", "pw")
	assert.ErrorIs(t, err, ErrUserExists)

	st.fail("fetch", models.CollectionUsers, errors.New("store down"))
	_, err = auth.Register(ctx, "Bob", "b@example.com", "pw")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserExists)
}

func TestStoreAuthenticator_MixedCaseStoredEmail(t *testing.T) {
	st := newFlakyStore()
	require.NoError(t, st.Seed(models.CollectionUsers, []models.User{
		{ID: 4, Name: "Grace", Email: "Grace.Hopper@Example.com", Password: "cobol"},
	}))
	auth := NewStoreAuthenticator(st)
	ctx := context.Background()

	user, err := auth.Authenticate(ctx, "Grace.Hopper@Example.com", "cobol")
	require.NoError(t, err)
	assert.Equal(t, models.ID(4), user.ID)
	assert.Equal(t, 1, st.count("fetch", models.CollectionUsers), "exact address is queried as typed")

	_, err = auth.Register(ctx, "Grace 2", "Grace.Hopper@Example.com", "pw")
	assert.ErrorIs(t, err, ErrUserExists)
}
