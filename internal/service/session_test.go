package service

import (
	"context"
	"errors"
	"testing"

	"tripplanner/internal/events"
	"tripplanner/internal/models"
	"tripplanner/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Load(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockSessionRepo) Save(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockSessionRepo) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestSessionService_SignInPersistsAndPublishes(t *testing.T) {
	logger := zerolog.Nop()
	repo := repository.NewMemorySessionRepository(0)
	auth := new(mockAuth)
	bus := events.NewEventBus()
	identity := collect(bus, events.EventIdentityChanged)
	ctx := context.Background()

	auth.On("Authenticate", ctx, "ada@example.com", "engine").
		Return(&models.User{ID: 7, Name: "Ada", Email: "ada@example.com", Password: "engine"}, nil).Once()

	svc := NewSessionService(repo, auth, bus, &logger)
	assert.Nil(t, svc.Current())
	gen := svc.Generation()

	user, err := svc.SignIn(ctx, "ada@example.com", "engine")
	require.NoError(t, err)
	assert.Equal(t, models.ID(7), user.ID)
	assert.Empty(t, user.Password)
	assert.Equal(t, gen+1, svc.Generation())

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.ID(7), stored.ID)

	got := identity()
	require.Len(t, got, 1)
	var payload events.IdentityPayload
	require.NoError(t, got[0].Decode(&payload))
	assert.Equal(t, int64(7), payload.UserID)
	assert.Equal(t, svc.Generation(), payload.Generation)
	auth.AssertExpectations(t)
}

func TestSessionService_SignInFailureKeepsIdentity(t *testing.T) {
	logger := zerolog.Nop()
	auth := new(mockAuth)
	ctx := context.Background()
	auth.On("Authenticate", ctx, "x@example.com", "bad").Return(nil, ErrInvalidCredentials).Once()

	svc := NewSessionService(repository.NewMemorySessionRepository(0), auth, nil, &logger)
	gen := svc.Generation()

	_, err := svc.SignIn(ctx, "x@example.com", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, svc.Current())
	assert.Equal(t, gen, svc.Generation())
}

func TestSessionService_SignOut(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	identity := collect(env.bus, events.EventIdentityChanged)
	env.signIn(t, "ada@example.com", "engine")

	env.sessions.SignOut(context.Background())
	assert.Nil(t, env.sessions.Current())

	got := identity()
	require.Len(t, got, 2)
	var payload events.IdentityPayload
	require.NoError(t, got[1].Decode(&payload))
	assert.Zero(t, payload.UserID)
}

func TestSessionService_Restore(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("StoredUser", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(0)
		require.NoError(t, repo.Save(ctx, &models.User{ID: 3, Name: "Lin"}))

		svc := NewSessionService(repo, nil, nil, &logger)
		user := svc.Restore(ctx)
		require.NotNil(t, user)
		assert.Equal(t, models.ID(3), user.ID)
	})

	t.Run("UnreadableMeansSignedOut", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("Load", ctx).Return(nil, errors.New("corrupt")).Once()

		svc := NewSessionService(repo, nil, nil, &logger)
		assert.Nil(t, svc.Restore(ctx))
		assert.Equal(t, uint64(1), svc.Generation())
		repo.AssertExpectations(t)
	})

	t.Run("MissingIDMeansSignedOut", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(0)
		require.NoError(t, repo.Save(ctx, &models.User{Name: "ghost"}))

		svc := NewSessionService(repo, nil, nil, &logger)
		assert.Nil(t, svc.Restore(ctx))
	})
}

func TestSessionService_PersistFailureStillSignsIn(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := new(mockSessionRepo)
	auth := new(mockAuth)
	user := &models.User{ID: 1, Name: "A"}

	auth.On("Authenticate", ctx, "a@example.com", "pw").Return(user, nil).Once()
	repo.On("Save", ctx, mock.AnythingOfType("*models.User")).Return(errors.New("disk full")).Once()

	svc := NewSessionService(repo, auth, nil, &logger)
	got, err := svc.SignIn(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.ID(1), got.ID)
	repo.AssertExpectations(t)
}

func TestSessionService_SignUp(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	ctx := context.Background()

	user, err := env.sessions.SignUp(ctx, "Linus", "Linus@Example.com ", "pw")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "linus@example.com", user.Email)
	assert.Equal(t, user.ID, env.sessions.Current().ID)

	_, err = env.sessions.SignUp(ctx, "Other", "linus@example.com", "pw2")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, user.ID, env.sessions.Current().ID, "failed sign-up keeps the identity")
}
