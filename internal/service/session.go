package service

import (
	"context"
	"sync"

	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/logging"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
)

// SessionService is the process-wide identity cell. Every change is
// persisted, bumps the generation and is announced as identity_changed.
type SessionService struct {
	mu         sync.RWMutex
	user       *models.User
	generation uint64

	repo   domain.SessionRepository
	auth   domain.Authenticator
	events domain.EventPublisher
	logger *zerolog.Logger
}

func NewSessionService(repo domain.SessionRepository, auth domain.Authenticator, eventBus domain.EventPublisher, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		auth:   auth,
		events: eventBus,
		logger: logging.Component(logger, "session"),
	}
}

// Restore loads the persisted identity. A missing or unreadable record
// means signed out.
func (s *SessionService) Restore(ctx context.Context) *models.User {
	user, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored session unreadable, starting signed out")
		user = nil
	}
	if user != nil && user.ID == 0 {
		s.logger.Warn().Msg("stored session has no user id, starting signed out")
		user = nil
	}
	s.apply(user)
	return s.Current()
}

// Current returns a copy of the signed-in user or nil.
func (s *SessionService) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Generation increases on every identity change.
func (s *SessionService) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *SessionService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(ctx, user)
	s.logger.Info().Int64("user_id", int64(user.ID)).Msg("signed in")
	return s.Current(), nil
}

func (s *SessionService) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	user, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	s.set(ctx, user)
	s.logger.Info().Int64("user_id", int64(user.ID)).Msg("signed up")
	return s.Current(), nil
}

func (s *SessionService) SignOut(ctx context.Context) {
	s.set(ctx, nil)
	s.logger.Info().Msg("signed out")
}

func (s *SessionService) set(ctx context.Context, user *models.User) {
	// Persistence is local; a failure keeps the in-memory identity.
	if user == nil {
		if err := s.repo.Clear(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to clear stored session")
		}
	} else if err := s.repo.Save(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist session")
	}
	s.apply(user)
}

func (s *SessionService) apply(user *models.User) {
	s.mu.Lock()
	if user != nil {
		public := user.Public()
		s.user = &public
	} else {
		s.user = nil
	}
	s.generation++
	payload := events.IdentityPayload{Generation: s.generation}
	if s.user != nil {
		payload.UserID = int64(s.user.ID)
		payload.Name = s.user.Name
	}
	s.mu.Unlock()

	publishEvent(s.events, s.logger, events.EventIdentityChanged, payload)
}
