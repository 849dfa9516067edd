package repository

import (
	"context"
	"sync/atomic"
	"time"

	"tripplanner/internal/domain"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves the identity cell from primary and
// switches to fallback while primary is failing.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	onSwitch  func(down bool)
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// OnSwitch registers a callback fired when the primary goes down or recovers.
func (r *FailoverSessionRepository) OnSwitch(fn func(down bool)) {
	r.onSwitch = fn
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back")
	r.lastCheck.Store(time.Now().UnixNano())
	if !r.isDown.Swap(true) && r.onSwitch != nil {
		r.onSwitch(true)
	}
}

func (r *FailoverSessionRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session repository recovered")
		if r.onSwitch != nil {
			r.onSwitch(false)
		}
	}
}

// shouldProbe reports whether a down primary is due for a recovery attempt.
func (r *FailoverSessionRepository) shouldProbe() bool {
	last := time.Unix(0, r.lastCheck.Load())
	return time.Since(last) > recoveryInterval
}

func (r *FailoverSessionRepository) Load(ctx context.Context) (*models.User, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		user, err := r.primary.Load(ctx)
		if err == nil {
			r.markUp()
			return user, nil
		}
		r.markDown(err)
	}

	return r.fallback.Load(ctx)
}

func (r *FailoverSessionRepository) Save(ctx context.Context, user *models.User) error {
	// The fallback always mirrors the latest identity so a failover keeps it.
	if err := r.fallback.Save(ctx, user); err != nil {
		r.logger.Warn().Err(err).Msg("Fallback session repository save failed")
	}

	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.Save(ctx, user)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverSessionRepository) Clear(ctx context.Context) error {
	if err := r.fallback.Clear(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Fallback session repository clear failed")
	}

	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.Clear(ctx)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}
