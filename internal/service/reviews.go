package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/logging"
	"tripplanner/internal/metrics"
	"tripplanner/internal/models"
	"tripplanner/internal/rating"

	"github.com/rs/zerolog"
)

// Differences below this are rounding noise between the two formulas.
const divergenceEpsilon = 0.05

// ReviewService posts reviews and keeps the trip's stored rating in sync.
type ReviewService struct {
	store          domain.RecordStore
	catalog        *CatalogService
	session        *SessionService
	events         domain.EventPublisher
	scheduler      domain.Scheduler
	syncMode       string
	reconcileDelay time.Duration
	now            func() time.Time
	logger         *zerolog.Logger
}

func NewReviewService(
	store domain.RecordStore,
	catalog *CatalogService,
	session *SessionService,
	eventBus domain.EventPublisher,
	scheduler domain.Scheduler,
	cfg config.ReviewsConfig,
	logger *zerolog.Logger,
) *ReviewService {
	mode := cfg.RatingSync
	if mode != config.RatingSyncRunning {
		mode = config.RatingSyncMean
	}
	delay := cfg.ReconcileDelay()
	if delay <= 0 {
		delay = models.ReviewReconcileDelay
	}
	return &ReviewService{
		store:          store,
		catalog:        catalog,
		session:        session,
		events:         eventBus,
		scheduler:      scheduler,
		syncMode:       mode,
		reconcileDelay: delay,
		now:            time.Now,
		logger:         logging.Component(logger, "reviews"),
	}
}

// Submit posts a review for tripID as the current user. Only the post
// itself can fail the call; rating sync problems are logged.
func (s *ReviewService) Submit(ctx context.Context, tripID models.ID, stars int, comment string) (*models.Review, error) {
	user := s.session.Current()
	if user == nil {
		return nil, ErrAuthRequired
	}
	if stars < models.MinReviewRating || stars > models.MaxReviewRating {
		return nil, ErrInvalidRating
	}

	record := models.Review{
		TripID:   tripID,
		UserID:   user.ID,
		UserName: user.Name,
		Rating:   stars,
		Comment:  strings.TrimSpace(comment),
		Date:     s.now().UTC(),
	}

	var created models.Review
	if err := s.store.Create(ctx, models.CollectionReviews, record, &created); err != nil {
		return nil, fmt.Errorf("post review: %w", err)
	}
	if created.ID == 0 && created.TripID == 0 {
		// Backend echoed nothing useful; keep what we sent.
		created = record
	}

	s.catalog.PrependReview(created)
	publishEvent(s.events, s.logger, events.EventReviewPosted, events.ReviewPayload{
		ReviewID: int64(created.ID),
		TripID:   int64(tripID),
		UserID:   int64(user.ID),
		Rating:   stars,
	})

	s.syncTripRating(ctx, created)
	s.scheduleReconcile(tripID)

	return &created, nil
}

func (s *ReviewService) syncTripRating(ctx context.Context, review models.Review) {
	tripID, stars := review.TripID, review.Rating
	log := s.logger.With().Int64("trip_id", int64(tripID)).Logger()

	prior := s.priorRating(ctx, tripID)
	running := float64(stars)
	if prior > 0 {
		running = rating.RunningAverage(prior, stars)
	}

	mean, meanErr := s.serverMean(ctx, review)
	if meanErr != nil {
		log.Warn().Err(meanErr).Msg("failed to fetch trip reviews, falling back to running average")
	} else if math.Abs(mean-running) >= divergenceEpsilon {
		metrics.IncRatingDivergence()
		log.Warn().
			Float64("mean", mean).
			Float64("running", running).
			Str("mode", s.syncMode).
			Msg("rating formulas disagree")
	}

	next, source := mean, s.syncMode
	if s.syncMode == config.RatingSyncRunning || meanErr != nil {
		next, source = running, config.RatingSyncRunning
	}

	err := s.store.Update(ctx, models.CollectionTrips, tripID, map[string]float64{"rating": next}, nil)
	metrics.IncRatingSync(source, err)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist trip rating")
		return
	}

	publishEvent(s.events, s.logger, events.EventTripRatingUpdated, events.TripRatingPayload{
		TripID: int64(tripID),
		Rating: next,
		Source: source,
	})
}

// serverMean rates the trip from the store's review set, never the local
// cache, which may be empty after a failed load. The just-posted review is
// counted even if the store does not list it yet.
func (s *ReviewService) serverMean(ctx context.Context, posted models.Review) (float64, error) {
	var reviews []models.Review
	filter := domain.Filter{"tripId": posted.TripID.String()}
	if err := s.store.Fetch(ctx, models.CollectionReviews, filter, &reviews); err != nil {
		return 0, err
	}

	seen := false
	for _, r := range reviews {
		if posted.ID != 0 && r.ID == posted.ID {
			seen = true
			break
		}
	}
	if !seen {
		reviews = append(reviews, posted)
	}
	return rating.For(posted.TripID, reviews), nil
}

// priorRating reads the trip's stored rating from the store, falling back
// to the cached catalog copy.
func (s *ReviewService) priorRating(ctx context.Context, tripID models.ID) float64 {
	var trips []models.Trip
	err := s.store.Fetch(ctx, models.CollectionTrips, domain.Filter{"id": tripID.String()}, &trips)
	if err == nil {
		for _, t := range trips {
			if t.ID == tripID {
				return t.StoredRating()
			}
		}
	} else {
		s.logger.Warn().Err(err).Int64("trip_id", int64(tripID)).Msg("failed to fetch trip rating, using cached copy")
	}

	if cached, ok := s.catalog.Trip(tripID); ok {
		return cached.StoredRating()
	}
	return 0
}

func (s *ReviewService) scheduleReconcile(tripID models.ID) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Schedule("reviews:trip:"+tripID.String(), s.reconcileDelay, s.catalog.RefreshReviews)
}
