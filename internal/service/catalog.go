package service

import (
	"context"
	"sync"
	"sync/atomic"

	"tripplanner/internal/catalog"
	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/logging"
	"tripplanner/internal/metrics"
	"tripplanner/internal/models"
	"tripplanner/internal/rating"

	"github.com/rs/zerolog"
)

// Where LoadTrips found the catalog.
const (
	TripSourceStore    = "store"
	TripSourceSnapshot = "snapshot"
	TripSourceSeed     = "seed"
)

// CatalogService owns the local trip, review and favorite collections.
// Fetch failures degrade to the last good copy or an empty collection;
// they are logged, never returned.
type CatalogService struct {
	store     domain.RecordStore
	snapshots domain.SnapshotStore
	seed      []models.Trip
	logger    *zerolog.Logger

	mu               sync.RWMutex
	trips            []models.Trip
	tripsVersion     uint64
	reviews          []models.Review
	reviewsVersion   uint64
	favorites        []models.Favorite
	favoritesVersion uint64
	favoritesOwner   models.ID

	// Request tokens; a result is applied only if its token is still the latest.
	reviewsToken   atomic.Uint64
	favoritesToken atomic.Uint64

	// Highest identity generation seen; older identity events are ignored.
	identityGen uint64

	pipeline catalog.Pipeline
}

// NewCatalogService builds the catalog. snapshots may be nil.
func NewCatalogService(store domain.RecordStore, snapshots domain.SnapshotStore, seed []models.Trip, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		snapshots: snapshots,
		seed:      append([]models.Trip(nil), seed...),
		logger:    logging.Component(logger, "catalog"),
		trips:     []models.Trip{},
		reviews:   []models.Review{},
		favorites: []models.Favorite{},
	}
}

// Subscribe wires the catalog to rating updates published on bus.
func (s *CatalogService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTripRatingUpdated, s.handleRatingUpdated)
}

// FollowIdentity reloads reviews and favorites on every identity change.
// The reload runs in the publisher's goroutine, so SignIn returns with the
// new user's data in place. Events arriving after a newer generation are dropped.
func (s *CatalogService) FollowIdentity(bus *events.EventBus) {
	bus.Subscribe(events.EventIdentityChanged, func(e *events.Event) error {
		var payload events.IdentityPayload
		if err := e.Decode(&payload); err != nil {
			s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("bad identity event payload")
			return err
		}
		if !s.observeIdentity(payload.Generation) {
			metrics.IncStale("identity")
			s.logger.Debug().
				Uint64("generation", payload.Generation).
				Int64("user_id", payload.UserID).
				Msg("ignoring superseded identity event")
			return nil
		}
		s.loadUserData(context.Background(), models.ID(payload.UserID), payload.Generation)
		return nil
	})
}

// observeIdentity records generation and reports whether it is still current.
func (s *CatalogService) observeIdentity(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation < s.identityGen {
		return false
	}
	s.identityGen = generation
	return true
}

func (s *CatalogService) handleRatingUpdated(e *events.Event) error {
	var payload events.TripRatingPayload
	if err := e.Decode(&payload); err != nil {
		s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("bad rating event payload")
		return err
	}
	s.ApplyTripRating(models.ID(payload.TripID), payload.Rating)
	return nil
}

// LoadTrips fetches the catalog, falling back to the stored snapshot and
// then to the seed catalog. It reports which source was used.
func (s *CatalogService) LoadTrips(ctx context.Context) string {
	var trips []models.Trip
	err := s.store.Fetch(ctx, models.CollectionTrips, nil, &trips)
	if err == nil {
		s.setTrips(trips)
		if s.snapshots != nil {
			if err := s.snapshots.SaveSnapshot(ctx, models.CollectionTrips, trips); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store trips snapshot")
			}
		}
		return TripSourceStore
	}
	s.logger.Error().Err(err).Msg("failed to load trips, trying fallback")

	if s.snapshots != nil {
		var cached []models.Trip
		found, snapErr := s.snapshots.LoadSnapshot(ctx, models.CollectionTrips, &cached)
		if snapErr != nil {
			s.logger.Warn().Err(snapErr).Msg("failed to read trips snapshot")
		}
		if found && snapErr == nil {
			s.setTrips(cached)
			return TripSourceSnapshot
		}
	}

	s.setTrips(s.seed)
	return TripSourceSeed
}

func (s *CatalogService) setTrips(trips []models.Trip) {
	if trips == nil {
		trips = []models.Trip{}
	}
	s.mu.Lock()
	s.trips = append([]models.Trip(nil), trips...)
	s.tripsVersion++
	s.mu.Unlock()
}

// LoadUserData refreshes reviews and, for a signed-in user, favorites.
// userID zero means signed out and clears favorites. The two fetches
// degrade independently; results superseded by a newer load are dropped.
func (s *CatalogService) LoadUserData(ctx context.Context, userID models.ID) {
	s.loadUserData(ctx, userID, 0)
}

// loadUserData is LoadUserData for identity generation; a non-zero generation
// that is no longer the latest when favorites arrive discards them.
func (s *CatalogService) loadUserData(ctx context.Context, userID models.ID, generation uint64) {
	favToken := s.favoritesToken.Add(1)

	// Favorites never outlive the identity they were loaded for.
	s.mu.Lock()
	if s.favoritesOwner != userID || userID == 0 {
		s.favorites = []models.Favorite{}
		s.favoritesOwner = 0
		s.favoritesVersion++
	}
	s.mu.Unlock()

	_ = s.refreshReviews(ctx)

	if userID == 0 {
		return
	}

	var favorites []models.Favorite
	filter := domain.Filter{"userId": userID.String()}
	if err := s.store.Fetch(ctx, models.CollectionFavorites, filter, &favorites); err != nil {
		s.logger.Error().Err(err).Int64("user_id", int64(userID)).Msg("failed to fetch favorites")
		favorites = []models.Favorite{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favoritesToken.Load() != favToken || (generation != 0 && generation != s.identityGen) {
		metrics.IncStale(models.CollectionFavorites)
		s.logger.Debug().Int64("user_id", int64(userID)).Msg("discarding stale favorites")
		return
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	s.favorites = favorites
	s.favoritesOwner = userID
	s.favoritesVersion++
}

// RefreshReviews re-fetches the full review list. On failure the current
// list is kept and the error returned.
func (s *CatalogService) RefreshReviews(ctx context.Context) error {
	return s.refreshReviews(ctx)
}

func (s *CatalogService) refreshReviews(ctx context.Context) error {
	token := s.reviewsToken.Add(1)

	var reviews []models.Review
	if err := s.store.Fetch(ctx, models.CollectionReviews, nil, &reviews); err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch reviews")
		return err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reviewsToken.Load() != token {
		metrics.IncStale(models.CollectionReviews)
		s.logger.Debug().Msg("discarding stale reviews")
		return nil
	}
	s.reviews = reviews
	s.reviewsVersion++
	return nil
}

// PrependReview adds a server-confirmed review at the head of the list.
// A reviews fetch already in flight may predate it and is dropped.
func (s *CatalogService) PrependReview(review models.Review) {
	s.reviewsToken.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews := make([]models.Review, 0, len(s.reviews)+1)
	reviews = append(reviews, review)
	s.reviews = append(reviews, s.reviews...)
	s.reviewsVersion++
}

// Reviews returns a copy of the local review list.
func (s *CatalogService) Reviews() []models.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Review{}, s.reviews...)
}

// ReviewsForTrip returns the reviews for one trip, newest first as held locally.
func (s *CatalogService) ReviewsForTrip(tripID models.ID) []models.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Review{}
	for _, r := range s.reviews {
		if r.TripID == tripID {
			out = append(out, r)
		}
	}
	return out
}

// Trips returns a copy of the loaded catalog.
func (s *CatalogService) Trips() []models.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Trip{}, s.trips...)
}

func (s *CatalogService) Trip(id models.ID) (models.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trips {
		if t.ID == id {
			return t, true
		}
	}
	return models.Trip{}, false
}

// Visible returns the filtered and sorted catalog. Repeated calls with
// unchanged collections and config return the same slice.
func (s *CatalogService) Visible(cfg models.FilterConfig) []models.Trip {
	s.mu.RLock()
	trips, tripsVersion := s.trips, s.tripsVersion
	reviews, reviewsVersion := s.reviews, s.reviewsVersion
	s.mu.RUnlock()

	return s.pipeline.Visible(trips, tripsVersion, reviews, reviewsVersion, cfg)
}

func (s *CatalogService) Rating(tripID models.ID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rating.For(tripID, s.reviews)
}

// RatingIndex snapshots ratings for every trip at once.
func (s *CatalogService) RatingIndex() *rating.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rating.NewIndex(s.reviews)
}

func (s *CatalogService) Facets() catalog.Facets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.BuildFacets(s.trips)
}

// Favorites returns a copy of the favorites held for the signed-in user.
func (s *CatalogService) Favorites() []models.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Favorite{}, s.favorites...)
}

// FavoriteTripIDs lists favorite trip ids in favorite order.
func (s *CatalogService) FavoriteTripIDs() []models.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]models.ID, 0, len(s.favorites))
	for _, f := range s.favorites {
		ids = append(ids, f.TripID)
	}
	return ids
}

// ReplaceFavorites installs a confirmed favorites list for userID.
// It also invalidates any favorites fetch still in flight.
func (s *CatalogService) ReplaceFavorites(userID models.ID, favorites []models.Favorite) {
	s.favoritesToken.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	s.favorites = favorites
	s.favoritesOwner = userID
	s.favoritesVersion++
}

// FavoritesOwner is the user the favorites list was loaded for; zero when signed out.
func (s *CatalogService) FavoritesOwner() models.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favoritesOwner
}

// ApplyTripRating updates the cached trip's stored rating.
func (s *CatalogService) ApplyTripRating(tripID models.ID, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.trips {
		if s.trips[i].ID != tripID {
			continue
		}
		// Copy-on-write keeps slices already handed out unchanged.
		trips := append([]models.Trip(nil), s.trips...)
		v := value
		trips[i].Rating = &v
		s.trips = trips
		s.tripsVersion++
		return
	}
}
