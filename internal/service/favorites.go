package service

import (
	"context"
	"fmt"
	"sync"

	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/logging"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
)

// ToggleFavorite flips membership of (userID, tripID) in favorites against
// the remote store and returns the new list. The remote call is confirmed
// before the list changes; on error the input list is returned untouched.
func ToggleFavorite(
	ctx context.Context,
	store domain.RecordStore,
	userID, tripID models.ID,
	favorites []models.Favorite,
) ([]models.Favorite, bool, error) {
	if userID == 0 {
		return favorites, false, ErrAuthRequired
	}

	existing := -1
	for i, f := range favorites {
		if f.UserID == userID && f.TripID == tripID {
			existing = i
			break
		}
	}

	if existing >= 0 {
		target := favorites[existing]
		if err := store.Delete(ctx, models.CollectionFavorites, target.ID); err != nil {
			return favorites, true, fmt.Errorf("remove favorite %s: %w", target.ID, err)
		}
		next := make([]models.Favorite, 0, len(favorites)-1)
		for _, f := range favorites {
			if f.ID != target.ID {
				next = append(next, f)
			}
		}
		return next, false, nil
	}

	var created models.Favorite
	record := models.Favorite{UserID: userID, TripID: tripID}
	if err := store.Create(ctx, models.CollectionFavorites, record, &created); err != nil {
		return favorites, false, fmt.Errorf("add favorite: %w", err)
	}
	next := make([]models.Favorite, 0, len(favorites)+1)
	next = append(next, favorites...)
	return append(next, created), true, nil
}

// FavoritesService serializes toggles per (user, trip) and applies
// confirmed results to the catalog.
type FavoritesService struct {
	store    domain.RecordStore
	catalog  *CatalogService
	session  *SessionService
	events   domain.EventPublisher
	logger   *zerolog.Logger
	inflight sync.Map
	// Applying results is serialized so two different trips cannot lose each other's update.
	applyMu sync.Mutex
}

func NewFavoritesService(store domain.RecordStore, catalog *CatalogService, session *SessionService, eventBus domain.EventPublisher, logger *zerolog.Logger) *FavoritesService {
	return &FavoritesService{
		store:   store,
		catalog: catalog,
		session: session,
		events:  eventBus,
		logger:  logging.Component(logger, "favorites"),
	}
}

// Toggle flips the current user's favorite for tripID and reports the new state.
func (s *FavoritesService) Toggle(ctx context.Context, tripID models.ID) (bool, error) {
	user := s.session.Current()
	if user == nil {
		return false, ErrAuthRequired
	}

	key := fmt.Sprintf("%d:%d", user.ID, tripID)
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return false, ErrToggleInFlight
	}
	defer s.inflight.Delete(key)

	current := s.catalog.Favorites()
	next, favorite, err := ToggleFavorite(ctx, s.store, user.ID, tripID, current)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", int64(user.ID)).Int64("trip_id", int64(tripID)).Msg("favorite update failed")
		return favorite, err
	}

	s.apply(user.ID, tripID, favorite, next)

	publishEvent(s.events, s.logger, events.EventFavoriteToggled, events.FavoritePayload{
		UserID:   int64(user.ID),
		TripID:   int64(tripID),
		Favorite: favorite,
	})
	return favorite, nil
}

// apply merges one confirmed change into the latest list, since other
// trips may have been toggled while this call was in flight.
func (s *FavoritesService) apply(userID, tripID models.ID, favorite bool, next []models.Favorite) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if current := s.session.Current(); current == nil || current.ID != userID {
		// Identity changed mid-flight; the new user's list is loaded separately.
		return
	}

	latest := s.catalog.Favorites()
	merged := make([]models.Favorite, 0, len(latest)+1)
	for _, f := range latest {
		if f.UserID == userID && f.TripID == tripID {
			continue
		}
		merged = append(merged, f)
	}
	if favorite {
		for _, f := range next {
			if f.UserID == userID && f.TripID == tripID {
				merged = append(merged, f)
				break
			}
		}
	}
	s.catalog.ReplaceFavorites(userID, merged)
}
