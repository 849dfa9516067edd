package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tripplanner/internal/models"
	"tripplanner/internal/pricing"
)

type tripView struct {
	models.Trip
	DisplayRating float64 `json:"displayRating"`
	ReviewCount   int     `json:"reviewCount"`
	PricePerDay   float64 `json:"pricePerDay"`
	Favorite      bool    `json:"favorite"`
}

func (s *Server) favoriteSet() map[models.ID]bool {
	set := map[models.ID]bool{}
	user := s.deps.Sessions.Current()
	if user == nil || s.deps.Catalog.FavoritesOwner() != user.ID {
		return set
	}
	for _, id := range s.deps.Catalog.FavoriteTripIDs() {
		set[id] = true
	}
	return set
}

func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	cfg, err := filtersFromQuery(r.URL.Query(), s.deps.Filters)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	visible := s.deps.Catalog.Visible(cfg)
	idx := s.deps.Catalog.RatingIndex()
	favorites := s.favoriteSet()

	views := make([]tripView, 0, len(visible))
	for _, t := range visible {
		views = append(views, tripView{
			Trip:          t,
			DisplayRating: idx.For(t.ID),
			ReviewCount:   idx.Count(t.ID),
			PricePerDay:   pricing.PerDay(t.Price, t.DurationDays),
			Favorite:      favorites[t.ID],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": views, "count": len(views)})
}

func (s *Server) handleFacets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Facets())
}

func (s *Server) handleTrip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tripID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	trip, ok := s.deps.Catalog.Trip(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "trip not found")
		return
	}

	idx := s.deps.Catalog.RatingIndex()
	writeJSON(w, http.StatusOK, map[string]any{
		"trip": tripView{
			Trip:          trip,
			DisplayRating: idx.For(id),
			ReviewCount:   idx.Count(id),
			PricePerDay:   pricing.PerDay(trip.Price, trip.DurationDays),
			Favorite:      s.favoriteSet()[id],
		},
		"reviews": s.deps.Catalog.ReviewsForTrip(id),
	})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handlePostReview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tripID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var body reviewRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	review, err := s.deps.Reviews.Submit(r.Context(), id, body.Rating, body.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tripID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	favorite, err := s.deps.Favorites.Toggle(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tripId": id, "favorite": favorite})
}

// filtersFromQuery overlays query parameters on base.
func filtersFromQuery(q url.Values, base models.FilterConfig) (models.FilterConfig, error) {
	cfg := base
	if v := strings.TrimSpace(q.Get("maxPrice")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return cfg, fmt.Errorf("invalid maxPrice %q", v)
		}
		cfg.MaxPrice = f
	}
	if v := strings.TrimSpace(q.Get("maxDays")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid maxDays %q", v)
		}
		cfg.MaxDays = n
	}
	if v := strings.TrimSpace(q.Get("minRating")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > models.MaxReviewRating {
			return cfg, fmt.Errorf("invalid minRating %q", v)
		}
		cfg.MinRating = f
	}
	if q.Has("q") {
		cfg.Query = q.Get("q")
	}
	if v := q.Get("sort"); v != "" {
		cfg.SortBy = v
	}
	if v := q.Get("category"); v != "" {
		cfg.Category = v
	}
	if v := q.Get("country"); v != "" {
		cfg.Country = v
	}
	return cfg.Normalize(), nil
}
