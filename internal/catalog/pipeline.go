// Package catalog narrows and orders the trip catalog for display.
package catalog

import (
	"sort"
	"strings"
	"sync"

	"tripplanner/internal/models"
	"tripplanner/internal/rating"
)

// VisibleTrips applies, in order: budget/duration/text, category, country and rating filters,
// then a stable sort. Inputs are never modified; the result is a fresh slice.
func VisibleTrips(trips []models.Trip, reviews []models.Review, cfg models.FilterConfig) []models.Trip {
	cfg = cfg.Normalize()

	list := make([]models.Trip, 0, len(trips))
	query := strings.ToLower(cfg.Query)
	for _, t := range trips {
		if t.Price <= cfg.MaxPrice && t.DurationDays <= cfg.MaxDays && matchesQuery(t, query) {
			list = append(list, t)
		}
	}

	if cfg.Category != models.CategoryAll {
		list = keep(list, func(t models.Trip) bool {
			return t.CategoryOrDefault() == cfg.Category
		})
	}

	if cfg.Country != models.CountryAll {
		list = keep(list, func(t models.Trip) bool {
			return strings.EqualFold(t.Country(), cfg.Country)
		})
	}

	if cfg.MinRating > 0 {
		idx := rating.NewIndex(reviews)
		list = keep(list, func(t models.Trip) bool {
			return idx.For(t.ID) >= cfg.MinRating
		})
	}

	sortTrips(list, cfg.SortBy)
	return list
}

func matchesQuery(t models.Trip, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), query) ||
		strings.Contains(strings.ToLower(t.Destination), query)
}

// keep filters list in place.
func keep(list []models.Trip, pred func(models.Trip) bool) []models.Trip {
	out := list[:0]
	for _, t := range list {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortTrips(list []models.Trip, sortBy string) {
	var less func(a, b models.Trip) bool
	switch sortBy {
	case models.SortPriceAsc:
		less = func(a, b models.Trip) bool { return a.Price < b.Price }
	case models.SortPriceDesc:
		less = func(a, b models.Trip) bool { return a.Price > b.Price }
	case models.SortDaysAsc:
		less = func(a, b models.Trip) bool { return a.DurationDays < b.DurationDays }
	case models.SortDaysDesc:
		less = func(a, b models.Trip) bool { return a.DurationDays > b.DurationDays }
	default:
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}

// Pipeline memoizes VisibleTrips. Callers pass version counters that change whenever the
// trips or reviews they hand in change; unchanged inputs return the previous slice itself.
type Pipeline struct {
	mu             sync.Mutex
	valid          bool
	tripsVersion   uint64
	reviewsVersion uint64
	cfg            models.FilterConfig
	result         []models.Trip
}

func (p *Pipeline) Visible(
	trips []models.Trip, tripsVersion uint64,
	reviews []models.Review, reviewsVersion uint64,
	cfg models.FilterConfig,
) []models.Trip {
	cfg = cfg.Normalize()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid && p.tripsVersion == tripsVersion && p.reviewsVersion == reviewsVersion && p.cfg == cfg {
		return p.result
	}

	p.result = VisibleTrips(trips, reviews, cfg)
	p.tripsVersion = tripsVersion
	p.reviewsVersion = reviewsVersion
	p.cfg = cfg
	p.valid = true
	return p.result
}

// Invalidate drops the memoized result.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	p.valid = false
	p.result = nil
	p.mu.Unlock()
}
