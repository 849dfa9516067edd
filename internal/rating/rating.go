// Package rating computes the display rating of a trip from its reviews.
package rating

import (
	"math"

	"tripplanner/internal/models"
)

// Linear congruential constants for the no-review fallback.
const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// For returns the rating shown for tripID: the mean of its reviews rounded to one decimal,
// or a deterministic value in [3.0, 5.0] seeded by the trip id when there are none.
// A review rated outside 1..5 is malformed and makes the result 0.
func For(tripID models.ID, reviews []models.Review) float64 {
	var t tally
	for _, r := range reviews {
		if r.TripID == tripID {
			t.add(r.Rating)
		}
	}
	return t.rating(tripID)
}

// Fallback is the seeded pseudo-random rating used when a trip has no reviews.
func Fallback(tripID models.ID) float64 {
	seed := int64(tripID)
	if seed <= 0 {
		seed = 1
	}
	frac := float64((seed*lcgMultiplier+lcgIncrement)%lcgModulus) / lcgModulus
	return Round1(3 + frac*2)
}

// RunningAverage is the legacy two-sample update: the prior stored rating averaged with the
// newest review. It disagrees with For once a trip has more than two reviews.
func RunningAverage(prior float64, latest int) float64 {
	if prior > 0 {
		return Round1((prior + float64(latest)) / 2)
	}
	return float64(latest)
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type tally struct {
	sum       int
	n         int
	malformed bool
}

func (t *tally) add(stars int) {
	if stars < models.MinReviewRating || stars > models.MaxReviewRating {
		t.malformed = true
	}
	t.sum += stars
	t.n++
}

func (t tally) rating(tripID models.ID) float64 {
	if t.malformed {
		return 0
	}
	if t.n == 0 {
		return Fallback(tripID)
	}
	return Round1(float64(t.sum) / float64(t.n))
}
