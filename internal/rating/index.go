package rating

import "tripplanner/internal/models"

// Index groups reviews by trip once so repeated lookups are O(1).
// Index.For(id) always equals For(id, reviews) for the reviews it was built from.
type Index struct {
	byTrip map[models.ID]tally
}

func NewIndex(reviews []models.Review) *Index {
	idx := &Index{byTrip: make(map[models.ID]tally, len(reviews))}
	for _, r := range reviews {
		t := idx.byTrip[r.TripID]
		t.add(r.Rating)
		idx.byTrip[r.TripID] = t
	}
	return idx
}

func (i *Index) For(tripID models.ID) float64 {
	return i.byTrip[tripID].rating(tripID)
}

// Count returns how many reviews the trip has.
func (i *Index) Count(tripID models.ID) int {
	return i.byTrip[tripID].n
}
