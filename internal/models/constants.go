package models

import "time"

// Remote store collections.
const (
	CollectionTrips     = "trips"
	CollectionReviews   = "reviews"
	CollectionFavorites = "favorites"
	CollectionBookings  = "bookings"
	CollectionUsers     = "users"
)

const (
	SortNone      = "none"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortDaysAsc   = "days-asc"
	SortDaysDesc  = "days-desc"
)

const (
	CategoryAll     = "All"
	CountryAll      = "All"
	CategoryGeneral = "General"
)

const (
	// DefaultMaxPrice и DefaultMaxDays совпадают со значениями сброса фильтров
	DefaultMaxPrice = 3000
	DefaultMaxDays  = 15

	// TravelerMenuMax is the largest count offered by the travelers menu; larger counts use the text override.
	TravelerMenuMax = 8

	// ReviewReconcileDelay is how long after a posted review the full review list is re-fetched.
	ReviewReconcileDelay = 500 * time.Millisecond

	MinReviewRating = 1
	MaxReviewRating = 5

	DateLayout = "2006-01-02"
)
