// Package pricing quotes booking prices. The booking form, the submitted booking and the
// booking detail view all derive their numbers from Calculate.
package pricing

import "math"

const (
	TaxRate = 0.08

	// AdditionalTravelerShare is the fraction of the base price charged for each traveler after the first.
	AdditionalTravelerShare = 0.5
)

type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Calculate prices a trip for the given number of travelers.
// The first traveler pays basePrice, each additional one pays half of it.
func Calculate(basePrice float64, travelers int) Quote {
	if basePrice < 0 || math.IsNaN(basePrice) {
		basePrice = 0
	}

	var subtotal float64
	switch {
	case travelers <= 0:
		subtotal = 0
	case travelers == 1:
		subtotal = basePrice
	default:
		subtotal = basePrice + basePrice*AdditionalTravelerShare*float64(travelers-1)
	}

	tax := Round2(subtotal * TaxRate)
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    Round2(subtotal + tax),
	}
}

// PerDay is the rounded per-day price shown on trip cards.
func PerDay(price float64, durationDays int) float64 {
	if durationDays < 1 {
		durationDays = 1
	}
	return math.Round(price / float64(durationDays))
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
