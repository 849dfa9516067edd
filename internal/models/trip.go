package models

import "strings"

type Trip struct {
	ID           ID       `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Destination  string   `json:"destination" yaml:"destination"`
	Price        float64  `json:"price" yaml:"price"`
	DurationDays int      `json:"durationDays" yaml:"duration_days"`
	Category     string   `json:"category,omitempty" yaml:"category"`
	Description  string   `json:"description" yaml:"description"`
	Image        string   `json:"image" yaml:"image"`
	Rating       *float64 `json:"rating,omitempty" yaml:"rating"`
}

// CategoryOrDefault returns the trip category, "General" when absent.
func (t Trip) CategoryOrDefault() string {
	if strings.TrimSpace(t.Category) == "" {
		return CategoryGeneral
	}
	return t.Category
}

// Country is the trailing comma-separated segment of the destination.
// A destination without a comma has no country.
func (t Trip) Country() string {
	idx := strings.LastIndex(t.Destination, ",")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(t.Destination[idx+1:])
}

// StoredRating returns the server-side rating or 0 when absent.
func (t Trip) StoredRating() float64 {
	if t.Rating == nil {
		return 0
	}
	return *t.Rating
}
