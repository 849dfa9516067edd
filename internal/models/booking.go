package models

import "time"

type Booking struct {
	ID           ID        `json:"id,omitempty"`
	UserID       ID        `json:"userId"`
	TripID       ID        `json:"tripId"`
	TripName     string    `json:"tripName"`
	Destination  string    `json:"destination"`
	NumTravelers int       `json:"numTravelers"`
	StartDate    string    `json:"startDate"`
	TotalPrice   float64   `json:"totalPrice"`
	Date         time.Time `json:"date"`
}

// StartTime parses StartDate (YYYY-MM-DD or RFC3339). ok is false when it is empty or malformed.
func (b Booking) StartTime() (time.Time, bool) {
	if b.StartDate == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, b.StartDate); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, b.StartDate); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// BookingStats is the booking-history summary shown on the profile.
type BookingStats struct {
	Count      int     `json:"count"`
	Upcoming   int     `json:"upcoming"`
	TotalSpent float64 `json:"totalSpent"`
}
