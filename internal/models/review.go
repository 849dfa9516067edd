package models

import "time"

type Review struct {
	ID       ID        `json:"id,omitempty"`
	TripID   ID        `json:"tripId"`
	UserID   ID        `json:"userId"`
	UserName string    `json:"userName"`
	Rating   int       `json:"rating"`
	Comment  string    `json:"comment"`
	Date     time.Time `json:"date"`
}

type Favorite struct {
	ID     ID `json:"id,omitempty"`
	UserID ID `json:"userId"`
	TripID ID `json:"tripId"`
}
