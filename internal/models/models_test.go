package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ID
		wantErr bool
	}{
		{name: "number", raw: `7`, want: 7},
		{name: "numeric string", raw: `"7"`, want: 7},
		{name: "padded string", raw: `" 12 "`, want: 12},
		{name: "whole float", raw: `3.0`, want: 3},
		{name: "null", raw: `null`, want: 0},
		{name: "empty string", raw: `""`, want: 0},
		{name: "fraction", raw: `1.5`, wantErr: true},
		{name: "garbage", raw: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.raw), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFavorite_MixedIDs(t *testing.T) {
	var fav Favorite
	require.NoError(t, json.Unmarshal([]byte(`{"id":"4","userId":1,"tripId":"2"}`), &fav))
	assert.Equal(t, Favorite{ID: 4, UserID: 1, TripID: 2}, fav)
}

func TestTrip_Country(t *testing.T) {
	tests := []struct {
		destination string
		want        string
	}{
		{"Rome, Italy", "Italy"},
		{"Kyoto, Kansai, Japan ", "Japan"},
		{"Unknown", ""},
		{"", ""},
		{"Trailing,", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Trip{Destination: tt.destination}.Country(), tt.destination)
	}
}

func TestTrip_Defaults(t *testing.T) {
	trip := Trip{}
	assert.Equal(t, CategoryGeneral, trip.CategoryOrDefault())
	assert.Equal(t, 0.0, trip.StoredRating())

	r := 4.2
	trip = Trip{Category: "Adventure", Rating: &r}
	assert.Equal(t, "Adventure", trip.CategoryOrDefault())
	assert.Equal(t, 4.2, trip.StoredRating())
}

func TestFilterConfig_Normalize(t *testing.T) {
	cfg := FilterConfig{SortBy: "random"}.Normalize()
	assert.Equal(t, SortNone, cfg.SortBy)
	assert.Equal(t, CategoryAll, cfg.Category)
	assert.Equal(t, CountryAll, cfg.Country)

	def := DefaultFilterConfig()
	assert.Equal(t, float64(DefaultMaxPrice), def.MaxPrice)
	assert.Equal(t, DefaultMaxDays, def.MaxDays)
	assert.Equal(t, def, def.Normalize())
}

func TestUser_PublicAndInitials(t *testing.T) {
	u := User{ID: 1, Name: "ada  lovelace byron", Email: "a@x.io", Password: "secret"}
	assert.Empty(t, u.Public().Password)
	assert.Equal(t, "secret", u.Password)
	assert.Equal(t, "AL", u.Initials())
	assert.Equal(t, "", User{}.Initials())
}

func TestBooking_StartTime(t *testing.T) {
	_, ok := Booking{}.StartTime()
	assert.False(t, ok)

	tm, ok := Booking{StartDate: "2026-03-01"}.StartTime()
	assert.True(t, ok)
	assert.Equal(t, 2026, tm.Year())

	_, ok = Booking{StartDate: "soon"}.StartTime()
	assert.False(t, ok)
}
