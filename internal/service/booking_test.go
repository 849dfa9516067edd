package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripplanner/internal/events"
	"tripplanner/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBookings(t *testing.T, env *testEnv) {
	t.Helper()
	require.NoError(t, env.store.Seed(models.CollectionBookings, []models.Booking{
		{ID: 1, UserID: 7, TripID: 1, TripName: "Paris Getaway", NumTravelers: 1, StartDate: "2026-05-01", TotalPrice: 540},
		{ID: 2, UserID: 8, TripID: 2, TripName: "Rome Classic", NumTravelers: 2, StartDate: "2026-05-02", TotalPrice: 1458},
		{ID: 3, UserID: 7, TripID: 2, TripName: "Rome Classic", NumTravelers: 3, StartDate: "2026-05-03", TotalPrice: 999},
		{ID: 4, UserID: 7, TripID: 42, TripName: "Gone", NumTravelers: 1, StartDate: "2026-05-04", TotalPrice: 10},
	}))
}

func TestBookings_FlowCreates(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	created := collect(env.bus, events.EventBookingCreated)
	user := env.signIn(t, "ada@example.com", "engine")

	_, err := env.bookings.NewFlow(404, 8)
	assert.ErrorIs(t, err, ErrTripNotFound)

	flow, err := env.bookings.NewFlow(2, 8)
	require.NoError(t, err)
	require.NoError(t, flow.Open(user))
	require.NoError(t, flow.SetStartDate("2026-09-10"))
	require.NoError(t, flow.SetTravelers(2))

	booking, err := flow.Submit(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
	assert.Equal(t, 1458.0, booking.TotalPrice)
	assert.Equal(t, "Rome, Italy", booking.Destination)

	got := created()
	require.Len(t, got, 1)
	var payload events.BookingEventPayload
	require.NoError(t, got[0].Decode(&payload))
	assert.Equal(t, int64(booking.ID), payload.BookingID)
	assert.Equal(t, "Rome Classic", payload.TripName)
}

func TestBookings_History(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	seedBookings(t, env)
	ctx := context.Background()

	_, err := env.bookings.History(ctx, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)

	list, err := env.bookings.History(ctx, ada)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	env.store.fail("fetch", models.CollectionBookings, errors.New("offline"))
	list, err = env.bookings.History(ctx, ada)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestBookings_CancelRemovesExactlyOne(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	canceled := collect(env.bus, events.EventBookingCanceled)
	seedBookings(t, env)
	ctx := context.Background()

	require.NoError(t, env.bookings.Cancel(ctx, ada, 3))
	assert.Equal(t, 3, env.store.Len(models.CollectionBookings))

	list, err := env.bookings.History(ctx, ada)
	require.NoError(t, err)
	for _, b := range list {
		assert.NotEqual(t, models.ID(3), b.ID)
	}
	require.Len(t, canceled(), 1)

	assert.ErrorIs(t, env.bookings.Cancel(ctx, ada, 3), ErrBookingNotFound)
	assert.ErrorIs(t, env.bookings.Cancel(ctx, ada, 999), ErrBookingNotFound)
	assert.ErrorIs(t, env.bookings.Cancel(ctx, ada, 2), ErrBookingNotFound, "someone else's booking")
	assert.ErrorIs(t, env.bookings.Cancel(ctx, nil, 1), ErrAuthRequired)
	assert.Equal(t, 3, env.store.Len(models.CollectionBookings))
	assert.Len(t, canceled(), 1)
}

func TestBookings_CancelDeleteFailure(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	seedBookings(t, env)

	env.store.fail("delete", models.CollectionBookings, errors.New("offline"))
	err := env.bookings.Cancel(context.Background(), ada, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookingNotFound)
	assert.Equal(t, 4, env.store.Len(models.CollectionBookings))
}

func TestBookings_DetailRecomputesQuote(t *testing.T) {
	env := newTestEnv(t, defaultReviewsConfig())
	seedBookings(t, env)
	ctx := context.Background()

	detail, err := env.bookings.Detail(ctx, ada, 3)
	require.NoError(t, err)
	require.NotNil(t, detail.Quote)
	require.NotNil(t, detail.Trip)
	assert.Equal(t, 999.0, detail.Booking.TotalPrice, "stored total kept as is")
	assert.Equal(t, 1800.0, detail.Quote.Subtotal)
	assert.Equal(t, 144.0, detail.Quote.Tax)
	assert.Equal(t, 1944.0, detail.Quote.Total)

	detail, err = env.bookings.Detail(ctx, ada, 4)
	require.NoError(t, err)
	assert.Nil(t, detail.Trip)
	assert.Nil(t, detail.Quote)

	_, err = env.bookings.Detail(ctx, ada, 2)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := Stats([]models.Booking{
		{StartDate: "2026-03-01", TotalPrice: 100.1},
		{StartDate: "2025-05-01", TotalPrice: 200.2},
		{StartDate: "", TotalPrice: 0.3},
	}, now)
	assert.Equal(t, models.BookingStats{Count: 3, Upcoming: 1, TotalSpent: 300.6}, stats)

	assert.Equal(t, models.BookingStats{}, Stats(nil, now))
}
