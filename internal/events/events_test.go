package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventTripRatingUpdated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventTripRatingUpdated, TripRatingPayload{TripID: 7, Rating: 4.5, Source: "mean"})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventTripRatingUpdated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())
	_, err = uuid.Parse(received.ID)
	assert.NoError(t, err)

	var decoded TripRatingPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, int64(7), decoded.TripID)
	assert.Equal(t, 4.5, decoded.Rating)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventFavoriteToggled, func(_ *Event) error { count1++; return errors.New("boom") })
	bus.Subscribe(EventFavoriteToggled, func(_ *Event) error { count2++; return nil })

	err := bus.Publish(&Event{Type: EventFavoriteToggled})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2, "later handlers still run after a failure")
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	event := &Event{Type: EventReviewPosted}
	assert.NoError(t, bus.Publish(event))
	assert.NotEmpty(t, event.ID)
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventIdentityChanged, IdentityPayload{}))
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus()
	err := bus.PublishJSON(EventBookingCreated, make(chan int))
	assert.Error(t, err)
}

func TestNewJSONEventUniqueIDs(t *testing.T) {
	a, err := NewJSONEvent(EventBookingCanceled, BookingEventPayload{BookingID: 1})
	require.NoError(t, err)
	b, err := NewJSONEvent(EventBookingCanceled, BookingEventPayload{BookingID: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
