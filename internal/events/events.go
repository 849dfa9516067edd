package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventTripRatingUpdated = "trip_rating_updated"
	EventIdentityChanged   = "identity_changed"
	EventFavoriteToggled   = "favorite_toggled"
	EventReviewPosted      = "review_posted"
	EventBookingCreated    = "booking_created"
	EventBookingCanceled   = "booking_canceled"
)

// TripRatingPayload is published after a trip's stored rating changes.
type TripRatingPayload struct {
	TripID int64   `json:"trip_id"`
	Rating float64 `json:"rating"`
	Source string  `json:"source"`
}

// IdentityPayload carries the new identity; UserID is zero on sign-out.
type IdentityPayload struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name,omitempty"`
	Generation uint64 `json:"generation"`
}

type FavoritePayload struct {
	UserID     int64 `json:"user_id"`
	TripID     int64 `json:"trip_id"`
	Favorite   bool  `json:"favorite"`
	FavoriteID int64 `json:"favorite_id,omitempty"`
}

type ReviewPayload struct {
	ReviewID int64 `json:"review_id"`
	TripID   int64 `json:"trip_id"`
	UserID   int64 `json:"user_id"`
	Rating   int   `json:"rating"`
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID    int64   `json:"booking_id"`
	UserID       int64   `json:"user_id"`
	TripID       int64   `json:"trip_id"`
	TripName     string  `json:"trip_name,omitempty"`
	NumTravelers int     `json:"num_travelers"`
	StartDate    string  `json:"start_date"`
	TotalPrice   float64 `json:"total_price"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns the first
// handler error. Every handler runs regardless.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var firstErr error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishJSON serializes the payload and publishes an event.
// Handler errors are not returned; only serialization fails the call.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	_ = b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
