package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/logging"
	"tripplanner/internal/models"
	"tripplanner/internal/pricing"

	"github.com/rs/zerolog"
)

// BookingDetail is a booking with its price recomputed from the trip's
// base price. Trip and Quote are nil when the trip is not in the catalog.
type BookingDetail struct {
	Booking models.Booking `json:"booking"`
	Trip    *models.Trip   `json:"trip,omitempty"`
	Quote   *pricing.Quote `json:"quote,omitempty"`
}

type BookingService struct {
	store   domain.RecordStore
	catalog *CatalogService
	events  domain.EventPublisher
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewBookingService(store domain.RecordStore, catalog *CatalogService, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:   store,
		catalog: catalog,
		events:  eventBus,
		logger:  logging.Component(logger, "bookings"),
		now:     time.Now,
	}
}

// NewFlow starts a booking form for tripID.
func (s *BookingService) NewFlow(tripID models.ID, menuMax int) (*BookingFlow, error) {
	trip, ok := s.catalog.Trip(tripID)
	if !ok {
		return nil, ErrTripNotFound
	}
	return NewBookingFlow(trip, s, menuMax), nil
}

// Create stores a booking and returns the server record.
func (s *BookingService) Create(ctx context.Context, booking models.Booking) (*models.Booking, error) {
	var created models.Booking
	if err := s.store.Create(ctx, models.CollectionBookings, booking, &created); err != nil {
		s.logger.Error().Err(err).Int64("trip_id", int64(booking.TripID)).Msg("booking failed")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info().Int64("booking_id", int64(created.ID)).Int64("trip_id", int64(created.TripID)).Msg("booking created")
	publishEvent(s.events, s.logger, events.EventBookingCreated, bookingPayload(created))
	return &created, nil
}

// History returns the user's bookings; a failed fetch yields an empty list.
func (s *BookingService) History(ctx context.Context, user *models.User) ([]models.Booking, error) {
	if user == nil {
		return nil, ErrAuthRequired
	}
	var bookings []models.Booking
	if err := s.store.Fetch(ctx, models.CollectionBookings, domain.Filter{"userId": user.ID.String()}, &bookings); err != nil {
		s.logger.Error().Err(err).Int64("user_id", int64(user.ID)).Msg("failed to fetch bookings")
		return []models.Booking{}, nil
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

func (s *BookingService) find(ctx context.Context, user *models.User, id models.ID) (*models.Booking, error) {
	var bookings []models.Booking
	filter := domain.Filter{"id": id.String(), "userId": user.ID.String()}
	if err := s.store.Fetch(ctx, models.CollectionBookings, filter, &bookings); err != nil {
		return nil, fmt.Errorf("lookup booking %s: %w", id, err)
	}
	for i := range bookings {
		if bookings[i].ID == id && bookings[i].UserID == user.ID {
			return &bookings[i], nil
		}
	}
	return nil, ErrBookingNotFound
}

// Cancel deletes exactly the booking id owned by user.
func (s *BookingService) Cancel(ctx context.Context, user *models.User, id models.ID) error {
	if user == nil {
		return ErrAuthRequired
	}

	booking, err := s.find(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, models.CollectionBookings, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrBookingNotFound
		}
		s.logger.Error().Err(err).Int64("booking_id", int64(id)).Msg("failed to cancel booking")
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}

	s.logger.Info().Int64("booking_id", int64(id)).Msg("booking canceled")
	publishEvent(s.events, s.logger, events.EventBookingCanceled, bookingPayload(*booking))
	return nil
}

// Detail returns one booking with a freshly computed quote.
func (s *BookingService) Detail(ctx context.Context, user *models.User, id models.ID) (*BookingDetail, error) {
	if user == nil {
		return nil, ErrAuthRequired
	}
	booking, err := s.find(ctx, user, id)
	if err != nil {
		return nil, err
	}

	detail := &BookingDetail{Booking: *booking}
	if trip, ok := s.catalog.Trip(booking.TripID); ok {
		quote := pricing.Calculate(trip.Price, booking.NumTravelers)
		detail.Trip = &trip
		detail.Quote = &quote
	}
	return detail, nil
}

// Stats summarizes bookings as of now: count, bookings starting after
// now, and the sum of stored totals.
func Stats(bookings []models.Booking, now time.Time) models.BookingStats {
	stats := models.BookingStats{Count: len(bookings)}
	for _, b := range bookings {
		stats.TotalSpent += b.TotalPrice
		if start, ok := b.StartTime(); ok && start.After(now) {
			stats.Upcoming++
		}
	}
	stats.TotalSpent = pricing.Round2(stats.TotalSpent)
	return stats
}

// Stats is Stats over the given bookings at the current time.
func (s *BookingService) Stats(bookings []models.Booking) models.BookingStats {
	return Stats(bookings, s.now())
}

func bookingPayload(b models.Booking) events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:    int64(b.ID),
		UserID:       int64(b.UserID),
		TripID:       int64(b.TripID),
		TripName:     b.TripName,
		NumTravelers: b.NumTravelers,
		StartDate:    b.StartDate,
		TotalPrice:   b.TotalPrice,
	}
}
