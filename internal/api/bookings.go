package api

import (
	"net/http"

	"tripplanner/internal/export"
	"tripplanner/internal/models"
	"tripplanner/internal/pricing"
	"tripplanner/internal/service"
)

type quoteRequest struct {
	TripID    models.ID `json:"tripId"`
	Travelers int       `json:"travelers"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Travelers < 1 {
		s.writeServiceError(w, r, service.ErrInvalidTravelers)
		return
	}
	trip, ok := s.deps.Catalog.Trip(body.TripID)
	if !ok {
		s.writeServiceError(w, r, service.ErrTripNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pricing.Calculate(trip.Price, body.Travelers))
}

type bookingRequest struct {
	TripID        models.ID `json:"tripId"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	StartDate     string    `json:"startDate"`
	Travelers     int       `json:"travelers"`
	TravelersText string    `json:"travelersText"`
}

// handleCreateBooking runs one booking flow from Open to Submit.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body bookingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flow, err := s.deps.Bookings.NewFlow(body.TripID, s.deps.TravelerMenuMax)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := flow.Open(s.deps.Sessions.Current()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := fillForm(flow, body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := flow.Submit(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func fillForm(flow *service.BookingFlow, body bookingRequest) error {
	if body.FullName != "" {
		if err := flow.SetFullName(body.FullName); err != nil {
			return err
		}
	}
	if body.Email != "" {
		if err := flow.SetEmail(body.Email); err != nil {
			return err
		}
	}
	if err := flow.SetStartDate(body.StartDate); err != nil {
		return err
	}
	if body.TravelersText != "" {
		return flow.SetTravelersText(body.TravelersText)
	}
	if body.Travelers != 0 {
		return flow.SetTravelers(body.Travelers)
	}
	return nil
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.deps.Bookings.History(r.Context(), s.deps.Sessions.Current())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"stats":    s.deps.Bookings.Stats(bookings),
	})
}

func (s *Server) handleBookingDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookingID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := s.deps.Bookings.Detail(r.Context(), s.deps.Sessions.Current(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookingID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Bookings.Cancel(r.Context(), s.deps.Sessions.Current(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user := s.deps.Sessions.Current()
	bookings, err := s.deps.Bookings.History(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.deps.Exporter.Write(w, *user, bookings, s.deps.Bookings.Stats(bookings)); err != nil {
		s.logger.Error().Err(err).Msg("booking export failed")
	}
}
