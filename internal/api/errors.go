package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tripplanner/internal/domain"
	"tripplanner/internal/service"

	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps service errors onto HTTP statuses. Anything unrecognized
// is a failed call to the remote store.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAuthRequired), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidTravelers),
		errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrToggleInFlight), errors.Is(err, service.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeServiceError logs upstream failures and reports err with its mapped status.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, r, status, err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
