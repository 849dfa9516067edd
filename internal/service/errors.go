package service

import "errors"

var (
	ErrAuthRequired       = errors.New("sign in required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user with this email already exists")
	ErrToggleInFlight     = errors.New("favorite toggle already in flight")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidTravelers   = errors.New("travelers must be a whole number of at least 1")
	ErrMissingField       = errors.New("required field missing")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrTripNotFound       = errors.New("trip not found")
	ErrInvalidTransition  = errors.New("invalid booking flow transition")
)
