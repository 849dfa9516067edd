package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tripplanner/internal/models"
	"tripplanner/internal/pricing"
)

// FlowState is a step of the booking form.
type FlowState int

const (
	StateIdle FlowState = iota
	StateFilling
	StateSubmitting
	StateConfirmed
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFilling:
		return "filling"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BookingForm is the locally held form input.
type BookingForm struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	StartDate string `json:"startDate"`
	Travelers int    `json:"travelers"`
	// TravelersText is the free-text override for counts above the menu.
	TravelersText string `json:"travelersText,omitempty"`
}

func defaultForm() BookingForm {
	return BookingForm{Travelers: 1}
}

// BookingCreator persists a submitted booking.
type BookingCreator interface {
	Create(ctx context.Context, booking models.Booking) (*models.Booking, error)
}

// FlowSnapshot is a read-only view of a BookingFlow.
type FlowSnapshot struct {
	State        string          `json:"state"`
	Form         BookingForm     `json:"form"`
	Quote        pricing.Quote   `json:"quote"`
	Confirmation *models.Booking `json:"confirmation,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// BookingFlow drives one booking form for one trip:
// Idle -> Filling -> Submitting -> Confirmed | Failed.
type BookingFlow struct {
	mu           sync.Mutex
	state        FlowState
	trip         models.Trip
	user         *models.User
	form         BookingForm
	quote        pricing.Quote
	confirmation *models.Booking
	lastErr      error
	menuMax      int
	creator      BookingCreator
	now          func() time.Time
}

func NewBookingFlow(trip models.Trip, creator BookingCreator, menuMax int) *BookingFlow {
	if menuMax <= 0 {
		menuMax = models.TravelerMenuMax
	}
	f := &BookingFlow{
		state:   StateIdle,
		trip:    trip,
		form:    defaultForm(),
		menuMax: menuMax,
		creator: creator,
		now:     time.Now,
	}
	f.recalc()
	return f
}

func (f *BookingFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *BookingFlow) Snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := FlowSnapshot{
		State: f.state.String(),
		Form:  f.form,
		Quote: f.quote,
	}
	if f.confirmation != nil {
		c := *f.confirmation
		snap.Confirmation = &c
	}
	if f.lastErr != nil {
		snap.Error = f.lastErr.Error()
	}
	return snap
}

// Open enters Filling. Without a user it stays Idle and returns
// ErrAuthRequired so the caller can send the visitor to sign in.
func (f *BookingFlow) Open(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user == nil {
		return ErrAuthRequired
	}
	if f.state != StateIdle {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, f.state)
	}

	u := *user
	f.user = &u
	if f.form.FullName == "" {
		f.form.FullName = user.Name
	}
	if f.form.Email == "" {
		f.form.Email = user.Email
	}
	f.state = StateFilling
	f.recalc()
	return nil
}

func (f *BookingFlow) editable() error {
	if f.state != StateFilling {
		return fmt.Errorf("%w: edit while %s", ErrInvalidTransition, f.state)
	}
	return nil
}

func (f *BookingFlow) SetFullName(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.form.FullName = name
	return nil
}

func (f *BookingFlow) SetEmail(email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.form.Email = email
	return nil
}

func (f *BookingFlow) SetStartDate(date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.form.StartDate = strings.TrimSpace(date)
	return nil
}

// SetTravelers picks a count from the menu (1..menu ceiling).
func (f *BookingFlow) SetTravelers(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if n < 1 || n > f.menuMax {
		return ErrInvalidTravelers
	}
	f.form.Travelers = n
	f.form.TravelersText = ""
	f.recalc()
	return nil
}

// SetTravelersText applies the free-text override. Unparsable input is
// kept in the form but leaves the count unchanged.
func (f *BookingFlow) SetTravelersText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.form.TravelersText = text
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		return ErrInvalidTravelers
	}
	f.form.Travelers = n
	f.recalc()
	return nil
}

// Quote is the live price for the current traveler count.
func (f *BookingFlow) Quote() pricing.Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quote
}

func (f *BookingFlow) recalc() {
	f.quote = pricing.Calculate(f.trip.Price, f.form.Travelers)
}

func (f *BookingFlow) validate() error {
	switch {
	case strings.TrimSpace(f.form.FullName) == "":
		return fmt.Errorf("%w: full name", ErrMissingField)
	case strings.TrimSpace(f.form.Email) == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	case f.form.StartDate == "":
		return fmt.Errorf("%w: start date", ErrMissingField)
	case f.form.Travelers < 1:
		return ErrInvalidTravelers
	}
	if f.form.TravelersText != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(f.form.TravelersText)); err != nil || n != f.form.Travelers {
			return ErrInvalidTravelers
		}
	}
	return nil
}

// Submit sends the booking. Validation errors keep the flow in Filling;
// a remote failure moves it to Failed with the input preserved.
func (f *BookingFlow) Submit(ctx context.Context) (*models.Booking, error) {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if err := f.validate(); err != nil {
		f.mu.Unlock()
		return nil, err
	}

	f.recalc()
	payload := models.Booking{
		UserID:       f.user.ID,
		TripID:       f.trip.ID,
		TripName:     f.trip.Name,
		Destination:  f.trip.Destination,
		NumTravelers: f.form.Travelers,
		StartDate:    f.form.StartDate,
		TotalPrice:   f.quote.Total,
		Date:         f.now().UTC(),
	}
	f.state = StateSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	created, err := f.creator.Create(ctx, payload)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.lastErr = err
		return nil, err
	}
	f.state = StateConfirmed
	f.confirmation = created
	return created, nil
}

// Retry returns a failed submission to Filling with its input intact.
func (f *BookingFlow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateFailed {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateFilling
	return nil
}

// Dismiss closes the form. Dismissing a confirmation resets the form to
// its defaults; other states keep the input for the next Open.
func (f *BookingFlow) Dismiss() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSubmitting:
		return fmt.Errorf("%w: dismiss while submitting", ErrInvalidTransition)
	case StateConfirmed:
		f.form = defaultForm()
		f.confirmation = nil
	}
	f.state = StateIdle
	f.lastErr = nil
	f.recalc()
	return nil
}
