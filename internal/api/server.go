// Package api is the local HTTP facade a UI shell talks to. It holds no
// state of its own; every request goes through the services.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/export"
	"tripplanner/internal/logging"
	"tripplanner/internal/models"
	"tripplanner/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Deps are the services the facade exposes.
type Deps struct {
	Sessions  *service.SessionService
	Catalog   *service.CatalogService
	Favorites *service.FavoritesService
	Reviews   *service.ReviewService
	Bookings  *service.BookingService
	Exporter  *export.Exporter

	// Filters seeds the filter config for queries that omit a parameter.
	Filters         models.FilterConfig
	TravelerMenuMax int
}

type Server struct {
	cfg     config.APIConfig
	deps    Deps
	limiter *rateLimiter
	server  *http.Server
	logger  *zerolog.Logger
}

func NewServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *Server {
	if deps.TravelerMenuMax <= 0 {
		deps.TravelerMenuMax = models.TravelerMenuMax
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logging.Component(logger, "api"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Wrap)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.handleTrips)
			r.Get("/facets", s.handleFacets)
			r.Get("/{tripID}", s.handleTrip)
			r.Post("/{tripID}/reviews", s.handlePostReview)
		})

		r.Post("/favorites/{tripID}/toggle", s.handleToggleFavorite)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Post("/", s.handleSignIn)
			r.Post("/signup", s.handleSignUp)
			r.Delete("/", s.handleSignOut)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", s.handleBookings)
			r.Post("/", s.handleCreateBooking)
			r.Post("/quote", s.handleQuote)
			r.Get("/export", s.handleExport)
			r.Get("/{bookingID}", s.handleBookingDetail)
			r.Delete("/{bookingID}", s.handleCancelBooking)
		})
	})
	return r
}

// idParam parses a chi path parameter as a record id.
func idParam(r *http.Request, name string) (models.ID, error) {
	id, err := models.ParseID(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
