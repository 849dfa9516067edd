package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripplanner/internal/api"
	"tripplanner/internal/config"
	"tripplanner/internal/database"
	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/export"
	"tripplanner/internal/logging"
	"tripplanner/internal/metrics"
	"tripplanner/internal/models"
	"tripplanner/internal/repository"
	"tripplanner/internal/service"
	"tripplanner/internal/store"
	"tripplanner/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	seed, err := loadSeedTrips(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	recordStore := initStore(cfg, redisClient, seed, logger)
	sessionRepo := initSessionRepository(cfg, db, redisClient, logger)

	eventBus := events.NewEventBus()
	scheduler := worker.NewScheduler(worker.ReconcilePolicy(), logger)
	go scheduler.Start(ctx)

	// Инициализация сервисов
	sessions := service.NewSessionService(sessionRepo, service.NewStoreAuthenticator(recordStore), eventBus, logger)

	var snapshots domain.SnapshotStore
	if db != nil {
		snapshots = db
	}
	catalog := service.NewCatalogService(recordStore, snapshots, seed, logger)
	catalog.Subscribe(eventBus)
	catalog.FollowIdentity(eventBus)
	subscribeAuditLog(eventBus, logger)

	source := catalog.LoadTrips(ctx)
	logger.Info().Str("source", source).Int("trips", len(catalog.Trips())).Msg("catalog loaded")

	if user := sessions.Restore(ctx); user != nil {
		logger.Info().Int64("user_id", int64(user.ID)).Msg("session restored")
	}

	if db != nil && cfg.Database.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Database.Backup, logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, nothing to serve")
		<-ctx.Done()
		return nil
	}

	httpServer := api.NewServer(cfg.API, api.Deps{
		Sessions:        sessions,
		Catalog:         catalog,
		Favorites:       service.NewFavoritesService(recordStore, catalog, sessions, eventBus, logger),
		Reviews:         service.NewReviewService(recordStore, catalog, sessions, eventBus, scheduler, cfg.Reviews, logger),
		Bookings:        service.NewBookingService(recordStore, catalog, eventBus, logger),
		Exporter:        export.NewExporter(cfg.Exports.Path, logger),
		Filters:         cfg.Filters,
		TravelerMenuMax: cfg.Booking.TravelerMenuMax,
	}, logger)

	return serve(ctx, httpServer, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

// loadSeedTrips reads the bundled catalog used when the store and the
// snapshot are both unavailable. A missing file means no seed.
func loadSeedTrips(cfg *config.Config, logger *zerolog.Logger) ([]models.Trip, error) {
	seedPath := os.Getenv("TRIPS_PATH")
	if seedPath == "" {
		seedPath = cfg.Catalog.SeedPath
	}
	if seedPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(seedPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("seed_path", seedPath).Msg("seed catalog not found")
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed catalog")
		return nil, err
	}

	var seedConfig struct {
		Trips []models.Trip `yaml:"trips"`
	}
	if err := yaml.Unmarshal(data, &seedConfig); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed catalog")
		return nil, err
	}
	return seedConfig.Trips, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed")
		return client
	}
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initStore(cfg *config.Config, redisClient *redis.Client, seed []models.Trip, logger *zerolog.Logger) domain.RecordStore {
	if cfg.Store.Mode == config.StoreModeMemory {
		mem := store.NewMemoryStore()
		if err := mem.Seed(models.CollectionTrips, seed); err != nil {
			logger.Error().Err(err).Msg("seed in-memory store")
		}
		logger.Info().Int("trips", mem.Len(models.CollectionTrips)).Msg("using in-memory record store")
		return store.NewInstrumented(mem, logger)
	}

	httpStore := store.NewHTTPStore(cfg.Store, logger)
	if redisClient != nil && cfg.Store.CacheTTL() > 0 {
		httpStore.UseRedisCache(redisClient, cfg.Store.CacheTTL())
	}
	logger.Info().Str("base_url", cfg.Store.BaseURL).Msg("using remote record store")
	return store.NewInstrumented(httpStore, logger)
}

// initSessionRepository builds the configured session backend. Redis and
// SQLite fall back to memory while they are unavailable.
func initSessionRepository(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	ttl := cfg.Session.TTL()
	fallback := repository.NewMemorySessionRepository(ttl)

	var primary domain.SessionRepository
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		if redisClient != nil {
			primary = repository.NewRedisSessionRepository(redisClient, repository.DefaultSessionKey, ttl)
		}
	case config.SessionBackendSQLite:
		if db != nil {
			primary = repository.NewSQLiteSessionRepository(db, ttl)
		}
	}
	if primary == nil {
		return fallback
	}

	failover := repository.NewFailoverSessionRepository(primary, fallback, logger)
	failover.OnSwitch(metrics.SetSessionFailover)
	return failover
}

// subscribeAuditLog records every domain event at info level.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "events")
	handler := func(ev *events.Event) error {
		audit.Info().Str("event", ev.Type).Str("event_id", ev.ID).RawJSON("payload", ev.Payload).Msg("domain event")
		return nil
	}
	for _, eventType := range []string{
		events.EventTripRatingUpdated,
		events.EventIdentityChanged,
		events.EventFavoriteToggled,
		events.EventReviewPosted,
		events.EventBookingCreated,
		events.EventBookingCanceled,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func serve(ctx context.Context, httpServer *api.Server, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
