package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/domain"
	"tripplanner/internal/events"
	"tripplanner/internal/models"
	"tripplanner/internal/repository"
	"tripplanner/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// flakyStore wraps a MemoryStore and fails chosen (op, collection) pairs.
type flakyStore struct {
	*store.MemoryStore
	mu    sync.Mutex
	fails map[string]error
	calls map[string]int
	// gate, when set for a key, blocks the call until closed.
	gates map[string]chan struct{}
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		MemoryStore: store.NewMemoryStore(),
		fails:       map[string]error{},
		calls:       map[string]int{},
		gates:       map[string]chan struct{}{},
	}
}

func (s *flakyStore) fail(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op+":"+collection)
		return
	}
	s.fails[op+":"+collection] = err
}

func (s *flakyStore) gate(op, collection string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[op+":"+collection] = ch
	return ch
}

func (s *flakyStore) count(op, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+collection]
}

func (s *flakyStore) before(op, collection string) error {
	key := op + ":" + collection
	s.mu.Lock()
	s.calls[key]++
	gate := s.gates[key]
	delete(s.gates, key)
	err := s.fails[key]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (s *flakyStore) Fetch(ctx context.Context, collection string, filter domain.Filter, out any) error {
	if err := s.before("fetch", collection); err != nil {
		return err
	}
	return s.MemoryStore.Fetch(ctx, collection, filter, out)
}

func (s *flakyStore) Create(ctx context.Context, collection string, record any, out any) error {
	if err := s.before("create", collection); err != nil {
		return err
	}
	return s.MemoryStore.Create(ctx, collection, record, out)
}

func (s *flakyStore) Update(ctx context.Context, collection string, id models.ID, patch any, out any) error {
	if err := s.before("update", collection); err != nil {
		return err
	}
	return s.MemoryStore.Update(ctx, collection, id, patch, out)
}

func (s *flakyStore) Delete(ctx context.Context, collection string, id models.ID) error {
	if err := s.before("delete", collection); err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, collection, id)
}

// mockAuth is a testify mock for domain.Authenticator.
type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuth) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type scheduledCall struct {
	key   string
	delay time.Duration
	job   func(ctx context.Context) error
}

// recordingScheduler captures Schedule calls instead of running them.
type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
}

func (s *recordingScheduler) Schedule(key string, delay time.Duration, job func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduledCall{key: key, delay: delay, job: job})
}

type testEnv struct {
	store     *flakyStore
	bus       *events.EventBus
	sessions  *SessionService
	catalog   *CatalogService
	favorites *FavoritesService
	reviews   *ReviewService
	bookings  *BookingService
	scheduler *recordingScheduler
	logger    *zerolog.Logger
}

var testTrips = []models.Trip{
	{ID: 1, Name: "Paris Getaway", Destination: "Paris, France", Price: 500, DurationDays: 5, Category: "City"},
	{ID: 2, Name: "Rome Classic", Destination: "Rome, Italy", Price: 900, DurationDays: 7},
	{ID: 3, Name: "Nowhere", Destination: "Unknown", Price: 100, DurationDays: 2, Category: "Adventure"},
}

func newTestEnv(t *testing.T, reviewsCfg config.ReviewsConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	st := newFlakyStore()
	require.NoError(t, st.Seed(models.CollectionTrips, testTrips))
	require.NoError(t, st.Seed(models.CollectionUsers, []models.User{
		{ID: 7, Name: "Ada Lovelace", Email: "ada@example.com", Password: "engine"},
		{ID: 8, Name: "Grace Hopper", Email: "grace@example.com", Password: "cobol"},
	}))

	bus := events.NewEventBus()
	sessions := NewSessionService(repository.NewMemorySessionRepository(0), NewStoreAuthenticator(st), bus, &logger)
	catalogSvc := NewCatalogService(st, nil, nil, &logger)
	catalogSvc.Subscribe(bus)
	sched := &recordingScheduler{}

	env := &testEnv{
		store:     st,
		bus:       bus,
		sessions:  sessions,
		catalog:   catalogSvc,
		favorites: NewFavoritesService(st, catalogSvc, sessions, bus, &logger),
		reviews:   NewReviewService(st, catalogSvc, sessions, bus, sched, reviewsCfg, &logger),
		bookings:  NewBookingService(st, catalogSvc, bus, &logger),
		scheduler: sched,
		logger:    &logger,
	}
	env.catalog.LoadTrips(context.Background())
	return env
}

func (e *testEnv) signIn(t *testing.T, email, password string) *models.User {
	t.Helper()
	user, err := e.sessions.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	e.catalog.LoadUserData(context.Background(), user.ID)
	return user
}

// collect subscribes to eventType and returns a func reading what arrived.
func collect(bus *events.EventBus, eventType string) func() []*events.Event {
	var mu sync.Mutex
	var got []*events.Event
	bus.Subscribe(eventType, func(e *events.Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	})
	return func() []*events.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*events.Event(nil), got...)
	}
}

func defaultReviewsConfig() config.ReviewsConfig {
	return config.ReviewsConfig{RatingSync: config.RatingSyncMean, ReconcileDelayMS: 500}
}
