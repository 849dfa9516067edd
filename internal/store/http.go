package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/domain"
	"tripplanner/internal/metrics"
	"tripplanner/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const cachePrefix = "store:"

// StatusError is returned when the store answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.Code)
}

// HTTPStore talks to a json-server style REST backend:
// GET /{collection}?field=value, POST /{collection},
// PATCH /{collection}/{id}, DELETE /{collection}/{id}.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	// cacheMu orders cache fills against invalidation; writeGen counts
	// writes per collection so a read that overlapped one is not cached.
	cacheMu  sync.Mutex
	writeGen map[string]uint64
}

// NewHTTPStore constructs a client from store config. RPS <= 0 disables throttling.
func NewHTTPStore(cfg config.StoreConfig, logger *zerolog.Logger) *HTTPStore {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &HTTPStore{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		writeGen:   make(map[string]uint64),
	}
}

// UseRedisCache configures optional Redis caching for reads.
// Any write to a collection drops its cached reads.
func (s *HTTPStore) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	s.redis = redisClient
	s.cacheTTL = ttl
}

func (s *HTTPStore) Fetch(ctx context.Context, collection string, filter domain.Filter, out any) error {
	endpoint := s.collectionURL(collection) + encodeFilter(filter)
	cacheKey := cacheKeyFor(collection, filter)

	if raw, ok := s.readCache(ctx, collection, cacheKey); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}

	gen := s.generation(collection)
	raw, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	s.writeCache(ctx, collection, gen, cacheKey, raw)
	return nil
}

func (s *HTTPStore) Create(ctx context.Context, collection string, record any, out any) error {
	raw, err := s.do(ctx, http.MethodPost, s.collectionURL(collection), record)
	s.invalidate(ctx, collection)
	if err != nil {
		return err
	}
	return decodeOptional(raw, out)
}

func (s *HTTPStore) Update(ctx context.Context, collection string, id models.ID, patch any, out any) error {
	raw, err := s.do(ctx, http.MethodPatch, s.recordURL(collection, id), patch)
	s.invalidate(ctx, collection)
	if err != nil {
		return err
	}
	return decodeOptional(raw, out)
}

func (s *HTTPStore) Delete(ctx context.Context, collection string, id models.ID) error {
	_, err := s.do(ctx, http.MethodDelete, s.recordURL(collection, id), nil)
	s.invalidate(ctx, collection)
	return err
}

func (s *HTTPStore) collectionURL(collection string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(collection))
}

func (s *HTTPStore) recordURL(collection string, id models.ID) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, url.PathEscape(collection), id.String())
}

func encodeFilter(filter domain.Filter) string {
	if len(filter) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range filter {
		values.Set(k, v)
	}
	// Encode sorts keys, so equal filters produce equal URLs and cache keys.
	return "?" + values.Encode()
}

func cacheKeyFor(collection string, filter domain.Filter) string {
	return cachePrefix + collection + ":" + encodeFilter(filter)
}

func decodeOptional(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (s *HTTPStore) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, Path: req.URL.Path, Code: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, statusErr.Error())
		}
		return nil, statusErr
	}
	return raw, nil
}

func (s *HTTPStore) readCache(ctx context.Context, collection, key string) ([]byte, bool) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	val, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("store cache read failed")
		}
		metrics.IncCache(collection, false)
		return nil, false
	}
	metrics.IncCache(collection, true)
	return val, true
}

func (s *HTTPStore) generation(collection string) uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.writeGen[collection]
}

// writeCache stores raw unless a write to collection happened since gen was read.
func (s *HTTPStore) writeCache(ctx context.Context, collection string, gen uint64, key string, raw []byte) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.writeGen[collection] != gen {
		s.logger.Debug().Str("key", key).Msg("skipping cache fill after concurrent write")
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("store cache write failed")
	}
}

func (s *HTTPStore) invalidate(ctx context.Context, collection string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.writeGen[collection]++

	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	iter := s.redis.Scan(ctx, 0, cachePrefix+collection+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Msg("store cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Msg("store cache invalidation failed")
	}
}
