package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultSessionKey = "tripplanner:session:current"

type RedisSessionRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSessionRepository(client *redis.Client, key string, ttl time.Duration) *RedisSessionRepository {
	if key == "" {
		key = DefaultSessionKey
	}
	return &RedisSessionRepository{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (r *RedisSessionRepository) Load(ctx context.Context) (*models.User, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &user, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, user *models.User) error {
	if user == nil {
		return r.Clear(ctx)
	}
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in redis: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Clear(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
