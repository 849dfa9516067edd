package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"tripplanner/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreModeHTTP   = "http"
	StoreModeMemory = "memory"

	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"

	RatingSyncMean    = "mean"
	RatingSyncRunning = "running"
)

type Config struct {
	App        AppConfig           `yaml:"app"`
	Store      StoreConfig         `yaml:"store"`
	Database   DatabaseConfig      `yaml:"database"`
	Redis      RedisConfig         `yaml:"redis"`
	Session    SessionConfig       `yaml:"session"`
	Catalog    CatalogConfig       `yaml:"catalog"`
	Filters    models.FilterConfig `yaml:"filters"`
	Booking    BookingConfig       `yaml:"booking"`
	Reviews    ReviewsConfig       `yaml:"reviews"`
	API        APIConfig           `yaml:"api"`
	Monitoring MonitoringConfig    `yaml:"monitoring"`
	Logging    LoggingConfig       `yaml:"logging"`
	Exports    ExportConfig        `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// StoreConfig describes the remote record store.
type StoreConfig struct {
	Mode            string  `yaml:"mode"`
	BaseURL         string  `yaml:"base_url"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	RPS             float64 `yaml:"rps"`
	Burst           int     `yaml:"burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s StoreConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

type DatabaseConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	Backend  string `yaml:"backend"`
	TTLHours int    `yaml:"ttl_hours"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
}

type BookingConfig struct {
	TravelerMenuMax int `yaml:"traveler_menu_max"`
}

type ReviewsConfig struct {
	ReconcileDelayMS int    `yaml:"reconcile_delay_ms"`
	RatingSync       string `yaml:"rating_sync"`
}

func (r ReviewsConfig) ReconcileDelay() time.Duration {
	return time.Duration(r.ReconcileDelayMS) * time.Millisecond
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store.Mode {
	case StoreModeHTTP:
		if strings.TrimSpace(c.Store.BaseURL) == "" {
			return errors.New("store.base_url is required in http mode")
		}
	case StoreModeMemory:
	default:
		return fmt.Errorf("unknown store.mode %q", c.Store.Mode)
	}

	switch c.Session.Backend {
	case SessionBackendSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite session backend")
		}
	case SessionBackendRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for the redis session backend")
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}

	if c.Reviews.RatingSync != RatingSyncMean && c.Reviews.RatingSync != RatingSyncRunning {
		return fmt.Errorf("unknown reviews.rating_sync %q", c.Reviews.RatingSync)
	}

	return ValidateFilters(c.Filters)
}

func ValidateFilters(f models.FilterConfig) error {
	if f.MaxPrice < 0 {
		return fmt.Errorf("filters.max_price must not be negative, got %v", f.MaxPrice)
	}
	if f.MaxDays < 1 {
		return fmt.Errorf("filters.max_days must be at least 1, got %d", f.MaxDays)
	}
	if !models.IsSortKey(f.SortBy) {
		return fmt.Errorf("unknown filters.sort_by %q", f.SortBy)
	}
	if f.MinRating < 0 || f.MinRating > models.MaxReviewRating {
		return fmt.Errorf("filters.min_rating out of range: %v", f.MinRating)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tripplanner"
	}
	if c.Store.Mode == "" {
		c.Store.Mode = StoreModeHTTP
	}
	if c.Store.TimeoutSeconds == 0 {
		c.Store.TimeoutSeconds = 10
	}
	if c.Store.Burst == 0 {
		c.Store.Burst = 10
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionBackendSQLite
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24 * 30
	}

	// Filter defaults
	defaults := models.DefaultFilterConfig()
	if c.Filters.MaxPrice == 0 {
		c.Filters.MaxPrice = defaults.MaxPrice
	}
	if c.Filters.MaxDays == 0 {
		c.Filters.MaxDays = defaults.MaxDays
	}
	if c.Filters.SortBy == "" {
		c.Filters.SortBy = defaults.SortBy
	}
	if c.Filters.Category == "" {
		c.Filters.Category = defaults.Category
	}
	if c.Filters.Country == "" {
		c.Filters.Country = defaults.Country
	}

	if c.Booking.TravelerMenuMax == 0 {
		c.Booking.TravelerMenuMax = models.TravelerMenuMax
	}
	if c.Reviews.ReconcileDelayMS == 0 {
		c.Reviews.ReconcileDelayMS = int(models.ReviewReconcileDelay / time.Millisecond)
	}
	if c.Reviews.RatingSync == "" {
		c.Reviews.RatingSync = RatingSyncMean
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Database.Backup.Enabled && c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
