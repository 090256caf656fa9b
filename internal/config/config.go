package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/Chab-algo/praxia/pkg/log"
)

type (
	// Config holds configuration settings for the engine and its surfaces
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Shared store
		Store StoreConfig

		// Provider
		Provider ProviderConfig

		// Engine
		BudgetLimit       float64
		MediaBucketURL    string
		TemplateCacheSize int
		ShutdownTimeout   time.Duration
	}

	// StoreConfig holds the Redis connection used for budget, rate windows
	// and the response cache
	StoreConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}

	// ProviderConfig holds the model provider endpoint and credentials
	ProviderConfig struct {
		APIKey  string
		BaseURL string
		Timeout int64
	}
)

const (
	DefaultShutdownTimeout = 10 * time.Second
	DefaultProviderTimeout = 60_000 // ms

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535
	DefaultRedisDB = 0
	MaxRedisDB     = 15

	DefaultRedisEndpoint     = "localhost:6379"
	DefaultRedisPrefix       = "praxia"
	DefaultProviderBaseURL   = "https://api.openai.com/v1"
	DefaultBudgetLimit       = 15.0
	DefaultTemplateCacheSize = 1024

	MaxTemplateCacheSize = 1_000_000
	MaxProviderTimeout   = 10 * 60 * 1000 // 10 minutes in ms
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidBudgetLimit     = errors.New("budget limit must be positive")
	ErrInvalidProviderTimeout = errors.New(
		"provider timeout must be positive",
	)
	ErrInvalidTemplateCache = errors.New(
		"template cache size must be positive",
	)
	ErrInvalidShutdownTimeout = errors.New(
		"shutdown timeout must be positive",
	)
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrStoreAddrEmpty   = errors.New("redis address empty")
	ErrProviderURLEmpty = errors.New("provider base URL empty")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// engine settings, the store, and the provider
func NewDefaultConfig() *Config {
	return &Config{
		APIPort: DefaultAPIPort,
		APIHost: DefaultAPIHost,
		Store: StoreConfig{
			Addr:     DefaultRedisEndpoint,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		Provider: ProviderConfig{
			BaseURL: DefaultProviderBaseURL,
			Timeout: DefaultProviderTimeout,
		},
		BudgetLimit:       DefaultBudgetLimit,
		TemplateCacheSize: DefaultTemplateCacheSize,
		ShutdownTimeout:   DefaultShutdownTimeout,
		LogLevel:          "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed. Values that fail to
// parse leave the current setting untouched
func (c *Config) LoadFromEnv() error {
	LoadStoreConfigFromEnv(&c.Store)

	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		c.Provider.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.Provider.BaseURL = baseURL
	}
	if bucket := os.Getenv("MEDIA_BUCKET_URL"); bucket != "" {
		c.MediaBucketURL = bucket
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"TEMPLATE_CACHE_SIZE", &c.TemplateCacheSize, 0, MaxTemplateCacheSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"PROVIDER_TIMEOUT", &c.Provider.Timeout, 0, MaxProviderTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvFloat("BUDGET_LIMIT_USD", &c.BudgetLimit); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if !log.IsLevel(c.LogLevel) {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Store.Addr == "" {
		return ErrStoreAddrEmpty
	}

	if c.Provider.BaseURL == "" {
		return ErrProviderURLEmpty
	}

	if c.Provider.Timeout <= 0 {
		return ErrInvalidProviderTimeout
	}

	if c.BudgetLimit <= 0 || math.IsInf(c.BudgetLimit, 0) ||
		math.IsNaN(c.BudgetLimit) {
		return fmt.Errorf("%w: %v", ErrInvalidBudgetLimit, c.BudgetLimit)
	}

	if c.TemplateCacheSize <= 0 {
		return ErrInvalidTemplateCache
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// ProviderTimeout returns the provider timeout as a duration
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.Timeout) * time.Millisecond
}

// LoadStoreConfigFromEnv loads Redis store configuration from the REDIS_*
// environment variables
func LoadStoreConfigFromEnv(s *StoreConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil && db >= 0 && db <= MaxRedisDB {
			s.DB = db
		}
	}
	if envPrefix := os.Getenv("REDIS_PREFIX"); envPrefix != "" {
		s.Prefix = envPrefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvFloat(key string, dst *float64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = v
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = v
	return nil
}
