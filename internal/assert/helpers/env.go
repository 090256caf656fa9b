package helpers

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/engine"
	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/internal/media"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
)

type (
	// TestEngineEnv holds all the components needed for engine testing
	TestEngineEnv struct {
		Engine   *engine.Engine
		Redis    *miniredis.Miniredis
		Store    *store.RedisStore
		Provider *MockProvider
		Config   *config.Config
		Alerts   *event.Hub[api.BudgetAlert]
		Media    *media.Resolver
		Clock    *MockClock
	}

	// MockClock is a manually advanced clock
	MockClock struct {
		now time.Time
	}

	// EnvOption adjusts the configuration before the engine is built
	EnvOption func(*config.Config)
)

// TestEpoch is the start time of every MockClock
var TestEpoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// WithBudgetLimit sets the global budget ceiling
func WithBudgetLimit(usd float64) EnvOption {
	return func(cfg *config.Config) {
		cfg.BudgetLimit = usd
	}
}

// NewTestEngine creates a fully configured test engine over an in-memory
// Redis, a mem:// media bucket and a scripted provider. Everything is
// released when the test ends
func NewTestEngine(t *testing.T, opts ...EnvOption) *TestEngineEnv {
	t.Helper()

	server := miniredis.RunT(t)
	cfg := NewTestConfig()
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = "test"
	cfg.MediaBucketURL = "mem://"
	for _, opt := range opts {
		opt(cfg)
	}

	st := store.NewRedisStore(cfg.Store)
	res, err := media.NewResolver(t.Context(), cfg.MediaBucketURL)
	require.NoError(t, err)

	hub := event.NewHub[api.BudgetAlert]()
	clock := &MockClock{now: TestEpoch}
	mock := NewMockProvider()

	eng := engine.New(st, mock, hub, res, cfg, engine.WithClock(clock.Now))

	t.Cleanup(func() {
		hub.Close()
		_ = res.Close()
		_ = st.Close()
	})

	return &TestEngineEnv{
		Engine:   eng,
		Redis:    server,
		Store:    st,
		Provider: mock,
		Config:   cfg,
		Alerts:   hub,
		Media:    res,
		Clock:    clock,
	}
}

// Now returns the clock's current time
func (c *MockClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward
func (c *MockClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
