package engine

import (
	"context"
	"time"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/engine/budget"
	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/internal/engine/memo"
	"github.com/Chab-algo/praxia/internal/engine/prompt"
	"github.com/Chab-algo/praxia/internal/engine/ratelimit"
	"github.com/Chab-algo/praxia/internal/engine/router"
	"github.com/Chab-algo/praxia/internal/media"
	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
)

type (
	// Engine executes workflows. It holds no per-execution state, so one
	// Engine serves any number of concurrent executions
	Engine struct {
		store    store.Store
		provider provider.Client
		router   *router.Router
		budget   *budget.Monitor
		limiter  *ratelimit.Limiter
		cache    *memo.Cache
		renderer *prompt.Renderer
		media    *media.Resolver
		clock    Clock
	}

	// Clock provides the current time for timing and rate windows
	Clock func() time.Time

	// Option customizes an Engine
	Option func(*Engine)
)

// New creates an Engine over the shared store and provider. Budget alerts
// are published to hub, which may be nil. res resolves media references
// and may be nil when no bucket is configured
func New(
	st store.Store, cli provider.Client, hub *event.Hub[api.BudgetAlert],
	res *media.Resolver, cfg *config.Config, opts ...Option,
) *Engine {
	if res == nil {
		res = &media.Resolver{}
	}
	e := &Engine{
		store:    st,
		provider: cli,
		router:   router.NewDefault(),
		budget:   budget.NewMonitor(st, cfg.BudgetLimit, hub),
		cache:    memo.NewCache(st),
		renderer: prompt.NewRenderer(cfg.TemplateCacheSize),
		media:    res,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.limiter = ratelimit.NewLimiterWithClock(st, e.clock)
	return e
}

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRouter replaces the default model routing tables
func WithRouter(r *router.Router) Option {
	return func(e *Engine) {
		e.router = r
	}
}

// Budget exposes the global budget monitor
func (e *Engine) Budget() *budget.Monitor {
	return e.budget
}

// Now returns the current time from the Engine's clock
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Ping checks that the shared store is reachable
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
