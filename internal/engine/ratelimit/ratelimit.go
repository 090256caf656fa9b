package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

type (
	// Limits caps the requests a caller may make
	Limits struct {
		Daily     int
		PerMinute int
	}

	// Limiter admits or refuses provider-bound requests per caller, using a
	// one-minute sliding window and a per-day counter
	Limiter struct {
		store  store.Store
		limits map[api.Tier]Limits
		now    func() time.Time
	}
)

const (
	// Window is the horizon of the sliding per-minute window
	Window = time.Minute

	// AnonymousCaller is used for requests that carry no caller ID
	AnonymousCaller api.CallerID = "anonymous"

	windowTTL  = 2 * time.Minute
	counterTTL = 24 * time.Hour
	daySeconds = 86400
)

// DefaultLimits is the tier table. Unknown tiers get the trial limits
var DefaultLimits = map[api.Tier]Limits{
	api.TierTrial:      {Daily: 50, PerMinute: 5},
	api.TierStarter:    {Daily: 500, PerMinute: 20},
	api.TierPro:        {Daily: 5000, PerMinute: 50},
	api.TierEnterprise: {Daily: 50000, PerMinute: 200},
}

// NewLimiter creates a Limiter with the default tier table and wall clock
func NewLimiter(st store.Store) *Limiter {
	return NewLimiterWithClock(st, time.Now)
}

// NewLimiterWithClock creates a Limiter that reads time from now
func NewLimiterWithClock(st store.Store, now func() time.Time) *Limiter {
	return &Limiter{
		store:  st,
		limits: DefaultLimits,
		now:    now,
	}
}

// LimitsFor returns the limits applied to a tier
func (l *Limiter) LimitsFor(tier api.Tier) Limits {
	if lim, ok := l.limits[tier]; ok {
		return lim
	}
	return l.limits[api.TierTrial]
}

// Check records one request for the caller, or fails with
// ErrRateLimitExceeded when either window is full. A refused request
// consumes no capacity
func (l *Limiter) Check(
	ctx context.Context, caller api.CallerID, tier api.Tier,
) error {
	if caller == "" {
		caller = AnonymousCaller
	}
	lim := l.LimitsFor(tier)
	now := l.now()

	res, err := l.store.Admit(ctx, &store.AdmitRequest{
		WindowKey:   windowKey(caller),
		CounterKey:  dayKey(caller, now),
		Member:      uuid.NewString(),
		Now:         now.UnixMilli(),
		Cutoff:      now.Add(-Window).UnixMilli(),
		WindowLimit: lim.PerMinute,
		DailyLimit:  lim.Daily,
		WindowTTL:   windowTTL,
		CounterTTL:  counterTTL,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrStepExecution, err)
	}

	switch res {
	case store.WindowLimited:
		slog.Warn("Rate limit exceeded",
			log.CallerID(caller),
			log.Tier(tier),
			slog.Int("per_minute", lim.PerMinute))
		return fmt.Errorf("%w: %d requests per minute",
			api.ErrRateLimitExceeded, lim.PerMinute,
		)
	case store.DailyLimited:
		slog.Warn("Daily limit exceeded",
			log.CallerID(caller),
			log.Tier(tier),
			slog.Int("daily", lim.Daily))
		return fmt.Errorf("%w: %d requests per day",
			api.ErrRateLimitExceeded, lim.Daily,
		)
	default:
		return nil
	}
}

func windowKey(caller api.CallerID) string {
	return fmt.Sprintf("rl:%s:minute", caller)
}

func dayKey(caller api.CallerID, now time.Time) string {
	return fmt.Sprintf("rl:%s:day:%d", caller, now.Unix()/daySeconds)
}
