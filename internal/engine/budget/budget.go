package budget

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

// Monitor enforces the global spend ceiling shared by every execution
type Monitor struct {
	store  store.Store
	alerts *event.Hub[api.BudgetAlert]
	now    func() time.Time
	limit  float64
}

// SpentKey holds the running total of reserved and corrected spend
const SpentKey = "budget:global:spent"

const correctionEpsilon = 1e-6

// Thresholds are the usage ratios that raise a BudgetAlert when a
// reservation crosses them
var Thresholds = []float64{0.50, 0.75, 0.90, 0.95}

// NewMonitor creates a Monitor over the given store. alerts may be nil
func NewMonitor(
	st store.Store, limit float64, alerts *event.Hub[api.BudgetAlert],
) *Monitor {
	return &Monitor{
		store:  st,
		alerts: alerts,
		now:    time.Now,
		limit:  limit,
	}
}

// Limit returns the configured ceiling in USD
func (m *Monitor) Limit() float64 {
	return m.limit
}

// EstimateCost prices a call as if it used its whole output allowance
func (m *Monitor) EstimateCost(
	model string, inputTokens, maxOutputTokens int,
) float64 {
	return provider.CalculateCost(model, inputTokens, maxOutputTokens)
}

// CheckAndReserve atomically adds estimate to global spend, failing with
// ErrGlobalBudgetExceeded when that would pass the ceiling. A refused
// reservation leaves the ledger untouched
func (m *Monitor) CheckAndReserve(ctx context.Context, estimate float64) error {
	if estimate <= 0 || math.IsNaN(estimate) {
		return nil
	}

	res, err := m.store.Reserve(ctx, SpentKey, estimate, m.limit)
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrStepExecution, err)
	}
	if !res.Reserved {
		slog.Error("Global budget exceeded",
			slog.Float64("spent_usd", res.Total),
			slog.Float64("estimate_usd", estimate),
			slog.Float64("limit_usd", m.limit))
		return fmt.Errorf("%w: $%.4f spent + $%.4f estimated > $%.2f limit",
			api.ErrGlobalBudgetExceeded, res.Total, estimate, m.limit,
		)
	}

	m.checkThresholds(res.Total-estimate, res.Total)
	return nil
}

// RecordActual replaces a prior estimate with the actual cost. It never
// fails; store errors are logged
func (m *Monitor) RecordActual(ctx context.Context, estimate, actual float64) {
	diff := actual - estimate
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		slog.Warn("Invalid cost correction",
			slog.Float64("estimate_usd", estimate),
			slog.Float64("actual_usd", actual))
		return
	}
	if math.Abs(diff) <= correctionEpsilon {
		return
	}
	if _, err := m.store.IncrByFloat(ctx, SpentKey, diff); err != nil {
		slog.Error("Failed to record actual cost",
			slog.Float64("diff_usd", diff),
			log.Error(err))
	}
}

// Spent returns the current global spend
func (m *Monitor) Spent(ctx context.Context) (float64, error) {
	raw, ok, err := m.store.Get(ctx, SpentKey)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// Status reports spend against the ceiling
func (m *Monitor) Status(ctx context.Context) (*api.BudgetStatus, error) {
	spent, err := m.Spent(ctx)
	if err != nil {
		return nil, err
	}
	res := &api.BudgetStatus{
		SpentUSD:     round(spent, 6),
		LimitUSD:     m.limit,
		RemainingUSD: round(m.limit-spent, 6),
	}
	if m.limit > 0 {
		res.UsagePercent = round(spent/m.limit*100, 1)
	}
	return res, nil
}

func (m *Monitor) checkThresholds(prev, total float64) {
	if m.limit <= 0 {
		return
	}
	prevRatio := prev / m.limit
	ratio := total / m.limit
	for _, th := range Thresholds {
		if prevRatio < th && th <= ratio {
			m.raise(th, ratio, total)
		}
	}
}

func (m *Monitor) raise(threshold, ratio, total float64) {
	slog.Warn("Budget threshold crossed",
		slog.Float64("threshold", threshold),
		slog.Float64("spent_usd", total),
		slog.Float64("limit_usd", m.limit))
	if m.alerts == nil {
		return
	}
	m.alerts.Publish(api.BudgetAlert{
		Time:      m.now(),
		Threshold: threshold,
		Ratio:     ratio,
		SpentUSD:  total,
		LimitUSD:  m.limit,
	})
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
