package budget_test

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/engine/budget"
	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
)

func newTestMonitor(
	t *testing.T, limit float64, hub *event.Hub[api.BudgetAlert],
) *budget.Monitor {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.NewRedisStore(config.StoreConfig{
		Addr:   mr.Addr(),
		Prefix: "test",
	})
	t.Cleanup(func() { _ = st.Close() })
	return budget.NewMonitor(st, limit, hub)
}

func TestEstimateCost(t *testing.T) {
	m := newTestMonitor(t, 1.0, nil)
	assert.InDelta(t, 0.0003, m.EstimateCost(api.ModelNano, 1000, 500), 1e-12)
	assert.InDelta(t,
		m.EstimateCost(api.ModelMini, 1000, 500),
		m.EstimateCost("unknown-model", 1000, 500), 1e-12,
	)
}

func TestCheckAndReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("within_limit", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.75))
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0.75, spent)
	})

	t.Run("refused_without_mutation", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.75))

		err := m.CheckAndReserve(ctx, 0.5)
		assert.ErrorIs(t, err, api.ErrGlobalBudgetExceeded)
		assert.ErrorIs(t, err, api.ErrBudgetExceeded)
		assert.Equal(t, api.ErrorTypeGlobalBudget, api.ClassifyError(err))

		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0.75, spent)
	})

	t.Run("exact_ceiling", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.5))
		assert.NoError(t, m.CheckAndReserve(ctx, 0.5))
		assert.Error(t, m.CheckAndReserve(ctx, 0.125))
	})

	t.Run("zero_estimate", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		assert.NoError(t, m.CheckAndReserve(ctx, 0))
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Zero(t, spent)
	})
}

func TestConcurrentReserveBounded(t *testing.T) {
	m := newTestMonitor(t, 1.0, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for range 20 {
		wg.Go(func() {
			if m.CheckAndReserve(ctx, 0.125) == nil {
				accepted.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int64(8), accepted.Load())
	spent, err := m.Spent(ctx)
	assert.NoError(t, err)
	assert.LessOrEqual(t, spent, 1.0)
}

func TestRecordActual(t *testing.T) {
	ctx := context.Background()

	t.Run("applies_difference", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.5))
		m.RecordActual(ctx, 0.5, 0.25)
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0.25, spent)
	})

	t.Run("releases_reservation", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.5))
		m.RecordActual(ctx, 0.5, 0)
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Zero(t, spent)
	})

	t.Run("skips_negligible", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.5))
		m.RecordActual(ctx, 0.5, 0.5+1e-7)
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, spent)
	})

	t.Run("skips_non_finite", func(t *testing.T) {
		m := newTestMonitor(t, 1.0, nil)
		require.NoError(t, m.CheckAndReserve(ctx, 0.5))
		m.RecordActual(ctx, 0.5, math.NaN())
		m.RecordActual(ctx, 0.5, math.Inf(1))
		spent, err := m.Spent(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, spent)
	})
}

func TestThresholdAlerts(t *testing.T) {
	hub := event.NewHub[api.BudgetAlert]()
	t.Cleanup(hub.Close)
	sub := hub.Subscribe()
	defer sub.Close()

	m := newTestMonitor(t, 1.0, hub)
	ctx := context.Background()

	require.NoError(t, m.CheckAndReserve(ctx, 0.5))
	require.NoError(t, m.CheckAndReserve(ctx, 0.25))
	require.NoError(t, m.CheckAndReserve(ctx, 0.125))
	require.NoError(t, m.CheckAndReserve(ctx, 0.0625))

	var got []float64
	for range 3 {
		select {
		case a := <-sub.Receive():
			assert.Equal(t, 1.0, a.LimitUSD)
			assert.GreaterOrEqual(t, a.Ratio, a.Threshold)
			got = append(got, a.Threshold)
		case <-time.After(3 * time.Second):
			require.FailNow(t, "timed out waiting for alert")
		}
	}
	assert.Equal(t, []float64{0.5, 0.75, 0.9}, got)

	select {
	case a := <-sub.Receive():
		assert.Fail(t, "unexpected alert", "%v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatus(t *testing.T) {
	m := newTestMonitor(t, 2.0, nil)
	ctx := context.Background()

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, &api.BudgetStatus{
		LimitUSD:     2.0,
		RemainingUSD: 2.0,
	}, st)

	require.NoError(t, m.CheckAndReserve(ctx, 0.5))
	st, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.5, st.SpentUSD)
	assert.Equal(t, 1.5, st.RemainingUSD)
	assert.Equal(t, 25.0, st.UsagePercent)
}
