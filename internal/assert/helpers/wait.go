package helpers

import (
	"testing"
	"time"

	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/pkg/api"
)

// AlertWaiter collects budget alerts. Create before triggering the action
type AlertWaiter struct {
	sub *event.Subscription[api.BudgetAlert]
}

// DefaultWaitTimeout bounds every wait for an alert
const DefaultWaitTimeout = 3 * time.Second

// SubscribeToAlerts creates a waiter on the environment's alert hub
func (e *TestEngineEnv) SubscribeToAlerts(t *testing.T) *AlertWaiter {
	t.Helper()
	w := &AlertWaiter{sub: e.Alerts.Subscribe()}
	t.Cleanup(w.sub.Close)
	return w
}

// Wait blocks until count alerts arrive and returns them in order
func (w *AlertWaiter) Wait(
	t *testing.T, count int, timeout time.Duration,
) []api.BudgetAlert {
	t.Helper()
	deadline := time.After(timeout)
	res := make([]api.BudgetAlert, 0, count)
	for len(res) < count {
		select {
		case a := <-w.sub.Receive():
			res = append(res, a)
		case <-deadline:
			t.Fatalf("timeout waiting for %d alerts, got %d", count, len(res))
		}
	}
	return res
}

// ExpectNone asserts that no alert arrives within the window
func (w *AlertWaiter) ExpectNone(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case a := <-w.sub.Receive():
		t.Fatalf("unexpected alert: %+v", a)
	case <-time.After(window):
	}
}
