package stock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

type stubStockAPI struct {
	mu    sync.Mutex
	items []domain.StockItem
	err   error
	calls atomic.Int32
}

func (s *stubStockAPI) FetchStock(context.Context) ([]domain.StockItem, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *stubStockAPI) set(items []domain.StockItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.err = err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) NotifyError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPollerRefreshReplacesSnapshot(t *testing.T) {
	api := &stubStockAPI{items: []domain.StockItem{{Name: "Leek", PricePerUnit: decimal.RequireFromString("0.90"), Unit: "kg", QuantityAvailable: 3}}}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	poller := NewPoller(api, NewStore(), WithClock(func() time.Time { return fixed }))

	if !poller.Refresh(context.Background()) {
		t.Fatal("expected refresh to succeed")
	}

	snap := poller.Store().Current()
	if snap.Available("Leek") != 3 {
		t.Fatalf("expected 3 leeks, got %d", snap.Available("Leek"))
	}
	if !snap.FetchedAt().Equal(fixed) {
		t.Fatalf("unexpected fetch time %v", snap.FetchedAt())
	}
}

func TestPollerRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	api := &stubStockAPI{items: []domain.StockItem{{Name: "Tomato", QuantityAvailable: 10}}}
	notifier := &recordingNotifier{}
	poller := NewPoller(api, NewStore(), WithNotifier(notifier))

	if !poller.Refresh(context.Background()) {
		t.Fatal("expected first refresh to succeed")
	}
	before := poller.Store().Current()

	api.set(nil, errors.New("connection refused"))
	if poller.Refresh(context.Background()) {
		t.Fatal("expected refresh to fail")
	}

	if poller.Store().Current() != before {
		t.Fatal("failed refresh must keep the previous snapshot")
	}
	if notifier.count() != 1 || notifier.messages[0] != RefreshErrorMessage {
		t.Fatalf("expected one user notice, got %v", notifier.messages)
	}
}

func TestPollerStartStopIsRestartable(t *testing.T) {
	api := &stubStockAPI{}
	poller := NewPoller(api, NewStore(), WithInterval(10*time.Millisecond))

	poller.Start(context.Background())
	poller.Start(context.Background())
	if !poller.Running() {
		t.Fatal("poller must be running after Start")
	}
	waitFor(t, func() bool { return api.calls.Load() >= 2 })
	poller.Stop()
	if poller.Running() {
		t.Fatal("poller must be stopped")
	}

	stoppedAt := api.calls.Load()
	time.Sleep(40 * time.Millisecond)
	if api.calls.Load() != stoppedAt {
		t.Fatal("stopped poller must not refresh")
	}

	poller.Start(context.Background())
	waitFor(t, func() bool { return api.calls.Load() > stoppedAt })
	poller.Stop()
	poller.Stop()
}

func TestPollerRefreshAfter(t *testing.T) {
	api := &stubStockAPI{items: []domain.StockItem{{Name: "Carrot", QuantityAvailable: 20}}}
	poller := NewPoller(api, NewStore())

	poller.RefreshAfter(0)
	waitFor(t, func() bool { return poller.Store().Current() != nil })
	waitFor(t, func() bool { return poller.Pending() == 0 })
}

func TestPollerStopCancelsScheduledRefresh(t *testing.T) {
	api := &stubStockAPI{}
	poller := NewPoller(api, NewStore(), WithInterval(time.Hour))

	poller.Start(context.Background())
	waitFor(t, func() bool { return api.calls.Load() == 1 })

	poller.RefreshAfter(50 * time.Millisecond)
	if poller.Pending() != 1 {
		t.Fatalf("expected one pending refresh, got %d", poller.Pending())
	}
	poller.Stop()

	time.Sleep(100 * time.Millisecond)
	if got := api.calls.Load(); got != 1 {
		t.Fatalf("scheduled refresh must be cancelled by Stop, got %d calls", got)
	}
}
