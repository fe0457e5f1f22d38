package app

import (
	"context"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/mockapi"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

func newBackend(t *testing.T, options ...mockapi.Option) (*mockapi.Server, string) {
	t.Helper()

	backend := mockapi.New(append([]mockapi.Option{mockapi.WithPassword("test-password")}, options...)...)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv.URL
}

func memoryConfig(apiURL string) Config {
	cfg := DefaultConfig()
	cfg.APIBaseURL = apiURL
	cfg.StorageDriver = StorageDriverMemory
	cfg.SettleDelay = 0
	return cfg
}

func TestLoadRemoteConfig_Applied(t *testing.T) {
	_, url := newBackend(t, mockapi.WithRemoteConfig(map[string]any{
		"admin_enabled":       false,
		"low_stock_threshold": 2,
		"locale":              "fr",
	}))
	cfg := memoryConfig(url)
	cfg.RemoteConfig = true

	merged := LoadRemoteConfig(context.Background(), cfg, log.WithField("test", "remote-config"))

	if merged.AdminEnabled {
		t.Error("expected admin to be disabled remotely")
	}
	if merged.LowStockThreshold != 2 {
		t.Errorf("expected threshold 2, got %d", merged.LowStockThreshold)
	}
	if merged.Locale != "fr" {
		t.Errorf("expected locale fr, got %s", merged.Locale)
	}
	if merged.ResolvedAPIBaseURL() != url {
		t.Errorf("api url should stay %s, got %s", url, merged.ResolvedAPIBaseURL())
	}
}

func TestLoadRemoteConfig_DisabledOrUnreachable(t *testing.T) {
	cfg := memoryConfig("http://127.0.0.1:1")
	if got := LoadRemoteConfig(context.Background(), cfg, nil); got != cfg {
		t.Fatal("disabled remote config must not change the config")
	}

	cfg.RemoteConfig = true
	if got := LoadRemoteConfig(context.Background(), cfg, nil); got != cfg {
		t.Fatal("unreachable backend must leave local settings in place")
	}
}

func TestNewKiosk_SubmitIsJournaled(t *testing.T) {
	backend, url := newBackend(t)
	cfg := memoryConfig(url)

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	kiosk := NewKiosk(cfg, deps, log.WithField("test", "kiosk"))
	defer kiosk.Poller.Stop()
	ctx := context.Background()

	if !kiosk.Poller.Refresh(ctx) {
		t.Fatal("initial stock refresh failed")
	}

	res := kiosk.Front.Dispatch(ctx, storefront.Command{Kind: storefront.CommandAdd, Product: "Tomate", Quantity: 2})
	if !res.OK() {
		t.Fatalf("add failed: %s", res.Message)
	}
	res = kiosk.Front.Dispatch(ctx, storefront.Command{Kind: storefront.CommandSubmit, Customer: "Alice"})
	if res.Kind != storefront.ResultSuccess || res.Receipt == nil {
		t.Fatalf("submit failed: %+v", res)
	}

	if backend.SubmitCount() != 1 {
		t.Fatalf("expected one submit request, got %d", backend.SubmitCount())
	}
	records, err := kiosk.Journal.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].Outcome != domain.SubmissionAccepted || records[0].Customer != "Alice" {
		t.Fatalf("unexpected journal: %+v", records)
	}
	if records[0].IdempotencyKey != res.Receipt.ID {
		t.Fatalf("journal key %s does not match receipt %s", records[0].IdempotencyKey, res.Receipt.ID)
	}

	// Без Kafka события в outbox не ставятся.
	stats, err := deps.Outbox.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty outbox without a broker, got %+v", stats)
	}
}

func TestNewKiosk_AdminConsoleFollowsConfig(t *testing.T) {
	_, url := newBackend(t)
	cfg := memoryConfig(url)
	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	if NewKiosk(cfg, deps, nil).Console == nil {
		t.Fatal("expected admin console when admin is enabled")
	}

	cfg.AdminEnabled = false
	if NewKiosk(cfg, deps, nil).Console != nil {
		t.Fatal("expected no admin console when admin is disabled")
	}
}
