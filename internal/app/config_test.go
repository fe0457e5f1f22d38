package app

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/farmstand/internal/client"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GRPCAddr != ":50051" {
		t.Errorf("expected GRPCAddr :50051, got %s", cfg.GRPCAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("expected production env, got %s", cfg.Env)
	}
	if cfg.StorageDriver != StorageDriverSQLite {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverSQLite, cfg.StorageDriver)
	}
	if !cfg.StorageAutoMigrate {
		t.Error("expected StorageAutoMigrate to be true")
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("expected low stock threshold 5, got %d", cfg.LowStockThreshold)
	}
	if cfg.StockRefreshInterval != 30*time.Second {
		t.Errorf("expected stock refresh every 30s, got %s", cfg.StockRefreshInterval)
	}
	if cfg.APITimeout != 0 {
		t.Errorf("expected no api timeout by default, got %s", cfg.APITimeout)
	}
	if cfg.SettleDelay != time.Second {
		t.Errorf("expected settle delay 1s, got %s", cfg.SettleDelay)
	}
	if cfg.JournalRetention != 30*24*time.Hour {
		t.Errorf("expected 30 days retention, got %s", cfg.JournalRetention)
	}
	if cfg.OutboxBatchSize <= 0 || cfg.OutboxMaxAttempts <= 0 || cfg.OutboxPollInterval <= 0 {
		t.Errorf("outbox settings must be positive: %+v", cfg)
	}
	if cfg.RemoteConfig {
		t.Error("remote config must be opt-in")
	}
	if !cfg.AdminEnabled {
		t.Error("expected admin commands to be enabled by default")
	}
}

func TestResolveAPIBaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "production", cfg: Config{Env: EnvProduction}, want: ProductionAPIURL},
		{name: "empty env", cfg: Config{}, want: ProductionAPIURL},
		{name: "local", cfg: Config{Env: "LOCAL"}, want: LocalAPIURL},
		{name: "explicit wins", cfg: Config{Env: EnvLocal, APIBaseURL: "http://backend:8080/"}, want: "http://backend:8080"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.ResolvedAPIBaseURL(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestConfig_Brokers(t *testing.T) {
	cfg := Config{KafkaBrokers: " broker1:9092, ,broker2:9092 "}
	brokers := cfg.Brokers()

	if len(brokers) != 2 || brokers[0] != "broker1:9092" || brokers[1] != "broker2:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}
	if (Config{}).Brokers() != nil {
		t.Fatal("expected no brokers for empty setting")
	}
}

func TestConfig_ApplyRemote(t *testing.T) {
	disabled := false
	cfg := DefaultConfig().ApplyRemote(client.RemoteConfig{
		APIBaseURL:             "https://staging.example.test",
		AdminEnabled:           &disabled,
		RefreshIntervalSeconds: 10,
		LowStockThreshold:      3,
		Locale:                 "fr",
	})

	if cfg.ResolvedAPIBaseURL() != "https://staging.example.test" {
		t.Errorf("unexpected api url: %s", cfg.ResolvedAPIBaseURL())
	}
	if cfg.AdminEnabled {
		t.Error("expected admin to be disabled by remote config")
	}
	if cfg.StockRefreshInterval != 10*time.Second {
		t.Errorf("unexpected refresh interval: %s", cfg.StockRefreshInterval)
	}
	if cfg.LowStockThreshold != 3 {
		t.Errorf("unexpected threshold: %d", cfg.LowStockThreshold)
	}
	if cfg.Locale != "fr" {
		t.Errorf("unexpected locale: %s", cfg.Locale)
	}
}

func TestConfig_ApplyRemoteKeepsLocalValuesForEmptyFields(t *testing.T) {
	local := DefaultConfig()
	local.APIBaseURL = "http://localhost:3000"

	if merged := local.ApplyRemote(client.RemoteConfig{}); merged != local {
		t.Fatalf("empty remote config must not change anything: %+v", merged)
	}
}
