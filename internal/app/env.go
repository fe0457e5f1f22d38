package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Переменные окружения, переопределяющие DefaultConfig.
const (
	EnvGRPCAddr           = "FARMSTAND_GRPC_ADDR"
	EnvMetricsAddr        = "FARMSTAND_METRICS_ADDR"
	EnvName               = "FARMSTAND_ENV"
	EnvAPIURL             = "FARMSTAND_API_URL"
	EnvAPITimeout         = "FARMSTAND_API_TIMEOUT"
	EnvRemoteConfig       = "FARMSTAND_REMOTE_CONFIG"
	EnvAdminEnabled       = "FARMSTAND_ADMIN_ENABLED"
	EnvLocale             = "FARMSTAND_LOCALE"
	EnvLowStockThreshold  = "FARMSTAND_LOW_STOCK_THRESHOLD"
	EnvStockRefresh       = "FARMSTAND_STOCK_REFRESH_INTERVAL"
	EnvSettleDelay        = "FARMSTAND_SETTLE_DELAY"
	EnvStorageDriver      = "FARMSTAND_STORAGE_DRIVER"
	EnvStorageDSN         = "FARMSTAND_STORAGE_DSN"
	EnvStorageAutoMigrate = "FARMSTAND_STORAGE_AUTO_MIGRATE"
	EnvRedisAddr          = "FARMSTAND_REDIS_ADDR"
	EnvTerminalID         = "FARMSTAND_TERMINAL_ID"
	EnvSessionTTL         = "FARMSTAND_SESSION_TTL"
	EnvKafkaBrokers       = "FARMSTAND_KAFKA_BROKERS"
	EnvKafkaClientID      = "FARMSTAND_KAFKA_CLIENT_ID"
	EnvKafkaTopic         = "FARMSTAND_KAFKA_TOPIC"
	EnvKafkaDLQTopic      = "FARMSTAND_KAFKA_DLQ_TOPIC"
	EnvOutboxPollInterval = "FARMSTAND_OUTBOX_POLL_INTERVAL"
	EnvOutboxBatchSize    = "FARMSTAND_OUTBOX_BATCH_SIZE"
	EnvOutboxMaxAttempts  = "FARMSTAND_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetryDelay   = "FARMSTAND_OUTBOX_RETRY_DELAY"
	EnvJournalRetention   = "FARMSTAND_JOURNAL_RETENTION"
	EnvRetentionInterval  = "FARMSTAND_RETENTION_INTERVAL"
	EnvRetentionBatchSize = "FARMSTAND_RETENTION_BATCH_SIZE"
)

// EnvLookup совместим с os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// ConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не применяются; для каждого возвращается предупреждение.
func ConfigFromEnv(lookup EnvLookup) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v, using default", key, err))
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}
	positiveInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, valid, rule)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}
	positive := func(d time.Duration) bool { return d > 0 }
	nonNegative := func(d time.Duration) bool { return d >= 0 }

	str(EnvGRPCAddr, &cfg.GRPCAddr)
	str(EnvMetricsAddr, &cfg.MetricsAddr)
	str(EnvName, &cfg.Env)
	cfg.Env = strings.ToLower(cfg.Env)
	str(EnvAPIURL, &cfg.APIBaseURL)
	duration(EnvAPITimeout, &cfg.APITimeout, nonNegative, "must be >= 0")
	boolean(EnvRemoteConfig, &cfg.RemoteConfig)
	boolean(EnvAdminEnabled, &cfg.AdminEnabled)
	str(EnvLocale, &cfg.Locale)
	positiveInt(EnvLowStockThreshold, &cfg.LowStockThreshold)
	duration(EnvStockRefresh, &cfg.StockRefreshInterval, positive, "must be > 0")
	duration(EnvSettleDelay, &cfg.SettleDelay, nonNegative, "must be >= 0")

	if v, ok := lookup(EnvStorageDriver); ok && strings.TrimSpace(v) != "" {
		driver := strings.ToLower(strings.TrimSpace(v))
		switch driver {
		case StorageDriverMemory, StorageDriverSQLite, StorageDriverPostgres, StorageDriverMySQL:
			cfg.StorageDriver = driver
		default:
			warn(EnvStorageDriver, fmt.Errorf("unsupported driver %q", v))
		}
	}
	str(EnvStorageDSN, &cfg.StorageDSN)
	boolean(EnvStorageAutoMigrate, &cfg.StorageAutoMigrate)

	str(EnvRedisAddr, &cfg.RedisAddr)
	str(EnvTerminalID, &cfg.TerminalID)
	duration(EnvSessionTTL, &cfg.SessionTTL, positive, "must be > 0")

	str(EnvKafkaBrokers, &cfg.KafkaBrokers)
	str(EnvKafkaClientID, &cfg.KafkaClientID)
	str(EnvKafkaTopic, &cfg.KafkaTopic)
	str(EnvKafkaDLQTopic, &cfg.KafkaDLQTopic)

	duration(EnvOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0")
	positiveInt(EnvOutboxBatchSize, &cfg.OutboxBatchSize)
	positiveInt(EnvOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(EnvOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegative, "must be >= 0")

	duration(EnvJournalRetention, &cfg.JournalRetention, positive, "must be > 0")
	duration(EnvRetentionInterval, &cfg.RetentionInterval, positive, "must be > 0")
	positiveInt(EnvRetentionBatchSize, &cfg.RetentionBatchSize)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("invalid int value %q: %s", raw, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("invalid duration value %q: %s", raw, rule)
	}
	return value, nil
}
