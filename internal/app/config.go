package app

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/farmstand/internal/client"
)

// Окружения запуска.
const (
	EnvProduction = "production"
	EnvLocal      = "local"
)

// Адреса бэкенда по умолчанию.
const (
	ProductionAPIURL = "https://la-ferme-du-chat-noir.vercel.app"
	LocalAPIURL      = "http://localhost:3000"
)

// Драйверы хранилища журнала отправок.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverMySQL    = "mysql"
)

// Config описывает настройки киоска и терминальной витрины.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	Env          string
	APIBaseURL   string
	APITimeout   time.Duration
	RemoteConfig bool
	AdminEnabled bool
	Locale       string

	LowStockThreshold    int
	StockRefreshInterval time.Duration
	SettleDelay          time.Duration

	StorageDriver      string
	StorageDSN         string
	StorageAutoMigrate bool

	RedisAddr  string
	TerminalID string
	SessionTTL time.Duration

	// KafkaBrokers список брокеров через запятую; пусто, если Kafka не используется.
	KafkaBrokers  string
	KafkaClientID string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	JournalRetention   time.Duration
	RetentionInterval  time.Duration
	RetentionBatchSize int
}

// DefaultConfig возвращает настройки production-киоска с журналом в sqlite.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		Env:          EnvProduction,
		AdminEnabled: true,
		Locale:       "en",

		LowStockThreshold:    5,
		StockRefreshInterval: 30 * time.Second,
		SettleDelay:          time.Second,

		StorageDriver:      StorageDriverSQLite,
		StorageDSN:         "farmstand.db",
		StorageAutoMigrate: true,

		TerminalID: "kiosk-1",
		SessionTTL: 8 * time.Hour,

		KafkaClientID: "farmstand-kiosk",
		KafkaTopic:    "farmstand.order.events",
		KafkaDLQTopic: "farmstand.dlq",

		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    50,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,

		JournalRetention:   30 * 24 * time.Hour,
		RetentionInterval:  time.Hour,
		RetentionBatchSize: 500,
	}
}

// ResolvedAPIBaseURL возвращает адрес бэкенда: явный APIBaseURL, иначе адрес окружения.
func (c Config) ResolvedAPIBaseURL() string {
	if url := strings.TrimSpace(c.APIBaseURL); url != "" {
		return strings.TrimRight(url, "/")
	}
	return ResolveAPIBaseURL(c.Env)
}

// ResolveAPIBaseURL выбирает адрес бэкенда по окружению.
func ResolveAPIBaseURL(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), EnvLocal) {
		return LocalAPIURL
	}
	return ProductionAPIURL
}

// Brokers разбирает KafkaBrokers.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ApplyRemote накладывает конфигурацию, полученную от бэкенда.
// Пустые и нулевые поля не меняют локальные значения.
func (c Config) ApplyRemote(remote client.RemoteConfig) Config {
	if url := strings.TrimSpace(remote.APIBaseURL); url != "" {
		c.APIBaseURL = url
	}
	if remote.AdminEnabled != nil {
		c.AdminEnabled = *remote.AdminEnabled
	}
	if remote.RefreshIntervalSeconds > 0 {
		c.StockRefreshInterval = time.Duration(remote.RefreshIntervalSeconds) * time.Second
	}
	if remote.LowStockThreshold > 0 {
		c.LowStockThreshold = remote.LowStockThreshold
	}
	if locale := strings.TrimSpace(remote.Locale); locale != "" {
		c.Locale = locale
	}
	return c
}
