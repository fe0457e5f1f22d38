package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/farmstand/internal/storage/memory"
	redisstore "github.com/vladislavdragonenkov/farmstand/internal/storage/redis"
	"github.com/vladislavdragonenkov/farmstand/internal/storage/sqlstore"
)

// Dependencies содержит хранилища и брокер, которыми пользуется киоск.
type Dependencies struct {
	Journal domain.SubmissionJournal
	Outbox  domain.OutboxRepository
	Tokens  domain.TokenStore

	// SQL и Redis заполнены, только если выбраны соответствующие хранилища.
	SQL   *sqlstore.Store
	Redis *goredis.Client

	Producer     *kafka.Producer
	Publisher    domain.OutboxPublisher
	DLQPublisher domain.OutboxPublisher

	Logger *log.Entry
}

// NewDependencies открывает хранилища по конфигурации.
// Kafka необязательна: при ошибке подключения киоск работает без публикации событий.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps := &Dependencies{Logger: logger}

	if err := deps.initJournal(ctx, cfg); err != nil {
		return nil, err
	}
	if err := deps.initTokens(ctx, cfg); err != nil {
		_ = deps.Close()
		return nil, err
	}

	producer, err := initKafkaProducer(cfg.Brokers(), cfg.KafkaClientID, logger)
	if err == nil && producer != nil {
		deps.Producer = producer
		deps.Publisher = kafka.NewOutboxPublisher(producer, cfg.KafkaTopic)
		deps.DLQPublisher = kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)
	}

	return deps, nil
}

func (d *Dependencies) initJournal(ctx context.Context, cfg Config) error {
	if cfg.StorageDriver == "" || cfg.StorageDriver == StorageDriverMemory {
		d.Journal = memory.NewJournalRepository()
		d.Outbox = memory.NewOutboxRepository()
		d.Logger.Info("submission journal: in-memory")
		return nil
	}

	store, err := sqlstore.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("open %s journal: %w", cfg.StorageDriver, err)
	}
	if cfg.StorageAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("migrate %s journal: %w", cfg.StorageDriver, err)
		}
	}

	d.SQL = store
	d.Journal = sqlstore.NewJournalRepository(store)
	d.Outbox = sqlstore.NewOutboxRepository(store)
	d.Logger.WithField("driver", cfg.StorageDriver).Info("submission journal: sql")
	return nil
}

func (d *Dependencies) initTokens(ctx context.Context, cfg Config) error {
	if cfg.RedisAddr == "" {
		d.Tokens = memory.NewTokenStore()
		return nil
	}

	client, err := redisstore.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	d.Redis = client
	d.Tokens = redisstore.NewTokenStore(client, cfg.TerminalID, cfg.SessionTTL)
	d.Logger.WithFields(log.Fields{"redis_addr": cfg.RedisAddr, "terminal_id": cfg.TerminalID}).
		Info("admin sessions stored in redis")
	return nil
}

// Close освобождает все открытые соединения.
func (d *Dependencies) Close() error {
	var errs []error
	closeKafka(d.Producer, d.Logger)
	d.Producer = nil
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		d.Redis = nil
	}
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal store: %w", err))
		}
		d.SQL = nil
	}
	return errors.Join(errs...)
}
