package domain

import (
	"context"
	"time"
)

// StockAPI загружает текущее состояние склада.
type StockAPI interface {
	FetchStock(ctx context.Context) ([]StockItem, error)
}

// OrderAPI отправляет заказ. Ключ идемпотентности передаётся бэкенду как есть.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, idempotencyKey string, sub OrderSubmission) error
}

// AdminAPI описывает операции персонала; все, кроме Login, требуют токен сессии.
type AdminAPI interface {
	Login(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
	AddStock(ctx context.Context, token string, item StockItem) error
	DeleteStock(ctx context.Context, token string, index int) error
	ListOrdersToPrepare(ctx context.Context, token string) ([]PreparationOrder, error)
	MarkPrepared(ctx context.Context, token string, index int) error
}

// TokenStore хранит токен сессии администратора на время сессии.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// SubmissionJournal хранит историю попыток отправки заказов.
type SubmissionJournal interface {
	Append(record SubmissionRecord) error
	List(limit int) ([]SubmissionRecord, error)
	DeleteBefore(before time.Time, limit int) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
