package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// Статусы строки outbox_messages.
const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

type outboxRow struct {
	ID            string `db:"id"`
	AggregateType string `db:"aggregate_type"`
	AggregateID   string `db:"aggregate_id"`
	EventType     string `db:"event_type"`
	Payload       []byte `db:"payload"`
	Status        string `db:"status"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (row outboxRow) message() domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            row.ID,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		EventType:     row.EventType,
		Payload:       row.Payload,
	}
}

type outboxRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewOutboxRepository создаёт SQL-реализацию OutboxRepository.
// Время хранится в миллисекундах UTC, как и в журнале.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB(), now: time.Now}
}

func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Payload == nil {
		msg.Payload = []byte("null")
	}
	now := r.now().UTC().UnixMilli()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES (
			:id, :aggregate_type, :aggregate_id, :event_type, :payload,
			:status, 0, :created_at, :updated_at
		)
	`, outboxRow{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		Status:        outboxPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message %s: %w", msg.ID, err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []outboxRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status, created_at, updated_at
		FROM outbox_messages
		WHERE status = ?
		ORDER BY created_at, id
		LIMIT ?
	`), outboxPending, limit); err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}

	messages := make([]domain.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.message())
	}
	return messages, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var summary struct {
		Pending int           `db:"pending"`
		Oldest  sql.NullInt64 `db:"oldest"`
	}
	if err := r.db.GetContext(ctx, &summary, r.db.Rebind(`
		SELECT COUNT(*) AS pending, MIN(created_at) AS oldest
		FROM outbox_messages
		WHERE status = ?
	`), outboxPending); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats query: %w", err)
	}

	stats := domain.OutboxStats{PendingCount: summary.Pending}
	if summary.Oldest.Valid {
		stats.OldestPendingAt = time.UnixMilli(summary.Oldest.Int64).UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.transition(id, outboxSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.transition(id, outboxFailed)
}

// transition переводит сообщение в конечный статус и считает попытку.
func (r *outboxRepository) transition(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE outbox_messages
		SET status = :status, attempt_count = attempt_count + 1, updated_at = :updated_at
		WHERE id = :id
	`, outboxRow{ID: id, Status: status, UpdatedAt: r.now().UTC().UnixMilli()})
	if err != nil {
		return fmt.Errorf("mark outbox message %s as %s: %w", id, status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for outbox %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
