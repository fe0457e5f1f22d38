// Package journal фиксирует попытки отправки заказов: запись в журнал и событие в outbox.
package journal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/messaging/kafka"
)

// Recorder пишет запись журнала и ставит событие заказа в outbox.
// Любое из хранилищ может отсутствовать.
type Recorder struct {
	journal domain.SubmissionJournal
	outbox  domain.OutboxRepository
	logger  *log.Entry
}

// NewRecorder создаёт Recorder.
func NewRecorder(journal domain.SubmissionJournal, outbox domain.OutboxRepository, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "submission-journal")
	}
	return &Recorder{journal: journal, outbox: outbox, logger: logger}
}

// Record сохраняет попытку. Ошибки журнала и outbox объединяются, запись в одно
// хранилище не отменяется из-за сбоя другого.
func (r *Recorder) Record(record domain.SubmissionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	entry := r.logger.WithFields(log.Fields{
		"submission_id":   record.ID,
		"idempotency_key": record.IdempotencyKey,
		"outcome":         record.Outcome,
	})

	var errs []error
	if r.journal != nil {
		if err := r.journal.Append(record); err != nil {
			errs = append(errs, fmt.Errorf("append submission record: %w", err))
		}
	}

	if r.outbox != nil {
		msg, err := kafka.NewOrderEvent(record).OutboxMessage()
		if err == nil {
			_, err = r.outbox.Enqueue(msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue order event: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		entry.WithError(err).Warn("failed to record submission")
		return err
	}
	entry.Debug("submission recorded")
	return nil
}

// Recent возвращает последние записи журнала, новые первыми.
func (r *Recorder) Recent(limit int) ([]domain.SubmissionRecord, error) {
	if r.journal == nil {
		return nil, nil
	}
	return r.journal.List(limit)
}
