package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderSubmitted    EventType = domain.EventOrderSubmitted
	EventTypeOrderSubmitFailed EventType = domain.EventOrderSubmitFailed
)

// Topics для Kafka
const (
	TopicOrderEvents     = "farmstand.order.events"
	TopicDeadLetterQueue = "farmstand.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEventLine строка заказа в событии. Суммы передаются строками, чтобы не терять точность.
type OrderEventLine struct {
	Product      string `json:"product"`
	Quantity     int    `json:"quantity"`
	Unit         string `json:"unit"`
	PricePerUnit string `json:"price_per_unit"`
	LineTotal    string `json:"line_total"`
}

// OrderEvent событие об отправке заказа с киоска.
type OrderEvent struct {
	EventType      EventType        `json:"event_type"`
	SubmissionID   string           `json:"submission_id"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Customer       string           `json:"customer"`
	Lines          []OrderEventLine `json:"lines"`
	Total          string           `json:"total"`
	Error          string           `json:"error,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// NewOrderEvent строит событие из записи журнала.
func NewOrderEvent(record domain.SubmissionRecord) *OrderEvent {
	eventType := EventTypeOrderSubmitted
	if record.Outcome == domain.SubmissionFailed {
		eventType = EventTypeOrderSubmitFailed
	}

	lines := make([]OrderEventLine, 0, len(record.Lines))
	for _, line := range record.Lines {
		lines = append(lines, OrderEventLine{
			Product:      line.ProductName,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			PricePerUnit: line.PricePerUnit.StringFixed(2),
			LineTotal:    line.LineTotal().StringFixed(2),
		})
	}

	timestamp := record.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &OrderEvent{
		EventType:      eventType,
		SubmissionID:   record.ID,
		IdempotencyKey: record.IdempotencyKey,
		Customer:       record.Customer,
		Lines:          lines,
		Total:          record.Total.StringFixed(2),
		Error:          record.Error,
		Timestamp:      timestamp.UTC(),
	}
}

// OutboxMessage превращает событие в outbox-сообщение.
func (e *OrderEvent) OutboxMessage() (domain.OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return domain.OutboxMessage{
		AggregateType: domain.AggregateSubmission,
		AggregateID:   e.SubmissionID,
		EventType:     string(e.EventType),
		Payload:       payload,
	}, nil
}

// Envelope обёртка, в которой outbox-сообщение уходит в topic.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// ParseOrderEvent разбирает событие заказа из сообщения.
// Понимает как конверт outbox, так и событие без обёртки.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	raw := []byte(envelope.Payload)
	if len(raw) == 0 {
		raw = message.Value
	}

	var event OrderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if event.EventType == "" {
		event.EventType = EventType(envelope.EventType)
	}
	return &event, nil
}
