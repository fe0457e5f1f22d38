package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/farmstand/internal/messaging/kafka"
)

// replayRecord сообщение, готовое к повторной отправке.
type replayRecord struct {
	topic      string
	key        string
	eventType  string
	submission string
	value      []byte
}

// consumerDLQPayload то, что consumer кладёт в DLQ после исчерпания повторов.
type consumerDLQPayload struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

// outboxDLQPayload то, что outbox-воркер кладёт в payload конверта DLQ.
type outboxDLQPayload struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// decodeDLQRecord понимает оба формата DLQ. ok=false значит, что сообщение не наше.
func decodeDLQRecord(msg *sarama.ConsumerMessage, defaultTopic string, now time.Time) (replayRecord, bool, error) {
	var consumed consumerDLQPayload
	if err := json.Unmarshal(msg.Value, &consumed); err == nil && consumed.OriginalValue != "" {
		record := replayRecord{
			topic:      firstNonEmpty(strings.TrimSpace(consumed.OriginalTopic), defaultTopic),
			key:        consumed.OriginalKey,
			submission: consumed.OriginalKey,
			value:      []byte(consumed.OriginalValue),
		}
		var original kafka.Envelope
		if json.Unmarshal(record.value, &original) == nil {
			record.eventType = original.EventType
			record.submission = firstNonEmpty(original.AggregateID, record.submission)
		}
		return record, true, nil
	}

	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return replayRecord{}, false, nil
	}

	var failed outboxDLQPayload
	if err := json.Unmarshal(envelope.Payload, &failed); err != nil {
		return replayRecord{}, false, fmt.Errorf("decode outbox dlq payload: %w", err)
	}
	if len(failed.Payload) == 0 || string(failed.Payload) == "null" {
		return replayRecord{}, false, fmt.Errorf("outbox dlq payload does not contain the original event")
	}

	replay := kafka.Envelope{
		ID:            firstNonEmpty(failed.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(failed.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(failed.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(failed.EventType, envelope.EventType),
		Payload:       failed.Payload,
		PublishedAt:   now.UTC(),
	}
	encoded, err := json.Marshal(replay)
	if err != nil {
		return replayRecord{}, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	return replayRecord{
		topic:      defaultTopic,
		key:        firstNonEmpty(replay.AggregateID, replay.ID),
		eventType:  replay.EventType,
		submission: replay.AggregateID,
		value:      encoded,
	}, true, nil
}

// producerMessage собирает сообщение для отправки; заголовок типа события восстанавливается.
func (r replayRecord) producerMessage(now time.Time) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic:     r.topic,
		Key:       sarama.StringEncoder(r.key),
		Value:     sarama.ByteEncoder(r.value),
		Timestamp: now.UTC(),
	}
	if r.eventType != "" {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(kafka.HeaderEventType), Value: []byte(r.eventType)})
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
