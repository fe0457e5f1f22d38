package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()
	mockProducer := mocks.NewSyncProducer(t, nil)
	return &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}, mockProducer
}

func sampleRecord(outcome domain.SubmissionOutcome) domain.SubmissionRecord {
	lines := []domain.CartLine{
		{ProductName: "Tomate", Quantity: 4, PricePerUnit: decimal.RequireFromString("2.50"), Unit: "kg"},
		{ProductName: "Carotte", Quantity: 1, PricePerUnit: decimal.RequireFromString("1.20"), Unit: "kg"},
	}
	return domain.SubmissionRecord{
		ID:             "sub-1",
		IdempotencyKey: "key-1",
		Customer:       "Alice",
		Lines:          lines,
		Total:          domain.SumLines(lines),
		Outcome:        outcome,
		CreatedAt:      time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestProducer_PublishEvent(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var event OrderEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.SubmissionID != "sub-1" {
			return errors.New("unexpected submission id " + event.SubmissionID)
		}
		return nil
	})

	if err := producer.PublishEvent(TopicOrderEvents, "sub-1", NewOrderEvent(sampleRecord(domain.SubmissionAccepted))); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	producer, mockProducer := newMockProducer(t)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicOrderEvents, "sub-1", NewOrderEvent(sampleRecord(domain.SubmissionFailed)))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	if err := producer.PublishEvent(TopicOrderEvents, "k", func() {}); err == nil {
		t.Fatal("expected marshal error")
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewProducerConfig(t *testing.T) {
	config := newProducerConfig("")
	if config.ClientID != defaultClientID {
		t.Fatalf("expected default client id, got %q", config.ClientID)
	}
	if !config.Producer.Idempotent || config.Net.MaxOpenRequests != 1 {
		t.Fatal("producer must be idempotent with a single in-flight request")
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("unexpected acks %v", config.Producer.RequiredAcks)
	}
	if got := newProducerConfig("kiosk-2").ClientID; got != "kiosk-2" {
		t.Fatalf("expected custom client id, got %q", got)
	}
}

func TestNewProducerInvalidBroker(t *testing.T) {
	if _, err := NewProducer([]string{"invalid-broker:9092"}, ""); err == nil {
		t.Fatal("expected producer creation error")
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(sampleRecord(domain.SubmissionAccepted))

	if event.EventType != EventTypeOrderSubmitted {
		t.Errorf("expected event type %s, got %s", EventTypeOrderSubmitted, event.EventType)
	}
	if event.Customer != "Alice" || event.IdempotencyKey != "key-1" {
		t.Errorf("unexpected event identity %+v", event)
	}
	if len(event.Lines) != 2 || event.Lines[0].LineTotal != "10.00" {
		t.Errorf("unexpected lines %+v", event.Lines)
	}
	if event.Total != "11.20" {
		t.Errorf("expected total 11.20, got %s", event.Total)
	}
	if !event.Timestamp.Equal(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("timestamp must come from the record, got %v", event.Timestamp)
	}

	failed := sampleRecord(domain.SubmissionFailed)
	failed.Error = "rejected by server"
	failed.CreatedAt = time.Time{}
	failedEvent := NewOrderEvent(failed)
	if failedEvent.EventType != EventTypeOrderSubmitFailed || failedEvent.Error == "" {
		t.Errorf("unexpected failed event %+v", failedEvent)
	}
	if failedEvent.Timestamp.IsZero() {
		t.Error("timestamp should default to now")
	}
}

func TestOrderEventOutboxMessage(t *testing.T) {
	msg, err := NewOrderEvent(sampleRecord(domain.SubmissionAccepted)).OutboxMessage()
	if err != nil {
		t.Fatalf("outbox message: %v", err)
	}
	if msg.AggregateType != domain.AggregateSubmission || msg.AggregateID != "sub-1" || msg.EventType != domain.EventOrderSubmitted {
		t.Fatalf("unexpected outbox message %+v", msg)
	}

	parsed, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: msg.Payload})
	if err != nil {
		t.Fatalf("parse bare event: %v", err)
	}
	if parsed.Customer != "Alice" || parsed.Total != "11.20" {
		t.Fatalf("unexpected parsed event %+v", parsed)
	}
}
