package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error {
	return m.errorsCh
}

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	topic    string
	messages chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return m.topic }
func (m *mockClaim) Partition() int32                         { return 0 }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func orderEventMessage(t *testing.T) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(NewOrderEvent(sampleRecord(domain.SubmissionAccepted)))
	if err != nil {
		t.Fatal(err)
	}
	value, err := json.Marshal(Envelope{ID: "outbox-1", EventType: domain.EventOrderSubmitted, Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: TopicOrderEvents, Offset: 1, Key: []byte("sub-1"), Value: value}
}

func TestNewConsumerInvalidBroker(t *testing.T) {
	handler := func(context.Context, *sarama.ConsumerMessage) error { return nil }
	if _, err := NewConsumer([]string{"invalid-broker:9092"}, "group", []string{TopicOrderEvents}, handler); err == nil {
		t.Fatal("expected new consumer error")
	}
}

func TestConsumerOptions(t *testing.T) {
	producer := &Producer{}
	consumer := newConsumer(&mockConsumerGroup{}, nil, nil,
		WithDLQ(producer),
		WithMaxRetries(5),
		WithMaxRetries(0),
		WithRetryDelay(0),
		WithConsumerLogger(log.WithField("test", "options")),
	)
	if consumer.dlqProducer != producer || consumer.maxRetries != 5 || consumer.retryDelay != 0 {
		t.Fatalf("options not applied: %+v", consumer)
	}

	defaults := newConsumer(&mockConsumerGroup{}, nil, nil)
	if defaults.maxRetries != defaultMaxRetries || defaults.retryDelay != defaultRetryDelay {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumeCalls := make(chan []string, 1)
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(_ context.Context, topics []string, _ sarama.ConsumerGroupHandler) error {
			select {
			case consumeCalls <- topics:
			default:
			}
			cancel()
			return nil
		},
	}

	consumer := newConsumer(group, []string{TopicOrderEvents}, func(context.Context, *sarama.ConsumerMessage) error { return nil })

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case topics := <-consumeCalls:
		if len(topics) != 1 || topics[0] != TopicOrderEvents {
			t.Fatalf("unexpected topics %v", topics)
		}
	case <-time.After(time.Second):
		t.Fatal("expected consume call")
	}

	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := newConsumer(group, nil, nil)
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumeClaimDeliversOrderEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received []*OrderEvent
	consumer := newConsumer(nil, nil, OrderEventHandler(func(_ context.Context, event *OrderEvent) error {
		received = append(received, event)
		return nil
	}))

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: TopicOrderEvents, messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- orderEventMessage(t)
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 1 {
		t.Fatalf("expected one marked message, got %d", len(session.marked))
	}
	if len(received) != 1 || received[0].Customer != "Alice" {
		t.Fatalf("unexpected received events %+v", received)
	}
}

func TestConsumeClaimFailedHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
		attempts++
		return errors.New("failed")
	}, WithMaxRetries(2), WithRetryDelay(0))

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "topic", Offset: 1, Key: []byte("k"), Value: []byte("v")}
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 0 {
		t.Fatalf("failed message should not be marked, got %d", len(session.marked))
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestHandleMessage(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: "topic", Key: []byte("key"), Value: []byte(`{}`)}

	t.Run("success after retry", func(t *testing.T) {
		attempts := 0
		consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
			attempts++
			if attempts < 2 {
				return errors.New("temporary")
			}
			return nil
		}, WithMaxRetries(3), WithRetryDelay(time.Millisecond))

		if err := consumer.handleMessage(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("exhausted without dlq", func(t *testing.T) {
		consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("permanent")
		}, WithMaxRetries(2), WithRetryDelay(0))

		if err := consumer.handleMessage(context.Background(), msg); err == nil {
			t.Fatal("expected error when dlq is absent")
		}
	})

	t.Run("exhausted with dlq", func(t *testing.T) {
		producer, mockProducer := newMockProducer(t)
		mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(out *sarama.ProducerMessage) error {
			if out.Topic != TopicDeadLetterQueue {
				return fmt.Errorf("unexpected topic %s", out.Topic)
			}
			for _, header := range out.Headers {
				if string(header.Key) == HeaderRetryCount && string(header.Value) != "3" {
					return fmt.Errorf("unexpected retry count %s", header.Value)
				}
			}
			return nil
		})

		retried := &sarama.ConsumerMessage{
			Topic:   "topic",
			Key:     []byte("key"),
			Value:   []byte("{}"),
			Headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("1")}},
		}
		consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("permanent")
		}, WithMaxRetries(2), WithRetryDelay(0), WithDLQ(producer))

		if err := consumer.handleMessage(context.Background(), retried); err != nil {
			t.Fatalf("unexpected error after dlq publish: %v", err)
		}
		if err := mockProducer.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("dlq failure", func(t *testing.T) {
		producer, mockProducer := newMockProducer(t)
		mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("permanent")
		}, WithMaxRetries(1), WithDLQ(producer))

		if err := consumer.handleMessage(context.Background(), msg); !errors.Is(err, sarama.ErrOutOfBrokers) {
			t.Fatalf("expected dlq failure, got %v", err)
		}
		if err := mockProducer.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("context canceled between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error {
			cancel()
			return errors.New("temporary")
		}, WithMaxRetries(3), WithRetryDelay(time.Hour))

		if err := consumer.handleMessage(ctx, msg); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRetryCount(t *testing.T) {
	cases := map[string]struct {
		headers []*sarama.RecordHeader
		want    int
	}{
		"absent":  {want: 0},
		"valid":   {headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(5))}}, want: 5},
		"invalid": {headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("bad")}}, want: 0},
		"nil":     {headers: []*sarama.RecordHeader{nil}, want: 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := retryCount(&sarama.ConsumerMessage{Headers: tc.headers}); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := newConsumer(nil, nil, func(context.Context, *sarama.ConsumerMessage) error { return nil })
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}
