package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/app"
	"github.com/vladislavdragonenkov/farmstand/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

// eventFeed добавляет к ответу витрины уведомления о заказах, пришедшие из Kafka.
type eventFeed struct {
	next  storefront.Dispatcher
	board *storefront.NoticeBoard
}

func (f *eventFeed) Dispatch(ctx context.Context, cmd storefront.Command) storefront.Result {
	result := f.next.Dispatch(ctx, cmd)
	result.Notices = append(result.Notices, f.board.Drain()...)
	return result
}

// startEventFeed подписывается на события заказов. Без брокеров возвращает исходный диспетчер.
func startEventFeed(ctx context.Context, cfg app.Config, next storefront.Dispatcher, logger *log.Entry) (storefront.Dispatcher, func()) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Warnf("%s is not set, live order events are disabled", app.EnvKafkaBrokers)
		return next, func() {}
	}

	feed := &eventFeed{next: next, board: storefront.NewNoticeBoard(0)}
	consumer, err := kafka.NewConsumer(brokers, "farmstand-staff-"+cfg.TerminalID, []string{cfg.KafkaTopic},
		kafka.OrderEventHandler(func(_ context.Context, event *kafka.OrderEvent) error {
			feed.board.NotifyInfo(eventNotice(event))
			return nil
		}),
		kafka.WithConsumerLogger(logger.WithField("layer", "events")),
	)
	if err != nil {
		logger.WithError(err).Warn("live order events are unavailable")
		return next, func() {}
	}
	_ = consumer.Start(ctx)

	return feed, func() {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop order event consumer")
		}
	}
}

func eventNotice(event *kafka.OrderEvent) string {
	if event.EventType == kafka.EventTypeOrderSubmitFailed {
		return fmt.Sprintf("Order from %s failed: %s", event.Customer, event.Error)
	}
	return fmt.Sprintf("New order from %s: %d line(s), %s €", event.Customer, len(event.Lines), event.Total)
}
