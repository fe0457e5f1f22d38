package admin

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

const defaultWatchInterval = 30 * time.Second

// OrdersSource отдаёт заказы к подготовке.
type OrdersSource interface {
	OrdersToPrepare(ctx context.Context) ([]domain.CustomerOrders, error)
}

// WatcherOption настраивает Watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval задаёт период опроса.
func WithWatchInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithWatchLogger задаёт logger.
func WithWatchLogger(logger *log.Entry) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher периодически перечитывает заказы и отдаёт их в onUpdate.
// Останавливается сам, когда сессия истекла.
type Watcher struct {
	source   OrdersSource
	onUpdate func([]domain.CustomerOrders, error)
	interval time.Duration
	logger   *log.Entry
}

// NewWatcher создаёт Watcher.
func NewWatcher(source OrdersSource, onUpdate func([]domain.CustomerOrders, error), options ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   source,
		onUpdate: onUpdate,
		interval: defaultWatchInterval,
		logger:   log.WithField("component", "orders-watcher"),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run опрашивает заказы до отмены ctx или истечения сессии.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	groups, err := w.source.OrdersToPrepare(ctx)
	if ctx.Err() != nil {
		return nil
	}
	w.onUpdate(groups, err)
	if err != nil && domain.IsAuthError(err) {
		w.logger.WithError(err).Info("stopping orders watch: session expired")
		return err
	}
	return nil
}
