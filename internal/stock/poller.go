package stock

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

const defaultRefreshInterval = 30 * time.Second

// RefreshErrorMessage показывается пользователю, если склад не удалось загрузить.
const RefreshErrorMessage = "Unable to load products"

var (
	stockRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmstand_stock_refresh_total",
		Help: "Total number of stock snapshot refreshes grouped by result.",
	}, []string{"result"})
	stockSnapshotItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farmstand_stock_snapshot_items",
		Help: "Number of items in the current stock snapshot.",
	})
	stockSnapshotTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farmstand_stock_snapshot_timestamp_seconds",
		Help: "Unix time of the last successful stock refresh.",
	})
)

// Notifier получает сообщения об ошибках обновления для показа пользователю.
type Notifier interface {
	NotifyError(message string)
}

// PollerOptions задаёт параметры Poller.
type PollerOptions struct {
	Logger   *log.Entry
	Interval time.Duration
	Notifier Notifier
	Now      func() time.Time
}

// Option настраивает Poller.
type Option func(*PollerOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *PollerOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт период обновления.
func WithInterval(interval time.Duration) Option {
	return func(opts *PollerOptions) {
		opts.Interval = interval
	}
}

// WithNotifier задаёт получателя пользовательских ошибок.
func WithNotifier(notifier Notifier) Option {
	return func(opts *PollerOptions) {
		opts.Notifier = notifier
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(opts *PollerOptions) {
		opts.Now = now
	}
}

// Poller периодически загружает склад и атомарно заменяет снимок в Store.
// Перезапускаемый: Start/Stop можно вызывать повторно.
type Poller struct {
	api      domain.StockAPI
	store    *Store
	notifier Notifier
	logger   *log.Entry
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timers  map[*time.Timer]struct{}
}

// NewPoller создаёт Poller.
func NewPoller(api domain.StockAPI, store *Store, options ...Option) *Poller {
	opts := PollerOptions{Interval: defaultRefreshInterval}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "stock-poller")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Poller{
		api:      api,
		store:    store,
		notifier: opts.Notifier,
		logger:   logger,
		interval: opts.Interval,
		now:      opts.Now,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// Store возвращает хранилище снимков.
func (p *Poller) Store() *Store {
	return p.store
}

// Refresh загружает склад один раз. При ошибке прежний снимок остаётся,
// пользователь получает уведомление, метод возвращает false.
func (p *Poller) Refresh(ctx context.Context) bool {
	items, err := p.api.FetchStock(ctx)
	if err != nil {
		stockRefreshTotal.WithLabelValues("error").Inc()
		p.logger.WithError(err).Warn("failed to refresh stock snapshot")
		if p.notifier != nil {
			p.notifier.NotifyError(RefreshErrorMessage)
		}
		return false
	}

	snapshot := NewSnapshot(items, p.now())
	p.store.Replace(snapshot)

	stockRefreshTotal.WithLabelValues("ok").Inc()
	stockSnapshotItems.Set(float64(snapshot.Len()))
	stockSnapshotTimestamp.Set(float64(snapshot.FetchedAt().Unix()))
	p.logger.WithField("items", snapshot.Len()).Debug("stock snapshot refreshed")
	return true
}

// Run загружает склад сразу и затем по таймеру до отмены ctx.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Start запускает Run в фоне. Повторный вызов без Stop ничего не делает.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.baseCtx = runCtx
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		p.Run(runCtx)
	}()
}

// Stop останавливает фоновый цикл и отложенные обновления и ждёт завершения цикла.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.baseCtx = nil
	for timer := range p.timers {
		timer.Stop()
	}
	clear(p.timers)
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running сообщает, запущен ли фоновый цикл.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// RefreshAfter планирует однократное обновление через d. d <= 0 означает «сразу, в фоне».
func (p *Poller) RefreshAfter(d time.Duration) {
	if d < 0 {
		d = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx := p.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		p.mu.Lock()
		delete(p.timers, timer)
		p.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		p.Refresh(ctx)
	})
	p.timers[timer] = struct{}{}
}

// Pending количество запланированных, но ещё не выполненных обновлений.
func (p *Poller) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}
