// Package retention удаляет старые записи журнала отправок заказов.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRetention = 30 * 24 * time.Hour

	defaultInterval  = time.Hour
	defaultBatchSize = 500
)

var (
	retentionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmstand_journal_retention_runs_total",
		Help: "Total number of submission journal retention runs grouped by result.",
	}, []string{"result"})
	retentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmstand_journal_retention_deleted_total",
		Help: "Total number of submission records removed by retention.",
	})
	retentionLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farmstand_journal_retention_last_deleted",
		Help: "Number of submission records removed during the last retention run.",
	})
)

// Pruner удаляет записи старше before, не больше limit за вызов.
type Pruner interface {
	DeleteBefore(before time.Time, limit int) (int, error)
}

// Options параметры воркера.
type Options struct {
	Logger    *log.Entry
	Retention time.Duration
	Interval  time.Duration
	BatchSize int
	Now       func() time.Time
}

// Option настраивает Worker.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithRetention задаёт срок хранения записей.
func WithRetention(retention time.Duration) Option {
	return func(opts *Options) {
		opts.Retention = retention
	}
}

func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Worker периодически чистит журнал отправок.
type Worker struct {
	journal   Pruner
	logger    *log.Entry
	retention time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewWorker создаёт воркер. Нулевые значения опций заменяются значениями по умолчанию.
func NewWorker(journal Pruner, options ...Option) *Worker {
	opts := Options{
		Retention: DefaultRetention,
		Interval:  defaultInterval,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "journal-retention-worker")
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Worker{
		journal:   journal,
		logger:    opts.Logger,
		retention: opts.Retention,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// Cutoff возвращает границу: записи старше неё удаляются.
func (w *Worker) Cutoff() time.Time {
	return w.now().UTC().Add(-w.retention)
}

// Run чистит журнал сразу и затем каждые interval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.journal == nil {
		w.logger.Warn("journal retention worker is disabled: journal is nil")
		return
	}

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	cutoff := w.Cutoff()
	deleted, err := w.Prune(ctx, cutoff)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		retentionRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("journal retention run failed")
		return
	}

	retentionRunsTotal.WithLabelValues("ok").Inc()
	retentionLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithFields(log.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("journal retention completed")
	}
}

// Prune удаляет записи старше before порциями batchSize, пока порция не окажется неполной.
func (w *Worker) Prune(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.Cutoff()
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.journal.DeleteBefore(before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			retentionDeletedTotal.Add(float64(deleted))
		}
		if deleted < w.batchSize {
			return total, nil
		}
	}
}
