// Package metrics содержит Prometheus-метрики витрины.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты команд для label result.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
	ResultExpired = "session_expired"
)

// StorefrontMetrics метрики команд покупателя и персонала.
type StorefrontMetrics struct {
	commands        *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	submitDuration  prometheus.Histogram
	cartLines       prometheus.Gauge
	cartValue       prometheus.Gauge
	adminActions    *prometheus.CounterVec
	sessionsExpired prometheus.Counter
}

// NewStorefrontMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в registerer.
// Повторная регистрация возвращает уже существующие collectors.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		commands: register(registerer, "farmstand_commands_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmstand_commands_total",
			Help: "Total number of storefront commands grouped by command and result",
		}, []string{"command", "result"})),
		submissions: register(registerer, "farmstand_order_submissions_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmstand_order_submissions_total",
			Help: "Total number of order submissions that reached the backend grouped by outcome",
		}, []string{"outcome"})),
		submitDuration: register(registerer, "farmstand_order_submit_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farmstand_order_submit_duration_seconds",
			Help:    "Duration of order submission round-trips in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})),
		cartLines: register(registerer, "farmstand_cart_lines", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farmstand_cart_lines",
			Help: "Number of lines currently in the cart",
		})),
		cartValue: register(registerer, "farmstand_cart_value_euros", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farmstand_cart_value_euros",
			Help: "Current cart total in euros",
		})),
		adminActions: register(registerer, "farmstand_admin_actions_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmstand_admin_actions_total",
			Help: "Total number of staff actions grouped by action and result",
		}, []string{"action", "result"})),
		sessionsExpired: register(registerer, "farmstand_admin_sessions_expired_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmstand_admin_sessions_expired_total",
			Help: "Total number of staff sessions cleared after an authorization failure",
		})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	return collector
}

// RecordCommand учитывает выполненную команду.
func (m *StorefrontMetrics) RecordCommand(command, result string) {
	m.commands.WithLabelValues(command, result).Inc()
}

// RecordSubmission учитывает попытку отправки заказа и её длительность.
func (m *StorefrontMetrics) RecordSubmission(outcome string, duration time.Duration) {
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitDuration.Observe(duration.Seconds())
}

// SetCart публикует размер и сумму корзины.
func (m *StorefrontMetrics) SetCart(lines int, total float64) {
	m.cartLines.Set(float64(lines))
	m.cartValue.Set(total)
}

// RecordAdminAction учитывает действие персонала.
func (m *StorefrontMetrics) RecordAdminAction(action, result string) {
	m.adminActions.WithLabelValues(action, result).Inc()
	if result == ResultExpired {
		m.sessionsExpired.Inc()
	}
}
