package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "redular"

// Metrics — Prometheus метрики планировщика.
//
// Методы безопасны для nil-получателя: компоненты без метрик
// просто ничего не записывают.
type Metrics struct {
	scheduled       *prometheus.CounterVec
	notScheduled    prometheus.Counter
	fired           *prometheus.CounterVec
	deleted         prometheus.Counter
	pruned          prometheus.Counter
	ignored         *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
}

// NewMetrics создаёт и регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_scheduled_total",
			Help:      "Events written to the store with a TTL.",
		}, []string{"scope"}),
		notScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_not_scheduled_total",
			Help:      "Schedule calls rejected (past date or store failure).",
		}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fired_total",
			Help:      "Events handed to the dispatcher.",
		}, []string{"source"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deleted_total",
			Help:      "Events deleted before firing.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_pruned_total",
			Help:      "Orphaned data keys removed by prune.",
		}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_ignored_total",
			Help:      "Notifications dropped by the listeners.",
		}, []string{"reason"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store commands that failed.",
		}, []string{"op"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent in event handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.scheduled,
		m.notScheduled,
		m.fired,
		m.deleted,
		m.pruned,
		m.ignored,
		m.storeErrors,
		m.handlerDuration,
	)

	return m
}

// EventScheduled учитывает запланированное событие.
func (m *Metrics) EventScheduled(scope string) {
	if m == nil {
		return
	}
	m.scheduled.WithLabelValues(scope).Inc()
}

// EventNotScheduled учитывает отклонённое планирование.
func (m *Metrics) EventNotScheduled() {
	if m == nil {
		return
	}
	m.notScheduled.Inc()
}

// EventFired учитывает сработавшее событие.
func (m *Metrics) EventFired(source string) {
	if m == nil {
		return
	}
	m.fired.WithLabelValues(source).Inc()
}

// EventDeleted учитывает удалённое событие.
func (m *Metrics) EventDeleted() {
	if m == nil {
		return
	}
	m.deleted.Inc()
}

// DataPruned учитывает n удалённых осиротевших ключей данных.
func (m *Metrics) DataPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

// NotificationIgnored учитывает отброшенное уведомление.
func (m *Metrics) NotificationIgnored(reason string) {
	if m == nil {
		return
	}
	m.ignored.WithLabelValues(reason).Inc()
}

// StoreError учитывает ошибку команды хранилища.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

// ObserveHandler записывает длительность обработчика.
func (m *Metrics) ObserveHandler(event string, d time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(event).Observe(d.Seconds())
}
