package reminder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by pollers. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ticks          *prometheus.CounterVec
	fired          *prometheus.CounterVec
	notifyFailures *prometheus.CounterVec
	markFailures   *prometheus.CounterVec
	tickDuration   *prometheus.HistogramVec
}

// NewMetrics creates the reminder collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyadmin",
			Subsystem: "reminder",
			Name:      "ticks_total",
			Help:      "Reminder checks by kind and result.",
		}, []string{"kind", "result"}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyadmin",
			Subsystem: "reminder",
			Name:      "fired_total",
			Help:      "Reminders marked as fired.",
		}, []string{"kind"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyadmin",
			Subsystem: "reminder",
			Name:      "notify_failures_total",
			Help:      "Due reminders whose notification was not delivered.",
		}, []string{"kind"}),
		markFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyadmin",
			Subsystem: "reminder",
			Name:      "mark_failures_total",
			Help:      "Due reminders that could not be marked as fired.",
		}, []string{"kind"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skyadmin",
			Subsystem: "reminder",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a reminder check.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.fired, m.notifyFailures, m.markFailures, m.tickDuration)
	}
	return m
}

func (m *Metrics) observeTick(kind, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(kind, result).Inc()
	m.tickDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) incFired(kind string) {
	if m == nil {
		return
	}
	m.fired.WithLabelValues(kind).Inc()
}

func (m *Metrics) incNotifyFailure(kind string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) incMarkFailure(kind string) {
	if m == nil {
		return
	}
	m.markFailures.WithLabelValues(kind).Inc()
}
