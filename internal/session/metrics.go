package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts session lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	Created    prometheus.Counter
	Finished   prometheus.Counter
	Discarded  prometheus.Counter
	Reconciled prometheus.Counter
	Skipped    prometheus.Counter
	Errors     *prometheus.CounterVec
}

// NewMetrics creates the session counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_sessions_created_total",
			Help:      "Shopping sessions created, including replacements.",
		}),
		Finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_sessions_finished_total",
			Help:      "Shopping sessions finished and reconciled.",
		}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_sessions_discarded_total",
			Help:      "Shopping sessions deleted without reconciliation.",
		}),
		Reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_items_reconciled_total",
			Help:      "Purchased session items propagated to their grocery list item.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_items_reconcile_skipped_total",
			Help:      "Purchased session items whose grocery list item no longer exists.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "household",
			Name:      "shopping_session_errors_total",
			Help:      "Session operations that failed in storage.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.Created, m.Finished, m.Discarded, m.Reconciled, m.Skipped, m.Errors)
	return m
}

func (m *Metrics) created() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) finished(res reconcileResult) {
	if m != nil {
		m.Finished.Inc()
		m.Reconciled.Add(float64(res.reconciled))
		m.Skipped.Add(float64(res.skipped))
	}
}

func (m *Metrics) discarded() {
	if m != nil {
		m.Discarded.Inc()
	}
}

func (m *Metrics) failed(op string) {
	if m != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}
